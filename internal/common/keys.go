// Package common provides shared helpers for argument normalization and
// numeric reductions used across the frame and engine layers.
package common

// FlattenStrings normalizes a mix of individual keys and key groups into one
// flat ordered slice. Duplicates are preserved as given; deciding whether
// duplicates are legal belongs to the caller.
func FlattenStrings(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	flat := make([]string, 0, total)
	for _, g := range groups {
		flat = append(flat, g...)
	}
	return flat
}

// DefaultKeys returns keys unchanged when non-empty, otherwise fallback.
// Sort with no explicit keys falls back to every column in frame order.
func DefaultKeys(keys, fallback []string) []string {
	if len(keys) > 0 {
		return keys
	}
	return append([]string(nil), fallback...)
}

// BroadcastBools expands a single flag to n copies, or validates that an
// explicit per-key slice already has length n.
func BroadcastBools(flags []bool, n int) ([]bool, bool) {
	switch len(flags) {
	case 0:
		return make([]bool, n), true
	case 1:
		out := make([]bool, n)
		for i := range out {
			out[i] = flags[0]
		}
		return out, true
	case n:
		return flags, true
	default:
		return nil, false
	}
}
