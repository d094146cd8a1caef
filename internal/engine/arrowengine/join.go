package arrowengine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"

	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/series"
)

// rowKeyer encodes the key cells of a row into a composite string key.
// Cells are length-prefixed so distinct tuples never collide, and null
// cells are tagged so null != "".
type rowKeyer struct {
	accessors []func(row int) (string, bool)
}

func newRowKeyer(cols []series.Column, keys []string, op string) (*rowKeyer, error) {
	byName := indexByName(cols)
	accessors := make([]func(int) (string, bool), 0, len(keys))
	for _, key := range keys {
		col, ok := byName[key]
		if !ok {
			return nil, errors.NewColumnNotFoundError(op, key)
		}
		acc, err := cellAccessor(col, op)
		if err != nil {
			return nil, err
		}
		accessors = append(accessors, acc)
	}
	return &rowKeyer{accessors: accessors}, nil
}

func (rk *rowKeyer) key(row int) string {
	var sb strings.Builder
	for _, acc := range rk.accessors {
		cell, valid := acc(row)
		if !valid {
			sb.WriteString("N|")
			continue
		}
		sb.WriteString(strconv.Itoa(len(cell)))
		sb.WriteByte(':')
		sb.WriteString(cell)
		sb.WriteByte('|')
	}
	return sb.String()
}

// cellAccessor returns a function yielding one cell's string form and
// validity. The returned closure keeps the array alive through the column.
func cellAccessor(col series.Column, op string) (func(int) (string, bool), error) {
	arr := col.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return typed.Value(i), true
		}, nil
	case *array.Int64:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return strconv.FormatInt(typed.Value(i), 10), true
		}, nil
	case *array.Int32:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return strconv.FormatInt(int64(typed.Value(i)), 10), true
		}, nil
	case *array.Float64:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return strconv.FormatFloat(typed.Value(i), 'g', -1, 64), true
		}, nil
	case *array.Float32:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return strconv.FormatFloat(float64(typed.Value(i)), 'g', -1, 32), true
		}, nil
	case *array.Boolean:
		return func(i int) (string, bool) {
			if typed.IsNull(i) {
				return "", false
			}
			return strconv.FormatBool(typed.Value(i)), true
		}, nil
	default:
		return nil, errors.NewTypeMismatchError(op, col.Name(),
			fmt.Sprintf("unsupported key type %s", arr.DataType().Name()))
	}
}

type hashBucket struct {
	key  string
	rows []int
}

// JoinColumns performs an inner equi-join. The right side is hashed on its
// key tuple; left rows probe in order, so output row order follows the left
// frame with right matches in right-frame order.
func (e *Engine) JoinColumns(left, right []series.Column, leftOn, rightOn []string) ([]series.Column, error) {
	if len(leftOn) != len(rightOn) {
		return nil, errors.NewInvalidInputError("Join",
			fmt.Sprintf("left_on has %d keys, right_on has %d", len(leftOn), len(rightOn)))
	}

	leftKeyer, err := newRowKeyer(left, leftOn, "Join")
	if err != nil {
		return nil, err
	}
	rightKeyer, err := newRowKeyer(right, rightOn, "Join")
	if err != nil {
		return nil, err
	}

	buckets := make(map[uint64][]*hashBucket)
	for row := 0; row < rowCount(right); row++ {
		key := rightKeyer.key(row)
		hash := xxhash.Sum64String(key)
		found := false
		for _, bucket := range buckets[hash] {
			if bucket.key == key {
				bucket.rows = append(bucket.rows, row)
				found = true
				break
			}
		}
		if !found {
			buckets[hash] = append(buckets[hash], &hashBucket{key: key, rows: []int{row}})
		}
	}

	var leftIndices, rightIndices []int
	for row := 0; row < rowCount(left); row++ {
		key := leftKeyer.key(row)
		for _, bucket := range buckets[xxhash.Sum64String(key)] {
			if bucket.key != key {
				continue
			}
			for _, match := range bucket.rows {
				leftIndices = append(leftIndices, row)
				rightIndices = append(rightIndices, match)
			}
			break
		}
	}

	leftOut, err := e.takeAll(left, leftIndices)
	if err != nil {
		return nil, err
	}

	// Right join-key columns sharing a name with their left counterpart carry
	// the same values on matched rows, so only the left copy survives.
	dropped := make(map[string]bool, len(rightOn))
	for i, key := range rightOn {
		if key == leftOn[i] {
			dropped[key] = true
		}
	}

	out := leftOut
	for _, col := range right {
		if dropped[col.Name()] {
			continue
		}
		taken, err := e.take(col, rightIndices)
		if err != nil {
			for _, c := range out {
				c.Release()
			}
			return nil, err
		}
		out = append(out, taken)
	}
	return out, nil
}
