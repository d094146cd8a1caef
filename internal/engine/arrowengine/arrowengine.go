// Package arrowengine implements the ColumnEngine contract over Apache
// Arrow arrays: boolean-mask row selection, stable key sort, inner hash
// join and first-seen-ordered group reduction.
package arrowengine

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/series"
)

// Engine is the Arrow-backed columnar engine.
type Engine struct {
	mem memory.Allocator
}

// New creates an Arrow engine using mem, defaulting to the Go allocator.
func New(mem memory.Allocator) *Engine {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Engine{mem: mem}
}

// Name identifies the backend.
func (e *Engine) Name() string {
	return "arrow"
}

// FilterColumns keeps rows where mask is true. Null mask slots drop the row,
// matching boolean-mask selection semantics of columnar engines.
func (e *Engine) FilterColumns(cols []series.Column, mask *array.Boolean) ([]series.Column, error) {
	rows := rowCount(cols)
	if mask.Len() != rows {
		return nil, errors.NewInvalidInputError("Filter",
			fmt.Sprintf("mask length %d incompatible with frame length %d", mask.Len(), rows))
	}

	indices := make([]int, 0, mask.Len())
	for i := 0; i < mask.Len(); i++ {
		if !mask.IsNull(i) && mask.Value(i) {
			indices = append(indices, i)
		}
	}

	return e.takeAll(cols, indices)
}

// SortColumns reorders rows by the key columns left to right, stably.
func (e *Engine) SortColumns(cols []series.Column, keys []string, descending []bool) ([]series.Column, error) {
	if len(descending) != len(keys) {
		return nil, errors.NewInvalidInputError("Sort",
			fmt.Sprintf("descending flags (%d) must match sort keys (%d)", len(descending), len(keys)))
	}

	byName := indexByName(cols)
	comparators := make([]func(i, j int) int, len(keys))
	for k, key := range keys {
		col, ok := byName[key]
		if !ok {
			return nil, errors.NewColumnNotFoundError("Sort", key)
		}
		cmp, err := comparatorFor(col)
		if err != nil {
			return nil, err
		}
		if descending[k] {
			inner := cmp
			cmp = func(i, j int) int { return -inner(i, j) }
		}
		comparators[k] = cmp
	}

	indices := make([]int, rowCount(cols))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		for _, cmp := range comparators {
			if c := cmp(indices[a], indices[b]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	return e.takeAll(cols, indices)
}

// takeAll materializes every column at the given row indices.
func (e *Engine) takeAll(cols []series.Column, indices []int) ([]series.Column, error) {
	out := make([]series.Column, 0, len(cols))
	for _, col := range cols {
		taken, err := e.take(col, indices)
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

// take builds a new column containing col's rows at indices, in order,
// preserving nulls.
func (e *Engine) take(col series.Column, indices []int) (series.Column, error) {
	arr := col.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		builder := array.NewStringBuilder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	case *array.Int64:
		builder := array.NewInt64Builder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	case *array.Int32:
		builder := array.NewInt32Builder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	case *array.Float64:
		builder := array.NewFloat64Builder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	case *array.Float32:
		builder := array.NewFloat32Builder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	case *array.Boolean:
		builder := array.NewBooleanBuilder(e.mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return e.wrap(col.Name(), builder.NewArray()), nil
	default:
		return nil, errors.NewTypeMismatchError("take", col.Name(),
			fmt.Sprintf("unsupported array type %s", arr.DataType().Name()))
	}
}

// wrap adopts a freshly built array into a Column, balancing the builder's
// reference.
func (e *Engine) wrap(name string, arr arrow.Array) series.Column {
	col := series.FromArray(name, arr)
	arr.Release()
	return col
}

// comparatorFor returns a three-way row comparator for one column.
func comparatorFor(col series.Column) (func(i, j int) int, error) {
	arr := col.Array()
	// The closure keeps the array alive for the duration of the sort; it is
	// released with the column itself.
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		return func(i, j int) int { return compare(typed.Value(i), typed.Value(j)) }, nil
	case *array.Int64:
		return func(i, j int) int { return compare(typed.Value(i), typed.Value(j)) }, nil
	case *array.Int32:
		return func(i, j int) int { return compare(typed.Value(i), typed.Value(j)) }, nil
	case *array.Float64:
		return func(i, j int) int { return compare(typed.Value(i), typed.Value(j)) }, nil
	case *array.Float32:
		return func(i, j int) int { return compare(typed.Value(i), typed.Value(j)) }, nil
	case *array.Boolean:
		return func(i, j int) int { return compareBool(typed.Value(i), typed.Value(j)) }, nil
	default:
		return nil, errors.NewTypeMismatchError("Sort", col.Name(),
			fmt.Sprintf("unsupported sort key type %s", arr.DataType().Name()))
	}
}

func compare[T string | int64 | int32 | float64 | float32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	default:
		return 0
	}
}

func rowCount(cols []series.Column) int {
	if len(cols) == 0 {
		return 0
	}
	return cols[0].Len()
}

func indexByName(cols []series.Column) map[string]series.Column {
	byName := make(map[string]series.Column, len(cols))
	for _, col := range cols {
		byName[col.Name()] = col
	}
	return byName
}
