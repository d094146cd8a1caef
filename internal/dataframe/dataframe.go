// Package dataframe implements the eager and lazy frame types over the
// column engine. A DataFrame is an ordered set of uniquely named,
// equal-length columns bound to a namespace; every eager operation is sugar
// for lazy().op().Collect().
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hashicorp/go-multierror"

	"github.com/facetdata/facet/internal/common"
	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

// JoinType enumerates join strategies. Only inner joins are implemented;
// the other variants exist so callers get a NotSupported error instead of
// silently wrong results.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinOuter
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	default:
		return "outer"
	}
}

// DataFrame is an eager two-dimensional frame. It owns its columns; Release
// frees them. All operations return new frames and leave the receiver
// untouched.
type DataFrame struct {
	ns      *engine.Namespace
	mem     memory.Allocator
	columns []series.Column
}

// New creates a DataFrame from columns, taking ownership on success. Column
// names must be unique and lengths equal; on error the caller keeps
// ownership of the columns. Duplicate names are all reported, not just the
// first.
func New(ns *engine.Namespace, mem memory.Allocator, columns []series.Column) (*DataFrame, error) {
	if ns == nil {
		return nil, errors.NewInvalidInputError("DataFrame", "namespace is required")
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	counts := make(map[string]int, len(columns))
	order := make([]string, 0, len(columns))
	for _, col := range columns {
		if counts[col.Name()] == 0 {
			order = append(order, col.Name())
		}
		counts[col.Name()]++
	}
	var dupErr *multierror.Error
	for _, name := range order {
		if counts[name] > 1 {
			dupErr = multierror.Append(dupErr, errors.NewDuplicateNameError("DataFrame", name, counts[name]))
		}
	}
	if err := dupErr.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, col := range columns {
		if col.Len() != columns[0].Len() {
			return nil, errors.NewInvalidInputError("DataFrame",
				fmt.Sprintf("column %q has length %d, expected %d", col.Name(), col.Len(), columns[0].Len()))
		}
	}

	return &DataFrame{ns: ns, mem: mem, columns: columns}, nil
}

// Namespace returns the namespace the frame is bound to.
func (df *DataFrame) Namespace() *engine.Namespace {
	return df.ns
}

// Columns returns the column names in frame order.
func (df *DataFrame) Columns() []string {
	names := make([]string, len(df.columns))
	for i, col := range df.columns {
		names[i] = col.Name()
	}
	return names
}

// Len returns the number of rows.
func (df *DataFrame) Len() int {
	if len(df.columns) == 0 {
		return 0
	}
	return df.columns[0].Len()
}

// Width returns the number of columns.
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Shape returns (rows, columns).
func (df *DataFrame) Shape() (int, int) {
	return df.Len(), df.Width()
}

// HasColumn reports whether a column with the given name exists.
func (df *DataFrame) HasColumn(name string) bool {
	for _, col := range df.columns {
		if col.Name() == name {
			return true
		}
	}
	return false
}

// Column returns the named column. The frame retains ownership.
func (df *DataFrame) Column(name string) (series.Column, error) {
	for _, col := range df.columns {
		if col.Name() == name {
			return col, nil
		}
	}
	return nil, errors.NewColumnNotFoundError("Column", name)
}

// Release frees the frame's columns. The frame must not be used afterwards.
func (df *DataFrame) Release() {
	for _, col := range df.columns {
		col.Release()
	}
	df.columns = nil
}

// String renders the frame's shape and a preview of each column.
func (df *DataFrame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataFrame[%dx%d]\n", df.Len(), df.Width())
	for _, col := range df.columns {
		fmt.Fprintf(&sb, "  %s (%s): %s\n", col.Name(), col.DataType().Name(), previewColumn(col, 10))
	}
	return sb.String()
}

// previewColumn renders up to limit cells of a column.
func previewColumn(col series.Column, limit int) string {
	arr := col.Array()
	defer arr.Release()

	n := arr.Len()
	truncated := false
	if n > limit {
		n = limit
		truncated = true
	}

	cells := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			cells = append(cells, "null")
			continue
		}
		switch typed := arr.(type) {
		case *array.String:
			cells = append(cells, typed.Value(i))
		case *array.Int64:
			cells = append(cells, fmt.Sprintf("%d", typed.Value(i)))
		case *array.Int32:
			cells = append(cells, fmt.Sprintf("%d", typed.Value(i)))
		case *array.Float64:
			cells = append(cells, fmt.Sprintf("%g", typed.Value(i)))
		case *array.Float32:
			cells = append(cells, fmt.Sprintf("%g", typed.Value(i)))
		case *array.Boolean:
			cells = append(cells, fmt.Sprintf("%t", typed.Value(i)))
		default:
			cells = append(cells, "?")
		}
	}
	if truncated {
		cells = append(cells, "...")
	}
	return "[" + strings.Join(cells, ", ") + "]"
}

// Lazy wraps the frame in a LazyFrame. The receiver stays owned by the
// caller; lazy operations never release it.
func (df *DataFrame) Lazy() *LazyFrame {
	return &LazyFrame{df: df}
}

// Select evaluates expressions and returns a frame with only their outputs.
func (df *DataFrame) Select(exprs ...expr.Expr) (*DataFrame, error) {
	return df.Lazy().Select(exprs...).Collect()
}

// WithColumns evaluates expressions and upserts their outputs: existing
// names are replaced in place, new names are appended.
func (df *DataFrame) WithColumns(exprs ...expr.Expr) (*DataFrame, error) {
	return df.Lazy().WithColumns(exprs...).Collect()
}

// Filter keeps rows where every predicate is true.
func (df *DataFrame) Filter(predicates ...expr.Expr) (*DataFrame, error) {
	return df.Lazy().Filter(predicates...).Collect()
}

// Sort sorts ascending by the given keys, defaulting to all columns.
func (df *DataFrame) Sort(keys ...string) (*DataFrame, error) {
	return df.Lazy().Sort(keys...).Collect()
}

// SortBy sorts by keys with per-key direction. A single descending flag
// broadcasts across all keys.
func (df *DataFrame) SortBy(keys []string, descending []bool) (*DataFrame, error) {
	return df.Lazy().SortBy(keys, descending).Collect()
}

// Join inner-joins with other on the given key columns.
func (df *DataFrame) Join(other *DataFrame, how JoinType, leftOn, rightOn []string) (*DataFrame, error) {
	return df.Lazy().Join(other.Lazy(), how, leftOn, rightOn).Collect()
}

// GroupBy starts a grouped aggregation over the given keys. The keys are
// flattened into a fresh slice, so later mutation of the caller's slice
// cannot change the grouping.
func (df *DataFrame) GroupBy(keys ...string) *GroupBy {
	return &GroupBy{df: df, keys: common.FlattenStrings(keys)}
}

// Head returns the first n rows (all rows when n exceeds the length).
func (df *DataFrame) Head(n int) (*DataFrame, error) {
	return df.Lazy().Head(n).Collect()
}
