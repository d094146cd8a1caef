package dataframe

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/facetdata/facet/internal/common"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

// LazyFrame is the deferred counterpart of DataFrame. Operations chain
// without error returns; the first failure is recorded and every later
// operation passes it through, so Collect surfaces exactly the first error.
//
// Frames produced mid-chain are owned by the LazyFrame and released as the
// chain advances; the frame a chain started from stays with its caller.
type LazyFrame struct {
	df    *DataFrame
	err   error
	owned bool
}

// next advances the chain to a fresh frame, releasing the previous one when
// the chain owned it.
func (lf *LazyFrame) next(df *DataFrame, err error) *LazyFrame {
	if lf.owned {
		lf.df.Release()
	}
	if err != nil {
		return &LazyFrame{err: err}
	}
	return &LazyFrame{df: df, owned: true}
}

// Err returns the recorded error, if any.
func (lf *LazyFrame) Err() error {
	return lf.err
}

// Collect materializes the frame or surfaces the first recorded error. The
// returned frame is owned by the caller.
func (lf *LazyFrame) Collect() (*DataFrame, error) {
	if lf.err != nil {
		return nil, lf.err
	}
	if lf.owned {
		lf.owned = false
		return lf.df, nil
	}
	return lf.df.share(), nil
}

// share returns a frame over the same storage, independently releasable.
func (df *DataFrame) share() *DataFrame {
	columns := make([]series.Column, len(df.columns))
	for i, col := range df.columns {
		columns[i] = shareColumn(col)
	}
	return &DataFrame{ns: df.ns, mem: df.mem, columns: columns}
}

// Select evaluates expressions and keeps only their outputs, in order.
func (lf *LazyFrame) Select(exprs ...expr.Expr) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	return lf.next(lf.df.selectImpl(exprs))
}

func (df *DataFrame) selectImpl(exprs []expr.Expr) (*DataFrame, error) {
	cols, err := df.evalExprs(exprs)
	if err != nil {
		return nil, err
	}
	out, err := New(df.ns, df.mem, cols)
	if err != nil {
		for _, col := range cols {
			col.Release()
		}
		return nil, err
	}
	return out, nil
}

// WithColumns evaluates expressions and upserts their outputs: a result
// whose name matches an existing column replaces it in place, anything else
// is appended on the right.
func (lf *LazyFrame) WithColumns(exprs ...expr.Expr) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	return lf.next(lf.df.withColumnsImpl(exprs))
}

func (df *DataFrame) withColumnsImpl(exprs []expr.Expr) (*DataFrame, error) {
	evaluated, err := df.evalExprs(exprs)
	if err != nil {
		return nil, err
	}
	release := func(cols []series.Column) {
		for _, col := range cols {
			col.Release()
		}
	}

	replacements := make(map[string]series.Column, len(evaluated))
	for _, col := range evaluated {
		if _, dup := replacements[col.Name()]; dup {
			release(evaluated)
			return nil, errors.NewDuplicateNameError("WithColumns", col.Name(), 2)
		}
		replacements[col.Name()] = col
	}

	columns := make([]series.Column, 0, len(df.columns)+len(evaluated))
	used := make(map[string]bool, len(replacements))
	for _, col := range df.columns {
		if replacement, ok := replacements[col.Name()]; ok {
			columns = append(columns, replacement)
			used[col.Name()] = true
		} else {
			columns = append(columns, shareColumn(col))
		}
	}
	for _, col := range evaluated {
		if !used[col.Name()] {
			columns = append(columns, col)
		}
	}

	out, err := New(df.ns, df.mem, columns)
	if err != nil {
		release(columns)
		return nil, err
	}
	return out, nil
}

// Filter keeps the rows where every predicate evaluates to true. Predicates
// combine with row-wise AND and must be boolean and frame-aligned.
func (lf *LazyFrame) Filter(predicates ...expr.Expr) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	return lf.next(lf.df.filterImpl(predicates))
}

func (df *DataFrame) filterImpl(predicates []expr.Expr) (*DataFrame, error) {
	if len(predicates) == 0 {
		return nil, errors.NewInvalidInputError("Filter", "at least one predicate required")
	}

	columns := df.arrays()
	defer releaseArrays(columns)

	evaluator := expr.NewEvaluator(df.mem)
	mask, err := evaluator.EvaluateBoolean(df.ns.AllHorizontal(predicates...), columns, df.Len())
	if err != nil {
		return nil, err
	}
	defer mask.Release()

	filtered, err := df.ns.Engine().FilterColumns(df.columns, mask)
	if err != nil {
		return nil, err
	}
	return New(df.ns, df.mem, filtered)
}

// Sort sorts ascending by the given keys; with no keys it sorts by every
// column in frame order.
func (lf *LazyFrame) Sort(keys ...string) *LazyFrame {
	return lf.SortBy(keys, nil)
}

// SortBy sorts by keys with per-key direction flags. One flag broadcasts to
// all keys; otherwise flags and keys must pair up.
func (lf *LazyFrame) SortBy(keys []string, descending []bool) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	return lf.next(lf.df.sortImpl(keys, descending))
}

func (df *DataFrame) sortImpl(keys []string, descending []bool) (*DataFrame, error) {
	keys = common.DefaultKeys(common.FlattenStrings(keys), df.Columns())
	flags, ok := common.BroadcastBools(descending, len(keys))
	if !ok {
		return nil, errors.NewInvalidInputError("Sort",
			fmt.Sprintf("descending must have length 1 or %d, got %d", len(keys), len(descending)))
	}

	sorted, err := df.ns.Engine().SortColumns(df.columns, keys, flags)
	if err != nil {
		return nil, err
	}
	return New(df.ns, df.mem, sorted)
}

// Join inner-joins with other on the paired key columns. Non-key columns
// sharing a name across both sides are rejected before any work happens.
func (lf *LazyFrame) Join(other *LazyFrame, how JoinType, leftOn, rightOn []string) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	if other.err != nil {
		return lf.next(nil, other.err)
	}
	right := other.df
	result, err := lf.df.joinImpl(right, how, leftOn, rightOn)
	if other.owned {
		right.Release()
		other.owned = false
	}
	return lf.next(result, err)
}

func (df *DataFrame) joinImpl(other *DataFrame, how JoinType, leftOn, rightOn []string) (*DataFrame, error) {
	if how != JoinInner {
		return nil, errors.NewNotSupportedError("Join",
			fmt.Sprintf("only inner join is supported, got: %s", how))
	}
	if len(leftOn) == 0 || len(leftOn) != len(rightOn) {
		return nil, errors.NewInvalidInputError("Join",
			fmt.Sprintf("left_on and right_on must pair up, got %d and %d keys", len(leftOn), len(rightOn)))
	}

	if overlap := overlappingColumns(df.Columns(), other.Columns(), leftOn, rightOn); len(overlap) > 0 {
		return nil, errors.NewNameCollisionError("Join", overlap)
	}

	joined, err := df.ns.Engine().JoinColumns(df.columns, other.columns, leftOn, rightOn)
	if err != nil {
		return nil, err
	}
	return New(df.ns, df.mem, joined)
}

// overlappingColumns returns, sorted, the names present on both sides that
// the join cannot disambiguate. A right key matching its left counterpart
// by name is folded into one output column and therefore never collides.
func overlappingColumns(left, right, leftOn, rightOn []string) []string {
	folded := make(map[string]bool, len(rightOn))
	for i, key := range rightOn {
		if key == leftOn[i] {
			folded[key] = true
		}
	}

	leftNames := make(map[string]bool, len(left))
	for _, name := range left {
		leftNames[name] = true
	}

	var overlap []string
	for _, name := range right {
		if leftNames[name] && !folded[name] {
			overlap = append(overlap, name)
		}
	}
	sort.Strings(overlap)
	return overlap
}

// GroupBy starts a deferred grouped aggregation over the given keys. The
// keys are flattened into a fresh slice, detached from the caller's.
func (lf *LazyFrame) GroupBy(keys ...string) *LazyGroupBy {
	return &LazyGroupBy{lf: lf, keys: common.FlattenStrings(keys)}
}

// Head keeps the first n rows.
func (lf *LazyFrame) Head(n int) *LazyFrame {
	if lf.err != nil {
		return lf
	}
	return lf.next(lf.df.headImpl(n))
}

func (df *DataFrame) headImpl(n int) (*DataFrame, error) {
	if n < 0 {
		return nil, errors.NewInvalidInputError("Head", fmt.Sprintf("row count must be non-negative, got %d", n))
	}

	builder := array.NewBooleanBuilder(df.mem)
	defer builder.Release()
	for i := 0; i < df.Len(); i++ {
		builder.Append(i < n)
	}
	mask := builder.NewBooleanArray()
	defer mask.Release()

	taken, err := df.ns.Engine().FilterColumns(df.columns, mask)
	if err != nil {
		return nil, err
	}
	return New(df.ns, df.mem, taken)
}
