package dataframe

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/engine/arrowengine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

func testNamespace(mem memory.Allocator) *engine.Namespace {
	return engine.NewNamespace(arrowengine.New(mem), "v1")
}

func testFrame(t *testing.T, mem memory.Allocator) *DataFrame {
	t.Helper()
	ns := testNamespace(mem)
	df, err := New(ns, mem, []series.Column{
		series.New("name", []string{"ann", "bob", "cid", "dee"}, mem),
		series.New("dept", []string{"eng", "ops", "eng", "ops"}, mem),
		series.New("score", []int64{3, 1, 4, 1}, mem),
	})
	require.NoError(t, err)
	return df
}

func columnStrings(t *testing.T, df *DataFrame, name string) []string {
	t.Helper()
	col, err := df.Column(name)
	require.NoError(t, err)
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.String)
	require.True(t, ok, "column %s is %s, expected string", name, arr.DataType().Name())
	out := make([]string, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func columnInts(t *testing.T, df *DataFrame, name string) []int64 {
	t.Helper()
	col, err := df.Column(name)
	require.NoError(t, err)
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Int64)
	require.True(t, ok, "column %s is %s, expected int64", name, arr.DataType().Name())
	out := make([]int64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func columnFloats(t *testing.T, df *DataFrame, name string) []float64 {
	t.Helper()
	col, err := df.Column(name)
	require.NoError(t, err)
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Float64)
	require.True(t, ok, "column %s is %s, expected float64", name, arr.DataType().Name())
	out := make([]float64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func TestNewValidatesDuplicateNames(t *testing.T) {
	mem := memory.NewGoAllocator()
	ns := testNamespace(mem)

	a := series.New("x", []int64{1}, mem)
	b := series.New("x", []int64{2}, mem)
	c := series.New("y", []int64{3}, mem)
	d := series.New("y", []int64{4}, mem)
	defer a.Release()
	defer b.Release()
	defer c.Release()
	defer d.Release()

	_, err := New(ns, mem, []series.Column{a, b, c, d})
	require.Error(t, err)
	// Every duplicate is reported, not just the first, and the aggregated
	// error still classifies as DuplicateName.
	assert.Contains(t, err.Error(), `got "x" 2 time(s)`)
	assert.Contains(t, err.Error(), `got "y" 2 time(s)`)
	assert.True(t, errors.IsDuplicateName(err))
}

func TestNewValidatesLengths(t *testing.T) {
	mem := memory.NewGoAllocator()
	ns := testNamespace(mem)

	a := series.New("x", []int64{1, 2}, mem)
	b := series.New("y", []int64{3}, mem)
	defer a.Release()
	defer b.Release()

	_, err := New(ns, mem, []series.Column{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestFrameAccessors(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	assert.Equal(t, []string{"name", "dept", "score"}, df.Columns())
	assert.Equal(t, 4, df.Len())
	assert.Equal(t, 3, df.Width())
	rows, cols := df.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	assert.True(t, df.HasColumn("dept"))
	assert.False(t, df.HasColumn("salary"))

	_, err := df.Column("salary")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	assert.Contains(t, df.String(), "DataFrame[4x3]")
}

func TestSelectProjects(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Select(expr.Col("dept"), expr.Col("score").Add(expr.Lit(1)).Alias("bumped"))
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"dept", "bumped"}, out.Columns())
	assert.Equal(t, []int64{4, 2, 5, 2}, columnInts(t, out, "bumped"))
	// The source frame is untouched.
	assert.Equal(t, []string{"name", "dept", "score"}, df.Columns())
}

func TestSelectFansOutCols(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Select(expr.Cols("score", "name"))
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"score", "name"}, out.Columns())
}

func TestSelectMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.Select(expr.Col("salary"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestWithColumnsUpserts(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.WithColumns(
		expr.Col("score").Mul(expr.Lit(10)).Alias("score"),
		expr.Lit("hq").Alias("site"),
	)
	require.NoError(t, err)
	defer out.Release()

	// Replaced column keeps its position; new column appends on the right.
	assert.Equal(t, []string{"name", "dept", "score", "site"}, out.Columns())
	assert.Equal(t, []int64{30, 10, 40, 10}, columnInts(t, out, "score"))
	assert.Equal(t, []string{"hq", "hq", "hq", "hq"}, columnStrings(t, out, "site"))
}

func TestWithColumnsRejectsDuplicateOutputs(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.WithColumns(
		expr.Lit(1).Alias("twice"),
		expr.Lit(2).Alias("twice"),
	)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateName(err))
}

func TestFilterCombinesPredicates(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Filter(
		expr.Col("dept").Eq(expr.Lit("eng")),
		expr.Col("score").Gt(expr.Lit(3)),
	)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 1, out.Len())
	assert.Equal(t, []string{"cid"}, columnStrings(t, out, "name"))
}

func TestFilterRequiresBooleanPredicate(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.Filter(expr.Col("score"))
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "only boolean dtype allowed")
}

func TestFilterRequiresPredicates(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.Filter()
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSortDefaultsToAllColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Sort()
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"ann", "bob", "cid", "dee"}, columnStrings(t, out, "name"))
}

func TestSortByDescendingBroadcast(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.SortBy([]string{"score"}, []bool{true})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []int64{4, 3, 1, 1}, columnInts(t, out, "score"))
	// Stability: bob before dee among the ties.
	assert.Equal(t, []string{"cid", "ann", "bob", "dee"}, columnStrings(t, out, "name"))
}

func TestSortByFlagLengthMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.SortBy([]string{"dept", "score"}, []bool{true, false, true})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func joinFrames(t *testing.T, mem memory.Allocator) (*DataFrame, *DataFrame) {
	t.Helper()
	ns := testNamespace(mem)

	left, err := New(ns, mem, []series.Column{
		series.New("id", []int64{1, 2, 3}, mem),
		series.New("name", []string{"ann", "bob", "cid"}, mem),
	})
	require.NoError(t, err)

	right, err := New(ns, mem, []series.Column{
		series.New("id", []int64{3, 1}, mem),
		series.New("city", []string{"rome", "oslo"}, mem),
	})
	require.NoError(t, err)
	return left, right
}

func TestJoinInner(t *testing.T) {
	mem := memory.NewGoAllocator()
	left, right := joinFrames(t, mem)
	defer left.Release()
	defer right.Release()

	out, err := left.Join(right, JoinInner, []string{"id"}, []string{"id"})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"id", "name", "city"}, out.Columns())
	// Output follows left-frame row order.
	assert.Equal(t, []int64{1, 3}, columnInts(t, out, "id"))
	assert.Equal(t, []string{"oslo", "rome"}, columnStrings(t, out, "city"))
}

func TestJoinRejectsNonInner(t *testing.T) {
	mem := memory.NewGoAllocator()
	left, right := joinFrames(t, mem)
	defer left.Release()
	defer right.Release()

	_, err := left.Join(right, JoinLeft, []string{"id"}, []string{"id"})
	require.Error(t, err)
	assert.True(t, errors.IsNotSupported(err))
	assert.Contains(t, err.Error(), "only inner join is supported, got: left")
}

func TestJoinRejectsOverlappingColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	ns := testNamespace(mem)

	left, err := New(ns, mem, []series.Column{
		series.New("id", []int64{1}, mem),
		series.New("zone", []string{"a"}, mem),
		series.New("name", []string{"ann"}, mem),
	})
	require.NoError(t, err)
	defer left.Release()

	right, err := New(ns, mem, []series.Column{
		series.New("id", []int64{1}, mem),
		series.New("name", []string{"x"}, mem),
		series.New("zone", []string{"b"}, mem),
	})
	require.NoError(t, err)
	defer right.Release()

	_, err = left.Join(right, JoinInner, []string{"id"}, []string{"id"})
	require.Error(t, err)
	assert.True(t, errors.IsNameCollision(err))
	// Colliding names are listed sorted.
	assert.Contains(t, err.Error(), "[name, zone]")
}

func TestGroupByAggDefaultNaming(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.GroupBy("dept").Agg(expr.Sum(expr.Col("score")))
	require.NoError(t, err)
	defer out.Release()

	// Unaliased aggregations keep the source column's name.
	assert.Equal(t, []string{"dept", "score"}, out.Columns())
	assert.Equal(t, []string{"eng", "ops"}, columnStrings(t, out, "dept"))
	assert.Equal(t, []int64{7, 2}, columnInts(t, out, "score"))
}

func TestGroupByAggAliased(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.GroupBy("dept").Agg(
		expr.Mean(expr.Col("score")).As("avg_score"),
		expr.Count(expr.Col("name")).As("headcount"),
	)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"dept", "avg_score", "headcount"}, out.Columns())
	assert.Equal(t, []float64{3.5, 1}, columnFloats(t, out, "avg_score"))
	assert.Equal(t, []int64{2, 2}, columnInts(t, out, "headcount"))
}

func TestGroupByConveniences(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.GroupBy("dept").Sum("score")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int64{7, 2}, columnInts(t, out, "score"))

	mn, err := df.GroupBy("dept").Min("score")
	require.NoError(t, err)
	defer mn.Release()
	assert.Equal(t, []int64{3, 1}, columnInts(t, mn, "score"))
}

func TestGroupByRequiresKeys(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.GroupBy().Agg(expr.Sum(expr.Col("score")))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestLazyChainSurfacesFirstError(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	// The missing column fails first; later operations pass the error
	// through untouched.
	_, err := df.Lazy().
		Select(expr.Col("salary")).
		Filter(expr.Col("score").Gt(expr.Lit(0))).
		Sort("name").
		Collect()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLazyErrAccessor(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	lf := df.Lazy().Select(expr.Col("salary"))
	require.Error(t, lf.Err())

	ok := df.Lazy().Select(expr.Col("name"))
	assert.NoError(t, ok.Err())
	out, err := ok.Collect()
	require.NoError(t, err)
	out.Release()
}

func TestLazyGroupByPropagatesError(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	_, err := df.Lazy().
		Select(expr.Col("salary")).
		GroupBy("dept").
		Agg(expr.Sum(expr.Col("score"))).
		Collect()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGroupByDetachesKeySlice(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	keys := []string{"dept"}
	gb := df.GroupBy(keys...)
	keys[0] = "name"

	out, err := gb.Sum("score")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []string{"dept", "score"}, out.Columns())
	assert.Equal(t, []int64{7, 2}, columnInts(t, out, "score"))
}

func TestEagerMatchesLazy(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	eager, err := df.Filter(expr.Col("dept").Eq(expr.Lit("eng")))
	require.NoError(t, err)
	defer eager.Release()

	lazy, err := df.Lazy().Filter(expr.Col("dept").Eq(expr.Lit("eng"))).Collect()
	require.NoError(t, err)
	defer lazy.Release()

	assert.Equal(t, eager.Columns(), lazy.Columns())
	assert.Equal(t, columnStrings(t, eager, "name"), columnStrings(t, lazy, "name"))
}

func TestCollectWithoutOpsSharesStorage(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Lazy().Collect()
	require.NoError(t, err)
	assert.Equal(t, df.Columns(), out.Columns())
	out.Release()

	// The source frame survives the collected copy's release.
	assert.Equal(t, 4, df.Len())
	assert.Equal(t, []string{"ann", "bob", "cid", "dee"}, columnStrings(t, df, "name"))
}

func TestHead(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testFrame(t, mem)
	defer df.Release()

	out, err := df.Head(2)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"ann", "bob"}, columnStrings(t, out, "name"))

	all, err := df.Head(10)
	require.NoError(t, err)
	defer all.Release()
	assert.Equal(t, 4, all.Len())

	_, err = df.Head(-1)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}
