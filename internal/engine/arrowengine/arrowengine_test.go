package arrowengine

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

func testColumns(t *testing.T, mem memory.Allocator) []series.Column {
	t.Helper()
	return []series.Column{
		series.New("name", []string{"ann", "bob", "cid", "dee", "eve"}, mem),
		series.New("dept", []string{"eng", "ops", "eng", "ops", "eng"}, mem),
		series.New("score", []int64{3, 1, 4, 1, 5}, mem),
	}
}

func releaseAll(cols []series.Column) {
	for _, col := range cols {
		col.Release()
	}
}

func stringValues(t *testing.T, col series.Column) []string {
	t.Helper()
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.String)
	require.True(t, ok, "expected string column, got %s", arr.DataType().Name())
	out := make([]string, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func int64Values(t *testing.T, col series.Column) []int64 {
	t.Helper()
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Int64)
	require.True(t, ok, "expected int64 column, got %s", arr.DataType().Name())
	out := make([]int64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func float64Values(t *testing.T, col series.Column) []float64 {
	t.Helper()
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Float64)
	require.True(t, ok, "expected float64 column, got %s", arr.DataType().Name())
	out := make([]float64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func boolMask(mem memory.Allocator, values []bool) *array.Boolean {
	builder := array.NewBooleanBuilder(mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewBooleanArray()
}

func TestFilterColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	mask := boolMask(mem, []bool{true, false, true, false, true})
	defer mask.Release()

	out, err := eng.FilterColumns(cols, mask)
	require.NoError(t, err)
	defer releaseAll(out)

	assert.Equal(t, []string{"ann", "cid", "eve"}, stringValues(t, out[0]))
	assert.Equal(t, []int64{3, 4, 5}, int64Values(t, out[2]))
}

func TestFilterColumnsLengthMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	mask := boolMask(mem, []bool{true, false})
	defer mask.Release()

	_, err := eng.FilterColumns(cols, mask)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSortColumnsStable(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	out, err := eng.SortColumns(cols, []string{"dept"}, []bool{false})
	require.NoError(t, err)
	defer releaseAll(out)

	assert.Equal(t, []string{"eng", "eng", "eng", "ops", "ops"}, stringValues(t, out[1]))
	// Equal keys keep their original relative order.
	assert.Equal(t, []string{"ann", "cid", "eve", "bob", "dee"}, stringValues(t, out[0]))
}

func TestSortColumnsMultiKeyDescending(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	out, err := eng.SortColumns(cols, []string{"dept", "score"}, []bool{false, true})
	require.NoError(t, err)
	defer releaseAll(out)

	assert.Equal(t, []string{"eng", "eng", "eng", "ops", "ops"}, stringValues(t, out[1]))
	assert.Equal(t, []int64{5, 4, 3, 1, 1}, int64Values(t, out[2]))
}

func TestSortColumnsUnknownKey(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	_, err := eng.SortColumns(cols, []string{"nope"}, []bool{false})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestJoinColumnsInner(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)

	left := []series.Column{
		series.New("id", []int64{1, 2, 3}, mem),
		series.New("name", []string{"ann", "bob", "cid"}, mem),
	}
	defer releaseAll(left)
	right := []series.Column{
		series.New("id", []int64{2, 3, 4}, mem),
		series.New("city", []string{"oslo", "rome", "lima"}, mem),
	}
	defer releaseAll(right)

	out, err := eng.JoinColumns(left, right, []string{"id"}, []string{"id"})
	require.NoError(t, err)
	defer releaseAll(out)

	// Same-named right key folds into the left key column.
	require.Len(t, out, 3)
	assert.Equal(t, "id", out[0].Name())
	assert.Equal(t, "name", out[1].Name())
	assert.Equal(t, "city", out[2].Name())
	assert.Equal(t, []int64{2, 3}, int64Values(t, out[0]))
	assert.Equal(t, []string{"bob", "cid"}, stringValues(t, out[1]))
	assert.Equal(t, []string{"oslo", "rome"}, stringValues(t, out[2]))
}

func TestJoinColumnsDuplicateRightMatches(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)

	left := []series.Column{series.New("k", []string{"a", "b"}, mem)}
	defer releaseAll(left)
	right := []series.Column{
		series.New("k", []string{"a", "a"}, mem),
		series.New("v", []int64{1, 2}, mem),
	}
	defer releaseAll(right)

	out, err := eng.JoinColumns(left, right, []string{"k"}, []string{"k"})
	require.NoError(t, err)
	defer releaseAll(out)

	// Left row "a" matches twice, in right-frame order; "b" matches nothing.
	assert.Equal(t, []string{"a", "a"}, stringValues(t, out[0]))
	assert.Equal(t, []int64{1, 2}, int64Values(t, out[1]))
}

func TestJoinColumnsDifferentKeyNamesKeepBoth(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)

	left := []series.Column{series.New("lid", []int64{1, 2}, mem)}
	defer releaseAll(left)
	right := []series.Column{
		series.New("rid", []int64{2}, mem),
		series.New("v", []int64{9}, mem),
	}
	defer releaseAll(right)

	out, err := eng.JoinColumns(left, right, []string{"lid"}, []string{"rid"})
	require.NoError(t, err)
	defer releaseAll(out)

	require.Len(t, out, 3)
	assert.Equal(t, "lid", out[0].Name())
	assert.Equal(t, "rid", out[1].Name())
	assert.Equal(t, "v", out[2].Name())
}

func TestGroupReduce(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	out, err := eng.GroupReduce(cols, []string{"dept"}, []engine.Aggregation{
		{Column: "score", Type: expr.AggSum, Output: "score"},
		{Column: "score", Type: expr.AggCount, Output: "n"},
		{Column: "score", Type: expr.AggMean, Output: "avg"},
		{Column: "score", Type: expr.AggMin, Output: "lo"},
		{Column: "score", Type: expr.AggMax, Output: "hi"},
	})
	require.NoError(t, err)
	defer releaseAll(out)

	require.Len(t, out, 6)
	// Groups appear in first-seen row order: eng before ops.
	assert.Equal(t, []string{"eng", "ops"}, stringValues(t, out[0]))
	assert.Equal(t, []int64{12, 2}, int64Values(t, out[1]))
	assert.Equal(t, []int64{3, 2}, int64Values(t, out[2]))
	assert.Equal(t, []float64{4, 1}, float64Values(t, out[3]))
	assert.Equal(t, []int64{3, 1}, int64Values(t, out[4]))
	assert.Equal(t, []int64{5, 1}, int64Values(t, out[5]))
}

func TestGroupReduceStringMinMax(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	out, err := eng.GroupReduce(cols, []string{"dept"}, []engine.Aggregation{
		{Column: "name", Type: expr.AggMin, Output: "first_name"},
	})
	require.NoError(t, err)
	defer releaseAll(out)

	assert.Equal(t, []string{"ann", "bob"}, stringValues(t, out[1]))
}

func TestGroupReduceStringSumRejected(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	_, err := eng.GroupReduce(cols, []string{"dept"}, []engine.Aggregation{
		{Column: "name", Type: expr.AggSum, Output: "bad"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
}

func TestGroupReduceMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := testColumns(t, mem)
	defer releaseAll(cols)

	_, err := eng.GroupReduce(cols, []string{"dept"}, []engine.Aggregation{
		{Column: "nope", Type: expr.AggSum, Output: "bad"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGroupReduceMultiKey(t *testing.T) {
	mem := memory.NewGoAllocator()
	eng := New(mem)
	cols := []series.Column{
		series.New("a", []string{"x", "x", "y"}, mem),
		series.New("b", []int64{1, 1, 1}, mem),
		series.New("v", []int64{10, 20, 30}, mem),
	}
	defer releaseAll(cols)

	out, err := eng.GroupReduce(cols, []string{"a", "b"}, []engine.Aggregation{
		{Column: "v", Type: expr.AggSum, Output: "v"},
	})
	require.NoError(t, err)
	defer releaseAll(out)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"x", "y"}, stringValues(t, out[0]))
	assert.Equal(t, []int64{1, 1}, int64Values(t, out[1]))
	assert.Equal(t, []int64{30, 30}, int64Values(t, out[2]))
}

func TestEngineName(t *testing.T) {
	assert.Equal(t, "arrow", New(nil).Name())
}
