package expr

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetdata/facet/internal/errors"
)

func buildColumns(t *testing.T, mem memory.Allocator) map[string]arrow.Array {
	t.Helper()

	ints := array.NewInt64Builder(mem)
	defer ints.Release()
	ints.AppendValues([]int64{1, 2, 3, 4}, nil)

	floats := array.NewFloat64Builder(mem)
	defer floats.Release()
	floats.AppendValues([]float64{0.5, 1.5, 2.5, 3.5}, nil)

	strs := array.NewStringBuilder(mem)
	defer strs.Release()
	strs.AppendValues([]string{"a", "b", "a", "c"}, nil)

	bools := array.NewBooleanBuilder(mem)
	defer bools.Release()
	bools.AppendValues([]bool{true, false, true, true}, nil)

	return map[string]arrow.Array{
		"n":    ints.NewArray(),
		"f":    floats.NewArray(),
		"s":    strs.NewArray(),
		"flag": bools.NewArray(),
	}
}

func releaseColumns(columns map[string]arrow.Array) {
	for _, arr := range columns {
		arr.Release()
	}
}

func int64Slice(t *testing.T, arr arrow.Array) []int64 {
	t.Helper()
	typed, ok := arr.(*array.Int64)
	require.True(t, ok, "expected int64 array, got %T", arr)
	out := make([]int64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func float64Slice(t *testing.T, arr arrow.Array) []float64 {
	t.Helper()
	typed, ok := arr.(*array.Float64)
	require.True(t, ok, "expected float64 array, got %T", arr)
	out := make([]float64, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func boolSlice(t *testing.T, arr arrow.Array) []bool {
	t.Helper()
	typed, ok := arr.(*array.Boolean)
	require.True(t, ok, "expected boolean array, got %T", arr)
	out := make([]bool, typed.Len())
	for i := range out {
		out[i] = typed.Value(i)
	}
	return out
}

func TestEvaluateColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)

	ev := NewEvaluator(mem)
	arr, err := ev.Evaluate(Col("n"), columns, 4)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []int64{1, 2, 3, 4}, int64Slice(t, arr))
}

func TestEvaluateMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)

	ev := NewEvaluator(mem)
	_, err := ev.Evaluate(Col("nope"), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestEvaluateLiteralBroadcast(t *testing.T) {
	mem := memory.NewGoAllocator()
	ev := NewEvaluator(mem)

	arr, err := ev.Evaluate(Lit(7), nil, 3)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []int64{7, 7, 7}, int64Slice(t, arr))

	farr, err := ev.Evaluate(Lit(2.5), nil, 2)
	require.NoError(t, err)
	defer farr.Release()
	assert.Equal(t, []float64{2.5, 2.5}, float64Slice(t, farr))
}

func TestEvaluateArithmetic(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	// Integer arithmetic stays integral.
	arr, err := ev.Evaluate(Col("n").Add(Lit(10)), columns, 4)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []int64{11, 12, 13, 14}, int64Slice(t, arr))

	// A float operand promotes the result.
	farr, err := ev.Evaluate(Col("n").Mul(Lit(0.5)), columns, 4)
	require.NoError(t, err)
	defer farr.Release()
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, float64Slice(t, farr))

	// Division by zero yields zero rather than panicking.
	zarr, err := ev.Evaluate(Col("n").Div(Lit(0)), columns, 4)
	require.NoError(t, err)
	defer zarr.Release()
	assert.Equal(t, []int64{0, 0, 0, 0}, int64Slice(t, zarr))
}

func TestEvaluateComparison(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	arr, err := ev.Evaluate(Col("n").Gt(Lit(2)), columns, 4)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []bool{false, false, true, true}, boolSlice(t, arr))

	sarr, err := ev.Evaluate(Col("s").Eq(Lit("a")), columns, 4)
	require.NoError(t, err)
	defer sarr.Release()
	assert.Equal(t, []bool{true, false, true, false}, boolSlice(t, sarr))

	// Mixed int and float comparison goes through float64.
	marr, err := ev.Evaluate(Col("n").Le(Col("f")), columns, 4)
	require.NoError(t, err)
	defer marr.Release()
	assert.Equal(t, []bool{false, false, false, false}, boolSlice(t, marr))
}

func TestEvaluateComparisonTypeMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	_, err := ev.Evaluate(Col("s").Gt(Col("n")), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))

	_, err = ev.Evaluate(Col("flag").Lt(Col("flag")), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
}

func TestEvaluateLogicalAndUnary(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	arr, err := ev.Evaluate(Col("n").Gt(Lit(1)).And(Col("flag").Eq(Lit(true))), columns, 4)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []bool{false, false, true, true}, boolSlice(t, arr))

	narr, err := ev.Evaluate(Col("flag").Not(), columns, 4)
	require.NoError(t, err)
	defer narr.Release()
	assert.Equal(t, []bool{false, true, false, false}, boolSlice(t, narr))

	negarr, err := ev.Evaluate(Col("n").Neg(), columns, 4)
	require.NoError(t, err)
	defer negarr.Release()
	assert.Equal(t, []int64{-1, -2, -3, -4}, int64Slice(t, negarr))
}

func TestEvaluateAllHorizontal(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	arr, err := ev.Evaluate(AllHorizontal(Col("n").Gt(Lit(1)), Col("flag")), columns, 4)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []bool{false, false, true, true}, boolSlice(t, arr))

	_, err = ev.Evaluate(AllHorizontal(), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = ev.Evaluate(AllHorizontal(Col("n")), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
}

func TestEvaluateBooleanRejectsNonBoolean(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	_, err := ev.EvaluateBoolean(Col("n"), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "only boolean dtype allowed")
}

func TestEvaluateIntoFansOutCols(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	results, err := ev.EvaluateInto(Cols("s", "n"), columns, 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	defer func() {
		for _, r := range results {
			r.Release()
		}
	}()
	assert.Equal(t, "s", results[0].Name)
	assert.Equal(t, "n", results[1].Name)
}

func TestEvaluateAliasRenames(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	results, err := ev.EvaluateInto(Col("n").Add(Lit(1)).Alias("n_plus"), columns, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	defer results[0].Release()
	assert.Equal(t, "n_plus", results[0].Name)
}

func TestEvaluateAggregationRejected(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := buildColumns(t, mem)
	defer releaseColumns(columns)
	ev := NewEvaluator(mem)

	_, err := ev.Evaluate(Sum(Col("n")), columns, 4)
	require.Error(t, err)
	assert.True(t, errors.IsNotSupported(err))
}
