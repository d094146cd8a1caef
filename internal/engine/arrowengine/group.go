package arrowengine

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/facetdata/facet/internal/common"
	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

// GroupReduce splits rows by the key tuple and reduces each aggregation per
// group. Groups appear in first-seen row order; output columns are the key
// columns followed by one column per aggregation.
func (e *Engine) GroupReduce(cols []series.Column, keys []string, aggs []engine.Aggregation) ([]series.Column, error) {
	keyer, err := newRowKeyer(cols, keys, "GroupBy")
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[string]int)
	var groups [][]int
	for row := 0; row < rowCount(cols); row++ {
		key := keyer.key(row)
		idx, seen := groupIndex[key]
		if !seen {
			idx = len(groups)
			groupIndex[key] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], row)
	}

	firstRows := make([]int, len(groups))
	for i, rows := range groups {
		firstRows[i] = rows[0]
	}

	byName := indexByName(cols)
	out := make([]series.Column, 0, len(keys)+len(aggs))
	release := func() {
		for _, c := range out {
			c.Release()
		}
	}

	for _, key := range keys {
		taken, err := e.take(byName[key], firstRows)
		if err != nil {
			release()
			return nil, err
		}
		out = append(out, taken)
	}

	for _, agg := range aggs {
		col, ok := byName[agg.Column]
		if !ok {
			release()
			return nil, errors.NewColumnNotFoundError("GroupBy", agg.Column)
		}
		reduced, err := e.reduce(col, groups, agg)
		if err != nil {
			release()
			return nil, err
		}
		out = append(out, reduced)
	}
	return out, nil
}

// reduce computes one aggregation column, one row per group. Nulls are
// skipped; a group with no valid cells yields a null.
func (e *Engine) reduce(col series.Column, groups [][]int, agg engine.Aggregation) (series.Column, error) {
	arr := col.Array()
	defer arr.Release()

	if agg.Type == expr.AggCount {
		builder := array.NewInt64Builder(e.mem)
		defer builder.Release()
		for _, rows := range groups {
			var count int64
			for _, row := range rows {
				if !arr.IsNull(row) {
					count++
				}
			}
			builder.Append(count)
		}
		return e.wrap(agg.Output, builder.NewArray()), nil
	}

	switch typed := arr.(type) {
	case *array.Int64:
		return reduceNumeric(e, typed.Value, typed.IsNull, groups, agg)
	case *array.Int32:
		return reduceNumeric(e, func(i int) int64 { return int64(typed.Value(i)) }, typed.IsNull, groups, agg)
	case *array.Float64:
		return reduceFloat(e, typed.Value, typed.IsNull, groups, agg)
	case *array.Float32:
		return reduceFloat(e, func(i int) float64 { return float64(typed.Value(i)) }, typed.IsNull, groups, agg)
	case *array.String:
		if agg.Type != expr.AggMin && agg.Type != expr.AggMax {
			return nil, errors.NewTypeMismatchError("GroupBy", col.Name(),
				fmt.Sprintf("cannot %s a string column", agg.Type))
		}
		return reduceString(e, typed, groups, agg)
	default:
		return nil, errors.NewTypeMismatchError("GroupBy", col.Name(),
			fmt.Sprintf("cannot %s a %s column", agg.Type, arr.DataType().Name()))
	}
}

// reduceNumeric handles integer columns. Sum, min and max stay int64; mean
// widens to float64.
func reduceNumeric(e *Engine, value func(int) int64, isNull func(int) bool, groups [][]int, agg engine.Aggregation) (series.Column, error) {
	if agg.Type == expr.AggMean {
		return reduceFloat(e, func(i int) float64 { return float64(value(i)) }, isNull, groups, agg)
	}

	builder := array.NewInt64Builder(e.mem)
	defer builder.Release()
	for _, rows := range groups {
		values := gather(rows, value, isNull)
		switch agg.Type {
		case expr.AggSum:
			builder.Append(common.SumOf(values))
		case expr.AggMin:
			if v, ok := common.MinOf(values); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		case expr.AggMax:
			if v, ok := common.MaxOf(values); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		}
	}
	return e.wrap(agg.Output, builder.NewArray()), nil
}

func reduceFloat(e *Engine, value func(int) float64, isNull func(int) bool, groups [][]int, agg engine.Aggregation) (series.Column, error) {
	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	for _, rows := range groups {
		values := gather(rows, value, isNull)
		switch agg.Type {
		case expr.AggSum:
			builder.Append(common.SumOf(values))
		case expr.AggMean:
			if len(values) == 0 {
				builder.AppendNull()
			} else {
				builder.Append(common.SumOf(values) / float64(len(values)))
			}
		case expr.AggMin:
			if v, ok := common.MinOf(values); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		case expr.AggMax:
			if v, ok := common.MaxOf(values); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		}
	}
	return e.wrap(agg.Output, builder.NewArray()), nil
}

func reduceString(e *Engine, typed *array.String, groups [][]int, agg engine.Aggregation) (series.Column, error) {
	builder := array.NewStringBuilder(e.mem)
	defer builder.Release()
	for _, rows := range groups {
		values := gather(rows, typed.Value, typed.IsNull)
		var v string
		var ok bool
		if agg.Type == expr.AggMin {
			v, ok = common.MinOf(values)
		} else {
			v, ok = common.MaxOf(values)
		}
		if ok {
			builder.Append(v)
		} else {
			builder.AppendNull()
		}
	}
	return e.wrap(agg.Output, builder.NewArray()), nil
}

func gather[T any](rows []int, value func(int) T, isNull func(int) bool) []T {
	values := make([]T, 0, len(rows))
	for _, row := range rows {
		if !isNull(row) {
			values = append(values, value(row))
		}
	}
	return values
}
