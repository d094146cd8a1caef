package dataframe

import (
	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
)

// GroupBy is a pending eager grouped aggregation. It holds no state beyond
// the source frame and the keys; the work happens in Agg.
type GroupBy struct {
	df   *DataFrame
	keys []string
}

// Agg reduces each group with the given aggregations. Output columns are
// the keys (groups in first-seen row order) followed by one column per
// aggregation; an unaliased aggregation keeps its source column's name.
func (g *GroupBy) Agg(aggs ...*expr.AggregationExpr) (*DataFrame, error) {
	return g.df.Lazy().GroupBy(g.keys...).Agg(aggs...).Collect()
}

// Sum aggregates each listed column with sum.
func (g *GroupBy) Sum(columns ...string) (*DataFrame, error) {
	return g.Agg(aggEach(expr.Sum, columns)...)
}

// Count aggregates each listed column with count.
func (g *GroupBy) Count(columns ...string) (*DataFrame, error) {
	return g.Agg(aggEach(expr.Count, columns)...)
}

// Mean aggregates each listed column with mean.
func (g *GroupBy) Mean(columns ...string) (*DataFrame, error) {
	return g.Agg(aggEach(expr.Mean, columns)...)
}

// Min aggregates each listed column with min.
func (g *GroupBy) Min(columns ...string) (*DataFrame, error) {
	return g.Agg(aggEach(expr.Min, columns)...)
}

// Max aggregates each listed column with max.
func (g *GroupBy) Max(columns ...string) (*DataFrame, error) {
	return g.Agg(aggEach(expr.Max, columns)...)
}

func aggEach(agg func(*expr.ColumnExpr) *expr.AggregationExpr, columns []string) []*expr.AggregationExpr {
	aggs := make([]*expr.AggregationExpr, len(columns))
	for i, column := range columns {
		aggs[i] = agg(expr.Col(column))
	}
	return aggs
}

// LazyGroupBy is the deferred counterpart of GroupBy.
type LazyGroupBy struct {
	lf   *LazyFrame
	keys []string
}

// Agg reduces each group and returns the chain's next frame.
func (lg *LazyGroupBy) Agg(aggs ...*expr.AggregationExpr) *LazyFrame {
	if lg.lf.err != nil {
		return lg.lf
	}
	return lg.lf.next(lg.lf.df.aggImpl(lg.keys, aggs))
}

func (df *DataFrame) aggImpl(keys []string, aggs []*expr.AggregationExpr) (*DataFrame, error) {
	if len(keys) == 0 {
		return nil, errors.NewInvalidInputError("GroupBy", "at least one grouping key required")
	}

	reducers := make([]engine.Aggregation, len(aggs))
	for i, agg := range aggs {
		reducers[i] = engine.Aggregation{
			Column: agg.Column().Name(),
			Type:   agg.AggType(),
			Output: agg.OutputName(),
		}
	}

	reduced, err := df.ns.Engine().GroupReduce(df.columns, keys, reducers)
	if err != nil {
		return nil, err
	}
	out, err := New(df.ns, df.mem, reduced)
	if err != nil {
		for _, col := range reduced {
			col.Release()
		}
		return nil, err
	}
	return out, nil
}
