package dataframe

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/facetdata/facet/internal/config"
	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/parallel"
	"github.com/facetdata/facet/internal/series"
)

// arrays exposes the frame's columns to the evaluator. Every array is
// retained; callers must release through releaseArrays.
func (df *DataFrame) arrays() map[string]arrow.Array {
	out := make(map[string]arrow.Array, len(df.columns))
	for _, col := range df.columns {
		out[col.Name()] = col.Array()
	}
	return out
}

func releaseArrays(arrays map[string]arrow.Array) {
	for _, arr := range arrays {
		arr.Release()
	}
}

// resultColumn adopts an evaluator result as a Column, consuming the
// result's reference.
func resultColumn(r expr.Result) series.Column {
	col := series.FromArray(r.Name, r.Array)
	r.Release()
	return col
}

// shareColumn returns a Column sharing col's storage, so a derived frame can
// carry a column without copying or stealing ownership.
func shareColumn(col series.Column) series.Column {
	return series.Rename(col, col.Name())
}

// evalExprs evaluates expressions against the frame and flattens the results
// in order. Evaluation fans out to the worker pool once the frame crosses
// the configured parallel threshold; expressions are pure, so concurrent
// evaluation cannot observe each other.
func (df *DataFrame) evalExprs(exprs []expr.Expr) ([]series.Column, error) {
	rows := df.Len()
	columns := df.arrays()
	defer releaseArrays(columns)

	evaluator := expr.NewEvaluator(df.mem)

	type branch struct {
		results []expr.Result
		err     error
	}

	evalOne := func(ex expr.Expr) branch {
		results, err := evaluator.EvaluateInto(ex, columns, rows)
		return branch{results: results, err: err}
	}

	var branches []branch
	cfg := config.GetGlobalConfig()
	if len(exprs) > 1 && rows >= cfg.ParallelThreshold {
		pool := parallel.NewWorkerPool(cfg.WorkerPoolSize)
		defer pool.Close()
		branches = parallel.ProcessIndexed(pool, exprs, func(_ int, ex expr.Expr) branch {
			return evalOne(ex)
		})
	} else {
		branches = make([]branch, len(exprs))
		for i, ex := range exprs {
			branches[i] = evalOne(ex)
		}
	}

	var out []series.Column
	var firstErr error
	for _, b := range branches {
		if b.err != nil {
			if firstErr == nil {
				firstErr = b.err
			}
			continue
		}
		for _, r := range b.results {
			if firstErr != nil {
				r.Release()
				continue
			}
			out = append(out, resultColumn(r))
		}
	}
	if firstErr != nil {
		for _, col := range out {
			col.Release()
		}
		return nil, firstErr
	}
	return out, nil
}
