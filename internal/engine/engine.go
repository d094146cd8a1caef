// Package engine defines the contract between the frame layer and an
// underlying columnar engine. The frame layer owns validation and expression
// evaluation; everything that physically moves rows (masking, reordering,
// merging, group reduction) is delegated through ColumnEngine.
package engine

import (
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/facetdata/facet/internal/expr"
	"github.com/facetdata/facet/internal/series"
)

// Aggregation describes one group reducer: which column to reduce, how, and
// the output column name.
type Aggregation struct {
	Column string
	Type   expr.AggregationType
	Output string
}

// ColumnEngine is the set of physical operations a backend must provide.
// Columns passed in are ordered, equal-length and uniquely named; engines
// return fresh columns and never mutate their inputs.
type ColumnEngine interface {
	// Name identifies the backend ("arrow").
	Name() string
	// FilterColumns keeps the rows where mask is true, preserving the
	// relative order of retained rows.
	FilterColumns(cols []series.Column, mask *array.Boolean) ([]series.Column, error)
	// SortColumns reorders rows by the key columns left to right. The sort
	// is stable: rows equal on all keys keep their original relative order.
	SortColumns(cols []series.Column, keys []string, descending []bool) ([]series.Column, error)
	// JoinColumns performs an inner equi-join. Output columns are the left
	// columns followed by the right columns, with right join-key columns
	// dropped when they share a name with their left counterpart.
	JoinColumns(left, right []series.Column, leftOn, rightOn []string) ([]series.Column, error)
	// GroupReduce splits rows by the key columns (first-seen group order)
	// and applies each aggregation per group. Output: key columns first, in
	// the given order, then one column per aggregation in call order.
	GroupReduce(cols []series.Column, keys []string, aggs []Aggregation) ([]series.Column, error)
}

// Namespace binds a backend and an API version into the handle frames thread
// through every operation. It also exposes the horizontal combinators the
// frame layer consumes, bound to that backend; there is no process-global
// backend state.
type Namespace struct {
	engine     ColumnEngine
	apiVersion string
}

// NewNamespace creates a namespace handle for an explicit backend.
func NewNamespace(eng ColumnEngine, apiVersion string) *Namespace {
	return &Namespace{engine: eng, apiVersion: apiVersion}
}

// Engine returns the bound backend.
func (ns *Namespace) Engine() ColumnEngine {
	return ns.engine
}

// APIVersion returns the API version the namespace was constructed with.
func (ns *Namespace) APIVersion() string {
	return ns.apiVersion
}

// AllHorizontal returns the row-wise AND combinator over predicates, bound
// to this namespace's backend semantics.
func (ns *Namespace) AllHorizontal(predicates ...expr.Expr) expr.Expr {
	return expr.AllHorizontal(predicates...)
}
