// Package facet provides a backend-agnostic, lazily evaluated DataFrame
// library. This package is the sole public API; frames are constructed
// through a Namespace that binds them to a columnar backend.
package facet

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/facetdata/facet/internal/dataframe"
	"github.com/facetdata/facet/internal/engine"
	"github.com/facetdata/facet/internal/engine/arrowengine"
	"github.com/facetdata/facet/internal/errors"
	"github.com/facetdata/facet/internal/expr"
	frameio "github.com/facetdata/facet/internal/io"
	"github.com/facetdata/facet/internal/series"
)

// APIVersion is the stable API version namespaces report.
const APIVersion = "v1"

// Column is the type-erased view of a typed series.
type Column interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
}

// Namespace binds frames to a columnar backend. There is no global backend
// state; everything a frame needs travels through its namespace.
type Namespace struct {
	ns  *engine.Namespace
	mem memory.Allocator
}

// NewNamespace creates a namespace for the named backend. "arrow" is the
// only backend currently implemented.
func NewNamespace(backend string) (*Namespace, error) {
	return NewNamespaceWithAllocator(backend, nil)
}

// NewNamespaceWithAllocator creates a namespace with an explicit allocator,
// defaulting to the Go allocator.
func NewNamespaceWithAllocator(backend string, mem memory.Allocator) (*Namespace, error) {
	if backend != "arrow" {
		return nil, errors.NewNotSupportedError("Namespace",
			fmt.Sprintf("unsupported backend %q, expected \"arrow\"", backend))
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Namespace{
		ns:  engine.NewNamespace(arrowengine.New(mem), APIVersion),
		mem: mem,
	}, nil
}

// APIVersion returns the API version the namespace reports.
func (n *Namespace) APIVersion() string {
	return n.ns.APIVersion()
}

// Backend returns the bound backend's name.
func (n *Namespace) Backend() string {
	return n.ns.Engine().Name()
}

// DataFrame is an eager two-dimensional frame with uniquely named,
// equal-length columns. Operations return new frames; Release frees the
// frame's storage.
type DataFrame struct {
	df *dataframe.DataFrame
}

// LazyFrame defers frame operations; the first failure in a chain is
// surfaced by Collect.
type LazyFrame struct {
	lf *dataframe.LazyFrame
}

// GroupBy is a pending eager grouped aggregation.
type GroupBy struct {
	gb *dataframe.GroupBy
}

// LazyGroupBy is a pending deferred grouped aggregation.
type LazyGroupBy struct {
	lgb *dataframe.LazyGroupBy
}

// Expression describes a deferred column computation.
type Expression struct {
	expr expr.Expr
}

// AggregationExpression describes one per-group reduction.
type AggregationExpression struct {
	agg *expr.AggregationExpr
}

// JoinType enumerates join strategies.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullOuterJoin
)

func (t JoinType) internal() dataframe.JoinType {
	return dataframe.JoinType(t)
}

// NewDataFrame creates a frame from columns, taking ownership on success.
// Duplicate column names and unequal lengths are rejected; every duplicate
// is reported.
func (n *Namespace) NewDataFrame(columns ...Column) (*DataFrame, error) {
	internal := make([]series.Column, len(columns))
	for i, col := range columns {
		internal[i] = col
	}
	df, err := dataframe.New(n.ns, n.mem, internal)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// NewSeries creates a typed column from values. Supported element types are
// string, int64, int32, float64, float32 and bool.
func NewSeries[T any](name string, values []T, mem memory.Allocator) (Column, error) {
	s, err := series.NewSafe(name, values, mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DataFrame methods.

// Columns returns the column names in frame order.
func (d *DataFrame) Columns() []string { return d.df.Columns() }

// Len returns the number of rows.
func (d *DataFrame) Len() int { return d.df.Len() }

// Width returns the number of columns.
func (d *DataFrame) Width() int { return d.df.Width() }

// Shape returns (rows, columns).
func (d *DataFrame) Shape() (int, int) { return d.df.Shape() }

// HasColumn reports whether the named column exists.
func (d *DataFrame) HasColumn(name string) bool { return d.df.HasColumn(name) }

// Column returns the named column; the frame retains ownership.
func (d *DataFrame) Column(name string) (Column, error) { return d.df.Column(name) }

// String renders the frame's shape and a preview of each column.
func (d *DataFrame) String() string { return d.df.String() }

// Release frees the frame's storage.
func (d *DataFrame) Release() { d.df.Release() }

// Lazy wraps the frame for deferred evaluation. The receiver stays owned by
// the caller.
func (d *DataFrame) Lazy() *LazyFrame {
	return &LazyFrame{lf: d.df.Lazy()}
}

// Select evaluates expressions and keeps only their outputs, in order.
func (d *DataFrame) Select(exprs ...Expression) (*DataFrame, error) {
	return d.Lazy().Select(exprs...).Collect()
}

// WithColumns evaluates expressions and upserts their outputs: matching
// names replace columns in place, new names append on the right.
func (d *DataFrame) WithColumns(exprs ...Expression) (*DataFrame, error) {
	return d.Lazy().WithColumns(exprs...).Collect()
}

// Filter keeps rows where every predicate is true.
func (d *DataFrame) Filter(predicates ...Expression) (*DataFrame, error) {
	return d.Lazy().Filter(predicates...).Collect()
}

// Sort sorts ascending by keys, defaulting to all columns. The sort is
// stable.
func (d *DataFrame) Sort(keys ...string) (*DataFrame, error) {
	return d.Lazy().Sort(keys...).Collect()
}

// SortBy sorts by keys with per-key direction flags; a single flag
// broadcasts across all keys.
func (d *DataFrame) SortBy(keys []string, descending []bool) (*DataFrame, error) {
	return d.Lazy().SortBy(keys, descending).Collect()
}

// Join inner-joins with other on the paired key columns.
func (d *DataFrame) Join(other *DataFrame, how JoinType, leftOn, rightOn []string) (*DataFrame, error) {
	return d.Lazy().Join(other.Lazy(), how, leftOn, rightOn).Collect()
}

// GroupBy starts an eager grouped aggregation over the keys.
func (d *DataFrame) GroupBy(keys ...string) *GroupBy {
	return &GroupBy{gb: d.df.GroupBy(keys...)}
}

// Head returns the first n rows.
func (d *DataFrame) Head(n int) (*DataFrame, error) {
	return d.Lazy().Head(n).Collect()
}

// LazyFrame methods.

// Select adds a projection to the chain.
func (lf *LazyFrame) Select(exprs ...Expression) *LazyFrame {
	return &LazyFrame{lf: lf.lf.Select(unwrapExprs(exprs)...)}
}

// WithColumns adds an upsert to the chain.
func (lf *LazyFrame) WithColumns(exprs ...Expression) *LazyFrame {
	return &LazyFrame{lf: lf.lf.WithColumns(unwrapExprs(exprs)...)}
}

// Filter adds a row selection to the chain; predicates combine with
// row-wise AND.
func (lf *LazyFrame) Filter(predicates ...Expression) *LazyFrame {
	return &LazyFrame{lf: lf.lf.Filter(unwrapExprs(predicates)...)}
}

// Sort adds an ascending sort to the chain.
func (lf *LazyFrame) Sort(keys ...string) *LazyFrame {
	return &LazyFrame{lf: lf.lf.Sort(keys...)}
}

// SortBy adds a directional sort to the chain.
func (lf *LazyFrame) SortBy(keys []string, descending []bool) *LazyFrame {
	return &LazyFrame{lf: lf.lf.SortBy(keys, descending)}
}

// Join adds an inner join to the chain.
func (lf *LazyFrame) Join(other *LazyFrame, how JoinType, leftOn, rightOn []string) *LazyFrame {
	return &LazyFrame{lf: lf.lf.Join(other.lf, how.internal(), leftOn, rightOn)}
}

// GroupBy starts a deferred grouped aggregation.
func (lf *LazyFrame) GroupBy(keys ...string) *LazyGroupBy {
	return &LazyGroupBy{lgb: lf.lf.GroupBy(keys...)}
}

// Head keeps the first n rows.
func (lf *LazyFrame) Head(n int) *LazyFrame {
	return &LazyFrame{lf: lf.lf.Head(n)}
}

// Err returns the first error recorded in the chain, if any.
func (lf *LazyFrame) Err() error {
	return lf.lf.Err()
}

// Collect materializes the frame or surfaces the chain's first error. The
// returned frame is owned by the caller.
func (lf *LazyFrame) Collect() (*DataFrame, error) {
	df, err := lf.lf.Collect()
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// GroupBy methods.

// Agg reduces each group. Groups keep first-seen row order; an unaliased
// aggregation keeps its source column's name.
func (g *GroupBy) Agg(aggs ...*AggregationExpression) (*DataFrame, error) {
	df, err := g.gb.Agg(unwrapAggs(aggs)...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// Sum aggregates each listed column with sum.
func (g *GroupBy) Sum(columns ...string) (*DataFrame, error) {
	return wrapFrame(g.gb.Sum(columns...))
}

// Count aggregates each listed column with count.
func (g *GroupBy) Count(columns ...string) (*DataFrame, error) {
	return wrapFrame(g.gb.Count(columns...))
}

// Mean aggregates each listed column with mean.
func (g *GroupBy) Mean(columns ...string) (*DataFrame, error) {
	return wrapFrame(g.gb.Mean(columns...))
}

// Min aggregates each listed column with min.
func (g *GroupBy) Min(columns ...string) (*DataFrame, error) {
	return wrapFrame(g.gb.Min(columns...))
}

// Max aggregates each listed column with max.
func (g *GroupBy) Max(columns ...string) (*DataFrame, error) {
	return wrapFrame(g.gb.Max(columns...))
}

// Agg reduces each group and returns the chain's next frame.
func (lg *LazyGroupBy) Agg(aggs ...*AggregationExpression) *LazyFrame {
	return &LazyFrame{lf: lg.lgb.Agg(unwrapAggs(aggs)...)}
}

func wrapFrame(df *dataframe.DataFrame, err error) (*DataFrame, error) {
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

func unwrapExprs(exprs []Expression) []expr.Expr {
	internal := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		internal[i] = e.expr
	}
	return internal
}

func unwrapAggs(aggs []*AggregationExpression) []*expr.AggregationExpr {
	internal := make([]*expr.AggregationExpr, len(aggs))
	for i, agg := range aggs {
		internal[i] = agg.agg
	}
	return internal
}

// Expression factory functions.

// Col references a single column by name.
func Col(name string) Expression {
	return Expression{expr: expr.Col(name)}
}

// Cols references several columns at once; selecting it yields one column
// per name, in order.
func Cols(names ...string) Expression {
	return Expression{expr: expr.Cols(names...)}
}

// Lit broadcasts a constant to the frame's rows.
func Lit(value interface{}) Expression {
	return Expression{expr: expr.Lit(value)}
}

// AllHorizontal combines boolean expressions with row-wise AND.
func AllHorizontal(predicates ...Expression) Expression {
	return Expression{expr: expr.AllHorizontal(unwrapExprs(predicates)...)}
}

// Sum aggregates a column with sum.
func Sum(column Expression) *AggregationExpression {
	return &AggregationExpression{agg: expr.Sum(mustColumnExpr("Sum", column))}
}

// Count aggregates a column with count.
func Count(column Expression) *AggregationExpression {
	return &AggregationExpression{agg: expr.Count(mustColumnExpr("Count", column))}
}

// Mean aggregates a column with mean.
func Mean(column Expression) *AggregationExpression {
	return &AggregationExpression{agg: expr.Mean(mustColumnExpr("Mean", column))}
}

// Min aggregates a column with min.
func Min(column Expression) *AggregationExpression {
	return &AggregationExpression{agg: expr.Min(mustColumnExpr("Min", column))}
}

// Max aggregates a column with max.
func Max(column Expression) *AggregationExpression {
	return &AggregationExpression{agg: expr.Max(mustColumnExpr("Max", column))}
}

func mustColumnExpr(op string, e Expression) *expr.ColumnExpr {
	col, ok := e.expr.(*expr.ColumnExpr)
	if !ok {
		panic(fmt.Sprintf("%s requires a column expression, got %T", op, e.expr))
	}
	return col
}

// As sets the aggregation's output name.
func (a *AggregationExpression) As(alias string) *AggregationExpression {
	return &AggregationExpression{agg: a.agg.As(alias)}
}

// Expression methods for chaining. Comparison and arithmetic are supported
// on column and binary expressions; logical combinators on any boolean
// expression.

type arithmeticExpr interface {
	Add(expr.Expr) *expr.BinaryExpr
	Sub(expr.Expr) *expr.BinaryExpr
	Mul(expr.Expr) *expr.BinaryExpr
	Div(expr.Expr) *expr.BinaryExpr
	Eq(expr.Expr) *expr.BinaryExpr
	Ne(expr.Expr) *expr.BinaryExpr
	Lt(expr.Expr) *expr.BinaryExpr
	Le(expr.Expr) *expr.BinaryExpr
	Gt(expr.Expr) *expr.BinaryExpr
	Ge(expr.Expr) *expr.BinaryExpr
}

func (e Expression) chainable(op string) arithmeticExpr {
	chain, ok := e.expr.(arithmeticExpr)
	if !ok {
		panic(fmt.Sprintf("%s is not supported on %T", op, e.expr))
	}
	return chain
}

// Add returns an addition expression.
func (e Expression) Add(other Expression) Expression {
	return Expression{expr: e.chainable("Add").Add(other.expr)}
}

// Sub returns a subtraction expression.
func (e Expression) Sub(other Expression) Expression {
	return Expression{expr: e.chainable("Sub").Sub(other.expr)}
}

// Mul returns a multiplication expression.
func (e Expression) Mul(other Expression) Expression {
	return Expression{expr: e.chainable("Mul").Mul(other.expr)}
}

// Div returns a division expression.
func (e Expression) Div(other Expression) Expression {
	return Expression{expr: e.chainable("Div").Div(other.expr)}
}

// Eq returns an equality comparison.
func (e Expression) Eq(other Expression) Expression {
	return Expression{expr: e.chainable("Eq").Eq(other.expr)}
}

// Ne returns an inequality comparison.
func (e Expression) Ne(other Expression) Expression {
	return Expression{expr: e.chainable("Ne").Ne(other.expr)}
}

// Lt returns a less-than comparison.
func (e Expression) Lt(other Expression) Expression {
	return Expression{expr: e.chainable("Lt").Lt(other.expr)}
}

// Le returns a less-or-equal comparison.
func (e Expression) Le(other Expression) Expression {
	return Expression{expr: e.chainable("Le").Le(other.expr)}
}

// Gt returns a greater-than comparison.
func (e Expression) Gt(other Expression) Expression {
	return Expression{expr: e.chainable("Gt").Gt(other.expr)}
}

// Ge returns a greater-or-equal comparison.
func (e Expression) Ge(other Expression) Expression {
	return Expression{expr: e.chainable("Ge").Ge(other.expr)}
}

// And returns a row-wise conjunction.
func (e Expression) And(other Expression) Expression {
	if bin, ok := e.expr.(*expr.BinaryExpr); ok {
		return Expression{expr: bin.And(other.expr)}
	}
	panic(fmt.Sprintf("And is not supported on %T", e.expr))
}

// Or returns a row-wise disjunction.
func (e Expression) Or(other Expression) Expression {
	if bin, ok := e.expr.(*expr.BinaryExpr); ok {
		return Expression{expr: bin.Or(other.expr)}
	}
	panic(fmt.Sprintf("Or is not supported on %T", e.expr))
}

// Not inverts a boolean expression.
func (e Expression) Not() Expression {
	switch node := e.expr.(type) {
	case *expr.ColumnExpr:
		return Expression{expr: node.Not()}
	case *expr.BinaryExpr:
		return Expression{expr: node.Not()}
	default:
		panic(fmt.Sprintf("Not is not supported on %T", e.expr))
	}
}

// Alias renames the expression's output.
func (e Expression) Alias(alias string) Expression {
	switch node := e.expr.(type) {
	case *expr.ColumnExpr:
		return Expression{expr: node.Alias(alias)}
	case *expr.BinaryExpr:
		return Expression{expr: node.Alias(alias)}
	case *expr.UnaryExpr:
		return Expression{expr: node.Alias(alias)}
	case *expr.LiteralExpr:
		return Expression{expr: node.Alias(alias)}
	default:
		panic(fmt.Sprintf("Alias is not supported on %T", e.expr))
	}
}

// String renders the expression tree.
func (e Expression) String() string {
	return e.expr.String()
}

// IO conveniences.

// ReadCSV reads CSV data into a frame bound to the namespace.
func (n *Namespace) ReadCSV(r io.Reader, options frameio.CSVOptions) (*DataFrame, error) {
	return wrapFrame(frameio.NewCSVReader(r, n.ns, n.mem, options).Read())
}

// WriteCSV renders a frame as CSV.
func WriteCSV(w io.Writer, df *DataFrame, options frameio.CSVOptions) error {
	return frameio.NewCSVWriter(w, options).Write(df.df)
}

// ReadParquet reads Parquet data into a frame bound to the namespace.
func (n *Namespace) ReadParquet(r io.Reader) (*DataFrame, error) {
	return wrapFrame(frameio.NewParquetReader(r, n.ns, n.mem).Read())
}

// WriteParquet writes a frame as Parquet.
func WriteParquet(w io.Writer, df *DataFrame, options frameio.ParquetOptions) error {
	return frameio.NewParquetWriter(w, options).Write(df.df)
}

// ReadAvro reads an Avro object container file into a frame bound to the
// namespace.
func (n *Namespace) ReadAvro(r io.Reader) (*DataFrame, error) {
	return wrapFrame(frameio.NewAvroReader(r, n.ns, n.mem).Read())
}

// DefaultCSVOptions returns comma-delimited, headered CSV settings.
func DefaultCSVOptions() frameio.CSVOptions { return frameio.DefaultCSVOptions() }

// DefaultParquetOptions returns snappy-compressed Parquet settings.
func DefaultParquetOptions() frameio.ParquetOptions { return frameio.DefaultParquetOptions() }

// Error classification, re-exported so callers can branch on failure kinds
// without importing internal packages.
var (
	IsDuplicateName = errors.IsDuplicateName
	IsTypeMismatch  = errors.IsTypeMismatch
	IsNotSupported  = errors.IsNotSupported
	IsNameCollision = errors.IsNameCollision
	IsNotFound      = errors.IsNotFound
	IsInvalidInput  = errors.IsInvalidInput
)
