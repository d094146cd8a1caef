// Package expr provides the deferred expression engine for frame
// operations. Expressions are pure descriptions of column computations;
// binding them to concrete columns happens in the Evaluator.
package expr

import (
	"fmt"
	"strings"
)

// Type discriminates expression nodes.
type Type int

const (
	TypeColumn Type = iota
	TypeColumns
	TypeLiteral
	TypeBinary
	TypeUnary
	TypeAlias
	TypeAllHorizontal
	TypeAggregation
)

// Expr represents an expression that can be evaluated lazily against a
// frame. OutputName is the column name the expression's first result
// carries; multi-output expressions report the name of their first branch.
type Expr interface {
	Type() Type
	OutputName() string
	String() string
}

// ColumnExpr references a single input column by name.
type ColumnExpr struct {
	name string
}

// Col creates a column reference expression.
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

func (c *ColumnExpr) Type() Type         { return TypeColumn }
func (c *ColumnExpr) OutputName() string { return c.name }
func (c *ColumnExpr) Name() string       { return c.name }
func (c *ColumnExpr) String() string     { return fmt.Sprintf("col(%s)", c.name) }

// ColumnsExpr references several input columns at once; evaluating it yields
// one series per name, in the given order.
type ColumnsExpr struct {
	names []string
}

// Cols creates a multi-column reference expression.
func Cols(names ...string) *ColumnsExpr {
	return &ColumnsExpr{names: append([]string(nil), names...)}
}

func (c *ColumnsExpr) Type() Type      { return TypeColumns }
func (c *ColumnsExpr) Names() []string { return c.names }
func (c *ColumnsExpr) OutputName() string {
	if len(c.names) == 0 {
		return ""
	}
	return c.names[0]
}
func (c *ColumnsExpr) String() string { return fmt.Sprintf("cols(%s)", strings.Join(c.names, ", ")) }

// LiteralExpr broadcasts a constant to the frame's row count.
type LiteralExpr struct {
	value interface{}
}

// Lit creates a literal expression.
func Lit(value interface{}) *LiteralExpr {
	return &LiteralExpr{value: value}
}

func (l *LiteralExpr) Type() Type         { return TypeLiteral }
func (l *LiteralExpr) OutputName() string { return "literal" }
func (l *LiteralExpr) Value() interface{} { return l.value }
func (l *LiteralExpr) String() string     { return fmt.Sprintf("lit(%v)", l.value) }

// Alias renames the literal's output.
func (l *LiteralExpr) Alias(alias string) *AliasExpr { return &AliasExpr{child: l, alias: alias} }

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

// BinaryExpr combines two expressions with an operator. Its output keeps the
// left operand's name, mirroring how engines name derived columns.
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
}

func (b *BinaryExpr) Type() Type         { return TypeBinary }
func (b *BinaryExpr) OutputName() string { return b.left.OutputName() }
func (b *BinaryExpr) Left() Expr         { return b.left }
func (b *BinaryExpr) Op() BinaryOp       { return b.op }
func (b *BinaryExpr) Right() Expr        { return b.right }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left.String(), binaryOpNames[b.op], b.right.String())
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryExpr negates or inverts its operand.
type UnaryExpr struct {
	op      UnaryOp
	operand Expr
}

func (u *UnaryExpr) Type() Type         { return TypeUnary }
func (u *UnaryExpr) OutputName() string { return u.operand.OutputName() }
func (u *UnaryExpr) Op() UnaryOp        { return u.op }
func (u *UnaryExpr) Operand() Expr      { return u.operand }
func (u *UnaryExpr) String() string {
	if u.op == UnaryNeg {
		return fmt.Sprintf("(-%s)", u.operand.String())
	}
	return fmt.Sprintf("(!%s)", u.operand.String())
}

// AliasExpr renames the single output of its child. It is the Go rendition
// of keyword-bound expressions in select/with_columns.
type AliasExpr struct {
	child Expr
	alias string
}

func (a *AliasExpr) Type() Type         { return TypeAlias }
func (a *AliasExpr) OutputName() string { return a.alias }
func (a *AliasExpr) Child() Expr        { return a.child }
func (a *AliasExpr) String() string     { return fmt.Sprintf("%s.alias(%s)", a.child.String(), a.alias) }

// AllHorizontalExpr reduces boolean branches row-wise with logical AND. It
// yields a single boolean series and relies on the evaluation context's
// alignment guarantee: all branch series share the frame's row order.
type AllHorizontalExpr struct {
	predicates []Expr
}

// AllHorizontal combines predicates into one row-wise conjunction.
func AllHorizontal(predicates ...Expr) *AllHorizontalExpr {
	return &AllHorizontalExpr{predicates: predicates}
}

func (a *AllHorizontalExpr) Type() Type         { return TypeAllHorizontal }
func (a *AllHorizontalExpr) OutputName() string { return "all_horizontal" }
func (a *AllHorizontalExpr) Predicates() []Expr { return a.predicates }
func (a *AllHorizontalExpr) String() string {
	parts := make([]string, len(a.predicates))
	for i, p := range a.predicates {
		parts[i] = p.String()
	}
	return fmt.Sprintf("all_horizontal(%s)", strings.Join(parts, ", "))
}

// Builder methods. Each constructs a new node; expressions are immutable.

func (c *ColumnExpr) Add(other Expr) *BinaryExpr { return &BinaryExpr{c, OpAdd, other} }
func (c *ColumnExpr) Sub(other Expr) *BinaryExpr { return &BinaryExpr{c, OpSub, other} }
func (c *ColumnExpr) Mul(other Expr) *BinaryExpr { return &BinaryExpr{c, OpMul, other} }
func (c *ColumnExpr) Div(other Expr) *BinaryExpr { return &BinaryExpr{c, OpDiv, other} }
func (c *ColumnExpr) Eq(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpEq, other} }
func (c *ColumnExpr) Ne(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpNe, other} }
func (c *ColumnExpr) Lt(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpLt, other} }
func (c *ColumnExpr) Le(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpLe, other} }
func (c *ColumnExpr) Gt(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpGt, other} }
func (c *ColumnExpr) Ge(other Expr) *BinaryExpr  { return &BinaryExpr{c, OpGe, other} }

// Not inverts a boolean column.
func (c *ColumnExpr) Not() *UnaryExpr { return &UnaryExpr{op: UnaryNot, operand: c} }

// Neg negates a numeric column.
func (c *ColumnExpr) Neg() *UnaryExpr { return &UnaryExpr{op: UnaryNeg, operand: c} }

// Alias renames the column's output.
func (c *ColumnExpr) Alias(alias string) *AliasExpr { return &AliasExpr{child: c, alias: alias} }

func (b *BinaryExpr) Add(other Expr) *BinaryExpr { return &BinaryExpr{b, OpAdd, other} }
func (b *BinaryExpr) Sub(other Expr) *BinaryExpr { return &BinaryExpr{b, OpSub, other} }
func (b *BinaryExpr) Mul(other Expr) *BinaryExpr { return &BinaryExpr{b, OpMul, other} }
func (b *BinaryExpr) Div(other Expr) *BinaryExpr { return &BinaryExpr{b, OpDiv, other} }
func (b *BinaryExpr) Eq(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpEq, other} }
func (b *BinaryExpr) Ne(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpNe, other} }
func (b *BinaryExpr) Lt(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpLt, other} }
func (b *BinaryExpr) Le(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpLe, other} }
func (b *BinaryExpr) Gt(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpGt, other} }
func (b *BinaryExpr) Ge(other Expr) *BinaryExpr  { return &BinaryExpr{b, OpGe, other} }

// And chains a row-wise conjunction.
func (b *BinaryExpr) And(other Expr) *BinaryExpr { return &BinaryExpr{b, OpAnd, other} }

// Or chains a row-wise disjunction.
func (b *BinaryExpr) Or(other Expr) *BinaryExpr { return &BinaryExpr{b, OpOr, other} }

// Not inverts the boolean result.
func (b *BinaryExpr) Not() *UnaryExpr { return &UnaryExpr{op: UnaryNot, operand: b} }

// Alias renames the expression's output.
func (b *BinaryExpr) Alias(alias string) *AliasExpr { return &AliasExpr{child: b, alias: alias} }

// Alias renames the expression's output.
func (u *UnaryExpr) Alias(alias string) *AliasExpr { return &AliasExpr{child: u, alias: alias} }

// AggregationType enumerates group reducers.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMean
	AggMin
	AggMax
)

var aggNames = map[AggregationType]string{
	AggSum: "sum", AggCount: "count", AggMean: "mean", AggMin: "min", AggMax: "max",
}

func (t AggregationType) String() string { return aggNames[t] }

// AggregationExpr reduces one column per group. Its output keeps the
// aggregated column's name unless an alias is set.
type AggregationExpr struct {
	column  *ColumnExpr
	aggType AggregationType
	alias   string
}

func (a *AggregationExpr) Type() Type               { return TypeAggregation }
func (a *AggregationExpr) Column() *ColumnExpr      { return a.column }
func (a *AggregationExpr) AggType() AggregationType { return a.aggType }
func (a *AggregationExpr) Alias() string            { return a.alias }

func (a *AggregationExpr) OutputName() string {
	if a.alias != "" {
		return a.alias
	}
	return a.column.Name()
}

func (a *AggregationExpr) String() string {
	return fmt.Sprintf("%s(%s)", a.aggType, a.column.String())
}

// As returns a copy of the aggregation with an output alias.
func (a *AggregationExpr) As(alias string) *AggregationExpr {
	return &AggregationExpr{column: a.column, aggType: a.aggType, alias: alias}
}

// Aggregation constructors.

func Sum(column *ColumnExpr) *AggregationExpr   { return &AggregationExpr{column: column, aggType: AggSum} }
func Count(column *ColumnExpr) *AggregationExpr { return &AggregationExpr{column: column, aggType: AggCount} }
func Mean(column *ColumnExpr) *AggregationExpr  { return &AggregationExpr{column: column, aggType: AggMean} }
func Min(column *ColumnExpr) *AggregationExpr   { return &AggregationExpr{column: column, aggType: AggMin} }
func Max(column *ColumnExpr) *AggregationExpr   { return &AggregationExpr{column: column, aggType: AggMax} }

// Aggregation methods on column expressions.

func (c *ColumnExpr) Sum() *AggregationExpr   { return Sum(c) }
func (c *ColumnExpr) Count() *AggregationExpr { return Count(c) }
func (c *ColumnExpr) Mean() *AggregationExpr  { return Mean(c) }
func (c *ColumnExpr) Min() *AggregationExpr   { return Min(c) }
func (c *ColumnExpr) Max() *AggregationExpr   { return Max(c) }
