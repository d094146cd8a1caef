package expr

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/facetdata/facet/internal/errors"
)

// Result is one evaluated expression branch: a named arrow array aligned to
// the source frame's rows.
type Result struct {
	Name  string
	Array arrow.Array
}

// Release releases the underlying array.
func (r Result) Release() {
	if r.Array != nil {
		r.Array.Release()
	}
}

// Evaluator binds expressions to concrete columns. It holds no state beyond
// the allocator, so one evaluator may be shared across evaluations.
type Evaluator struct {
	mem memory.Allocator
}

// NewEvaluator creates an evaluator using mem, defaulting to the Go
// allocator.
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem}
}

// EvaluateInto evaluates ex against columns, fanning multi-column references
// out into one Result per branch. rows is the frame's row count, needed for
// literal broadcast.
func (e *Evaluator) EvaluateInto(ex Expr, columns map[string]arrow.Array, rows int) ([]Result, error) {
	if cols, ok := ex.(*ColumnsExpr); ok {
		results := make([]Result, 0, len(cols.Names()))
		for _, name := range cols.Names() {
			arr, err := e.evaluateColumn(name, columns)
			if err != nil {
				for _, r := range results {
					r.Release()
				}
				return nil, err
			}
			results = append(results, Result{Name: name, Array: arr})
		}
		return results, nil
	}

	arr, err := e.Evaluate(ex, columns, rows)
	if err != nil {
		return nil, err
	}
	return []Result{{Name: ex.OutputName(), Array: arr}}, nil
}

// Evaluate evaluates a single-output expression to an arrow array of length
// rows.
func (e *Evaluator) Evaluate(ex Expr, columns map[string]arrow.Array, rows int) (arrow.Array, error) {
	switch node := ex.(type) {
	case *ColumnExpr:
		return e.evaluateColumn(node.Name(), columns)
	case *LiteralExpr:
		return e.evaluateLiteral(node, rows)
	case *BinaryExpr:
		return e.evaluateBinary(node, columns, rows)
	case *UnaryExpr:
		return e.evaluateUnary(node, columns, rows)
	case *AliasExpr:
		return e.Evaluate(node.Child(), columns, rows)
	case *AllHorizontalExpr:
		return e.evaluateAllHorizontal(node, columns, rows)
	case *AggregationExpr:
		return nil, errors.NewNotSupportedError("evaluate",
			fmt.Sprintf("%s is an aggregation and requires a group_by context", node))
	default:
		return nil, errors.NewInvalidInputError("evaluate", fmt.Sprintf("unsupported expression type %T", ex))
	}
}

// EvaluateBoolean evaluates ex and verifies the result is a boolean array.
func (e *Evaluator) EvaluateBoolean(ex Expr, columns map[string]arrow.Array, rows int) (*array.Boolean, error) {
	arr, err := e.Evaluate(ex, columns, rows)
	if err != nil {
		return nil, err
	}
	mask, ok := arr.(*array.Boolean)
	if !ok {
		arr.Release()
		return nil, errors.NewTypeMismatchError("evaluate", ex.OutputName(), "only boolean dtype allowed")
	}
	return mask, nil
}

func (e *Evaluator) evaluateColumn(name string, columns map[string]arrow.Array) (arrow.Array, error) {
	arr, exists := columns[name]
	if !exists {
		return nil, errors.NewColumnNotFoundError("evaluate", name)
	}
	arr.Retain()
	return arr, nil
}

func (e *Evaluator) evaluateLiteral(lit *LiteralExpr, rows int) (arrow.Array, error) {
	switch val := lit.Value().(type) {
	case string:
		builder := array.NewStringBuilder(e.mem)
		defer builder.Release()
		for i := 0; i < rows; i++ {
			builder.Append(val)
		}
		return builder.NewArray(), nil
	case int:
		return e.broadcastInt64(int64(val), rows), nil
	case int32:
		return e.broadcastInt64(int64(val), rows), nil
	case int64:
		return e.broadcastInt64(val, rows), nil
	case float32:
		return e.broadcastFloat64(float64(val), rows), nil
	case float64:
		return e.broadcastFloat64(val, rows), nil
	case bool:
		builder := array.NewBooleanBuilder(e.mem)
		defer builder.Release()
		for i := 0; i < rows; i++ {
			builder.Append(val)
		}
		return builder.NewArray(), nil
	default:
		return nil, errors.NewInvalidInputError("evaluate", fmt.Sprintf("unsupported literal type %T", val))
	}
}

func (e *Evaluator) broadcastInt64(val int64, rows int) arrow.Array {
	builder := array.NewInt64Builder(e.mem)
	defer builder.Release()
	for i := 0; i < rows; i++ {
		builder.Append(val)
	}
	return builder.NewArray()
}

func (e *Evaluator) broadcastFloat64(val float64, rows int) arrow.Array {
	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	for i := 0; i < rows; i++ {
		builder.Append(val)
	}
	return builder.NewArray()
}

func (e *Evaluator) evaluateBinary(bin *BinaryExpr, columns map[string]arrow.Array, rows int) (arrow.Array, error) {
	left, err := e.Evaluate(bin.Left(), columns, rows)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := e.Evaluate(bin.Right(), columns, rows)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	if left.Len() != right.Len() {
		return nil, errors.NewInvalidInputError("evaluate",
			fmt.Sprintf("operand lengths differ: %d vs %d", left.Len(), right.Len()))
	}

	switch bin.Op() {
	case OpAdd, OpSub, OpMul, OpDiv:
		return e.evaluateArithmetic(bin.Op(), left, right)
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return e.evaluateComparison(bin.Op(), left, right)
	case OpAnd, OpOr:
		return e.evaluateLogical(bin.Op(), left, right)
	default:
		return nil, errors.NewInvalidInputError("evaluate", fmt.Sprintf("unsupported binary operator %d", bin.Op()))
	}
}

func (e *Evaluator) evaluateArithmetic(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	// Integer operands stay integral; any float operand promotes the result
	// to float64.
	if lv, lok := intValues(left); lok {
		if rv, rok := intValues(right); rok {
			out := make([]int64, len(lv))
			for i := range lv {
				switch op {
				case OpAdd:
					out[i] = lv[i] + rv[i]
				case OpSub:
					out[i] = lv[i] - rv[i]
				case OpMul:
					out[i] = lv[i] * rv[i]
				case OpDiv:
					if rv[i] != 0 {
						out[i] = lv[i] / rv[i]
					}
				}
			}
			builder := array.NewInt64Builder(e.mem)
			defer builder.Release()
			builder.AppendValues(out, nil)
			return builder.NewArray(), nil
		}
	}

	lv, lok := floatValues(left)
	rv, rok := floatValues(right)
	if !lok || !rok {
		return nil, errors.NewTypeMismatchError("evaluate", "",
			fmt.Sprintf("arithmetic requires numeric operands, got %s and %s",
				left.DataType().Name(), right.DataType().Name()))
	}

	out := make([]float64, len(lv))
	for i := range lv {
		switch op {
		case OpAdd:
			out[i] = lv[i] + rv[i]
		case OpSub:
			out[i] = lv[i] - rv[i]
		case OpMul:
			out[i] = lv[i] * rv[i]
		case OpDiv:
			if rv[i] != 0 {
				out[i] = lv[i] / rv[i]
			}
		}
	}
	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	builder.AppendValues(out, nil)
	return builder.NewArray(), nil
}

func (e *Evaluator) evaluateComparison(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	out := make([]bool, left.Len())

	if ls, lok := stringValues(left); lok {
		rs, rok := stringValues(right)
		if !rok {
			return nil, errors.NewTypeMismatchError("evaluate", "",
				fmt.Sprintf("cannot compare %s with %s", left.DataType().Name(), right.DataType().Name()))
		}
		for i := range ls {
			out[i] = compareOrdered(op, ls[i], rs[i])
		}
		return e.buildBooleans(out), nil
	}

	if lb, lok := boolValues(left); lok {
		rb, rok := boolValues(right)
		if !rok || (op != OpEq && op != OpNe) {
			return nil, errors.NewTypeMismatchError("evaluate", "", "booleans support only == and !=")
		}
		for i := range lb {
			if op == OpEq {
				out[i] = lb[i] == rb[i]
			} else {
				out[i] = lb[i] != rb[i]
			}
		}
		return e.buildBooleans(out), nil
	}

	lv, lok := floatValues(left)
	rv, rok := floatValues(right)
	if !lok || !rok {
		return nil, errors.NewTypeMismatchError("evaluate", "",
			fmt.Sprintf("cannot compare %s with %s", left.DataType().Name(), right.DataType().Name()))
	}
	for i := range lv {
		out[i] = compareOrdered(op, lv[i], rv[i])
	}
	return e.buildBooleans(out), nil
}

func compareOrdered[T string | float64](op BinaryOp, a, b T) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

func (e *Evaluator) evaluateLogical(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	lb, lok := boolValues(left)
	rb, rok := boolValues(right)
	if !lok || !rok {
		return nil, errors.NewTypeMismatchError("evaluate", "", "only boolean dtype allowed")
	}

	out := make([]bool, len(lb))
	for i := range lb {
		if op == OpAnd {
			out[i] = lb[i] && rb[i]
		} else {
			out[i] = lb[i] || rb[i]
		}
	}
	return e.buildBooleans(out), nil
}

func (e *Evaluator) evaluateUnary(un *UnaryExpr, columns map[string]arrow.Array, rows int) (arrow.Array, error) {
	operand, err := e.Evaluate(un.Operand(), columns, rows)
	if err != nil {
		return nil, err
	}
	defer operand.Release()

	switch un.Op() {
	case UnaryNot:
		vals, ok := boolValues(operand)
		if !ok {
			return nil, errors.NewTypeMismatchError("evaluate", un.OutputName(), "only boolean dtype allowed")
		}
		out := make([]bool, len(vals))
		for i, v := range vals {
			out[i] = !v
		}
		return e.buildBooleans(out), nil
	case UnaryNeg:
		if vals, ok := intValues(operand); ok {
			out := make([]int64, len(vals))
			for i, v := range vals {
				out[i] = -v
			}
			builder := array.NewInt64Builder(e.mem)
			defer builder.Release()
			builder.AppendValues(out, nil)
			return builder.NewArray(), nil
		}
		vals, ok := floatValues(operand)
		if !ok {
			return nil, errors.NewTypeMismatchError("evaluate", un.OutputName(), "negation requires a numeric operand")
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = -v
		}
		builder := array.NewFloat64Builder(e.mem)
		defer builder.Release()
		builder.AppendValues(out, nil)
		return builder.NewArray(), nil
	default:
		return nil, errors.NewInvalidInputError("evaluate", fmt.Sprintf("unsupported unary operator %d", un.Op()))
	}
}

func (e *Evaluator) evaluateAllHorizontal(all *AllHorizontalExpr, columns map[string]arrow.Array, rows int) (arrow.Array, error) {
	if len(all.Predicates()) == 0 {
		return nil, errors.NewInvalidInputError("all_horizontal", "at least one predicate required")
	}

	acc := make([]bool, rows)
	for i := range acc {
		acc[i] = true
	}

	for _, pred := range all.Predicates() {
		arr, err := e.Evaluate(pred, columns, rows)
		if err != nil {
			return nil, err
		}
		vals, ok := boolValues(arr)
		arr.Release()
		if !ok {
			return nil, errors.NewTypeMismatchError("all_horizontal", pred.OutputName(), "only boolean dtype allowed")
		}
		if len(vals) != rows {
			return nil, errors.NewInvalidInputError("all_horizontal",
				fmt.Sprintf("predicate length %d incompatible with frame length %d", len(vals), rows))
		}
		for i, v := range vals {
			acc[i] = acc[i] && v
		}
	}

	return e.buildBooleans(acc), nil
}

func (e *Evaluator) buildBooleans(values []bool) arrow.Array {
	builder := array.NewBooleanBuilder(e.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

// Array accessors. Null slots read as zero values; null-aware reductions are
// the engine's concern, not the evaluator's.

func intValues(arr arrow.Array) ([]int64, bool) {
	switch a := arr.(type) {
	case *array.Int64:
		out := make([]int64, a.Len())
		for i := range out {
			if !a.IsNull(i) {
				out[i] = a.Value(i)
			}
		}
		return out, true
	case *array.Int32:
		out := make([]int64, a.Len())
		for i := range out {
			if !a.IsNull(i) {
				out[i] = int64(a.Value(i))
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func floatValues(arr arrow.Array) ([]float64, bool) {
	switch a := arr.(type) {
	case *array.Float64:
		out := make([]float64, a.Len())
		for i := range out {
			if !a.IsNull(i) {
				out[i] = a.Value(i)
			}
		}
		return out, true
	case *array.Float32:
		out := make([]float64, a.Len())
		for i := range out {
			if !a.IsNull(i) {
				out[i] = float64(a.Value(i))
			}
		}
		return out, true
	case *array.Int64, *array.Int32:
		ints, _ := intValues(arr)
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, true
	default:
		return nil, false
	}
}

func boolValues(arr arrow.Array) ([]bool, bool) {
	a, ok := arr.(*array.Boolean)
	if !ok {
		return nil, false
	}
	out := make([]bool, a.Len())
	for i := range out {
		if !a.IsNull(i) {
			out[i] = a.Value(i)
		}
	}
	return out, true
}

func stringValues(arr arrow.Array) ([]string, bool) {
	a, ok := arr.(*array.String)
	if !ok {
		return nil, false
	}
	out := make([]string, a.Len())
	for i := range out {
		if !a.IsNull(i) {
			out[i] = a.Value(i)
		}
	}
	return out, true
}
