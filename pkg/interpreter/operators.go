package interpreter

import (
	"math"

	"github.com/robertkrimen/otto/token"

	"crank/pkg/runtime"
)

// binaryOp applies a non-logical binary operator to two already
// evaluated operands. Coercion follows an explicit per-operator
// table rather than a single generic conversion.
func (e *Engine) binaryOp(op token.Token, left, right runtime.Value) runtime.Completion {
	switch op {
	case token.PLUS:
		return runtime.Normal(addValues(left, right))
	case token.MINUS:
		return numberOp(left, right, func(a, b float64) float64 { return a - b })
	case token.MULTIPLY:
		return numberOp(left, right, func(a, b float64) float64 { return a * b })
	case token.SLASH:
		return numberOp(left, right, func(a, b float64) float64 { return a / b })
	case token.REMAINDER:
		return numberOp(left, right, math.Mod)

	case token.AND:
		return intOp(left, right, func(a, b int32) int32 { return a & b })
	case token.OR:
		return intOp(left, right, func(a, b int32) int32 { return a | b })
	case token.EXCLUSIVE_OR:
		return intOp(left, right, func(a, b int32) int32 { return a ^ b })
	case token.SHIFT_LEFT:
		return intOp(left, right, func(a, b int32) int32 { return a << (uint32(b) & 31) })
	case token.SHIFT_RIGHT:
		return intOp(left, right, func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	case token.UNSIGNED_SHIFT_RIGHT:
		a := uint32(toInt32(left))
		b := uint32(toInt32(right)) & 31
		return runtime.Normal(runtime.Number(float64(a >> b)))

	case token.EQUAL:
		return runtime.Normal(runtime.Boolean(runtime.LooseEquals(left, right)))
	case token.NOT_EQUAL:
		return runtime.Normal(runtime.Boolean(!runtime.LooseEquals(left, right)))
	case token.STRICT_EQUAL:
		return runtime.Normal(runtime.Boolean(runtime.StrictEquals(left, right)))
	case token.STRICT_NOT_EQUAL:
		return runtime.Normal(runtime.Boolean(!runtime.StrictEquals(left, right)))

	case token.LESS, token.LESS_OR_EQUAL, token.GREATER, token.GREATER_OR_EQUAL:
		return runtime.Normal(compareValues(op, left, right))

	case token.INSTANCEOF:
		return e.instanceOf(left, right)
	case token.IN:
		return e.inOperator(left, right)

	default:
		return runtime.Throw(e.newTypeError("unsupported binary operator " + op.String()))
	}
}

// addValues implements the + overload: string concatenation when
// either primitive operand is a string, numeric addition otherwise.
func addValues(left, right runtime.Value) runtime.Value {
	lp := runtime.ToPrimitive(left)
	rp := runtime.ToPrimitive(right)
	if lp.Kind() == runtime.KindString || rp.Kind() == runtime.KindString {
		return runtime.String(runtime.ToString(lp) + runtime.ToString(rp))
	}
	return runtime.Number(runtime.ToNumber(lp) + runtime.ToNumber(rp))
}

// compareValues orders two strings lexicographically, anything else
// numerically. NaN comparisons are false.
func compareValues(op token.Token, left, right runtime.Value) runtime.Value {
	lp := runtime.ToPrimitive(left)
	rp := runtime.ToPrimitive(right)
	if lp.Kind() == runtime.KindString && rp.Kind() == runtime.KindString {
		ls, rs := runtime.ToString(lp), runtime.ToString(rp)
		switch op {
		case token.LESS:
			return runtime.Boolean(ls < rs)
		case token.LESS_OR_EQUAL:
			return runtime.Boolean(ls <= rs)
		case token.GREATER:
			return runtime.Boolean(ls > rs)
		default:
			return runtime.Boolean(ls >= rs)
		}
	}
	ln, rn := runtime.ToNumber(lp), runtime.ToNumber(rp)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return runtime.Boolean(false)
	}
	switch op {
	case token.LESS:
		return runtime.Boolean(ln < rn)
	case token.LESS_OR_EQUAL:
		return runtime.Boolean(ln <= rn)
	case token.GREATER:
		return runtime.Boolean(ln > rn)
	default:
		return runtime.Boolean(ln >= rn)
	}
}

func (e *Engine) instanceOf(left, right runtime.Value) runtime.Completion {
	ctor, ok := right.(*runtime.Object)
	if !ok || !ctor.IsCallable() {
		return runtime.Throw(e.newTypeError("right-hand side of instanceof is not callable"))
	}
	obj, ok := left.(*runtime.Object)
	if !ok {
		return runtime.Normal(runtime.Boolean(false))
	}
	pv, found := ctor.Get("prototype")
	if !found {
		return runtime.Normal(runtime.Boolean(false))
	}
	proto, ok := pv.(*runtime.Object)
	if !ok {
		return runtime.Normal(runtime.Boolean(false))
	}
	for p := obj.Prototype(); p != nil; p = p.Prototype() {
		if p == proto {
			return runtime.Normal(runtime.Boolean(true))
		}
	}
	return runtime.Normal(runtime.Boolean(false))
}

func (e *Engine) inOperator(left, right runtime.Value) runtime.Completion {
	obj, ok := right.(*runtime.Object)
	if !ok {
		return runtime.Throw(e.newTypeError("right-hand side of 'in' is not an object"))
	}
	key := propertyKey(left)
	_, found := obj.Get(key)
	return runtime.Normal(runtime.Boolean(found))
}

func numberOp(left, right runtime.Value, f func(a, b float64) float64) runtime.Completion {
	return runtime.Normal(runtime.Number(f(runtime.ToNumber(left), runtime.ToNumber(right))))
}

func intOp(left, right runtime.Value, f func(a, b int32) int32) runtime.Completion {
	return runtime.Normal(runtime.Number(float64(f(toInt32(left), toInt32(right)))))
}

// toInt32 applies the standard modular conversion used by bitwise
// operators.
func toInt32(v runtime.Value) int32 {
	f := runtime.ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}
