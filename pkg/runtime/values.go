package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. Scalars are
// immutable and compared by value; objects are compared by identity.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type UndefinedValue struct{}

func (UndefinedValue) Kind() Kind { return KindUndefined }

type NullValue struct{}

func (NullValue) Kind() Kind { return KindNull }

type BooleanValue struct {
	Val bool
}

func (v BooleanValue) Kind() Kind { return KindBoolean }

type NumberValue struct {
	Val float64
}

func (v NumberValue) Kind() Kind { return KindNumber }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

// Undefined and Null are the canonical singletons; scalar values are
// cheap to construct but these read better at call sites.
func Undefined() Value { return UndefinedValue{} }

func Null() Value { return NullValue{} }

func Boolean(b bool) Value { return BooleanValue{Val: b} }

func Number(f float64) Value { return NumberValue{Val: f} }

func String(s string) Value { return StringValue{Val: s} }

//-----------------------------------------------------------------------------
// Coercions
//-----------------------------------------------------------------------------

// ToBoolean applies guest truthiness: undefined, null, false, NaN, 0,
// and "" are falsy; every object is truthy.
func ToBoolean(v Value) bool {
	switch val := v.(type) {
	case UndefinedValue, NullValue:
		return false
	case BooleanValue:
		return val.Val
	case NumberValue:
		return val.Val != 0 && !math.IsNaN(val.Val)
	case StringValue:
		return val.Val != ""
	default:
		return true
	}
}

// ToNumber converts a value to its numeric representation. Objects go
// through ToPrimitive first.
func ToNumber(v Value) float64 {
	switch val := v.(type) {
	case UndefinedValue:
		return math.NaN()
	case NullValue:
		return 0
	case BooleanValue:
		if val.Val {
			return 1
		}
		return 0
	case NumberValue:
		return val.Val
	case StringValue:
		return stringToNumber(val.Val)
	case *Object:
		return ToNumber(ToPrimitive(val))
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(n)
	}
	return math.NaN()
}

// ToString renders a value as guest code observes it. Integer-valued
// numbers print without a decimal point; this is the single
// stringification policy for the whole engine.
func ToString(v Value) string {
	return stringify(v, nil)
}

func stringify(v Value, seen map[*Object]bool) string {
	switch val := v.(type) {
	case UndefinedValue:
		return "undefined"
	case NullValue:
		return "null"
	case BooleanValue:
		return strconv.FormatBool(val.Val)
	case NumberValue:
		return FormatNumber(val.Val)
	case StringValue:
		return val.Val
	case *Object:
		return stringify(toPrimitive(val, seen), seen)
	default:
		return "undefined"
	}
}

// FormatNumber matches the guest-visible number-to-string policy.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// ToPrimitive reduces an object to a scalar. Arrays join their
// elements, functions render a short description, everything else is
// the plain-object tag.
func ToPrimitive(v Value) Value {
	return toPrimitive(v, nil)
}

// toPrimitive tracks the objects on the current rendering path so a
// self-referential array or error renders as empty where it reenters
// instead of recursing without bound.
func toPrimitive(v Value, seen map[*Object]bool) Value {
	obj, ok := v.(*Object)
	if !ok {
		return v
	}
	if seen[obj] {
		return StringValue{}
	}
	if seen == nil {
		seen = make(map[*Object]bool)
	}
	seen[obj] = true
	defer delete(seen, obj)
	switch obj.Class() {
	case ClassArray:
		parts := make([]string, 0, obj.ArrayLength())
		for i := 0; i < obj.ArrayLength(); i++ {
			el, found := obj.Get(strconv.Itoa(i))
			if !found || el.Kind() == KindUndefined || el.Kind() == KindNull {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, stringify(el, seen))
		}
		return StringValue{Val: strings.Join(parts, ",")}
	case ClassFunction:
		name := obj.FunctionName()
		if name == "" {
			name = "anonymous"
		}
		return StringValue{Val: "function " + name + "() { ... }"}
	case ClassError:
		name := "Error"
		if n, found := obj.Get("name"); found {
			name = stringify(n, seen)
		}
		msg := ""
		if m, found := obj.Get("message"); found {
			msg = stringify(m, seen)
		}
		if msg == "" {
			return StringValue{Val: name}
		}
		return StringValue{Val: name + ": " + msg}
	default:
		return StringValue{Val: "[object Object]"}
	}
}

//-----------------------------------------------------------------------------
// Equality
//-----------------------------------------------------------------------------

// StrictEquals implements ===. Objects compare by identity.
func StrictEquals(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case UndefinedValue, NullValue:
		return true
	case BooleanValue:
		return av.Val == b.(BooleanValue).Val
	case NumberValue:
		return av.Val == b.(NumberValue).Val
	case StringValue:
		return av.Val == b.(StringValue).Val
	case *Object:
		return av == b.(*Object)
	default:
		return false
	}
}

// LooseEquals implements == with the usual cross-kind coercions:
// null and undefined match each other, numbers and strings compare
// numerically, booleans convert to numbers, and objects compare via
// their primitive form.
func LooseEquals(a, b Value) bool {
	ak, bk := a.Kind(), b.Kind()
	if ak == bk {
		return StrictEquals(a, b)
	}
	switch {
	case (ak == KindNull && bk == KindUndefined) || (ak == KindUndefined && bk == KindNull):
		return true
	case ak == KindNumber && bk == KindString:
		return a.(NumberValue).Val == ToNumber(b)
	case ak == KindString && bk == KindNumber:
		return ToNumber(a) == b.(NumberValue).Val
	case ak == KindBoolean:
		return LooseEquals(NumberValue{Val: ToNumber(a)}, b)
	case bk == KindBoolean:
		return LooseEquals(a, NumberValue{Val: ToNumber(b)})
	case ak == KindObject && (bk == KindNumber || bk == KindString):
		return LooseEquals(ToPrimitive(a), b)
	case bk == KindObject && (ak == KindNumber || ak == KindString):
		return LooseEquals(a, ToPrimitive(b))
	default:
		return false
	}
}

// TypeOf reports the guest-visible typeof string.
func TypeOf(v Value) string {
	switch v.Kind() {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		if obj, ok := v.(*Object); ok && obj.IsCallable() {
			return "function"
		}
		return "object"
	default:
		return "undefined"
	}
}
