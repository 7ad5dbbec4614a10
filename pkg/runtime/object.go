package runtime

import (
	"errors"
	"strconv"

	"github.com/robertkrimen/otto/ast"
)

// Class discriminates object specializations. All classes share the
// same property table and prototype link.
type Class int

const (
	ClassPlain Class = iota
	ClassArray
	ClassFunction
	ClassError
)

// Property is an own-property slot with its descriptor flags.
type Property struct {
	Value        Value
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// HostFunc is a native callable already bound to its engine. The
// bridge wraps host callbacks into this form at registration time.
type HostFunc func(this Value, args []Value) (Value, error)

// FunctionPart carries the callable body of a function object: either
// a guest syntax subtree plus its captured closure environment, or a
// bound native callback. Never both.
type FunctionPart struct {
	Name    string
	Decl    *ast.FunctionLiteral
	Closure *Environment
	Native  HostFunc
}

// Object is a property map with insertion-order key tracking and a
// single prototype link. Specializations share the representation.
type Object struct {
	class Class
	proto *Object
	props map[string]*Property
	keys  []string

	arrayLen int
	fn       *FunctionPart
}

// ErrPrototypeCycle is reported when a prototype assignment would make
// the chain circular.
var ErrPrototypeCycle = errors.New("prototype chain would be cyclic")

func NewObject(proto *Object) *Object {
	return &Object{
		class: ClassPlain,
		proto: proto,
		props: make(map[string]*Property),
	}
}

// NewArray builds an array object over the given elements.
func NewArray(proto *Object, elements []Value) *Object {
	obj := NewObject(proto)
	obj.class = ClassArray
	for i, el := range elements {
		obj.SetOwn(strconv.Itoa(i), el)
	}
	return obj
}

// NewFunction builds a guest function closing over env.
func NewFunction(proto *Object, decl *ast.FunctionLiteral, env *Environment) *Object {
	obj := NewObject(proto)
	obj.class = ClassFunction
	name := ""
	if decl != nil && decl.Name != nil {
		name = decl.Name.Name
	}
	obj.fn = &FunctionPart{Name: name, Decl: decl, Closure: env}
	return obj
}

// NewNativeFunction builds a function object around a bound host callback.
func NewNativeFunction(proto *Object, name string, impl HostFunc) *Object {
	obj := NewObject(proto)
	obj.class = ClassFunction
	obj.fn = &FunctionPart{Name: name, Native: impl}
	return obj
}

// NewError builds an error-class object carrying name and message.
func NewError(proto *Object, name, message string) *Object {
	obj := NewObject(proto)
	obj.class = ClassError
	obj.SetOwn("name", StringValue{Val: name})
	obj.SetOwn("message", StringValue{Val: message})
	return obj
}

func (o *Object) Class() Class       { return o.class }
func (o *Object) Kind() Kind         { return KindObject }
func (o *Object) Prototype() *Object { return o.proto }

func (o *Object) IsCallable() bool { return o.fn != nil }

// Function exposes the callable body, nil for non-functions.
func (o *Object) Function() *FunctionPart { return o.fn }

func (o *Object) FunctionName() string {
	if o.fn == nil {
		return ""
	}
	return o.fn.Name
}

// SetPrototype replaces the prototype link, rejecting cycles.
func (o *Object) SetPrototype(proto *Object) error {
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return ErrPrototypeCycle
		}
	}
	o.proto = proto
	return nil
}

//-----------------------------------------------------------------------------
// Property access
//-----------------------------------------------------------------------------

// Get performs prototype-chain lookup. The second result is the
// "not found" sentinel, distinct from a stored undefined.
func (o *Object) Get(key string) (Value, bool) {
	for obj := o; obj != nil; obj = obj.proto {
		if v, ok := obj.GetOwn(key); ok {
			return v, true
		}
	}
	return UndefinedValue{}, false
}

// GetOwn looks up an own property only.
func (o *Object) GetOwn(key string) (Value, bool) {
	if o.class == ClassArray && key == "length" {
		return NumberValue{Val: float64(o.arrayLen)}, true
	}
	if p, ok := o.props[key]; ok {
		return p.Value, true
	}
	return UndefinedValue{}, false
}

// HasOwn reports whether key names an own property.
func (o *Object) HasOwn(key string) bool {
	if o.class == ClassArray && key == "length" {
		return true
	}
	_, ok := o.props[key]
	return ok
}

// SetOwn writes an own property, creating it if absent. It never
// writes through to a prototype. The result is false when an existing
// own property is non-writable; the write is then a silent no-op.
func (o *Object) SetOwn(key string, value Value) bool {
	if o.class == ClassArray {
		if key == "length" {
			o.setArrayLength(value)
			return true
		}
		if idx, ok := arrayIndex(key); ok {
			if !o.storeOwn(key, value) {
				return false
			}
			if idx+1 > o.arrayLen {
				o.arrayLen = idx + 1
			}
			return true
		}
	}
	return o.storeOwn(key, value)
}

func (o *Object) storeOwn(key string, value Value) bool {
	if p, ok := o.props[key]; ok {
		if !p.Writable {
			return false
		}
		p.Value = value
		return true
	}
	o.props[key] = &Property{Value: value, Writable: true, Enumerable: true, Configurable: true}
	o.keys = append(o.keys, key)
	return true
}

// DefineOwn installs a property with explicit descriptor flags,
// replacing any existing slot. Used for primordials and bridge
// installs where enumerability matters.
func (o *Object) DefineOwn(key string, prop Property) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	copied := prop
	o.props[key] = &copied
	if o.class == ClassArray {
		if idx, ok := arrayIndex(key); ok && idx+1 > o.arrayLen {
			o.arrayLen = idx + 1
		}
	}
}

// Delete removes an own configurable property. Non-configurable or
// absent-on-self keys leave the object untouched and report false.
func (o *Object) Delete(key string) bool {
	p, ok := o.props[key]
	if !ok {
		return false
	}
	if !p.Configurable {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	if o.class == ClassArray {
		if _, isIndex := arrayIndex(key); isIndex {
			o.recomputeArrayLength()
		}
	}
	return true
}

// Enumerate yields own and inherited enumerable keys in insertion
// order, own properties first, each key exactly once even if shadowed.
func (o *Object) Enumerate() []string {
	var out []string
	seen := make(map[string]bool)
	for obj := o; obj != nil; obj = obj.proto {
		for _, k := range obj.keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			if p, ok := obj.props[k]; ok && p.Enumerable {
				out = append(out, k)
			}
		}
	}
	return out
}

// OwnKeys returns the own property keys in insertion order.
func (o *Object) OwnKeys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

//-----------------------------------------------------------------------------
// Array length invariant
//-----------------------------------------------------------------------------

// ArrayLength reports the maintained length of an array object.
func (o *Object) ArrayLength() int { return o.arrayLen }

func (o *Object) setArrayLength(value Value) {
	newLen := int(ToNumber(value))
	if newLen < 0 {
		newLen = 0
	}
	if newLen < o.arrayLen {
		for i := len(o.keys) - 1; i >= 0; i-- {
			k := o.keys[i]
			if idx, ok := arrayIndex(k); ok && idx >= newLen {
				delete(o.props, k)
				o.keys = append(o.keys[:i], o.keys[i+1:]...)
			}
		}
	}
	o.arrayLen = newLen
}

func (o *Object) recomputeArrayLength() {
	max := -1
	for k := range o.props {
		if idx, ok := arrayIndex(k); ok && idx > max {
			max = idx
		}
	}
	o.arrayLen = max + 1
}

// arrayIndex recognises canonical non-negative integer keys.
func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	if key != "0" && key[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
