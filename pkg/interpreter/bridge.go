package interpreter

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"crank/pkg/runtime"
)

// NativeFunc is a host-implemented function callable from guest code.
// Arguments arrive unwrapped (nil, bool, float64, string, or
// *ObjectRef for objects/arrays/functions); the return value is
// marshaled back into a guest value, or a *Pending obtained from
// Defer to request asynchronous suspension.
type NativeFunc func(call *NativeCall) (any, error)

// NativeCall carries the marshaled arguments of one native invocation
// together with hooks back into the engine.
type NativeCall struct {
	eng  *Engine
	this runtime.Value
	args []any
	raw  []runtime.Value

	deferred *Pending
}

// Pending marks a native result that will be delivered later via
// Engine.Resume. The token identifies exactly one suspension.
type Pending struct {
	Token string
}

// ThrownError wraps a guest value thrown across the bridge: native
// code returns it to throw into the guest, and receives it from
// Invoke when the guest function throws.
type ThrownError struct {
	Value runtime.Value
}

func (e *ThrownError) Error() string {
	return "guest throw: " + runtime.ToString(e.Value)
}

// awaitRequest is the internal signal a bound native produces when
// its callback returned a Pending token.
type awaitRequest struct {
	token string
}

func (e *awaitRequest) Error() string {
	return "native call suspended awaiting " + e.token
}

// Engine exposes the owning engine, e.g. for registering further
// natives from inside a callback.
func (c *NativeCall) Engine() *Engine { return c.eng }

// This is the guest receiver of the call.
func (c *NativeCall) This() runtime.Value { return c.this }

// NumArgs reports the argument count.
func (c *NativeCall) NumArgs() int { return len(c.args) }

// Arg returns the i-th marshaled argument, nil when absent.
func (c *NativeCall) Arg(i int) any {
	if i < 0 || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}

// RawArg returns the i-th argument as an unmarshaled guest value.
func (c *NativeCall) RawArg(i int) runtime.Value {
	if i < 0 || i >= len(c.raw) {
		return runtime.Undefined()
	}
	return c.raw[i]
}

// Invoke synchronously evaluates a guest function value to
// completion. The nested sub-evaluation runs on the engine's own
// stack above a watermark, so the suspended outer step state is
// untouched. A guest throw surfaces as *ThrownError.
func (c *NativeCall) Invoke(fn any, args ...any) (any, error) {
	callee, err := c.eng.callableOf(fn)
	if err != nil {
		return nil, err
	}
	guestArgs := make([]runtime.Value, len(args))
	for i, a := range args {
		v, err := c.eng.toGuest(a)
		if err != nil {
			return nil, err
		}
		guestArgs[i] = v
	}
	res, err := c.eng.runNested(callee, runtime.Undefined(), guestArgs)
	if err != nil {
		return nil, err
	}
	return c.eng.toHost(res), nil
}

// Defer requests asynchronous suspension: the callback must return
// the Pending as its result, and the host later delivers the real
// result through Engine.Resume with the same token. Not available
// inside a nested Invoke.
func (c *NativeCall) Defer() (*Pending, error) {
	if c.eng.nesting > 0 {
		return nil, ErrAwaitInNestedCall
	}
	c.deferred = &Pending{Token: uuid.NewString()}
	return c.deferred, nil
}

// Throw returns an error that throws a named guest error object.
func (c *NativeCall) Throw(name, message string) error {
	return &ThrownError{Value: c.eng.newError(name, message)}
}

//-----------------------------------------------------------------------------
// Registration
//-----------------------------------------------------------------------------

// RegisterNative installs a callable native function object as an own
// property of target. Typically called from the bootstrap callback.
func (e *Engine) RegisterNative(target *runtime.Object, name string, fn NativeFunc) *runtime.Object {
	obj := runtime.NewNativeFunction(e.realm.functionProto, name, e.bindNative(fn))
	target.DefineOwn(name, runtime.Property{Value: obj, Writable: true, Enumerable: false, Configurable: true})
	return obj
}

// SetProperty writes a marshaled host value as an own property of
// target; the bootstrap counterpart of RegisterNative for plain data.
func (e *Engine) SetProperty(target *runtime.Object, name string, value any) error {
	v, err := e.toGuest(value)
	if err != nil {
		return err
	}
	target.SetOwn(name, v)
	return nil
}

// bindNative wraps a host callback into the runtime's bound form,
// marshaling arguments on the way in and the result on the way out.
func (e *Engine) bindNative(fn NativeFunc) runtime.HostFunc {
	return func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		call := &NativeCall{
			eng:  e,
			this: this,
			raw:  args,
			args: make([]any, len(args)),
		}
		for i, a := range args {
			call.args[i] = e.toHost(a)
		}
		res, err := fn(call)
		if err != nil {
			return nil, err
		}
		if p, ok := res.(*Pending); ok {
			if call.deferred == nil || p.Token != call.deferred.Token {
				return nil, fmt.Errorf("native returned a pending token it did not obtain from Defer")
			}
			return nil, &awaitRequest{token: p.Token}
		}
		return e.toGuest(res)
	}
}

func (e *Engine) callableOf(fn any) (*runtime.Object, error) {
	switch f := fn.(type) {
	case *ObjectRef:
		if f.obj.IsCallable() {
			return f.obj, nil
		}
	case *runtime.Object:
		if f.IsCallable() {
			return f, nil
		}
	case runtime.Value:
		if obj, ok := f.(*runtime.Object); ok && obj.IsCallable() {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("value is not a callable guest function")
}

//-----------------------------------------------------------------------------
// Marshaling
//-----------------------------------------------------------------------------

// toHost unwraps a guest value for native consumption. Objects keep
// their identity behind an ObjectRef so native code can read and
// write guest-visible state.
func (e *Engine) toHost(v runtime.Value) any {
	switch val := v.(type) {
	case runtime.UndefinedValue, runtime.NullValue:
		return nil
	case runtime.BooleanValue:
		return val.Val
	case runtime.NumberValue:
		return val.Val
	case runtime.StringValue:
		return val.Val
	case *runtime.Object:
		return &ObjectRef{eng: e, obj: val}
	default:
		return nil
	}
}

// toGuest wraps a host value for the guest. Maps get their keys in
// sorted order so construction is deterministic.
func (e *Engine) toGuest(v any) (runtime.Value, error) {
	switch val := v.(type) {
	case nil:
		return runtime.Undefined(), nil
	case bool:
		return runtime.Boolean(val), nil
	case int:
		return runtime.Number(float64(val)), nil
	case int64:
		return runtime.Number(float64(val)), nil
	case float64:
		return runtime.Number(val), nil
	case string:
		return runtime.String(val), nil
	case []any:
		elements := make([]runtime.Value, len(val))
		for i, el := range val {
			gv, err := e.toGuest(el)
			if err != nil {
				return nil, err
			}
			elements[i] = gv
		}
		return runtime.NewArray(e.realm.arrayProto, elements), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := runtime.NewObject(e.realm.objectProto)
		for _, k := range keys {
			gv, err := e.toGuest(val[k])
			if err != nil {
				return nil, err
			}
			obj.SetOwn(k, gv)
		}
		return obj, nil
	case *ObjectRef:
		return val.obj, nil
	case runtime.Value:
		return val, nil
	default:
		return nil, fmt.Errorf("cannot marshal %T into a guest value", v)
	}
}

//-----------------------------------------------------------------------------
// ObjectRef
//-----------------------------------------------------------------------------

// ObjectRef is the host-side handle to a guest object. It aliases the
// live object; writes are guest-visible immediately.
type ObjectRef struct {
	eng *Engine
	obj *runtime.Object
}

// Value exposes the underlying guest object.
func (r *ObjectRef) Value() runtime.Value { return r.obj }

// IsArray reports whether the handle wraps an array object.
func (r *ObjectRef) IsArray() bool { return r.obj.Class() == runtime.ClassArray }

// IsCallable reports whether the handle wraps a function object.
func (r *ObjectRef) IsCallable() bool { return r.obj.IsCallable() }

// Get reads a property through the prototype chain, marshaled for the
// host; nil when absent.
func (r *ObjectRef) Get(key string) any {
	v, found := r.obj.Get(key)
	if !found {
		return nil
	}
	return r.eng.toHost(v)
}

// Set writes an own property with a marshaled host value.
func (r *ObjectRef) Set(key string, value any) error {
	v, err := r.eng.toGuest(value)
	if err != nil {
		return err
	}
	r.obj.SetOwn(key, v)
	return nil
}

// Len reports the array length, 0 for non-arrays.
func (r *ObjectRef) Len() int {
	if r.obj.Class() != runtime.ClassArray {
		return 0
	}
	return r.obj.ArrayLength()
}

// Index reads an array slot.
func (r *ObjectRef) Index(i int) any {
	return r.Get(runtime.FormatNumber(float64(i)))
}

// Keys lists the enumerable keys visible from this object.
func (r *ObjectRef) Keys() []string { return r.obj.Enumerate() }

// String renders the guest's view of the object.
func (r *ObjectRef) String() string { return runtime.ToString(r.obj) }
