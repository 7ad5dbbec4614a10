package interpreter

import (
	"math"
	"strconv"

	"crank/pkg/runtime"
)

// realm holds the primordial objects created once per engine: the
// global object, the scope-chain root backed by it, and the
// Object/Array/Function/Error archetypes every other object delegates
// to. The engine defines no ambient I/O; every capability beyond
// these archetypes comes from the bootstrap callback.
type realm struct {
	global    *runtime.Object
	globalEnv *runtime.Environment

	objectProto   *runtime.Object
	functionProto *runtime.Object
	arrayProto    *runtime.Object
	errorProto    *runtime.Object
}

func newRealm() *realm {
	r := &realm{}
	r.objectProto = runtime.NewObject(nil)
	r.functionProto = runtime.NewObject(r.objectProto)
	r.arrayProto = runtime.NewObject(r.objectProto)
	r.errorProto = runtime.NewObject(r.objectProto)

	r.errorProto.DefineOwn("name", runtime.Property{Value: runtime.String("Error"), Writable: true, Enumerable: false, Configurable: true})
	r.errorProto.DefineOwn("message", runtime.Property{Value: runtime.String(""), Writable: true, Enumerable: false, Configurable: true})

	r.installPrimordials()

	r.global = runtime.NewObject(r.objectProto)
	constant := func(name string, v runtime.Value) {
		r.global.DefineOwn(name, runtime.Property{Value: v, Writable: false, Enumerable: false, Configurable: false})
	}
	constant("undefined", runtime.Undefined())
	constant("NaN", runtime.Number(math.NaN()))
	constant("Infinity", runtime.Number(math.Inf(1)))

	r.globalEnv = runtime.NewGlobalEnvironment(r.global)
	return r
}

// installPrimordials wires the handful of prototype methods the
// engine itself guarantees. These need no engine access, so they are
// plain bound natives.
func (r *realm) installPrimordials() {
	method := func(target *runtime.Object, name string, impl runtime.HostFunc) {
		fn := runtime.NewNativeFunction(r.functionProto, name, impl)
		target.DefineOwn(name, runtime.Property{Value: fn, Writable: true, Enumerable: false, Configurable: true})
	}

	method(r.objectProto, "hasOwnProperty", func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := this.(*runtime.Object)
		if !ok || len(args) == 0 {
			return runtime.Boolean(false), nil
		}
		return runtime.Boolean(obj.HasOwn(propertyKey(args[0]))), nil
	})

	method(r.objectProto, "toString", func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return runtime.String(runtime.ToString(this)), nil
	})

	method(r.arrayProto, "push", func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		arr, ok := this.(*runtime.Object)
		if !ok || arr.Class() != runtime.ClassArray {
			return runtime.Undefined(), nil
		}
		for _, a := range args {
			arr.SetOwn(strconv.Itoa(arr.ArrayLength()), a)
		}
		return runtime.Number(float64(arr.ArrayLength())), nil
	})

	method(r.arrayProto, "pop", func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		arr, ok := this.(*runtime.Object)
		if !ok || arr.Class() != runtime.ClassArray || arr.ArrayLength() == 0 {
			return runtime.Undefined(), nil
		}
		last := strconv.Itoa(arr.ArrayLength() - 1)
		v, _ := arr.GetOwn(last)
		arr.Delete(last)
		return v, nil
	})

	method(r.arrayProto, "join", func(this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		arr, ok := this.(*runtime.Object)
		if !ok || arr.Class() != runtime.ClassArray {
			return runtime.String(""), nil
		}
		sep := ","
		if len(args) > 0 && args[0].Kind() != runtime.KindUndefined {
			sep = runtime.ToString(args[0])
		}
		out := ""
		for i := 0; i < arr.ArrayLength(); i++ {
			if i > 0 {
				out += sep
			}
			el, found := arr.Get(strconv.Itoa(i))
			if !found || el.Kind() == runtime.KindUndefined || el.Kind() == runtime.KindNull {
				continue
			}
			out += runtime.ToString(el)
		}
		return runtime.String(out), nil
	})
}
