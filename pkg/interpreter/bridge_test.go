package interpreter

import (
	"errors"
	"testing"

	"github.com/go-test/deep"

	"crank/pkg/parser"
	"crank/pkg/runtime"
)

func TestNativeArgumentMarshaling(t *testing.T) {
	program, err := parser.Parse("test.js", `
		inspect(1.5, "s", true, null, undefined, [1, 2], { a: 7 }, function() {});
	`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got []any
	eng, err := New(program, WithBootstrap(func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "inspect", func(call *NativeCall) (any, error) {
			for i := 0; i < call.NumArgs(); i++ {
				got = append(got, call.Arg(i))
			}
			return nil, nil
		})
		return nil
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := eng.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(got) != 8 {
		t.Fatalf("expected 8 arguments, got %d", len(got))
	}
	if got[0] != 1.5 || got[1] != "s" || got[2] != true {
		t.Fatalf("scalar arguments mismarshaled: %#v", got[:3])
	}
	if got[3] != nil || got[4] != nil {
		t.Fatalf("null/undefined must marshal to nil, got %#v", got[3:5])
	}

	arr, ok := got[5].(*ObjectRef)
	if !ok || !arr.IsArray() {
		t.Fatalf("expected array handle, got %#v", got[5])
	}
	if arr.Len() != 2 || arr.Index(1) != 2.0 {
		t.Fatalf("array handle reads wrong: len=%d idx1=%v", arr.Len(), arr.Index(1))
	}

	obj, ok := got[6].(*ObjectRef)
	if !ok || obj.IsArray() || obj.IsCallable() {
		t.Fatalf("expected plain object handle, got %#v", got[6])
	}
	if obj.Get("a") != 7.0 {
		t.Fatalf("expected property read of 7, got %v", obj.Get("a"))
	}

	fn, ok := got[7].(*ObjectRef)
	if !ok || !fn.IsCallable() {
		t.Fatalf("expected callable handle, got %#v", got[7])
	}
}

func TestNativeReturnMarshaling(t *testing.T) {
	eng, out := buildEngineWith(t, `
		var r = payload();
		log(r.answer, r.tags.length, r.tags[0], r.ok);
	`, func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "payload", func(call *NativeCall) (any, error) {
			return map[string]any{
				"answer": 42,
				"tags":   []any{"x", "y"},
				"ok":     true,
			}, nil
		})
		return nil
	})
	mustComplete(t, eng)
	if diff := deep.Equal(*out, []string{"42", "2", "x", "true"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
}

func TestNativeInvokesGuestCallback(t *testing.T) {
	program, err := parser.Parse("test.js", `
		register(function(x) { return x * 2; });
	`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var result any
	var invokeErr error
	eng, err := New(program, WithBootstrap(func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "register", func(call *NativeCall) (any, error) {
			result, invokeErr = call.Invoke(call.Arg(0), 21)
			return nil, nil
		})
		return nil
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := eng.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if invokeErr != nil {
		t.Fatalf("invoke: %v", invokeErr)
	}
	if result != 42.0 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestInvokeSurfacesGuestThrow(t *testing.T) {
	program, err := parser.Parse("test.js", `
		register(function() { throw "boom"; });
	`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var invokeErr error
	eng, err := New(program, WithBootstrap(func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "register", func(call *NativeCall) (any, error) {
			_, invokeErr = call.Invoke(call.Arg(0))
			return nil, nil
		})
		return nil
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := eng.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	var thrown *ThrownError
	if !errors.As(invokeErr, &thrown) {
		t.Fatalf("expected ThrownError, got %v", invokeErr)
	}
	if runtime.ToString(thrown.Value) != "boom" {
		t.Fatalf("expected thrown value, got %q", runtime.ToString(thrown.Value))
	}
}

func TestInvokeOfThrowingNativeCallee(t *testing.T) {
	var invokeErr error
	eng, out := buildEngineWith(t, `
		try {
			relay(reject);
		} catch (e) {
			log(e.name, e.message);
		}
		"after";
	`, func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "reject", func(call *NativeCall) (any, error) {
			return nil, call.Throw("TypeError", "refused")
		})
		eng.RegisterNative(global, "relay", func(call *NativeCall) (any, error) {
			var res any
			res, invokeErr = call.Invoke(call.Arg(0))
			if invokeErr != nil {
				return nil, invokeErr
			}
			return res, nil
		})
		return nil
	})
	v := mustComplete(t, eng)

	// the nested throw must surface to the native caller without
	// disturbing the suspended outer evaluation
	var thrown *ThrownError
	if !errors.As(invokeErr, &thrown) {
		t.Fatalf("expected ThrownError from nested invoke, got %v", invokeErr)
	}
	if diff := deep.Equal(*out, []string{"TypeError", "refused"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
	if runtime.ToString(v) != "after" {
		t.Fatalf("expected evaluation to continue past the catch, got %q", runtime.ToString(v))
	}
}

func TestInvokeOfNonFunctionValue(t *testing.T) {
	var invokeErr error
	eng, out := buildEngineWith(t, `
		try {
			relay(42);
		} catch (e) {
			log(e.name);
		}
	`, func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "relay", func(call *NativeCall) (any, error) {
			_, invokeErr = call.Invoke(call.Arg(0))
			return nil, invokeErr
		})
		return nil
	})
	mustComplete(t, eng)
	if invokeErr == nil {
		t.Fatal("expected an error invoking a non-function")
	}
	if diff := deep.Equal(*out, []string{"Error"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
}

func TestNativeThrowIsGuestCatchable(t *testing.T) {
	eng, out := buildEngineWith(t, `
		try {
			strict();
		} catch (e) {
			log(e.name, e.message);
		}
	`, func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "strict", func(call *NativeCall) (any, error) {
			return nil, call.Throw("TypeError", "refused")
		})
		return nil
	})
	mustComplete(t, eng)
	if diff := deep.Equal(*out, []string{"TypeError", "refused"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
}

func TestObjectRefWritesAreGuestVisible(t *testing.T) {
	eng, out := buildEngineWith(t, `
		var box = {};
		stamp(box);
		log(box.added);
	`, func(eng *Engine, global *runtime.Object) error {
		eng.RegisterNative(global, "stamp", func(call *NativeCall) (any, error) {
			ref := call.Arg(0).(*ObjectRef)
			return nil, ref.Set("added", 5)
		})
		return nil
	})
	mustComplete(t, eng)
	if diff := deep.Equal(*out, []string{"5"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
}

func TestSetPropertyAndHiddenNatives(t *testing.T) {
	eng, out := buildEngineWith(t, `
		var seen = "";
		for (var k in this) {
			if (k === "log" || k === "answer") {
				seen += k + ";";
			}
		}
		log(answer, seen);
	`, func(eng *Engine, global *runtime.Object) error {
		return eng.SetProperty(global, "answer", 42)
	})
	mustComplete(t, eng)
	// Registered natives are non-enumerable; SetProperty values are
	// ordinary enumerable properties.
	if diff := deep.Equal(*out, []string{"42", "answer;"}); diff != nil {
		t.Fatalf("unexpected output: %v", diff)
	}
}
