package runtime

import (
	"errors"
	"testing"
)

func TestEnvironmentDeclareAndShadow(t *testing.T) {
	outer := NewEnvironment(nil)
	outer.Declare("x", Number(1), true)
	inner := outer.Extend()
	inner.Declare("x", Number(2), true)

	v, _ := inner.Get("x")
	if !StrictEquals(v, Number(2)) {
		t.Fatalf("expected inner binding, got %v", v)
	}
	v, _ = outer.Get("x")
	if !StrictEquals(v, Number(1)) {
		t.Fatalf("expected outer binding to be untouched, got %v", v)
	}
}

func TestEnvironmentAssignWalksOutward(t *testing.T) {
	outer := NewEnvironment(nil)
	outer.Declare("count", Number(0), true)
	inner := outer.Extend().Extend()

	if err := inner.Assign("count", Number(5)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	v, _ := outer.Get("count")
	if !StrictEquals(v, Number(5)) {
		t.Fatalf("expected outer binding to be updated, got %v", v)
	}
}

func TestEnvironmentAssignUndeclared(t *testing.T) {
	env := NewEnvironment(nil)
	err := env.Assign("ghost", Number(1))
	if !errors.Is(err, ErrUndeclared) {
		t.Fatalf("expected ErrUndeclared, got %v", err)
	}
}

func TestEnvironmentImmutableBinding(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("pi", Number(3.14), false)
	err := env.Assign("pi", Number(3))
	if !errors.Is(err, ErrImmutable) {
		t.Fatalf("expected ErrImmutable, got %v", err)
	}
	v, _ := env.Get("pi")
	if !StrictEquals(v, Number(3.14)) {
		t.Fatalf("expected binding to keep its value, got %v", v)
	}
}

func TestGlobalEnvironmentBackedByObject(t *testing.T) {
	global := NewObject(nil)
	env := NewGlobalEnvironment(global)

	env.Declare("answer", Number(42), true)
	v, found := global.GetOwn("answer")
	if !found || !StrictEquals(v, Number(42)) {
		t.Fatalf("expected declaration to land on the global object, got %v", v)
	}

	global.SetOwn("injected", String("host"))
	v, found = env.Get("injected")
	if !found || ToString(v) != "host" {
		t.Fatalf("expected object property to resolve through the scope, got %v", v)
	}

	if err := env.Assign("injected", String("updated")); err != nil {
		t.Fatalf("assign through backing: %v", err)
	}
	v, _ = global.GetOwn("injected")
	if ToString(v) != "updated" {
		t.Fatalf("expected assignment to reach the backing object, got %v", v)
	}
}

func TestClosureSharesBinding(t *testing.T) {
	// Two scopes extending the same parent observe one shared slot.
	parent := NewEnvironment(nil)
	parent.Declare("shared", Number(0), true)
	a := parent.Extend()
	b := parent.Extend()

	if err := a.Assign("shared", Number(7)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	v, _ := b.Get("shared")
	if !StrictEquals(v, Number(7)) {
		t.Fatalf("expected sibling scope to see the update, got %v", v)
	}
}
