package runtime

import (
	"testing"

	"github.com/go-test/deep"
)

func TestPrototypeChainLookup(t *testing.T) {
	root := NewObject(nil)
	root.SetOwn("shared", Number(1))
	child := NewObject(root)
	grandchild := NewObject(child)

	v, found := grandchild.Get("shared")
	if !found {
		t.Fatalf("expected inherited property to be found")
	}
	if !StrictEquals(v, Number(1)) {
		t.Fatalf("expected 1, got %v", v)
	}
	if grandchild.HasOwn("shared") {
		t.Fatalf("inherited property must not appear as own")
	}
	if _, found := grandchild.Get("missing"); found {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestShadowingWritesStayOwn(t *testing.T) {
	proto := NewObject(nil)
	proto.SetOwn("name", String("proto"))
	obj := NewObject(proto)

	if ok := obj.SetOwn("name", String("own")); !ok {
		t.Fatalf("expected own write to succeed")
	}
	v, _ := obj.Get("name")
	if ToString(v) != "own" {
		t.Fatalf("expected shadowing value, got %q", ToString(v))
	}
	pv, _ := proto.Get("name")
	if ToString(pv) != "proto" {
		t.Fatalf("prototype value must be untouched, got %q", ToString(pv))
	}

	obj.Delete("name")
	v, _ = obj.Get("name")
	if ToString(v) != "proto" {
		t.Fatalf("expected prototype value to reappear after delete, got %q", ToString(v))
	}
}

func TestNonWritablePropertyIgnoresWrites(t *testing.T) {
	obj := NewObject(nil)
	obj.DefineOwn("pinned", Property{Value: Number(1), Writable: false, Enumerable: true, Configurable: false})

	if ok := obj.SetOwn("pinned", Number(2)); ok {
		t.Fatalf("expected write to non-writable property to report failure")
	}
	v, _ := obj.Get("pinned")
	if !StrictEquals(v, Number(1)) {
		t.Fatalf("expected original value, got %v", v)
	}
	if obj.Delete("pinned") {
		t.Fatalf("expected non-configurable property to refuse delete")
	}
}

func TestEnumerationOrder(t *testing.T) {
	proto := NewObject(nil)
	proto.SetOwn("b", Number(0))
	proto.SetOwn("p", Number(0))

	obj := NewObject(proto)
	obj.SetOwn("b", Number(1))
	obj.SetOwn("a", Number(2))
	obj.SetOwn("c", Number(3))
	obj.Delete("a")
	obj.SetOwn("a", Number(4))

	want := []string{"b", "c", "a", "p"}
	if diff := deep.Equal(obj.Enumerate(), want); diff != nil {
		t.Fatalf("enumeration order mismatch: %v", diff)
	}
}

func TestEnumerateSkipsNonEnumerable(t *testing.T) {
	obj := NewObject(nil)
	obj.SetOwn("visible", Number(1))
	obj.DefineOwn("hidden", Property{Value: Number(2), Writable: true, Enumerable: false, Configurable: true})

	if diff := deep.Equal(obj.Enumerate(), []string{"visible"}); diff != nil {
		t.Fatalf("unexpected keys: %v", diff)
	}
}

func TestPrototypeCycleRejected(t *testing.T) {
	a := NewObject(nil)
	b := NewObject(a)
	c := NewObject(b)

	if err := a.SetPrototype(c); err != ErrPrototypeCycle {
		t.Fatalf("expected ErrPrototypeCycle, got %v", err)
	}
	if a.Prototype() != nil {
		t.Fatalf("failed assignment must leave prototype unchanged")
	}
	if err := a.SetPrototype(a); err != ErrPrototypeCycle {
		t.Fatalf("expected self-link to be rejected, got %v", err)
	}
}

func TestArrayLengthTracksHighestIndex(t *testing.T) {
	arr := NewArray(nil, []Value{Number(1), Number(2)})
	if arr.ArrayLength() != 2 {
		t.Fatalf("expected length 2, got %d", arr.ArrayLength())
	}

	arr.SetOwn("5", Number(9))
	if arr.ArrayLength() != 6 {
		t.Fatalf("expected length 6 after sparse write, got %d", arr.ArrayLength())
	}

	arr.SetOwn("notanindex", Number(1))
	if arr.ArrayLength() != 6 {
		t.Fatalf("non-index keys must not affect length, got %d", arr.ArrayLength())
	}

	v, found := arr.GetOwn("length")
	if !found || !StrictEquals(v, Number(6)) {
		t.Fatalf("expected length property 6, got %v", v)
	}
}

func TestArrayLengthAssignmentTruncates(t *testing.T) {
	arr := NewArray(nil, []Value{Number(1), Number(2), Number(3), Number(4)})
	arr.SetOwn("length", Number(2))

	if arr.ArrayLength() != 2 {
		t.Fatalf("expected length 2, got %d", arr.ArrayLength())
	}
	if arr.HasOwn("2") || arr.HasOwn("3") {
		t.Fatalf("expected truncated elements to be removed")
	}
	if !arr.HasOwn("0") || !arr.HasOwn("1") {
		t.Fatalf("expected surviving elements to remain")
	}
}

func TestArrayDeleteOfHighestIndexRecomputesLength(t *testing.T) {
	arr := NewArray(nil, []Value{Number(1), Number(2), Number(3)})
	arr.SetOwn("10", Number(99))
	if arr.ArrayLength() != 11 {
		t.Fatalf("expected length 11, got %d", arr.ArrayLength())
	}

	arr.Delete("10")
	if arr.ArrayLength() != 3 {
		t.Fatalf("expected length to fall back to 3, got %d", arr.ArrayLength())
	}

	arr.Delete("1")
	if arr.ArrayLength() != 3 {
		t.Fatalf("deleting a middle element must keep length, got %d", arr.ArrayLength())
	}
}

func TestArrayIndexKeysAreCanonical(t *testing.T) {
	arr := NewArray(nil, nil)
	arr.SetOwn("007", Number(1))
	if arr.ArrayLength() != 0 {
		t.Fatalf("leading-zero key must not count as index, got length %d", arr.ArrayLength())
	}
	arr.SetOwn("7", Number(1))
	if arr.ArrayLength() != 8 {
		t.Fatalf("expected length 8, got %d", arr.ArrayLength())
	}
}
