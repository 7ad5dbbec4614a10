package runtime

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUndeclared is wrapped by Assign/Get failures so callers can
// convert them into guest ReferenceError throws.
var ErrUndeclared = errors.New("undeclared variable")

// ErrImmutable is reported when assigning to a non-mutable binding.
var ErrImmutable = errors.New("assignment to constant binding")

type binding struct {
	value   Value
	mutable bool
}

// Environment provides lexical scoping for guest values. The chain of
// parent links terminates at the global environment, which is backed
// by the global object so that bootstrap-registered properties and
// top-level declarations are two views of the same namespace.
type Environment struct {
	bindings map[string]*binding
	parent   *Environment
	backing  *Object
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		bindings: make(map[string]*binding),
		parent:   parent,
	}
}

// NewGlobalEnvironment creates the chain root backed by the global object.
func NewGlobalEnvironment(global *Object) *Environment {
	env := NewEnvironment(nil)
	env.backing = global
	return env
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Backing exposes the backing object of an object-backed scope.
func (e *Environment) Backing() *Object {
	return e.backing
}

// Declare inserts or shadows a binding in the current scope only.
func (e *Environment) Declare(name string, value Value, mutable bool) {
	if e.backing != nil {
		e.backing.SetOwn(name, value)
		return
	}
	e.bindings[name] = &binding{value: value, mutable: mutable}
}

// Assign updates the nearest existing binding, walking outward.
func (e *Environment) Assign(name string, value Value) error {
	for env := e; env != nil; env = env.parent {
		if env.backing != nil {
			if env.backing.HasOwn(name) {
				env.backing.SetOwn(name, value)
				return nil
			}
			continue
		}
		if b, ok := env.bindings[name]; ok {
			if !b.mutable {
				return fmt.Errorf("%w: '%s'", ErrImmutable, name)
			}
			b.value = value
			return nil
		}
	}
	return fmt.Errorf("%w: '%s'", ErrUndeclared, name)
}

// Get retrieves a binding, searching outward through the scope chain.
// The second result is false when the chain is exhausted.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if env.backing != nil {
			if v, ok := env.backing.GetOwn(name); ok {
				return v, true
			}
			continue
		}
		if b, ok := env.bindings[name]; ok {
			return b.value, true
		}
	}
	return UndefinedValue{}, false
}

// HasLocal reports whether name is bound in this scope itself.
func (e *Environment) HasLocal(name string) bool {
	if e.backing != nil {
		return e.backing.HasOwn(name)
	}
	_, ok := e.bindings[name]
	return ok
}

// Has reports whether name resolves anywhere on the chain.
func (e *Environment) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Keys returns the local bindings in sorted order (useful for
// determinism in tests).
func (e *Environment) Keys() []string {
	if e.backing != nil {
		keys := e.backing.OwnKeys()
		sort.Strings(keys)
		return keys
	}
	keys := make([]string, 0, len(e.bindings))
	for k := range e.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extend creates a fresh child scope.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}
