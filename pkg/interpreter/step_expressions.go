package interpreter

import (
	"errors"
	"fmt"

	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/file"
	"github.com/robertkrimen/otto/token"

	"crank/pkg/runtime"
)

func (e *Engine) stepIdentifier(t *task, n *ast.Identifier) {
	if v, ok := t.env.Get(n.Name); ok {
		e.finish(runtime.Normal(v))
		return
	}
	e.finish(runtime.Throw(e.newReferenceError("'" + n.Name + "' is not defined")))
}

func (e *Engine) stepNumberLiteral(t *task, n *ast.NumberLiteral) {
	switch v := n.Value.(type) {
	case float64:
		e.finish(runtime.Normal(runtime.Number(v)))
	case int64:
		e.finish(runtime.Normal(runtime.Number(float64(v))))
	default:
		e.finish(runtime.Throw(e.newTypeError(fmt.Sprintf("invalid number literal %#v", n.Value))))
	}
}

func (e *Engine) stepArrayLiteral(t *task, n *ast.ArrayLiteral) {
	if t.phase > 0 {
		t.vals = append(t.vals, e.takePending().Value)
	}
	for t.phase < len(n.Value) {
		el := n.Value[t.phase]
		t.phase++
		if el == nil {
			// elision
			t.vals = append(t.vals, runtime.Undefined())
			continue
		}
		e.push(el, t.env)
		return
	}
	e.finish(runtime.Normal(runtime.NewArray(e.realm.arrayProto, t.vals)))
}

func (e *Engine) stepObjectLiteral(t *task, n *ast.ObjectLiteral) {
	if t.phase > 0 {
		t.vals = append(t.vals, e.takePending().Value)
	}
	if t.phase < len(n.Value) {
		prop := n.Value[t.phase]
		t.phase++
		e.push(prop.Value, t.env)
		return
	}
	obj := runtime.NewObject(e.realm.objectProto)
	for i, prop := range n.Value {
		obj.SetOwn(prop.Key, t.vals[i])
	}
	e.finish(runtime.Normal(obj))
}

func (e *Engine) stepBinary(t *task, n *ast.BinaryExpression) {
	logical := n.Operator == token.LOGICAL_AND || n.Operator == token.LOGICAL_OR
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Left, t.env)
	case 1:
		c := e.takePending()
		if logical {
			truthy := runtime.ToBoolean(c.Value)
			if (n.Operator == token.LOGICAL_AND && !truthy) || (n.Operator == token.LOGICAL_OR && truthy) {
				// short circuit: the right operand is never evaluated
				e.finish(runtime.Normal(c.Value))
				return
			}
			t.phase = 2
			e.push(n.Right, t.env)
			return
		}
		t.vals = append(t.vals, c.Value)
		t.phase = 2
		e.push(n.Right, t.env)
	case 2:
		c := e.takePending()
		if logical {
			e.finish(runtime.Normal(c.Value))
			return
		}
		e.finish(e.binaryOp(n.Operator, t.vals[0], c.Value))
	}
}

func (e *Engine) stepUnary(t *task, n *ast.UnaryExpression) {
	switch n.Operator {
	case token.INCREMENT, token.DECREMENT:
		e.stepCrement(t, n)
		return
	case token.TYPEOF:
		// typeof tolerates unresolved identifiers
		if id, ok := n.Operand.(*ast.Identifier); ok {
			v, _ := t.env.Get(id.Name)
			e.finish(runtime.Normal(runtime.String(runtime.TypeOf(v))))
			return
		}
	case token.DELETE:
		e.stepDelete(t, n)
		return
	}
	if t.phase == 0 {
		t.phase = 1
		e.push(n.Operand, t.env)
		return
	}
	v := e.takePending().Value
	switch n.Operator {
	case token.NOT:
		e.finish(runtime.Normal(runtime.Boolean(!runtime.ToBoolean(v))))
	case token.MINUS:
		e.finish(runtime.Normal(runtime.Number(-runtime.ToNumber(v))))
	case token.PLUS:
		e.finish(runtime.Normal(runtime.Number(runtime.ToNumber(v))))
	case token.BITWISE_NOT:
		e.finish(runtime.Normal(runtime.Number(float64(^toInt32(v)))))
	case token.TYPEOF:
		e.finish(runtime.Normal(runtime.String(runtime.TypeOf(v))))
	case token.VOID:
		e.finish(runtime.Normal(runtime.Undefined()))
	default:
		e.finish(runtime.Throw(e.newTypeError("unsupported unary operator " + n.Operator.String())))
	}
}

// stepCrement handles ++ and -- in both prefix and postfix position.
func (e *Engine) stepCrement(t *task, n *ast.UnaryExpression) {
	delta := 1.0
	if n.Operator == token.DECREMENT {
		delta = -1
	}
	switch target := n.Operand.(type) {
	case *ast.Identifier:
		v, ok := t.env.Get(target.Name)
		if !ok {
			e.finish(runtime.Throw(e.newReferenceError("'" + target.Name + "' is not defined")))
			return
		}
		old := runtime.ToNumber(v)
		if err := t.env.Assign(target.Name, runtime.Number(old + delta)); err != nil {
			e.finish(runtime.Throw(e.newReferenceError(err.Error())))
			return
		}
		if n.Postfix {
			e.finish(runtime.Normal(runtime.Number(old)))
			return
		}
		e.finish(runtime.Normal(runtime.Number(old + delta)))
	case *ast.DotExpression:
		if t.phase == 0 {
			t.phase = 1
			e.push(target.Left, t.env)
			return
		}
		base := e.takePending().Value
		e.finishCrement(base, target.Identifier.Name, delta, n.Postfix)
	case *ast.BracketExpression:
		switch t.phase {
		case 0:
			t.phase = 1
			e.push(target.Left, t.env)
		case 1:
			t.vals = append(t.vals, e.takePending().Value)
			t.phase = 2
			e.push(target.Member, t.env)
		default:
			key := e.takePending().Value
			e.finishCrement(t.vals[0], propertyKey(key), delta, n.Postfix)
		}
	default:
		e.finish(runtime.Throw(e.newTypeError("invalid increment/decrement target")))
	}
}

func (e *Engine) finishCrement(base runtime.Value, key string, delta float64, postfix bool) {
	v, thrown := e.memberGet(base, key)
	if thrown != nil {
		e.finish(runtime.Throw(thrown))
		return
	}
	old := runtime.ToNumber(v)
	if thrown := e.memberSet(base, key, runtime.Number(old + delta)); thrown != nil {
		e.finish(runtime.Throw(thrown))
		return
	}
	if postfix {
		e.finish(runtime.Normal(runtime.Number(old)))
		return
	}
	e.finish(runtime.Normal(runtime.Number(old + delta)))
}

func (e *Engine) stepDelete(t *task, n *ast.UnaryExpression) {
	switch target := n.Operand.(type) {
	case *ast.Identifier:
		// declared bindings are not deletable
		e.finish(runtime.Normal(runtime.Boolean(false)))
	case *ast.DotExpression:
		if t.phase == 0 {
			t.phase = 1
			e.push(target.Left, t.env)
			return
		}
		base := e.takePending().Value
		if obj, ok := base.(*runtime.Object); ok {
			e.finish(runtime.Normal(runtime.Boolean(obj.Delete(target.Identifier.Name))))
			return
		}
		e.finish(runtime.Normal(runtime.Boolean(true)))
	case *ast.BracketExpression:
		switch t.phase {
		case 0:
			t.phase = 1
			e.push(target.Left, t.env)
		case 1:
			t.vals = append(t.vals, e.takePending().Value)
			t.phase = 2
			e.push(target.Member, t.env)
		default:
			key := propertyKey(e.takePending().Value)
			if obj, ok := t.vals[0].(*runtime.Object); ok {
				e.finish(runtime.Normal(runtime.Boolean(obj.Delete(key))))
				return
			}
			e.finish(runtime.Normal(runtime.Boolean(true)))
		}
	default:
		e.finish(runtime.Normal(runtime.Boolean(true)))
	}
}

// assignment phases: the target reference and its current value are
// resolved before the right-hand side runs, left to right. Compound
// assignment carries the bare binary operator on the node, so the
// stashed old value feeds binaryOp directly.
func (e *Engine) stepAssign(t *task, n *ast.AssignExpression) {
	switch target := n.Left.(type) {
	case *ast.Identifier:
		if t.phase == 0 {
			if n.Operator != token.ASSIGN {
				old, ok := t.env.Get(target.Name)
				if !ok {
					e.finish(runtime.Throw(e.newReferenceError("'" + target.Name + "' is not defined")))
					return
				}
				t.vals = append(t.vals, old)
			}
			t.phase = 1
			e.push(n.Right, t.env)
			return
		}
		value := e.takePending().Value
		if n.Operator != token.ASSIGN {
			c := e.binaryOp(n.Operator, t.vals[0], value)
			if c.IsAbrupt() {
				e.finish(c)
				return
			}
			value = c.Value
		}
		if err := t.env.Assign(target.Name, value); err != nil {
			if errors.Is(err, runtime.ErrUndeclared) {
				e.finish(runtime.Throw(e.newReferenceError("'" + target.Name + "' is not defined")))
				return
			}
			e.finish(runtime.Throw(e.newTypeError(err.Error())))
			return
		}
		e.finish(runtime.Normal(value))

	case *ast.DotExpression:
		switch t.phase {
		case 0:
			t.phase = 1
			e.push(target.Left, t.env)
		case 1:
			base := e.takePending().Value
			t.vals = append(t.vals, base)
			if n.Operator != token.ASSIGN {
				old, thrown := e.memberGet(base, target.Identifier.Name)
				if thrown != nil {
					e.finish(runtime.Throw(thrown))
					return
				}
				t.vals = append(t.vals, old)
			}
			t.phase = 2
			e.push(n.Right, t.env)
		default:
			e.finishMemberAssign(t, n, t.vals[0], target.Identifier.Name, e.takePending().Value)
		}

	case *ast.BracketExpression:
		switch t.phase {
		case 0:
			t.phase = 1
			e.push(target.Left, t.env)
		case 1:
			t.vals = append(t.vals, e.takePending().Value)
			t.phase = 2
			e.push(target.Member, t.env)
		case 2:
			key := e.takePending().Value
			t.vals = append(t.vals, key)
			if n.Operator != token.ASSIGN {
				old, thrown := e.memberGet(t.vals[0], propertyKey(key))
				if thrown != nil {
					e.finish(runtime.Throw(thrown))
					return
				}
				t.vals = append(t.vals, old)
			}
			t.phase = 3
			e.push(n.Right, t.env)
		default:
			e.finishMemberAssign(t, n, t.vals[0], propertyKey(t.vals[1]), e.takePending().Value)
		}

	default:
		e.finish(runtime.Throw(e.newTypeError("invalid assignment target")))
	}
}

func (e *Engine) finishMemberAssign(t *task, n *ast.AssignExpression, base runtime.Value, key string, value runtime.Value) {
	if n.Operator != token.ASSIGN {
		// old target value, stashed before the right-hand side ran
		old := t.vals[len(t.vals)-1]
		c := e.binaryOp(n.Operator, old, value)
		if c.IsAbrupt() {
			e.finish(c)
			return
		}
		value = c.Value
	}
	if thrown := e.memberSet(base, key, value); thrown != nil {
		e.finish(runtime.Throw(thrown))
		return
	}
	e.finish(runtime.Normal(value))
}

func (e *Engine) stepConditional(t *task, n *ast.ConditionalExpression) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Test, t.env)
	case 1:
		c := e.takePending()
		t.phase = 2
		if runtime.ToBoolean(c.Value) {
			e.push(n.Consequent, t.env)
			return
		}
		e.push(n.Alternate, t.env)
	default:
		e.finish(e.takePending())
	}
}

func (e *Engine) stepSequence(t *task, n *ast.SequenceExpression) {
	if t.phase > 0 {
		t.vals = append(t.vals[:0], e.takePending().Value)
	}
	if t.phase < len(n.Sequence) {
		idx := t.phase
		t.phase++
		e.push(n.Sequence[idx], t.env)
		return
	}
	last := runtime.Undefined()
	if len(t.vals) > 0 {
		last = t.vals[0]
	}
	e.finish(runtime.Normal(last))
}

func (e *Engine) stepDot(t *task, n *ast.DotExpression) {
	if t.phase == 0 {
		t.phase = 1
		e.push(n.Left, t.env)
		return
	}
	base := e.takePending().Value
	v, thrown := e.memberGet(base, n.Identifier.Name)
	if thrown != nil {
		e.finish(runtime.Throw(thrown))
		return
	}
	e.finish(runtime.Normal(v))
}

func (e *Engine) stepBracket(t *task, n *ast.BracketExpression) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Left, t.env)
	case 1:
		t.vals = append(t.vals, e.takePending().Value)
		t.phase = 2
		e.push(n.Member, t.env)
	default:
		key := propertyKey(e.takePending().Value)
		v, thrown := e.memberGet(t.vals[0], key)
		if thrown != nil {
			e.finish(runtime.Throw(thrown))
			return
		}
		e.finish(runtime.Normal(v))
	}
}

func (e *Engine) stepVariableExpression(t *task, n *ast.VariableExpression) {
	if n.Initializer == nil {
		// hoisting already declared the name; a bare var never resets it
		if !t.env.HasLocal(n.Name) {
			t.env.Declare(n.Name, runtime.Undefined(), true)
		}
		e.finish(runtime.Normal(runtime.Undefined()))
		return
	}
	if t.phase == 0 {
		t.phase = 1
		e.push(n.Initializer, t.env)
		return
	}
	value := e.takePending().Value
	t.env.Declare(n.Name, value, true)
	e.finish(runtime.Normal(value))
}

//-----------------------------------------------------------------------------
// Calls
//-----------------------------------------------------------------------------

// Call-task phases shared by call/new/nativeInvoke tasks.
const (
	callPhaseArgs  = 6
	callPhaseBody  = 7
	callPhaseAwait = 8
)

func (e *Engine) stepCall(t *task, n *ast.CallExpression) {
	if t.call == nil {
		t.call = &callState{thisv: runtime.Undefined()}
	}
	cs := t.call
	switch t.phase {
	case 0:
		switch callee := n.Callee.(type) {
		case *ast.DotExpression:
			t.phase = 1
			e.push(callee.Left, t.env)
		case *ast.BracketExpression:
			t.phase = 2
			e.push(callee.Left, t.env)
		default:
			t.phase = 4
			e.push(n.Callee, t.env)
		}
	case 1: // method receiver evaluated
		cs.thisv = e.takePending().Value
		callee := n.Callee.(*ast.DotExpression)
		fn, thrown := e.memberGet(cs.thisv, callee.Identifier.Name)
		if thrown != nil {
			e.finish(runtime.Throw(thrown))
			return
		}
		cs.callee = fn
		e.pumpArgs(t, n.ArgumentList, false)
	case 2: // computed-member receiver evaluated
		cs.thisv = e.takePending().Value
		t.phase = 3
		e.push(n.Callee.(*ast.BracketExpression).Member, t.env)
	case 3: // computed member key evaluated
		key := propertyKey(e.takePending().Value)
		fn, thrown := e.memberGet(cs.thisv, key)
		if thrown != nil {
			e.finish(runtime.Throw(thrown))
			return
		}
		cs.callee = fn
		e.pumpArgs(t, n.ArgumentList, false)
	case 4: // plain callee evaluated
		cs.callee = e.takePending().Value
		e.pumpArgs(t, n.ArgumentList, false)
	case callPhaseArgs:
		t.vals = append(t.vals, e.takePending().Value)
		e.pumpArgs(t, n.ArgumentList, false)
	case callPhaseBody:
		e.finishGuestCall(t)
	case callPhaseAwait:
		e.finishAwaitedCall(t)
	}
}

func (e *Engine) stepNew(t *task, n *ast.NewExpression) {
	if t.call == nil {
		t.call = &callState{thisv: runtime.Undefined(), construct: true}
	}
	switch t.phase {
	case 0:
		t.phase = 4
		e.push(n.Callee, t.env)
	case 4:
		t.call.callee = e.takePending().Value
		e.pumpArgs(t, n.ArgumentList, true)
	case callPhaseArgs:
		t.vals = append(t.vals, e.takePending().Value)
		e.pumpArgs(t, n.ArgumentList, true)
	case callPhaseBody:
		e.finishGuestCall(t)
	case callPhaseAwait:
		e.finishAwaitedCall(t)
	}
}

// pumpArgs pushes the next unevaluated argument, or begins the
// invocation once all arguments are collected left to right.
func (e *Engine) pumpArgs(t *task, args []ast.Expression, construct bool) {
	idx := len(t.vals)
	if idx < len(args) {
		t.phase = callPhaseArgs
		e.push(args[idx], t.env)
		return
	}
	e.beginInvoke(t, construct)
}

// beginInvoke starts the call proper: native callees run within the
// current step; guest callees get a fresh frame and their body is
// pushed as new evaluation state.
func (e *Engine) beginInvoke(t *task, construct bool) {
	cs := t.call
	callee, ok := cs.callee.(*runtime.Object)
	if !ok || !callee.IsCallable() {
		e.deliverCall(t, runtime.Throw(e.newTypeError(runtime.ToString(cs.callee) + " is not a function")))
		return
	}
	part := callee.Function()

	if construct {
		proto := e.realm.objectProto
		if pv, found := callee.Get("prototype"); found {
			if pobj, ok := pv.(*runtime.Object); ok {
				proto = pobj
			}
		}
		cs.newObj = runtime.NewObject(proto)
		cs.thisv = cs.newObj
	} else {
		switch cs.thisv.(type) {
		case runtime.UndefinedValue, runtime.NullValue:
			// plain calls see the global object as their receiver
			cs.thisv = e.realm.global
		}
	}

	if part.Native != nil {
		res, err := part.Native(cs.thisv, t.vals)
		if err != nil {
			var ar *awaitRequest
			if errors.As(err, &ar) {
				e.awaitToken = ar.token
				e.awaitTask = t
				e.awaitReq = true
				t.phase = callPhaseAwait
				return
			}
			var te *ThrownError
			if errors.As(err, &te) {
				e.deliverCall(t, runtime.Throw(te.Value))
				return
			}
			e.deliverCall(t, runtime.Throw(e.newError("Error", err.Error())))
			return
		}
		e.deliverCall(t, runtime.Normal(e.constructResult(cs, res)))
		return
	}

	if len(e.frames) >= e.maxDepth {
		e.deliverCall(t, runtime.Throw(e.newRangeError("maximum call stack depth exceeded")))
		return
	}
	f := e.pushFrame(callee, cs.thisv, t.vals)
	cs.frame = f
	decl := part.Decl
	if decl.ParameterList != nil {
		for i, param := range decl.ParameterList.List {
			arg := runtime.Undefined()
			if i < len(t.vals) {
				arg = t.vals[i]
			}
			f.env.Declare(param.Name, arg, true)
		}
	}
	f.env.Declare("arguments", runtime.NewArray(e.realm.arrayProto, t.vals), true)
	e.hoist(decl.DeclarationList, f.env)
	t.phase = callPhaseBody
	e.push(decl.Body, f.env)
}

// finishGuestCall folds the function body's completion into the
// call's result. Return completions land here via the unwinder.
func (e *Engine) finishGuestCall(t *task) {
	cs := t.call
	c := e.takePending()
	e.popFrame()
	cs.frame = nil
	result := runtime.Undefined()
	if c.Kind == runtime.CompletionReturn {
		result = c.Value
	}
	e.finish(runtime.Normal(e.constructResult(cs, result)))
}

func (e *Engine) finishAwaitedCall(t *task) {
	c := e.takePending()
	e.finish(runtime.Normal(e.constructResult(t.call, c.Value)))
}

// constructResult applies new-expression result selection: an object
// returned by the body wins, otherwise the freshly allocated instance.
func (e *Engine) constructResult(cs *callState, result runtime.Value) runtime.Value {
	if !cs.construct {
		return result
	}
	if obj, ok := result.(*runtime.Object); ok {
		return obj
	}
	return cs.newObj
}

//-----------------------------------------------------------------------------
// Nested synchronous invocation from native code
//-----------------------------------------------------------------------------

// nativeInvoke is the synthetic root node for a guest call made by a
// native callback. It satisfies ast.Node so it can live on the task
// stack alongside real syntax nodes.
type nativeInvoke struct{}

func (nativeInvoke) Idx0() file.Idx { return 0 }
func (nativeInvoke) Idx1() file.Idx { return 0 }

func (e *Engine) stepNativeInvoke(t *task, _ *nativeInvoke) {
	if t.phase == 0 {
		e.beginInvoke(t, false)
		return
	}
	// body finished, returned, or threw
	cs := t.call
	c := e.takePending()
	if cs.frame != nil {
		e.popFrame()
		cs.frame = nil
	}
	switch c.Kind {
	case runtime.CompletionReturn:
		c = runtime.Normal(c.Value)
	case runtime.CompletionNormal:
		c = runtime.Normal(runtime.Undefined())
	}
	e.deliverCall(t, c)
}

// deliverCall completes the invocation task with c. A nested native
// invocation leaves the completion at its watermark for the nested
// run loop; unwinding from there would pop the suspended outer tasks.
func (e *Engine) deliverCall(t *task, c runtime.Completion) {
	if _, ok := t.node.(*nativeInvoke); ok {
		e.pop()
		e.pending = c
		e.hasPending = true
		return
	}
	e.finish(c)
}

// runNested executes a guest function to completion inside the
// current step without disturbing the outer evaluation state. The
// nested region is bounded by a stack watermark.
func (e *Engine) runNested(fn *runtime.Object, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
	base := len(e.stack)
	t := &task{
		node: &nativeInvoke{},
		env:  e.realm.globalEnv,
		call: &callState{callee: fn, thisv: this},
		vals: args,
	}
	e.stack = append(e.stack, t)
	e.nesting++
	defer func() { e.nesting-- }()

	for len(e.stack) > base {
		e.dispatchTop()
		if e.awaitReq {
			e.awaitReq = false
			e.awaitToken = ""
			e.awaitTask = nil
			for len(e.stack) > base {
				top := e.top()
				if top.call != nil && top.call.frame != nil {
					e.popFrame()
				}
				e.pop()
			}
			e.hasPending = false
			return nil, ErrAwaitInNestedCall
		}
	}
	c := e.takePending()
	if c.Kind == runtime.CompletionThrow {
		return nil, &ThrownError{Value: c.Value}
	}
	return c.Value, nil
}

//-----------------------------------------------------------------------------
// Member access helpers
//-----------------------------------------------------------------------------

// memberGet reads base[key], walking the prototype chain for objects.
// The second result is a thrown error object, nil on success. A
// missing property is undefined, not an error.
func (e *Engine) memberGet(base runtime.Value, key string) (runtime.Value, *runtime.Object) {
	switch b := base.(type) {
	case runtime.UndefinedValue:
		return nil, e.newTypeError("cannot read property '" + key + "' of undefined")
	case runtime.NullValue:
		return nil, e.newTypeError("cannot read property '" + key + "' of null")
	case *runtime.Object:
		v, _ := b.Get(key)
		return v, nil
	case runtime.StringValue:
		if key == "length" {
			return runtime.Number(float64(len([]rune(b.Val)))), nil
		}
		if idx, ok := stringIndex(key); ok {
			runes := []rune(b.Val)
			if idx >= 0 && idx < len(runes) {
				return runtime.String(string(runes[idx])), nil
			}
		}
		return runtime.Undefined(), nil
	default:
		return runtime.Undefined(), nil
	}
}

// memberSet writes base[key] as an own property. Writes to non-object
// primitives are silent no-ops; null and undefined bases throw.
func (e *Engine) memberSet(base runtime.Value, key string, value runtime.Value) *runtime.Object {
	switch b := base.(type) {
	case runtime.UndefinedValue:
		return e.newTypeError("cannot set property '" + key + "' of undefined")
	case runtime.NullValue:
		return e.newTypeError("cannot set property '" + key + "' of null")
	case *runtime.Object:
		b.SetOwn(key, value)
		return nil
	default:
		return nil
	}
}

// propertyKey maps a member value to its property-table key; numbers
// use the canonical number formatting so array indices line up.
func propertyKey(v runtime.Value) string {
	if n, ok := v.(runtime.NumberValue); ok {
		return runtime.FormatNumber(n.Val)
	}
	return runtime.ToString(v)
}

func stringIndex(key string) (int, bool) {
	n := 0
	if key == "" {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

//-----------------------------------------------------------------------------
// Function construction
//-----------------------------------------------------------------------------

// makeFunction builds a guest function value capturing the current
// environment by reference. Named function expressions see their own
// name through an intermediate scope.
func (e *Engine) makeFunction(decl *ast.FunctionLiteral, env *runtime.Environment) *runtime.Object {
	scope := env
	if decl.Name != nil {
		scope = runtime.NewEnvironment(env)
	}
	fn := runtime.NewFunction(e.realm.functionProto, decl, scope)
	if decl.Name != nil {
		scope.Declare(decl.Name.Name, fn, false)
	}

	proto := runtime.NewObject(e.realm.objectProto)
	proto.DefineOwn("constructor", runtime.Property{Value: fn, Writable: true, Enumerable: false, Configurable: true})
	fn.DefineOwn("prototype", runtime.Property{Value: proto, Writable: true, Enumerable: false, Configurable: false})
	params := 0
	if decl.ParameterList != nil {
		params = len(decl.ParameterList.List)
	}
	fn.DefineOwn("length", runtime.Property{Value: runtime.Number(float64(params)), Writable: false, Enumerable: false, Configurable: true})
	return fn
}
