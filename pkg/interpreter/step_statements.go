package interpreter

import (
	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/token"

	"crank/pkg/runtime"
)

// Try-task phase markers, referenced from the unwinder.
const (
	tryPhaseBody    = 1
	tryPhaseCatch   = 2
	tryPhaseFinally = 3
)

func (e *Engine) stepProgram(t *task, n *ast.Program) {
	if t.phase == 0 {
		e.hoist(n.DeclarationList, t.env)
		t.phase = 1
	} else {
		c := e.takePending()
		t.vals = append(t.vals[:0], c.Value)
	}
	idx := t.phase - 1
	if idx >= len(n.Body) {
		last := runtime.Undefined()
		if len(t.vals) > 0 {
			last = t.vals[0]
		}
		e.finish(runtime.Normal(last))
		return
	}
	t.phase++
	e.push(n.Body[idx], t.env)
}

func (e *Engine) stepBlock(t *task, n *ast.BlockStatement) {
	// var bindings are function-scoped, so blocks reuse their
	// enclosing environment.
	if t.phase > 0 {
		c := e.takePending()
		t.vals = append(t.vals[:0], c.Value)
	}
	idx := t.phase
	if idx >= len(n.List) {
		last := runtime.Undefined()
		if len(t.vals) > 0 {
			last = t.vals[0]
		}
		e.finish(runtime.Normal(last))
		return
	}
	t.phase++
	e.push(n.List[idx], t.env)
}

func (e *Engine) stepVariableStatement(t *task, n *ast.VariableStatement) {
	if t.phase > 0 {
		e.takePending()
	}
	idx := t.phase
	if idx >= len(n.List) {
		e.finish(runtime.Normal(runtime.Undefined()))
		return
	}
	t.phase++
	e.push(n.List[idx], t.env)
}

func (e *Engine) stepExpressionStatement(t *task, n *ast.ExpressionStatement) {
	if t.phase == 0 {
		t.phase = 1
		e.push(n.Expression, t.env)
		return
	}
	e.finish(e.takePending())
}

func (e *Engine) stepIf(t *task, n *ast.IfStatement) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Test, t.env)
	case 1:
		c := e.takePending()
		branch := n.Alternate
		if runtime.ToBoolean(c.Value) {
			branch = n.Consequent
		}
		if branch == nil {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.phase = 2
		e.push(branch, t.env)
	default:
		e.finish(e.takePending())
	}
}

func (e *Engine) stepWhile(t *task, n *ast.WhileStatement) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Test, t.env)
	case 1:
		c := e.takePending()
		if !runtime.ToBoolean(c.Value) {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.phase = 2
		e.push(n.Body, t.env)
	default:
		c := e.takePending()
		if c.Kind == runtime.CompletionBreak {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		// normal or continue: back to the test
		t.phase = 1
		e.push(n.Test, t.env)
	}
}

func (e *Engine) stepDoWhile(t *task, n *ast.DoWhileStatement) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Body, t.env)
	case 1:
		c := e.takePending()
		if c.Kind == runtime.CompletionBreak {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.phase = 2
		e.push(n.Test, t.env)
	default:
		c := e.takePending()
		if !runtime.ToBoolean(c.Value) {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.phase = 1
		e.push(n.Body, t.env)
	}
}

// for-statement phases: 0 init, 1 test, 2 test result, 3 body result,
// 4 update result.
func (e *Engine) stepFor(t *task, n *ast.ForStatement) {
	switch t.phase {
	case 0:
		t.phase = 1
		if n.Initializer != nil {
			e.push(n.Initializer, t.env)
			return
		}
		fallthrough
	case 1:
		if t.phase == 1 && e.hasPending {
			e.takePending() // initializer value is discarded
		}
		if n.Test == nil {
			t.phase = 3
			e.push(n.Body, t.env)
			return
		}
		t.phase = 2
		e.push(n.Test, t.env)
	case 2:
		c := e.takePending()
		if !runtime.ToBoolean(c.Value) {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.phase = 3
		e.push(n.Body, t.env)
	case 3:
		c := e.takePending()
		if c.Kind == runtime.CompletionBreak {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		if n.Update != nil {
			t.phase = 4
			e.push(n.Update, t.env)
			return
		}
		e.advanceForHead(t, n)
	case 4:
		e.takePending()
		e.advanceForHead(t, n)
	}
}

func (e *Engine) advanceForHead(t *task, n *ast.ForStatement) {
	if n.Test == nil {
		t.phase = 3
		e.push(n.Body, t.env)
		return
	}
	t.phase = 2
	e.push(n.Test, t.env)
}

// for-in phases: 0 source, 1 source result, 2 loop head, 3 body result.
func (e *Engine) stepForIn(t *task, n *ast.ForInStatement) {
	switch t.phase {
	case 0:
		t.phase = 1
		e.push(n.Source, t.env)
	case 1:
		c := e.takePending()
		obj, ok := c.Value.(*runtime.Object)
		if !ok {
			// null, undefined and other primitives enumerate nothing
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.keys = obj.Enumerate()
		t.keyIdx = 0
		e.stepForInHead(t, n)
	case 3:
		c := e.takePending()
		if c.Kind == runtime.CompletionBreak {
			e.finish(runtime.Normal(runtime.Undefined()))
			return
		}
		t.keyIdx++
		e.stepForInHead(t, n)
	}
}

func (e *Engine) stepForInHead(t *task, n *ast.ForInStatement) {
	if t.keyIdx >= len(t.keys) {
		e.finish(runtime.Normal(runtime.Undefined()))
		return
	}
	key := runtime.String(t.keys[t.keyIdx])
	switch into := n.Into.(type) {
	case *ast.Identifier:
		if err := t.env.Assign(into.Name, key); err != nil {
			e.finish(runtime.Throw(e.newReferenceError("'" + into.Name + "' is not defined")))
			return
		}
	case *ast.VariableExpression:
		t.env.Declare(into.Name, key, true)
	default:
		e.finish(runtime.Throw(e.newTypeError("unsupported for-in target")))
		return
	}
	t.phase = 3
	e.push(n.Body, t.env)
}

func (e *Engine) stepReturn(t *task, n *ast.ReturnStatement) {
	if t.phase == 0 && n.Argument != nil {
		t.phase = 1
		e.push(n.Argument, t.env)
		return
	}
	if t.phase == 0 {
		e.finish(runtime.Return(runtime.Undefined()))
		return
	}
	e.finish(runtime.Return(e.takePending().Value))
}

func (e *Engine) stepThrow(t *task, n *ast.ThrowStatement) {
	if t.phase == 0 {
		t.phase = 1
		e.push(n.Argument, t.env)
		return
	}
	e.finish(runtime.Throw(e.takePending().Value))
}

func (e *Engine) stepBranch(t *task, n *ast.BranchStatement) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	if n.Token == token.CONTINUE {
		e.finish(runtime.Continue(label))
		return
	}
	e.finish(runtime.Break(label))
}

// try phases: 0 start, 1 body result, 2 catch result, 3 finally result.
func (e *Engine) stepTry(t *task, n *ast.TryStatement) {
	switch t.phase {
	case 0:
		t.phase = tryPhaseBody
		e.push(n.Body, t.env)
	case tryPhaseBody:
		c := e.takePending()
		if c.Kind == runtime.CompletionThrow && n.Catch != nil {
			catchEnv := runtime.NewEnvironment(t.env)
			if n.Catch.Parameter != nil {
				catchEnv.Declare(n.Catch.Parameter.Name, c.Value, true)
			}
			t.phase = tryPhaseCatch
			e.push(n.Catch.Body, catchEnv)
			return
		}
		e.leaveTry(t, n, c)
	case tryPhaseCatch:
		e.leaveTry(t, n, e.takePending())
	case tryPhaseFinally:
		c := e.takePending()
		if c.IsAbrupt() {
			// an abrupt finally replaces the saved completion
			e.finish(c)
			return
		}
		e.finish(t.saved)
	}
}

// leaveTry routes the body/catch completion through finally when one
// is present.
func (e *Engine) leaveTry(t *task, n *ast.TryStatement, c runtime.Completion) {
	if n.Finally == nil {
		e.finish(c)
		return
	}
	t.saved = c
	t.phase = tryPhaseFinally
	e.push(n.Finally, t.env)
}

func (e *Engine) stepLabelled(t *task, n *ast.LabelledStatement) {
	if t.phase == 0 {
		t.phase = 1
		e.pushLabeled(n.Statement, t.env, n.Label.Name)
		return
	}
	c := e.takePending()
	if c.Kind == runtime.CompletionBreak && c.Label == n.Label.Name {
		e.finish(runtime.Normal(runtime.Undefined()))
		return
	}
	e.finish(c)
}

// hoist pre-declares var and function bindings at scope entry, so
// forward references resolve and recursive declarations see
// themselves.
func (e *Engine) hoist(decls []ast.Declaration, env *runtime.Environment) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.VariableDeclaration:
			for _, v := range decl.List {
				if !env.HasLocal(v.Name) {
					env.Declare(v.Name, runtime.Undefined(), true)
				}
			}
		case *ast.FunctionDeclaration:
			fn := e.makeFunction(decl.Function, env)
			env.Declare(decl.Function.Name.Name, fn, true)
		}
	}
}
