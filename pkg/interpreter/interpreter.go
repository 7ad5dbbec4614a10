// Package interpreter drives step-wise evaluation of guest syntax
// trees. The engine owns an explicit task stack (one cursor per
// syntax node being evaluated) and an explicit call-frame stack, so
// execution can be paused between any two steps and resumed later,
// including across host-side asynchronous delays.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/robertkrimen/otto/ast"

	"crank/pkg/runtime"
)

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSuspendedYield
	StateSuspendedAwait
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuspendedYield:
		return "suspended-yield"
	case StateSuspendedAwait:
		return "suspended-await"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// Host misuse errors. These indicate a bug in the embedding host, not
// a guest-visible condition, and never corrupt engine state.
var (
	ErrReentrantStep     = errors.New("step called while a step is in progress")
	ErrNotAwaiting       = errors.New("resume called while not suspended awaiting an external event")
	ErrUnknownToken      = errors.New("resume token does not match the pending suspension")
	ErrAwaitInNestedCall = errors.New("asynchronous suspension requested inside a nested synchronous call")
)

// UncaughtError is the terminal failure of a run: the thrown guest
// value that no guest handler intercepted.
type UncaughtError struct {
	Value runtime.Value
}

func (e *UncaughtError) Error() string {
	return "uncaught: " + runtime.ToString(e.Value)
}

const defaultMaxDepth = 512

// Bootstrap populates the global namespace before any guest code
// runs. It is the only way to give guest code a capability.
type Bootstrap func(eng *Engine, global *runtime.Object) error

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth bounds the guest call-stack height.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithBootstrap sets the global-bootstrap callback.
func WithBootstrap(fn Bootstrap) Option {
	return func(e *Engine) { e.bootstrap = fn }
}

// WithLogger enables debug tracing of steps, frames, and state
// transitions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// frame is one in-progress guest function activation.
type frame struct {
	fn   *runtime.Object
	env  *runtime.Environment
	this runtime.Value
	args []runtime.Value
}

// callState is the call-specific cursor of a call/new task.
type callState struct {
	thisv     runtime.Value
	callee    runtime.Value
	construct bool
	newObj    *runtime.Object
	frame     *frame
}

// task is the evaluation-node state for one syntax node currently
// being evaluated: a cursor recording which child/phase is next plus
// any partially computed intermediate values.
type task struct {
	node  ast.Node
	env   *runtime.Environment
	phase int
	vals  []runtime.Value
	label string

	call   *callState
	keys   []string
	keyIdx int
	saved  runtime.Completion
}

// Engine executes one program. Engines are single-threaded and
// cooperative; separately constructed engines share nothing.
type Engine struct {
	program   *ast.Program
	realm     *realm
	bootstrap Bootstrap
	log       *slog.Logger
	maxDepth  int

	state      State
	stack      []*task
	frames     []*frame
	pending    runtime.Completion
	hasPending bool

	awaitToken string
	awaitTask  *task
	awaitReq   bool
	nestedErr  error
	nesting    int

	result  runtime.Value
	failure runtime.Value
	steps   uint64
}

// New constructs an engine over a validated syntax tree, builds the
// global environment and primordial prototypes, and runs the
// bootstrap callback. The engine is Idle until the first Step.
func New(program *ast.Program, opts ...Option) (*Engine, error) {
	if program == nil {
		return nil, errors.New("nil program")
	}
	e := &Engine{
		program:  program,
		maxDepth: defaultMaxDepth,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		result:   runtime.Undefined(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.realm = newRealm()
	if e.bootstrap != nil {
		if err := e.bootstrap(e, e.realm.global); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}
	return e, nil
}

// State reports the engine lifecycle state.
func (e *Engine) State() State { return e.state }

// Global exposes the global object for bootstrap and host inspection.
func (e *Engine) Global() *runtime.Object { return e.realm.global }

// GlobalEnvironment exposes the scope-chain root.
func (e *Engine) GlobalEnvironment() *runtime.Environment { return e.realm.globalEnv }

// Value is the final program value once Completed.
func (e *Engine) Value() runtime.Value { return e.result }

// Failure is the terminal thrown value once Failed, nil otherwise.
func (e *Engine) Failure() error {
	if e.state != StateFailed {
		return nil
	}
	return &UncaughtError{Value: e.failure}
}

// Steps reports how many steps have been performed.
func (e *Engine) Steps() uint64 { return e.steps }

// Awaiting reports whether the engine is suspended on an external
// asynchronous event.
func (e *Engine) Awaiting() bool { return e.state == StateSuspendedAwait }

// Step performs one indivisible unit of work. The result is true
// while more work remains. Stepping a Suspended-Await engine performs
// no work and reports true until the host delivers the resumption.
func (e *Engine) Step() (bool, error) {
	switch e.state {
	case StateRunning:
		return false, ErrReentrantStep
	case StateCompleted, StateFailed:
		return false, nil
	case StateSuspendedAwait:
		return true, nil
	case StateIdle:
		e.start()
	}

	e.state = StateRunning
	e.steps++
	e.dispatchTop()

	switch {
	case e.state != StateRunning:
		// dispatch reached a terminal state
	case e.awaitReq:
		e.awaitReq = false
		e.state = StateSuspendedAwait
		e.log.Debug("engine suspended awaiting external event", "token", e.awaitToken)
	default:
		e.state = StateSuspendedYield
	}
	return e.state == StateSuspendedYield || e.state == StateSuspendedAwait, nil
}

// Run steps until the program completes, fails, or suspends awaiting
// an external event. A Failed run reports the uncaught value.
func (e *Engine) Run() error {
	for {
		more, err := e.Step()
		if err != nil {
			return err
		}
		if e.state == StateSuspendedAwait {
			return nil
		}
		if !more {
			return e.Failure()
		}
	}
}

// Resume delivers the deferred result of a suspended native call.
// Execution continues exactly where the paused call left off.
func (e *Engine) Resume(token string, result any) error {
	if e.state != StateSuspendedAwait {
		return ErrNotAwaiting
	}
	if token != e.awaitToken {
		return fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	v, err := e.toGuest(result)
	if err != nil {
		return err
	}
	e.awaitToken = ""
	e.awaitTask = nil
	e.pending = runtime.Normal(v)
	e.hasPending = true
	e.state = StateSuspendedYield
	e.log.Debug("engine resumed", "token", token)
	return nil
}

// start lazily pushes the root task on the first step.
func (e *Engine) start() {
	t := &task{node: e.program, env: e.realm.globalEnv}
	e.stack = append(e.stack, t)
	e.log.Debug("engine started", "statements", len(e.program.Body))
}

//-----------------------------------------------------------------------------
// Stack discipline
//-----------------------------------------------------------------------------

func (e *Engine) top() *task { return e.stack[len(e.stack)-1] }

func (e *Engine) pop() { e.stack = e.stack[:len(e.stack)-1] }

// push schedules a child node; the pushing task is re-entered after
// the child's completion lands in e.pending.
func (e *Engine) push(node ast.Node, env *runtime.Environment) {
	e.stack = append(e.stack, &task{node: node, env: env})
}

func (e *Engine) pushLabeled(node ast.Node, env *runtime.Environment, label string) {
	e.stack = append(e.stack, &task{node: node, env: env, label: label})
}

// takePending consumes the completion delivered by the last-finished
// child task.
func (e *Engine) takePending() runtime.Completion {
	if !e.hasPending {
		return runtime.Normal(runtime.Undefined())
	}
	e.hasPending = false
	return e.pending
}

// finish completes the top task with c and folds the completion into
// the parent cursor, unwinding when c is abrupt.
func (e *Engine) finish(c runtime.Completion) {
	e.pop()
	if c.IsAbrupt() {
		e.unwind(c)
		return
	}
	if len(e.stack) == 0 {
		e.result = c.Value
		e.state = StateCompleted
		e.log.Debug("engine completed", "steps", e.steps)
		return
	}
	e.pending = c
	e.hasPending = true
}

// unwind propagates an abrupt completion outward, popping evaluation
// states (and their call frames) until a handler construct is found.
func (e *Engine) unwind(c runtime.Completion) {
	for len(e.stack) > 0 {
		t := e.top()
		if e.taskHandles(t, c) {
			e.pending = c
			e.hasPending = true
			return
		}
		if t.call != nil && t.call.frame != nil {
			e.popFrame()
			t.call.frame = nil
		}
		e.pop()
	}
	e.terminate(c)
}

// taskHandles reports whether t intercepts completion c rather than
// re-propagating it.
func (e *Engine) taskHandles(t *task, c runtime.Completion) bool {
	switch n := t.node.(type) {
	case *ast.WhileStatement, *ast.DoWhileStatement, *ast.ForStatement, *ast.ForInStatement:
		if c.Kind == runtime.CompletionBreak || c.Kind == runtime.CompletionContinue {
			return c.Label == "" || c.Label == t.label
		}
	case *ast.LabelledStatement:
		return c.Kind == runtime.CompletionBreak && n.Label != nil && c.Label == n.Label.Name
	case *ast.TryStatement:
		switch t.phase {
		case tryPhaseBody:
			if c.Kind == runtime.CompletionThrow && n.Catch != nil {
				return true
			}
			return n.Finally != nil
		case tryPhaseCatch:
			return n.Finally != nil
		}
	case *ast.CallExpression, *ast.NewExpression:
		return t.call != nil && t.call.frame != nil && c.Kind == runtime.CompletionReturn
	case *nativeInvoke:
		if t.call == nil {
			return false
		}
		return c.Kind == runtime.CompletionReturn || c.Kind == runtime.CompletionThrow
	}
	return false
}

// terminate handles an abrupt completion that escaped every handler.
func (e *Engine) terminate(c runtime.Completion) {
	switch c.Kind {
	case runtime.CompletionThrow:
		e.failure = c.Value
	default:
		e.failure = runtime.NewError(e.realm.errorProto, "SyntaxError",
			"illegal "+c.Kind.String()+" outside of its enclosing construct")
	}
	e.state = StateFailed
	e.log.Debug("engine failed", "reason", runtime.ToString(e.failure))
}

//-----------------------------------------------------------------------------
// Call frames
//-----------------------------------------------------------------------------

func (e *Engine) pushFrame(fn *runtime.Object, this runtime.Value, args []runtime.Value) *frame {
	env := runtime.NewEnvironment(fn.Function().Closure)
	f := &frame{fn: fn, env: env, this: this, args: args}
	e.frames = append(e.frames, f)
	e.log.Debug("push call frame", "depth", len(e.frames), "fn", fn.FunctionName())
	return f
}

func (e *Engine) popFrame() {
	e.frames = e.frames[:len(e.frames)-1]
	e.log.Debug("pop call frame", "depth", len(e.frames))
}

// Depth reports the current guest call-stack height.
func (e *Engine) Depth() int { return len(e.frames) }

func (e *Engine) currentThis() runtime.Value {
	if len(e.frames) == 0 {
		return e.realm.global
	}
	return e.frames[len(e.frames)-1].this
}

//-----------------------------------------------------------------------------
// Dispatch
//-----------------------------------------------------------------------------

// dispatchTop advances the top evaluation state by one unit: it
// either pushes the next unevaluated child, or computes the node's
// completion and folds it upward.
func (e *Engine) dispatchTop() {
	t := e.top()
	switch n := t.node.(type) {
	case *ast.Program:
		e.stepProgram(t, n)
	case *ast.BlockStatement:
		e.stepBlock(t, n)
	case *ast.VariableStatement:
		e.stepVariableStatement(t, n)
	case *ast.ExpressionStatement:
		e.stepExpressionStatement(t, n)
	case *ast.IfStatement:
		e.stepIf(t, n)
	case *ast.WhileStatement:
		e.stepWhile(t, n)
	case *ast.DoWhileStatement:
		e.stepDoWhile(t, n)
	case *ast.ForStatement:
		e.stepFor(t, n)
	case *ast.ForInStatement:
		e.stepForIn(t, n)
	case *ast.ReturnStatement:
		e.stepReturn(t, n)
	case *ast.ThrowStatement:
		e.stepThrow(t, n)
	case *ast.BranchStatement:
		e.stepBranch(t, n)
	case *ast.TryStatement:
		e.stepTry(t, n)
	case *ast.LabelledStatement:
		e.stepLabelled(t, n)
	case *ast.FunctionStatement:
		// hoisted at scope entry
		e.finish(runtime.Normal(runtime.Undefined()))
	case *ast.EmptyStatement, *ast.DebuggerStatement:
		e.finish(runtime.Normal(runtime.Undefined()))

	case *ast.Identifier:
		e.stepIdentifier(t, n)
	case *ast.NumberLiteral:
		e.stepNumberLiteral(t, n)
	case *ast.StringLiteral:
		e.finish(runtime.Normal(runtime.String(n.Value)))
	case *ast.BooleanLiteral:
		e.finish(runtime.Normal(runtime.Boolean(n.Value)))
	case *ast.NullLiteral:
		e.finish(runtime.Normal(runtime.Null()))
	case *ast.FunctionLiteral:
		e.finish(runtime.Normal(e.makeFunction(n, t.env)))
	case *ast.ThisExpression:
		e.finish(runtime.Normal(e.currentThis()))
	case *ast.ArrayLiteral:
		e.stepArrayLiteral(t, n)
	case *ast.ObjectLiteral:
		e.stepObjectLiteral(t, n)
	case *ast.BinaryExpression:
		e.stepBinary(t, n)
	case *ast.UnaryExpression:
		e.stepUnary(t, n)
	case *ast.AssignExpression:
		e.stepAssign(t, n)
	case *ast.ConditionalExpression:
		e.stepConditional(t, n)
	case *ast.SequenceExpression:
		e.stepSequence(t, n)
	case *ast.DotExpression:
		e.stepDot(t, n)
	case *ast.BracketExpression:
		e.stepBracket(t, n)
	case *ast.CallExpression:
		e.stepCall(t, n)
	case *ast.NewExpression:
		e.stepNew(t, n)
	case *ast.VariableExpression:
		e.stepVariableExpression(t, n)
	case *ast.EmptyExpression:
		e.finish(runtime.Normal(runtime.Undefined()))

	case *nativeInvoke:
		e.stepNativeInvoke(t, n)

	default:
		e.finish(runtime.Throw(e.newTypeError(fmt.Sprintf("unsupported syntax node %T", n))))
	}
}

//-----------------------------------------------------------------------------
// Guest error construction
//-----------------------------------------------------------------------------

func (e *Engine) newError(name, msg string) *runtime.Object {
	return runtime.NewError(e.realm.errorProto, name, msg)
}

func (e *Engine) newTypeError(msg string) *runtime.Object {
	return e.newError("TypeError", msg)
}

func (e *Engine) newReferenceError(msg string) *runtime.Object {
	return e.newError("ReferenceError", msg)
}

func (e *Engine) newRangeError(msg string) *runtime.Object {
	return e.newError("RangeError", msg)
}
