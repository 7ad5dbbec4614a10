package runtime

import "fmt"

// CompletionKind tags the outcome of evaluating one statement or
// expression. Guest control transfer is always expressed as data so
// that the evaluator's stack can be suspended mid-propagation.
type CompletionKind int

const (
	CompletionNormal CompletionKind = iota
	CompletionReturn
	CompletionBreak
	CompletionContinue
	CompletionThrow
)

func (k CompletionKind) String() string {
	switch k {
	case CompletionNormal:
		return "normal"
	case CompletionReturn:
		return "return"
	case CompletionBreak:
		return "break"
	case CompletionContinue:
		return "continue"
	case CompletionThrow:
		return "throw"
	default:
		return fmt.Sprintf("unknown_completion_%d", int(k))
	}
}

// Completion carries exactly one of: a normal value, a return value,
// a break/continue (with optional label), or a thrown value.
type Completion struct {
	Kind  CompletionKind
	Value Value
	Label string
}

func Normal(v Value) Completion {
	if v == nil {
		v = UndefinedValue{}
	}
	return Completion{Kind: CompletionNormal, Value: v}
}

func Return(v Value) Completion {
	if v == nil {
		v = UndefinedValue{}
	}
	return Completion{Kind: CompletionReturn, Value: v}
}

func Break(label string) Completion {
	return Completion{Kind: CompletionBreak, Label: label, Value: UndefinedValue{}}
}

func Continue(label string) Completion {
	return Completion{Kind: CompletionContinue, Label: label, Value: UndefinedValue{}}
}

func Throw(v Value) Completion {
	if v == nil {
		v = UndefinedValue{}
	}
	return Completion{Kind: CompletionThrow, Value: v}
}

// IsAbrupt reports whether the completion transfers control.
func (c Completion) IsAbrupt() bool {
	return c.Kind != CompletionNormal
}
