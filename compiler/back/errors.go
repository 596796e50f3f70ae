package back

import (
	"fmt"

	"github.com/slowlang/tiny/compiler/ir"
)

type (
	RuntimeErrorKind int

	// RuntimeError is raised by the executed program.
	RuntimeError struct {
		Kind RuntimeErrorKind
		Func string
	}

	InvokeErrorKind int

	// InvokeError is returned when the entry point can't be called.
	InvokeError struct {
		Kind InvokeErrorKind
		Name string

		Want, Got int
	}
)

const (
	_ RuntimeErrorKind = iota
	DivisionByZero
	StackOverflow
)

const (
	_ InvokeErrorKind = iota
	UnknownFunction
	ArgumentCount
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case DivisionByZero:
		return "division by zero"
	case StackOverflow:
		return "stack overflow"
	default:
		return fmt.Sprintf("RuntimeErrorKind(%d)", int(k))
	}
}

func (e *RuntimeError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("runtime error: %v", e.Kind)
	}

	return fmt.Sprintf("runtime error: %v (in fn %s)", e.Kind, e.Func)
}

func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)

	return ok && t.Kind == e.Kind
}

func (e *InvokeError) Error() string {
	switch e.Kind {
	case UnknownFunction:
		return fmt.Sprintf("unknown function: %s", e.Name)
	case ArgumentCount:
		return fmt.Sprintf("%s takes %d arguments, got %d", e.Name, e.Want, e.Got)
	default:
		return fmt.Sprintf("invoke %s: InvokeErrorKind(%d)", e.Name, int(e.Kind))
	}
}

func trapError(code ir.TrapCode, fn string) *RuntimeError {
	switch code {
	case ir.TrapDivByZero:
		return &RuntimeError{Kind: DivisionByZero, Func: fn}
	default:
		panic(code)
	}
}
