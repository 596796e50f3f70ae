package front

import (
	"fmt"
	"strings"
)

type (
	Kind int

	// SemanticError is a code generation failure tied to a source position.
	// File, Line and Col are filled by callers who have the source text.
	SemanticError struct {
		Kind Kind

		Name string // identifier or function name
		Func string // enclosing function

		Pos  int
		File string
		Line int
		Col  int

		Want, Got int

		Detail string
	}
)

const (
	_ Kind = iota
	UnresolvedIdentifier
	UnresolvedFunction
	ArityMismatch
	CodegenTypeMismatch
	DuplicateFunction
	DuplicateParameter
)

func (k Kind) String() string {
	switch k {
	case UnresolvedIdentifier:
		return "unresolved identifier"
	case UnresolvedFunction:
		return "unresolved function"
	case ArityMismatch:
		return "arity mismatch"
	case CodegenTypeMismatch:
		return "type mismatch"
	case DuplicateFunction:
		return "duplicate function"
	case DuplicateParameter:
		return "duplicate parameter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (e *SemanticError) Error() string {
	var b strings.Builder

	if e.File != "" {
		fmt.Fprintf(&b, "%s:", e.File)
	}

	if e.Line != 0 {
		fmt.Fprintf(&b, "%d:%d: ", e.Line, e.Col)
	} else if e.File != "" {
		b.WriteString(" ")
	}

	fmt.Fprintf(&b, "semantic error: %s", e.Message())

	return b.String()
}

// Message is the error description without position.
func (e *SemanticError) Message() string {
	var b strings.Builder

	b.WriteString(e.Kind.String())

	switch e.Kind {
	case ArityMismatch:
		fmt.Fprintf(&b, ": %s takes %d arguments, got %d", e.Name, e.Want, e.Got)
	case CodegenTypeMismatch:
		fmt.Fprintf(&b, ": %s", e.Detail)
	default:
		fmt.Fprintf(&b, ": %s", e.Name)
	}

	if e.Func != "" {
		fmt.Fprintf(&b, " (in fn %s)", e.Func)
	}

	return b.String()
}

// Is matches errors of the same Kind so errors.Is(err, &SemanticError{Kind: k}) works.
func (e *SemanticError) Is(target error) bool {
	t, ok := target.(*SemanticError)

	return ok && t.Kind == e.Kind
}
