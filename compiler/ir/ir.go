package ir

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/tiny/compiler/tp"
)

type (
	// Expr is an index into Package.Exprs.
	Expr  int
	Label int
	Cond  string

	TrapCode int

	Package struct {
		Path string

		Funcs []Expr

		Exprs []any
		EType []tp.Type
	}

	Func struct {
		Name string

		In  []Expr
		Out tp.Type

		// Code is the function body in block order.
		// Every block starts with its Label and ends with a terminator:
		// B, BCond followed by B, Ret or Trap.
		Code []Expr
	}

	// Arg is the function parameter with the given index.
	Arg int

	Imm int64

	Neg struct {
		X Expr
	}

	Add struct {
		L, R Expr
	}

	Sub struct {
		L, R Expr
	}

	Mul struct {
		L, R Expr
	}

	// Div is signed division truncating toward zero.
	Div struct {
		L, R Expr
	}

	// Cmp is a signed comparison producing a tp.Bool.
	Cmp struct {
		Cond Cond
		L, R Expr
	}

	// Zext widens X to the Expr type filling with zeros.
	Zext struct {
		X Expr
	}

	Call struct {
		Func Expr
		In   []Expr
	}

	Phi []PhiBranch

	PhiBranch struct {
		B    Label
		Expr Expr
	}

	B struct {
		Label Label
	}

	// BCond jumps to Label if Expr Cond 0 holds.
	BCond struct {
		Expr  Expr
		Cond  Cond
		Label Label
	}

	Ret struct {
		Expr Expr
	}

	Trap struct {
		Code TrapCode
	}
)

const (
	Nil Expr = -1
)

const (
	Less    Cond = "<"
	Greater Cond = ">"
	Equal   Cond = "=="
	NotEq   Cond = "!="
)

const (
	_ TrapCode = iota
	TrapDivByZero
)

func (c Cond) Eval(l, r int64) bool {
	switch c {
	case Less:
		return l < r
	case Greater:
		return l > r
	case Equal:
		return l == r
	case NotEq:
		return l != r
	default:
		panic(c)
	}
}

func (c Cond) Valid() bool {
	switch c {
	case Less, Greater, Equal, NotEq:
		return true
	}

	return false
}

func (c TrapCode) String() string {
	switch c {
	case TrapDivByZero:
		return "division by zero"
	default:
		return "trap"
	}
}

// Terminator reports whether x ends a block.
func Terminator(x any) bool {
	switch x.(type) {
	case B, Ret, Trap:
		return true
	}

	return false
}

func (p *Package) Func(id Expr) *Func {
	if id < 0 || int(id) >= len(p.Exprs) {
		return nil
	}

	f, _ := p.Exprs[id].(*Func)
	return f
}

// Lookup finds a function by name.
func (p *Package) Lookup(name string) (Expr, *Func) {
	for _, id := range p.Funcs {
		if f := p.Func(id); f.Name == name {
			return id, f
		}
	}

	return Nil, nil
}

func (p PhiBranch) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "b", int64(p.B))
	b = e.AppendKeyInt64(b, "id", int64(p.Expr))

	return b
}
