package ast

type (
	Node interface {
		Span() Base
	}

	Expr = Node

	// Base is a node position as byte offsets into the source text.
	Base struct {
		Pos int
		End int
	}

	Code struct {
		Base `tlog:",embed"`

		Funcs []*Fn
	}

	Fn struct {
		Base `tlog:",embed"`

		Name   Ident
		Params []Ident
		Body   Block
	}

	Block struct {
		Base `tlog:",embed"`

		Lets []Let // never populated by the parser
		Ret  Expr
	}

	Let struct {
		Base `tlog:",embed"`

		Name Ident
		Expr Expr
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	Num struct {
		Base `tlog:",embed"`

		Value int64
	}

	Var struct {
		Base `tlog:",embed"`

		Name string
	}

	Neg struct {
		Base `tlog:",embed"`

		X Expr
	}

	Add struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Sub struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Mul struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Div struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Bigger struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Smaller struct {
		Base `tlog:",embed"`

		Left  Expr
		Right Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Expr
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then Expr
		Else Expr
	}
)

func (b Base) Span() Base { return b }

// Binary builds the binary node for operator op.
// It returns nil for an unknown operator.
func Binary(op byte, l, r Expr) Expr {
	b := Base{Pos: l.Span().Pos, End: r.Span().End}

	switch op {
	case '+':
		return Add{Base: b, Left: l, Right: r}
	case '-':
		return Sub{Base: b, Left: l, Right: r}
	case '*':
		return Mul{Base: b, Left: l, Right: r}
	case '/':
		return Div{Base: b, Left: l, Right: r}
	case '>':
		return Bigger{Base: b, Left: l, Right: r}
	case '<':
		return Smaller{Base: b, Left: l, Right: r}
	}

	return nil
}

// Operands returns the operands of a binary node.
func Operands(x Expr) (op byte, l, r Expr, ok bool) {
	switch x := x.(type) {
	case Add:
		return '+', x.Left, x.Right, true
	case Sub:
		return '-', x.Left, x.Right, true
	case Mul:
		return '*', x.Left, x.Right, true
	case Div:
		return '/', x.Left, x.Right, true
	case Bigger:
		return '>', x.Left, x.Right, true
	case Smaller:
		return '<', x.Left, x.Right, true
	}

	return 0, nil, nil, false
}
