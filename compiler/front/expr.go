package front

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/tp"
)

// value lowers x and widens a boolean result to tp.I64.
func (s *Scope[V, B, F]) value(ctx context.Context, x ast.Expr) (v V, err error) {
	v, err = s.expr(ctx, x)
	if err != nil {
		return v, err
	}

	return s.widen(v), nil
}

func (s *Scope[V, B, F]) widen(v V) V {
	if t := s.be.TypeOf(v); t.Bits < tp.I64.Bits {
		return s.be.Zext(v, tp.I64)
	}

	return v
}

func (s *Scope[V, B, F]) expr(ctx context.Context, x ast.Expr) (v V, err error) {
	switch x := x.(type) {
	case ast.Num:
		return s.be.Const(tp.I64, x.Value), nil
	case ast.Var:
		val, ok := s.lookup(x.Name)
		if !ok {
			return v, s.errorf(UnresolvedIdentifier, x.Name, x.Pos)
		}

		return val, nil
	case ast.Neg:
		v, err = s.value(ctx, x.X)
		if err != nil {
			return v, err
		}

		return s.be.Neg(v), nil
	case ast.Call:
		return s.call(ctx, x)
	case ast.If:
		return s.ifExpr(ctx, x)
	}

	op, lx, rx, ok := ast.Operands(x)
	if !ok {
		return v, errors.New("unsupported expression: %T", x)
	}

	l, err := s.value(ctx, lx)
	if err != nil {
		return v, err
	}

	r, err := s.value(ctx, rx)
	if err != nil {
		return v, err
	}

	switch op {
	case '+':
		return s.be.Add(l, r), nil
	case '-':
		return s.be.Sub(l, r), nil
	case '*':
		return s.be.Mul(l, r), nil
	case '/':
		return s.div(l, r, rx), nil
	case '>':
		return s.be.Cmp(ir.Greater, l, r), nil
	case '<':
		return s.be.Cmp(ir.Less, l, r), nil
	default:
		return v, errors.New("unsupported operator: %c", op)
	}
}

// div guards the divisor unless it's a non-zero literal.
func (s *Scope[V, B, F]) div(l, r V, rx ast.Expr) V {
	if n, ok := rx.(ast.Num); ok && n.Value != 0 {
		return s.be.Div(l, r)
	}

	be := s.be

	zero := be.Const(tp.I64, 0)
	isZero := be.Cmp(ir.Equal, r, zero)

	trap := be.NewBlock("div.zero")
	ok := be.NewBlock("div.ok")

	be.BranchIf(isZero, trap, ok)

	be.SetBlock(trap)
	be.Trap(ir.TrapDivByZero)

	be.SetBlock(ok)

	return be.Div(l, r)
}

func (s *Scope[V, B, F]) call(ctx context.Context, x ast.Call) (v V, err error) {
	d, ok := s.funcs[x.Name]
	if !ok {
		return v, s.errorf(UnresolvedFunction, x.Name, x.Pos)
	}

	if want := len(d.fn.Params); want != len(x.Args) {
		e := s.errorf(ArityMismatch, x.Name, x.Pos)
		e.Want = want
		e.Got = len(x.Args)

		return v, e
	}

	args := make([]V, len(x.Args))

	for i, a := range x.Args {
		args[i], err = s.value(ctx, a)
		if err != nil {
			return v, err
		}
	}

	return s.be.Call(d.id, args), nil
}

func (s *Scope[V, B, F]) ifExpr(ctx context.Context, x ast.If) (v V, err error) {
	be := s.be

	cond, err := s.expr(ctx, x.Cond)
	if err != nil {
		return v, err
	}

	then := be.NewBlock("if.then")
	els := be.NewBlock("if.else")
	merge := be.NewBlock("if.merge")

	be.BranchIf(cond, then, els)

	tlog.V("branch").Printw("if", "then", then, "else", els, "merge", merge, "from", loc.Callers(1, 3))

	vals := make([]V, 2)
	from := make([]B, 2)

	for i, sub := range []struct {
		b B
		x ast.Expr
	}{{then, x.Then}, {els, x.Else}} {
		be.SetBlock(sub.b)

		vals[i], err = s.value(ctx, sub.x)
		if err != nil {
			return v, err
		}

		// nested ifs leave us in their merge block
		from[i] = be.Block()

		be.Branch(merge)
	}

	be.SetBlock(merge)

	return s.merge(x.Pos, vals, from)
}

func (s *Scope[V, B, F]) merge(pos int, vals []V, from []B) (v V, err error) {
	t := s.be.TypeOf(vals[0])

	for _, x := range vals[1:] {
		if xt := s.be.TypeOf(x); xt != t {
			e := s.errorf(CodegenTypeMismatch, "if", pos)
			e.Detail = fmt.Sprintf("if branches produce %v and %v", t, xt)

			return v, e
		}
	}

	return s.be.Phi(t, vals, from), nil
}
