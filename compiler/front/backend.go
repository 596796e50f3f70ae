package front

import (
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/tp"
)

type (
	// Backend is the IR builder the code generator emits into.
	// V, B and F are the backend's value, block and function handles.
	//
	// Instructions are appended to the current block.
	// Branch, BranchIf, Trap and Ret terminate it.
	Backend[V, B, F any] interface {
		DeclareFunc(name string, params int) (F, error)
		BeginFunc(f F) error
		Param(f F, i int) V
		EndFunc(f F) error
		AbortFunc(f F)

		Const(t tp.Int, v int64) V
		Neg(x V) V
		Add(l, r V) V
		Sub(l, r V) V
		Mul(l, r V) V
		Div(l, r V) V
		Cmp(c ir.Cond, l, r V) V
		Zext(x V, t tp.Int) V
		TypeOf(x V) tp.Int

		NewBlock(name string) B
		Block() B
		SetBlock(b B)
		Branch(to B)
		BranchIf(x V, then, els B)
		Phi(t tp.Int, vals []V, from []B) V

		Call(f F, args []V) V
		Trap(code ir.TrapCode)
		Ret(x V)
	}
)

var _ Backend[ir.Expr, ir.Label, ir.Expr] = (*ir.Builder)(nil)
