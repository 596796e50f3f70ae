package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler/tp"
)

func TestBuilderDump(t *testing.T) {
	b := NewBuilder("test")

	f, err := b.DeclareFunc("max", 2)
	require.NoError(t, err)

	_, err = b.DeclareFunc("max", 1)
	assert.Error(t, err)

	require.NoError(t, b.BeginFunc(f))

	x, y := b.Param(f, 0), b.Param(f, 1)
	c := b.Cmp(Greater, x, y)

	then := b.NewBlock("then")
	els := b.NewBlock("else")
	merge := b.NewBlock("merge")

	b.BranchIf(c, then, els)
	assert.Equal(t, Label(-1), b.Block())

	b.SetBlock(then)
	b.Branch(merge)

	b.SetBlock(els)
	b.Branch(merge)

	b.SetBlock(merge)
	assert.Equal(t, merge, b.Block())

	r := b.Phi(tp.I64, []Expr{x, y}, []Label{then, els})
	b.Ret(r)

	require.NoError(t, b.EndFunc(f))

	p, err := b.Finish()
	require.NoError(t, err)

	id, fn := p.Lookup("max")
	assert.Equal(t, f, id)
	require.NotNil(t, fn)

	d, err := Dump(nil, p)
	require.NoError(t, err)

	assert.Equal(t, `func max(e1, e2) i64
L0:
	e1 = arg 0	: i64
	e2 = arg 1	: i64
	e4 = cmp e1 > e2	: bool
	b.if e4 != 0, L1
	b L2
L1:
	b L3
L2:
	b L3
L3:
	e12 = phi [L1: e1] [L2: e2]	: i64
	ret e12
`, string(d))
}

func TestBuilderErrors(t *testing.T) {
	t.Run("not_terminated", func(t *testing.T) {
		b := NewBuilder("test")

		f, err := b.DeclareFunc("f", 0)
		require.NoError(t, err)
		require.NoError(t, b.BeginFunc(f))

		b.Const(tp.I64, 1)

		assert.ErrorContains(t, b.EndFunc(f), "not terminated")
	})

	t.Run("ret_bool", func(t *testing.T) {
		b := NewBuilder("test")

		f, err := b.DeclareFunc("f", 0)
		require.NoError(t, err)
		require.NoError(t, b.BeginFunc(f))

		one := b.Const(tp.I64, 1)
		b.Ret(b.Cmp(Less, one, one))

		assert.Error(t, b.EndFunc(f))

		_, err = b.Finish()
		assert.Error(t, err)
	})

	t.Run("phi_after_instruction", func(t *testing.T) {
		b := NewBuilder("test")

		f, err := b.DeclareFunc("f", 0)
		require.NoError(t, err)
		require.NoError(t, b.BeginFunc(f))

		one := b.Const(tp.I64, 1)
		b.Phi(tp.I64, []Expr{one}, []Label{0})

		assert.ErrorContains(t, b.EndFunc(f), "phi after instruction")
	})

	t.Run("unfinished", func(t *testing.T) {
		b := NewBuilder("test")

		f, err := b.DeclareFunc("f", 0)
		require.NoError(t, err)
		require.NoError(t, b.BeginFunc(f))

		_, err = b.Finish()
		assert.Error(t, err)

		b.AbortFunc(f)

		_, err = b.Finish()
		assert.NoError(t, err)
	})
}
