package front

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler/ast"
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/parse"
	"github.com/slowlang/tiny/compiler/tp"
)

func compile(t *testing.T, text string, opts ...Option) (*ir.Package, error) {
	t.Helper()

	ctx := context.Background()

	code, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err, "text: %q", text)

	b := ir.NewBuilder("test")

	err = Compile[ir.Expr, ir.Label, ir.Expr](ctx, code, b, opts...)
	if err != nil {
		return nil, err
	}

	return b.Finish()
}

func TestCompileForwardReference(t *testing.T) {
	p, err := compile(t, "fn main(){helper()} fn helper(){42}")
	require.NoError(t, err)

	require.Len(t, p.Funcs, 2)

	id, f := p.Lookup("main")
	require.NotNil(t, f)
	assert.Equal(t, id, p.Funcs[0])

	var calls int

	for _, x := range f.Code {
		if c, ok := p.Exprs[x].(ir.Call); ok {
			calls++

			assert.Equal(t, "helper", p.Func(c.Func).Name)
		}
	}

	assert.Equal(t, 1, calls)
}

func TestSemanticErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		kind Kind
		name string
		fn   string
		pos  int
	}{
		{"fn f(){x}", UnresolvedIdentifier, "x", "f", 7},
		{"fn f(a,b){a+b} fn main(){f(1)}", ArityMismatch, "f", "main", 25},
		{"fn main(){g(1)}", UnresolvedFunction, "g", "main", 10},
		{"fn f(){1} fn f(){2}", DuplicateFunction, "f", "", 13},
		{"fn f(a, a){a}", DuplicateParameter, "a", "f", 8},
		{"fn g(a){a} fn main(){g(b)}", UnresolvedIdentifier, "b", "main", 23},
		{"fn f(a){if a {b} else {1}}", UnresolvedIdentifier, "b", "f", 14},
	} {
		_, err := compile(t, tc.text)

		var serr *SemanticError
		if !assert.ErrorAs(t, err, &serr, "text: %q", tc.text) {
			continue
		}

		assert.Equal(t, tc.kind, serr.Kind, "text: %q: %v", tc.text, err)
		assert.Equal(t, tc.name, serr.Name, "text: %q: %v", tc.text, err)
		assert.Equal(t, tc.fn, serr.Func, "text: %q: %v", tc.text, err)
		assert.Equal(t, tc.pos, serr.Pos, "text: %q: %v", tc.text, err)
	}
}

func TestArityMismatchMessage(t *testing.T) {
	_, err := compile(t, "fn f(a,b){a+b} fn main(){f(1)}")

	var serr *SemanticError
	require.ErrorAs(t, err, &serr)

	assert.Equal(t, 2, serr.Want)
	assert.Equal(t, 1, serr.Got)

	serr.File, serr.Line, serr.Col = "a.tiny", 1, 26

	assert.Equal(t, "a.tiny:1:26: semantic error: arity mismatch: f takes 2 arguments, got 1 (in fn main)", serr.Error())
}

func TestCollectErrors(t *testing.T) {
	text := "fn f(){x} fn g(){y} fn main(){h()}"

	_, err := compile(t, text)
	require.Error(t, err)

	var merr *multierror.Error
	assert.False(t, errorsAs(err, &merr), "fail fast returns the first error only")

	_, err = compile(t, text, CollectErrors())
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 3)

	for i, want := range []Kind{UnresolvedIdentifier, UnresolvedIdentifier, UnresolvedFunction} {
		var serr *SemanticError
		if assert.ErrorAs(t, merr.Errors[i], &serr) {
			assert.Equal(t, want, serr.Kind)
		}
	}
}

func TestCompileIfMergesFromBranchEnds(t *testing.T) {
	p, err := compile(t, "fn f(a){if a {if a>1 {2} else {3}} else {4}}")
	require.NoError(t, err)

	_, f := p.Lookup("f")
	require.NotNil(t, f)

	preds := map[ir.Label][]ir.Label{}

	var cur ir.Label

	for _, x := range f.Code {
		switch x := p.Exprs[x].(type) {
		case ir.Label:
			cur = x
		case ir.B:
			preds[x.Label] = append(preds[x.Label], cur)
		case ir.BCond:
			preds[x.Label] = append(preds[x.Label], cur)
		}
	}

	var phis int

	for _, x := range f.Code {
		phi, ok := p.Exprs[x].(ir.Phi)
		if !ok {
			continue
		}

		phis++

		assert.Equal(t, tp.I64, p.EType[x])

		for _, br := range phi {
			var found bool

			for dst, l := range preds {
				for _, src := range l {
					if src == br.B && containsPhi(p, f, dst, x) {
						found = true
					}
				}
			}

			assert.True(t, found, "phi %v branch %v is not a predecessor", x, br.B)
		}
	}

	assert.Equal(t, 2, phis)
}

func TestCompileWidensComparisons(t *testing.T) {
	p, err := compile(t, "fn main(){3 > 2}")
	require.NoError(t, err)

	_, f := p.Lookup("main")
	require.NotNil(t, f)

	last := f.Code[len(f.Code)-1]
	ret, ok := p.Exprs[last].(ir.Ret)
	require.True(t, ok)

	assert.Equal(t, tp.I64, p.EType[ret.Expr])
	assert.IsType(t, ir.Zext{}, p.Exprs[ret.Expr])
}

func TestCompileDivisionGuard(t *testing.T) {
	for _, tc := range []struct {
		text  string
		traps int
	}{
		{"fn main(){10/3}", 0},
		{"fn main(){10/0}", 1},
		{"fn f(a){10/a}", 1},
		{"fn f(a){a/a/2}", 1},
	} {
		p, err := compile(t, tc.text)
		require.NoError(t, err, "text: %q", tc.text)

		var traps int

		for _, x := range p.Exprs {
			if tr, ok := x.(ir.Trap); ok {
				traps++

				assert.Equal(t, ir.TrapDivByZero, tr.Code)
			}
		}

		assert.Equal(t, tc.traps, traps, "text: %q", tc.text)
	}
}

func TestMergeTypeMismatch(t *testing.T) {
	b := ir.NewBuilder("test")

	fid, err := b.DeclareFunc("f", 0)
	require.NoError(t, err)

	p := &pkgContext[ir.Expr, ir.Label, ir.Expr]{
		be:    b,
		funcs: map[string]*funcDef[ir.Expr]{},
	}

	d := &funcDef[ir.Expr]{
		fn: &ast.Fn{Name: ast.Ident{Name: "f"}},
		id: fid,
	}

	require.NoError(t, b.BeginFunc(fid))

	s := newScope(p, d)

	l := b.Const(tp.I64, 1)
	r := b.Cmp(ir.Less, l, l)

	_, err = s.merge(5, []ir.Expr{l, r}, []ir.Label{0, 0})

	var serr *SemanticError
	require.ErrorAs(t, err, &serr)

	assert.Equal(t, CodegenTypeMismatch, serr.Kind)
	assert.Equal(t, 5, serr.Pos)
	assert.Contains(t, serr.Error(), "i64 and bool")
}

func containsPhi(p *ir.Package, f *ir.Func, lab ir.Label, phi ir.Expr) bool {
	var in bool

	for _, x := range f.Code {
		if l, ok := p.Exprs[x].(ir.Label); ok {
			in = l == lab
			continue
		}

		if in && x == phi {
			return true
		}
	}

	return false
}

func errorsAs(err error, target **multierror.Error) bool {
	for err != nil {
		if e, ok := err.(*multierror.Error); ok {
			*target = e
			return true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}
