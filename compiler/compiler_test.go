package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler/back"
	"github.com/slowlang/tiny/compiler/front"
	"github.com/slowlang/tiny/compiler/parse"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		text string
		res  int64
	}{
		{"fn main(){if 3>2 {10} else {20}}", 10},
		{"fn main(){if 1<0 {10} else {20}}", 20},
		{"fn main(){helper()} fn helper(){42}", 42},
		{"fn main(){10/3}", 3},
		{"fn sq(x){x*x}\n\nfn main() {\n\tsq(3) + sq(4)\n}\n", 25},
	} {
		res, err := Run(ctx, "t.tiny", []byte(tc.text))
		if assert.NoError(t, err, "text: %q", tc.text) {
			assert.Equal(t, tc.res, res, "text: %q", tc.text)
		}
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, "t.tiny", []byte("fn main(){10/0}"))

	var rerr *back.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, back.DivisionByZero, rerr.Kind)

	_, err = Run(ctx, "t.tiny", []byte("fn main(){1 +}"))

	var serr *parse.SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "t.tiny", serr.File)

	_, err = Run(ctx, "t.tiny", []byte("fn f(a,b){a+b}\nfn main(){f(1)}"))

	var merr *front.SemanticError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, front.ArityMismatch, merr.Kind)
	assert.Equal(t, 2, merr.Line)
	assert.Equal(t, 11, merr.Col)
	assert.Equal(t, "t.tiny:2:11: semantic error: arity mismatch: f takes 2 arguments, got 1 (in fn main)", err.Error())

	_, err = Run(ctx, "t.tiny", []byte("fn f(){x}"))
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, front.UnresolvedIdentifier, merr.Kind)

	var ierr *back.InvokeError

	_, err = Run(ctx, "t.tiny", []byte("fn f(){1}"))
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, back.UnknownFunction, ierr.Kind)

	_, err = Run(ctx, "t.tiny", []byte("fn main(a){a}"))
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, back.ArgumentCount, ierr.Kind)
}

func TestRunOptions(t *testing.T) {
	ctx := context.Background()

	res, err := Run(ctx, "", []byte("fn start(){7}"), WithEntry("start"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), res)

	_, err = Run(ctx, "", []byte("fn f(){f()} fn main(){f()}"), MaxDepth(50))

	var rerr *back.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, back.StackOverflow, rerr.Kind)

	var ast, irb bytes.Buffer

	_, err = Run(ctx, "", []byte("fn main(){1+2}"), DumpAST(&ast), DumpIR(&irb))
	require.NoError(t, err)

	assert.Equal(t, "Fn(main, [], Add(Num(1), Num(2)))\n", ast.String())
	assert.Contains(t, irb.String(), "func main()")
	assert.Contains(t, irb.String(), "add e")
	assert.Contains(t, irb.String(), "ret e")
}

func TestCollectErrors(t *testing.T) {
	_, err := Compile(context.Background(), "t.tiny", []byte("fn f(){x}\nfn main(){g()}"), CollectErrors())

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)

	var serr *front.SemanticError

	require.ErrorAs(t, merr.Errors[0], &serr)
	assert.Equal(t, 1, serr.Line)

	require.ErrorAs(t, merr.Errors[1], &serr)
	assert.Equal(t, 2, serr.Line)
	assert.Equal(t, front.UnresolvedFunction, serr.Kind)
}

func TestRunFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "prog.tiny")

	err := os.WriteFile(name, []byte("fn main() {\n\t6 * 7\n}\n"), 0o644)
	require.NoError(t, err)

	res, err := RunFile(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, int64(42), res)

	_, err = RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.tiny"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
