package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler/ast"
	"github.com/slowlang/tiny/compiler/parse"
)

func TestTree(t *testing.T) {
	c, err := parse.Parse(context.Background(), []byte("fn f(a, b){a+b} fn main(){if f(1, 2) > 2 {-3} else {4/2}}"))
	require.NoError(t, err)

	b, err := Tree(nil, c)
	require.NoError(t, err)

	assert.Equal(t, "Fn(f, [a, b], Add(Var(a), Var(b)))\n"+
		"Fn(main, [], If(Bigger(Call(f, [Num(1), Num(2)]), Num(2)), Neg(Num(3)), Div(Num(4), Num(2))))", string(b))

	assert.Contains(t, TreeString(ast.Let{}), "unsupported node: ast.Let")
}

func TestSource(t *testing.T) {
	c, err := parse.Parse(context.Background(), []byte("fn f(a,b){ (a+b)*-b/ 2 } fn main(){1 + (if 1<2 {3} else {4})}"))
	require.NoError(t, err)

	b, err := Source(nil, c)
	require.NoError(t, err)

	assert.Equal(t, "fn f(a, b) {\n\t(a + b) * -b / 2\n}\n\nfn main() {\n\t1 + (if 1 < 2 { 3 } else { 4 })\n}\n", string(b))
}

func TestSourceRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, text := range []string{
		"fn main(){1-(2-3)}",
		"fn main(){1-2-3}",
		"fn main(){8/(4/2)}",
		"fn main(){--5 - -2}",
		"fn main(){(1<2) < (3>4)}",
		"fn main(){-(1+2)*3}",
		"fn f(x){if x>0 {x*f(x-1)} else {1}} fn main(){f(5)/--2}",
		"fn main(){f(if 1 {2} else {3}, (4))} fn f(a, b){a}",
	} {
		c1, err := parse.Parse(ctx, []byte(text))
		require.NoError(t, err, "text: %q", text)

		src, err := Source(nil, c1)
		require.NoError(t, err, "text: %q", text)

		c2, err := parse.Parse(ctx, src)
		require.NoError(t, err, "text: %q\nsource: %s", text, src)

		t1, err := Tree(nil, c1)
		require.NoError(t, err)

		t2, err := Tree(nil, c2)
		require.NoError(t, err)

		assert.Equal(t, string(t1), string(t2), "text: %q\nsource: %s", text, src)
	}
}
