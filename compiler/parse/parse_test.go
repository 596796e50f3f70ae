package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler/ast"
	"github.com/slowlang/tiny/compiler/format"
)

func parseExpr(t *testing.T, text string) ast.Expr {
	t.Helper()

	s := New("", []byte(text))

	x, i, err := s.parseExpr(context.Background(), 0)
	require.NoError(t, err, "text: %q", text)
	assert.Equal(t, len(text), SpaceAll.Skip([]byte(text), i), "not all consumed: %q", text)

	return x
}

func TestExprPrecedence(t *testing.T) {
	for _, tc := range []struct {
		text string
		tree string
	}{
		{"1", "Num(1)"},
		{"1+2*3", "Add(Num(1), Mul(Num(2), Num(3)))"},
		{"1*2+3", "Add(Mul(Num(1), Num(2)), Num(3))"},
		{"(1+2)*3", "Mul(Add(Num(1), Num(2)), Num(3))"},
		{"1-2-3", "Sub(Sub(Num(1), Num(2)), Num(3))"},
		{"8/4/2", "Div(Div(Num(8), Num(4)), Num(2))"},
		{"--5", "Neg(Neg(Num(5)))"},
		{"-a*b", "Mul(Neg(Var(a)), Var(b))"},
		{"1 - -2", "Sub(Num(1), Neg(Num(2)))"},
		{"a+1 > b*2", "Bigger(Add(Var(a), Num(1)), Mul(Var(b), Num(2)))"},
		{"1<2<3", "Smaller(Smaller(Num(1), Num(2)), Num(3))"},
		{"a > b < c", "Smaller(Bigger(Var(a), Var(b)), Var(c))"},
		{"f()", "Call(f, [])"},
		{"f (1, x, )", "Call(f, [Num(1), Var(x)])"},
		{"f(g(1), 2+3)", "Call(f, [Call(g, [Num(1)]), Add(Num(2), Num(3))])"},
		{"fnord", "Var(fnord)"},
		{"if 3>2 {10} else {20}", "If(Bigger(Num(3), Num(2)), Num(10), Num(20))"},
		{"if a { if b {1} else {2} } else {3}", "If(Var(a), If(Var(b), Num(1), Num(2)), Num(3))"},
		{"1 + (if a {1} else {2})", "Add(Num(1), If(Var(a), Num(1), Num(2)))"},
		{"\n\t1\n+\n2 ", "Add(Num(1), Num(2))"},
	} {
		x := parseExpr(t, tc.text)

		assert.Equal(t, tc.tree, format.TreeString(x), "text: %q", tc.text)
	}
}

func TestParseCode(t *testing.T) {
	ctx := context.Background()

	c, err := Parse(ctx, []byte(`
fn add(a, b) { a + b }

fn main() {
	add(1, 2)
}
`))
	require.NoError(t, err)
	require.Len(t, c.Funcs, 2)

	assert.Equal(t, "add", c.Funcs[0].Name.Name)
	assert.Equal(t, []string{"a", "b"}, names(c.Funcs[0].Params))
	assert.Empty(t, c.Funcs[0].Body.Lets)
	assert.Equal(t, "Fn(main, [], Call(add, [Num(1), Num(2)]))", format.TreeString(c.Funcs[1]))

	c, err = Parse(ctx, []byte("  \n "))
	require.NoError(t, err)
	assert.Empty(t, c.Funcs)
}

func TestParseDeterministic(t *testing.T) {
	ctx := context.Background()
	text := []byte("fn f(x){if x>0 {x*f(x-1)} else {1}} fn main(){f(5)/--2}")

	c1, err := Parse(ctx, text)
	require.NoError(t, err)

	c2, err := Parse(ctx, text)
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
}

func TestPositions(t *testing.T) {
	c, err := Parse(context.Background(), []byte("fn main() { 1 + x }"))
	require.NoError(t, err)

	f := c.Funcs[0]
	assert.Equal(t, ast.Base{Pos: 0, End: 19}, f.Base)
	assert.Equal(t, ast.Base{Pos: 3, End: 7}, f.Name.Base)

	add := f.Body.Ret.(ast.Add)
	assert.Equal(t, ast.Base{Pos: 12, End: 17}, add.Base)
	assert.Equal(t, ast.Base{Pos: 16, End: 17}, add.Right.Span())
}

func TestSyntaxErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		text  string
		line  int
		col   int
		want  []string
		found string
	}{
		{"fn main() { 1 + }", 1, 17, []string{`"-"`, `"("`, "integer", "identifier"}, `'}'`},
		{"fn main() {1 2}", 1, 14, []string{`"*"`, `"/"`, `"+"`, `"-"`, `">"`, `"<"`, `"}"`}, `integer "2"`},
		{"fn (a) {1}", 1, 4, []string{"identifier"}, `'('`},
		{"fn f(a,) {1}", 1, 8, []string{"identifier"}, `')'`},
		{"fn f(if) {1}", 1, 6, []string{`")"`, "identifier"}, `identifier "if"`},
		{"fn main() {1}\nmain", 2, 1, []string{`"fn"`, "end of input"}, `identifier "main"`},
		{"fn main() {if 1 {2}}", 1, 20, []string{`"else"`}, `'}'`},
		{"fn main() {f(1 2)}", 1, 16, nil, `integer "2"`},
		{"fn main() {99999999999999999999}", 1, 12, []string{"integer in signed 64-bit range"}, `integer "99999999999999999999"`},
		{"fn main() {1", 1, 13, nil, "end of input"},
	} {
		c, err := Parse(ctx, []byte(tc.text))
		assert.Nil(t, c, "text: %q", tc.text)

		var serr *SyntaxError
		if !assert.ErrorAs(t, err, &serr, "text: %q", tc.text) {
			continue
		}

		assert.Equal(t, tc.line, serr.Line, "text: %q: %v", tc.text, err)
		assert.Equal(t, tc.col, serr.Col, "text: %q: %v", tc.text, err)
		assert.Equal(t, tc.found, serr.Found, "text: %q: %v", tc.text, err)

		if tc.want != nil {
			assert.ElementsMatch(t, tc.want, serr.Expected, "text: %q: %v", tc.text, err)
		}
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	_, err := New("prog.tiny", []byte("fn main() {\n  1 +\n}")).Parse(context.Background())
	require.Error(t, err)

	assert.Equal(t, `prog.tiny:3:1: syntax error: expected "-", "(", integer or identifier, found '}'`, err.Error())
}

func names(l []ast.Ident) (r []string) {
	for _, id := range l {
		r = append(r, id.Name)
	}

	return r
}
