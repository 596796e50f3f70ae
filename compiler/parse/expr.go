package parse

import (
	"context"

	"github.com/slowlang/tiny/compiler/ast"
)

// Precedence, lowest first:
//
//	expr    = if | compare
//	if      = "if" expr "{" expr "}" "else" "{" expr "}"
//	compare = sum { (">" | "<") sum }
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = "-" unary | atom
//	atom    = integer | ident "(" args ")" | ident | "(" expr ")"
//	args    = [ expr { "," expr } [ "," ] ]

func (s *State) parseExpr(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	if i, ok := s.keyword(ctx, st, "if"); ok {
		return s.parseIf(ctx, st, i)
	}

	return s.parseCompare(ctx, st)
}

func (s *State) parseIf(ctx context.Context, st, i int) (x ast.Expr, _ int, err error) {
	pos := SpaceAll.Skip(s.b, st)

	cond, i, err := s.parseExpr(ctx, i)
	if err != nil {
		return nil, st, err
	}

	then, i, err := s.parseBraced(ctx, i)
	if err != nil {
		return nil, st, err
	}

	i, ok := s.keyword(ctx, i, "else")
	if !ok {
		return nil, st, s.syntaxError()
	}

	els, i, err := s.parseBraced(ctx, i)
	if err != nil {
		return nil, st, err
	}

	return ast.If{
		Base: ast.Base{Pos: pos, End: i},
		Cond: cond,
		Then: then,
		Else: els,
	}, i, nil
}

// parseBraced parses "{" expr "}".
func (s *State) parseBraced(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i, ok := s.sym(ctx, st, "{")
	if !ok {
		return nil, st, s.syntaxError()
	}

	x, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, st, err
	}

	i, ok = s.sym(ctx, i, "}")
	if !ok {
		return nil, st, s.syntaxError()
	}

	return x, i, nil
}

func (s *State) parseCompare(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	return s.leftToRight(ctx, st, "><", s.parseSum)
}

func (s *State) parseSum(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	return s.leftToRight(ctx, st, "+-", s.parseProduct)
}

func (s *State) parseProduct(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	return s.leftToRight(ctx, st, "*/", s.parseUnary)
}

// leftToRight parses arg { op arg } folding to the left.
func (s *State) leftToRight(ctx context.Context, st int, ops string, arg func(context.Context, int) (ast.Expr, int, error)) (x ast.Expr, i int, err error) {
	x, i, err = arg(ctx, st)
	if err != nil {
		return nil, st, err
	}

	for {
		op, e, ok := s.operator(ctx, i, ops)
		if !ok {
			break
		}

		var r ast.Expr
		r, i, err = arg(ctx, e)
		if err != nil {
			return nil, st, err
		}

		x = ast.Binary(op, x, r)
	}

	return x, i, nil
}

func (s *State) operator(ctx context.Context, st int, ops string) (op byte, i int, ok bool) {
	for j := 0; j < len(ops); j++ {
		if i, ok = s.sym(ctx, st, ops[j:j+1]); ok {
			return ops[j], i, true
		}
	}

	return 0, st, false
}

func (s *State) parseUnary(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i, ok := s.sym(ctx, st, "-")
	if !ok {
		return s.parseAtom(ctx, st)
	}

	pos := i - 1

	x, i, err = s.parseUnary(ctx, i)
	if err != nil {
		return nil, st, err
	}

	return ast.Neg{
		Base: ast.Base{Pos: pos, End: i},
		X:    x,
	}, i, nil
}

func (s *State) parseAtom(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	p := SpaceAll.Skip(s.b, st)

	switch {
	case p < len(s.b) && isDigit(s.b[p]):
		return s.integer(ctx, st)
	case s.peekIdent(st):
		return s.parseName(ctx, st)
	}

	i, ok := s.sym(ctx, st, "(")
	if !ok {
		return nil, st, s.fail(p, "integer", "identifier")
	}

	x, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, st, err
	}

	i, ok = s.sym(ctx, i, ")")
	if !ok {
		return nil, st, s.syntaxError()
	}

	return x, i, nil
}

// parseName parses a variable or a call.
func (s *State) parseName(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	id, i, err := s.ident(ctx, st)
	if err != nil {
		return nil, st, err
	}

	i, ok := s.sym(ctx, i, "(")
	if !ok {
		return ast.Var{Base: id.Base, Name: id.Name}, id.End, nil
	}

	c := ast.Call{
		Name: id.Name,
	}

	for {
		if e, ok := s.sym(ctx, i, ")"); ok {
			i = e
			break
		}

		var a ast.Expr
		a, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, st, err
		}

		c.Args = append(c.Args, a)

		if e, ok := s.sym(ctx, i, ","); ok {
			i = e
			continue
		}

		e, ok := s.sym(ctx, i, ")")
		if !ok {
			return nil, st, s.syntaxError()
		}

		i = e
		break
	}

	c.Base = ast.Base{Pos: id.Pos, End: i}

	return c, i, nil
}
