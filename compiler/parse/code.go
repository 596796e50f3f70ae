package parse

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
)

func (s *State) parseCode(ctx context.Context, st int) (c *ast.Code, i int, err error) {
	c = &ast.Code{}
	i = st

	for {
		e, ok := s.keyword(ctx, i, "fn")
		if !ok {
			break
		}

		var f *ast.Fn
		f, i, err = s.parseFn(ctx, i, e)
		if err != nil {
			return nil, st, err
		}

		c.Funcs = append(c.Funcs, f)
	}

	i = SpaceAll.Skip(s.b, i)

	if i != len(s.b) {
		return nil, st, s.fail(i, "end of input")
	}

	c.Base = ast.Base{Pos: st, End: i}

	return c, i, nil
}

// parseFn parses a definition after the fn keyword ending at i.
func (s *State) parseFn(ctx context.Context, st, i int) (f *ast.Fn, _ int, err error) {
	pos := SpaceAll.Skip(s.b, st)

	name, i, err := s.ident(ctx, i)
	if err != nil {
		return nil, st, err
	}

	params, i, err := s.parseParams(ctx, i)
	if err != nil {
		return nil, st, err
	}

	bpos := SpaceAll.Skip(s.b, i)

	ret, i, err := s.parseBraced(ctx, i)
	if err != nil {
		return nil, st, err
	}

	f = &ast.Fn{
		Base:   ast.Base{Pos: pos, End: i},
		Name:   name,
		Params: params,
		Body: ast.Block{
			Base: ast.Base{Pos: bpos, End: i},
			Ret:  ret,
		},
	}

	tlog.V("parse").Printw("fn", "name", name.Name, "params", len(params), "pos", pos)

	return f, i, nil
}

// parseParams parses "(" [ ident { "," ident } ] ")".
func (s *State) parseParams(ctx context.Context, st int) (p []ast.Ident, i int, err error) {
	i, ok := s.sym(ctx, st, "(")
	if !ok {
		return nil, st, s.syntaxError()
	}

	if e, ok := s.sym(ctx, i, ")"); ok {
		return nil, e, nil
	}

	for {
		var id ast.Ident
		id, i, err = s.ident(ctx, i)
		if err != nil {
			return nil, st, err
		}

		p = append(p, id)

		if e, ok := s.sym(ctx, i, ","); ok {
			i = e
			continue
		}

		e, ok := s.sym(ctx, i, ")")
		if !ok {
			return nil, st, s.syntaxError()
		}

		return p, e, nil
	}
}
