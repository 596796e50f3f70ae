package front

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
)

type (
	Option func(*config)

	config struct {
		collect bool
	}

	pkgContext[V, B, F any] struct {
		be Backend[V, B, F]

		funcs map[string]*funcDef[F]
	}

	funcDef[F any] struct {
		fn *ast.Fn
		id F

		bad bool
	}
)

// CollectErrors makes Compile continue with the next function after a failure.
// All failures are returned as *multierror.Error.
func CollectErrors() Option {
	return func(c *config) {
		c.collect = true
	}
}

// Compile lowers code into be.
// All the functions are declared first so calls may refer to functions defined later.
// Semantic failures are *SemanticError.
func Compile[V, B, F any](ctx context.Context, code *ast.Code, be Backend[V, B, F], opts ...Option) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile code", "funcs", len(code.Funcs))
	defer tr.Finish("err", &err)

	var c config

	for _, o := range opts {
		o(&c)
	}

	p := &pkgContext[V, B, F]{
		be:    be,
		funcs: make(map[string]*funcDef[F], len(code.Funcs)),
	}

	var errs *multierror.Error

	report := func(err error) error {
		if err == nil || !c.collect {
			return err
		}

		errs = multierror.Append(errs, err)

		return nil
	}

	defs := make([]*funcDef[F], 0, len(code.Funcs))

	for _, f := range code.Funcs {
		d, err := p.addDecl(ctx, f)
		if d != nil {
			defs = append(defs, d)
		}

		if err = report(err); err != nil {
			return err
		}
	}

	for _, d := range defs {
		if d.bad {
			continue
		}

		err = p.compileFunc(ctx, d)
		if err = report(err); err != nil {
			return err
		}
	}

	return errs.ErrorOrNil()
}

func (p *pkgContext[V, B, F]) addDecl(ctx context.Context, f *ast.Fn) (d *funcDef[F], err error) {
	name := f.Name.Name

	if _, ok := p.funcs[name]; ok {
		return nil, &SemanticError{
			Kind: DuplicateFunction,
			Name: name,
			Pos:  f.Name.Pos,
		}
	}

	id, err := p.be.DeclareFunc(name, len(f.Params))
	if err != nil {
		return nil, errors.Wrap(err, "declare %v", name)
	}

	d = &funcDef[F]{
		fn: f,
		id: id,
	}

	p.funcs[name] = d

	tlog.V("decl").Printw("declare function", "name", name, "params", len(f.Params))

	seen := make(map[string]struct{}, len(f.Params))

	for _, par := range f.Params {
		if _, ok := seen[par.Name]; ok {
			d.bad = true

			return d, &SemanticError{
				Kind: DuplicateParameter,
				Name: par.Name,
				Func: name,
				Pos:  par.Pos,
			}
		}

		seen[par.Name] = struct{}{}
	}

	return d, nil
}

func (p *pkgContext[V, B, F]) compileFunc(ctx context.Context, d *funcDef[F]) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile function", "name", d.fn.Name.Name, "params", len(d.fn.Params))
	defer tr.Finish("err", &err)

	err = p.be.BeginFunc(d.id)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	defer func() {
		if err != nil {
			p.be.AbortFunc(d.id)
		}
	}()

	s := newScope(p, d)

	for i, par := range d.fn.Params {
		s.define(par.Name, p.be.Param(d.id, i))
	}

	x, err := s.value(ctx, d.fn.Body.Ret)
	if err != nil {
		return err
	}

	p.be.Ret(x)

	err = p.be.EndFunc(d.id)
	if err != nil {
		return errors.Wrap(err, "end")
	}

	return nil
}
