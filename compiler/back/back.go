package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ir"
)

type (
	Option func(*Module)

	// Module is a compiled package ready to be invoked.
	// It's safe to Invoke concurrently.
	Module struct {
		pkg *ir.Package

		funcs map[string]*function
		byID  map[ir.Expr]*function

		maxDepth int
	}

	exec struct {
		ctx   context.Context
		depth int
		max   int
	}
)

const DefaultMaxDepth = 10000

// MaxDepth limits call nesting. Deeper calls fail with StackOverflow.
// Non-positive n means DefaultMaxDepth.
func MaxDepth(n int) Option {
	if n <= 0 {
		n = DefaultMaxDepth
	}

	return func(m *Module) {
		m.maxDepth = n
	}
}

// Compile verifies pkg and translates it into executable form.
func Compile(ctx context.Context, pkg *ir.Package, opts ...Option) (m *Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile package", "name", pkg.Path, "funcs", len(pkg.Funcs))
	defer tr.Finish("err", &err)

	m = &Module{
		pkg:      pkg,
		funcs:    make(map[string]*function, len(pkg.Funcs)),
		byID:     make(map[ir.Expr]*function, len(pkg.Funcs)),
		maxDepth: DefaultMaxDepth,
	}

	for _, o := range opts {
		o(m)
	}

	if tr.If("dump_pkg") {
		for id, x := range pkg.Exprs {
			tr.Printw("expr", "id", id, "tp", pkg.EType[id], "typ", tlog.NextAsType, x, "val", x)
		}
	}

	for _, id := range pkg.Funcs {
		f := pkg.Func(id)
		if f == nil {
			return nil, errors.New("func %v: not a function", id)
		}

		if _, ok := m.funcs[f.Name]; ok {
			return nil, errors.New("func %v: redefined", f.Name)
		}

		fn := &function{
			name:   f.Name,
			params: len(f.In),
		}

		m.funcs[f.Name] = fn
		m.byID[id] = fn
	}

	for _, id := range pkg.Funcs {
		f := pkg.Func(id)

		err = m.compileFunc(ctx, m.byID[id], f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return m, nil
}

// Params returns number of parameters of the named function.
func (m *Module) Params(name string) (int, bool) {
	fn, ok := m.funcs[name]
	if !ok {
		return 0, false
	}

	return fn.params, true
}

// Invoke calls the named function.
// Program failures are *RuntimeError, lookup failures are *InvokeError.
func (m *Module) Invoke(ctx context.Context, name string, args ...int64) (res int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: invoke", "name", name, "args", args)
	defer tr.Finish("res", &res, "err", &err)

	fn, ok := m.funcs[name]
	if !ok {
		return 0, &InvokeError{Kind: UnknownFunction, Name: name}
	}

	if len(args) != fn.params {
		return 0, &InvokeError{Kind: ArgumentCount, Name: name, Want: fn.params, Got: len(args)}
	}

	e := &exec{
		ctx: ctx,
		max: m.maxDepth,
	}

	return e.call(fn, args)
}

func (e *exec) call(fn *function, args []int64) (int64, error) {
	if err := e.ctx.Err(); err != nil {
		return 0, errors.Wrap(err, "call %v", fn.name)
	}

	if e.depth >= e.max {
		return 0, &RuntimeError{Kind: StackOverflow, Func: fn.name}
	}

	e.depth++
	defer func() {
		e.depth--
	}()

	return fn.run(e, args)
}
