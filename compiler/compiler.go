package compiler

import (
	"context"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
	"github.com/slowlang/tiny/compiler/back"
	"github.com/slowlang/tiny/compiler/format"
	"github.com/slowlang/tiny/compiler/front"
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/parse"
)

type (
	Option func(*config)

	config struct {
		entry string

		front []front.Option
		back  []back.Option

		maxDepth int

		dumpAST io.Writer
		dumpIR  io.Writer
	}
)

const DefaultEntry = "main"

// WithEntry sets the function Run invokes.
func WithEntry(name string) Option {
	return func(c *config) {
		c.entry = name
	}
}

// CollectErrors reports all the semantic errors instead of the first one.
func CollectErrors() Option {
	return func(c *config) {
		c.front = append(c.front, front.CollectErrors())
	}
}

func MaxDepth(n int) Option {
	return func(c *config) {
		c.back = append(c.back, back.MaxDepth(n))
		c.maxDepth = n
	}
}

// DumpAST writes the parsed tree to w.
func DumpAST(w io.Writer) Option {
	return func(c *config) {
		c.dumpAST = w
	}
}

// DumpIR writes the IR listing to w.
func DumpIR(w io.Writer) Option {
	return func(c *config) {
		c.dumpIR = w
	}
}

func RunFile(ctx context.Context, name string, opts ...Option) (int64, error) {
	text, err := readFile(ctx, name)
	if err != nil {
		return 0, err
	}

	return Run(ctx, name, text, opts...)
}

// Run compiles text and invokes the entry function without arguments.
func Run(ctx context.Context, name string, text []byte, opts ...Option) (res int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: run", "name", name)
	defer tr.Finish("res", &res, "err", &err)

	c := newConfig(opts)

	m, err := compile(ctx, c, name, text)
	if err != nil {
		return 0, err
	}

	return m.Invoke(ctx, c.entry)
}

func CompileFile(ctx context.Context, name string, opts ...Option) (*back.Module, error) {
	text, err := readFile(ctx, name)
	if err != nil {
		return nil, err
	}

	return Compile(ctx, name, text, opts...)
}

// Compile parses and compiles text.
// Errors are *parse.SyntaxError, *front.SemanticError or *multierror.Error of them.
func Compile(ctx context.Context, name string, text []byte, opts ...Option) (m *back.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: compile", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	return compile(ctx, newConfig(opts), name, text)
}

// CompileIR parses and lowers text into IR without building the executable module.
func CompileIR(ctx context.Context, name string, text []byte, opts ...Option) (*ir.Package, error) {
	c := newConfig(opts)

	code, err := parse.New(name, text).Parse(ctx)
	if err != nil {
		return nil, err
	}

	return lower(ctx, c, name, text, code)
}

func compile(ctx context.Context, c *config, name string, text []byte) (*back.Module, error) {
	code, err := parse.New(name, text).Parse(ctx)
	if err != nil {
		return nil, err
	}

	if c.dumpAST != nil {
		err = dumpAST(c.dumpAST, code)
		if err != nil {
			return nil, errors.Wrap(err, "dump ast")
		}
	}

	pkg, err := lower(ctx, c, name, text, code)
	if err != nil {
		return nil, err
	}

	if c.dumpIR != nil {
		b, err := ir.Dump(nil, pkg)
		if err != nil {
			return nil, errors.Wrap(err, "dump ir")
		}

		_, err = c.dumpIR.Write(b)
		if err != nil {
			return nil, errors.Wrap(err, "dump ir")
		}
	}

	m, err := back.Compile(ctx, pkg, c.back...)
	if err != nil {
		return nil, errors.Wrap(err, "backend")
	}

	return m, nil
}

func lower(ctx context.Context, c *config, name string, text []byte, code *ast.Code) (*ir.Package, error) {
	b := ir.NewBuilder(name)

	err := front.Compile[ir.Expr, ir.Label, ir.Expr](ctx, code, b, c.front...)
	if err != nil {
		locate(err, name, text)

		return nil, err
	}

	pkg, err := b.Finish()
	if err != nil {
		return nil, errors.Wrap(err, "build ir")
	}

	return pkg, nil
}

// locate fills source positions of semantic errors.
func locate(err error, name string, text []byte) {
	var errs []error

	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	} else {
		errs = []error{err}
	}

	for _, err := range errs {
		var serr *front.SemanticError
		if !errors.As(err, &serr) {
			continue
		}

		serr.File = name
		serr.Line, serr.Col = parse.LineCol(text, serr.Pos)
	}
}

func dumpAST(w io.Writer, code *ast.Code) error {
	b, err := format.Tree(nil, code)
	if err != nil {
		return err
	}

	b = append(b, '\n')

	_, err = w.Write(b)

	return err
}

func readFile(ctx context.Context, name string) ([]byte, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return text, nil
}

func newConfig(opts []Option) *config {
	c := &config{
		entry:    DefaultEntry,
		maxDepth: back.DefaultMaxDepth,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}
