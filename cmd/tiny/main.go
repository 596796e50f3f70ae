package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler"
	"github.com/slowlang/tiny/compiler/back"
	"github.com/slowlang/tiny/compiler/format"
	"github.com/slowlang/tiny/compiler/front"
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/parse"
)

var (
	// extraCommands are added by build-tagged files.
	extraCommands []*cli.Command

	errColor = color.New(color.FgRed, color.Bold)
	locColor = color.New(color.FgCyan)
)

func main() {
	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile a program and print what its entry function returns",
		Action:      runAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("source", false, "print canonical source instead of the tree"),
		},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
	}

	replCmd := &cli.Command{
		Name:        "repl",
		Description: "interactive session",
		Action:      replAct,
	}

	app := &cli.Command{
		Name:        "tiny",
		Description: "tiny is a compiler and runner for tiny expression programs",
		Before:      before,
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.NewFlag("entry", compiler.DefaultEntry, "function to invoke"),
			cli.NewFlag("dump-ast", false, "print syntax tree before compiling"),
			cli.NewFlag("dump-ir", "", "write ir listing to the file"),
			cli.NewFlag("all-errors", false, "report all semantic errors, not only the first one"),
			cli.NewFlag("max-depth", back.DefaultMaxDepth, "call depth limit"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			runCmd,
			parseCmd,
			irCmd,
			replCmd,
		},
	}

	app.Commands = append(app.Commands, extraCommands...)

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("expected exactly one source file")
	}

	opts, closer, err := options(c)
	if err != nil {
		return err
	}

	res, err := withCloser(closer, func() (int64, error) {
		return compiler.RunFile(ctx, c.Args[0], opts...)
	})
	if err != nil {
		exit(err)
	}

	fmt.Println(res)

	return nil
}

// withCloser runs f and closes dump files before the caller may exit.
func withCloser(closer func(), f func() (int64, error)) (int64, error) {
	defer closer()

	return f()
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			exit(err)
		}

		var b []byte

		if c.Bool("source") {
			b, err = format.Source(b, x)
		} else {
			b, err = format.Tree(b, x)
			b = append(b, '\n')
		}

		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read file")
		}

		pkg, err := compiler.CompileIR(ctx, a, text, frontOptions(c)...)
		if err != nil {
			exit(err)
		}

		b, err := ir.Dump(nil, pkg)
		if err != nil {
			return errors.Wrap(err, "dump %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func options(c *cli.Command) (opts []compiler.Option, closer func(), err error) {
	closer = func() {}

	opts = append(opts, frontOptions(c)...)
	opts = append(opts, compiler.WithEntry(c.String("entry")), compiler.MaxDepth(c.Int("max-depth")))

	if c.Bool("dump-ast") {
		opts = append(opts, compiler.DumpAST(os.Stdout))
	}

	if q := c.String("dump-ir"); q != "" {
		f, err := os.Create(q)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create ir dump")
		}

		opts = append(opts, compiler.DumpIR(f))

		closer = func() {
			_ = f.Close()
		}
	}

	return opts, closer, nil
}

func frontOptions(c *cli.Command) (opts []compiler.Option) {
	if c.Bool("all-errors") {
		opts = append(opts, compiler.CollectErrors())
	}

	return opts
}

// exit prints diagnostics one per line and exits with non-zero code.
func exit(err error) {
	printErrors(err)

	os.Exit(1)
}

func printErrors(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			printError(e)
		}

		return
	}

	printError(err)
}

func printError(err error) {
	var serr *parse.SyntaxError
	var merr *front.SemanticError
	var rerr *back.RuntimeError

	switch {
	case errors.As(err, &serr):
		diag(position(serr.File, serr.Line, serr.Col), "syntax error", serr.Message())
	case errors.As(err, &merr):
		diag(position(merr.File, merr.Line, merr.Col), "semantic error", merr.Message())
	case errors.As(err, &rerr):
		diag("", "runtime error", rerr.Kind.String()+" (in fn "+rerr.Func+")")
	default:
		diag("", "error", err.Error())
	}
}

func diag(pos, kind, msg string) {
	if pos != "" {
		fmt.Fprintf(os.Stderr, "%s ", locColor.Sprint(pos))
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", errColor.Sprint(kind+":"), msg)
}

func position(file string, line, col int) string {
	switch {
	case line == 0 && file == "":
		return ""
	case line == 0:
		return file + ":"
	case file == "":
		return fmt.Sprintf("%d:%d:", line, col)
	default:
		return fmt.Sprintf("%s:%d:%d:", file, line, col)
	}
}
