//go:build llvm

package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler"
)

func init() {
	extraCommands = append(extraCommands, &cli.Command{
		Name:        "llvm",
		Description: "run a program with the llvm jit",
		Action:      llvmAct,
		Args:        cli.Args{},
	})
}

func llvmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("expected exactly one source file")
	}

	text, err := os.ReadFile(c.Args[0])
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	opts, closer, err := options(c)
	if err != nil {
		return err
	}

	res, err := withCloser(closer, func() (int64, error) {
		return compiler.RunLLVM(ctx, c.Args[0], text, opts...)
	})
	if err != nil {
		exit(err)
	}

	fmt.Println(res)

	return nil
}
