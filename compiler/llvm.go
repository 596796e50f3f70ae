//go:build llvm

package compiler

import (
	"context"

	gollvm "tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/back/llvm"
	"github.com/slowlang/tiny/compiler/front"
	"github.com/slowlang/tiny/compiler/parse"
)

// RunLLVM is Run with the LLVM JIT backend instead of the IR interpreter.
func RunLLVM(ctx context.Context, name string, text []byte, opts ...Option) (res int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: run llvm", "name", name)
	defer tr.Finish("res", &res, "err", &err)

	c := newConfig(opts)

	code, err := parse.New(name, text).Parse(ctx)
	if err != nil {
		return 0, err
	}

	if c.dumpAST != nil {
		err = dumpAST(c.dumpAST, code)
		if err != nil {
			return 0, errors.Wrap(err, "dump ast")
		}
	}

	be := llvm.New(name, llvm.MaxDepth(c.maxDepth))
	defer be.Dispose()

	err = front.Compile[gollvm.Value, gollvm.BasicBlock, gollvm.Value](ctx, code, be, c.front...)
	if err != nil {
		locate(err, name, text)

		return 0, err
	}

	if c.dumpIR != nil {
		_, err = c.dumpIR.Write([]byte(be.String()))
		if err != nil {
			return 0, errors.Wrap(err, "dump ir")
		}
	}

	return be.Invoke(ctx, c.entry)
}
