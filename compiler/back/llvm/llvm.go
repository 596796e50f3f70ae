//go:build llvm

package llvm

import (
	"context"
	"sync"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/back"
	"github.com/slowlang/tiny/compiler/front"
	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/tp"
)

type (
	Option func(*Backend)

	// Backend builds an LLVM module and runs it with MCJIT.
	// Traps and call depth are tracked in module globals,
	// so one Backend may run one invocation at a time.
	Backend struct {
		ctx llvm.Context
		mod llvm.Module
		b   llvm.Builder

		trap  llvm.Value
		depth llvm.Value

		maxDepth int64

		ftypes map[llvm.Value]llvm.Type
		cur    llvm.Value

		ee  llvm.ExecutionEngine
		jit bool

		mu sync.Mutex
	}
)

const (
	trapNone int64 = iota
	trapDivByZero
	trapStackOverflow
)

var (
	initOnce sync.Once
	initErr  error
)

var _ front.Backend[llvm.Value, llvm.BasicBlock, llvm.Value] = (*Backend)(nil)

// MaxDepth limits call nesting, non-positive n means back.DefaultMaxDepth.
func MaxDepth(n int) Option {
	if n <= 0 {
		n = back.DefaultMaxDepth
	}

	return func(b *Backend) {
		b.maxDepth = int64(n)
	}
}

func New(name string, opts ...Option) *Backend {
	ctx := llvm.NewContext()

	b := &Backend{
		ctx:      ctx,
		mod:      ctx.NewModule(name),
		b:        ctx.NewBuilder(),
		maxDepth: back.DefaultMaxDepth,
		ftypes:   map[llvm.Value]llvm.Type{},
	}

	for _, o := range opts {
		o(b)
	}

	i64 := ctx.Int64Type()

	b.trap = llvm.AddGlobal(b.mod, i64, "tiny.trap")
	b.trap.SetInitializer(llvm.ConstInt(i64, 0, false))

	b.depth = llvm.AddGlobal(b.mod, i64, "tiny.depth")
	b.depth.SetInitializer(llvm.ConstInt(i64, 0, false))

	return b
}

func (b *Backend) Dispose() {
	b.b.Dispose()

	if b.jit {
		b.ee.Dispose() // owns the module
	} else {
		b.mod.Dispose()
	}

	b.ctx.Dispose()
}

// String returns textual LLVM IR.
func (b *Backend) String() string {
	return b.mod.String()
}

func (b *Backend) DeclareFunc(name string, params int) (llvm.Value, error) {
	if f := b.mod.NamedFunction(name); !f.IsNil() {
		return llvm.Value{}, errors.New("function redefined: %v", name)
	}

	i64 := b.ctx.Int64Type()

	in := make([]llvm.Type, params)
	for i := range in {
		in[i] = i64
	}

	ft := llvm.FunctionType(i64, in, false)
	f := llvm.AddFunction(b.mod, name, ft)

	b.ftypes[f] = ft

	return f, nil
}

func (b *Backend) BeginFunc(f llvm.Value) error {
	if !b.cur.IsNil() {
		return errors.New("function %v is not finished", b.cur.Name())
	}

	if f.BasicBlocksCount() != 0 {
		return errors.New("function %v is already defined", f.Name())
	}

	b.cur = f

	entry := b.NewBlock("entry")
	b.SetBlock(entry)

	i64 := b.ctx.Int64Type()

	d := b.b.CreateLoad(i64, b.depth, "depth")
	d = b.b.CreateAdd(d, llvm.ConstInt(i64, 1, false), "depth.inc")
	b.b.CreateStore(d, b.depth)

	over := b.b.CreateICmp(llvm.IntSGT, d, llvm.ConstInt(i64, uint64(b.maxDepth), true), "depth.over")

	trap := b.NewBlock("depth.trap")
	body := b.NewBlock("body")

	b.b.CreateCondBr(over, trap, body)

	b.SetBlock(trap)
	b.trapCode(trapStackOverflow)

	b.SetBlock(body)

	return nil
}

func (b *Backend) Param(f llvm.Value, i int) llvm.Value {
	return f.Param(i)
}

func (b *Backend) EndFunc(f llvm.Value) error {
	if b.cur != f {
		return errors.New("function %v is not started", f.Name())
	}

	b.cur = llvm.Value{}

	return llvm.VerifyFunction(f, llvm.ReturnStatusAction)
}

func (b *Backend) AbortFunc(f llvm.Value) {
	for _, bb := range f.BasicBlocks() {
		bb.EraseFromParent()
	}

	if b.cur == f {
		b.cur = llvm.Value{}
	}
}

func (b *Backend) Const(t tp.Int, v int64) llvm.Value {
	return llvm.ConstInt(b.typ(t), uint64(v), t.Signed)
}

func (b *Backend) Neg(x llvm.Value) llvm.Value {
	return b.b.CreateNeg(x, "")
}

func (b *Backend) Add(l, r llvm.Value) llvm.Value {
	return b.b.CreateAdd(l, r, "")
}

func (b *Backend) Sub(l, r llvm.Value) llvm.Value {
	return b.b.CreateSub(l, r, "")
}

func (b *Backend) Mul(l, r llvm.Value) llvm.Value {
	return b.b.CreateMul(l, r, "")
}

// Div divides by 1 when the divisor is -1 and negates the result,
// MinInt64 / -1 is undefined for sdiv.
func (b *Backend) Div(l, r llvm.Value) llvm.Value {
	t := r.Type()

	minus1 := b.b.CreateICmp(llvm.IntEQ, r, llvm.ConstInt(t, ^uint64(0), true), "div.m1")
	safe := b.b.CreateSelect(minus1, llvm.ConstInt(t, 1, false), r, "div.r")
	q := b.b.CreateSDiv(l, safe, "")
	neg := b.b.CreateNeg(l, "")

	return b.b.CreateSelect(minus1, neg, q, "")
}

func (b *Backend) Cmp(c ir.Cond, l, r llvm.Value) llvm.Value {
	var p llvm.IntPredicate

	switch c {
	case ir.Less:
		p = llvm.IntSLT
	case ir.Greater:
		p = llvm.IntSGT
	case ir.Equal:
		p = llvm.IntEQ
	case ir.NotEq:
		p = llvm.IntNE
	default:
		panic(c)
	}

	return b.b.CreateICmp(p, l, r, "")
}

func (b *Backend) Zext(x llvm.Value, t tp.Int) llvm.Value {
	return b.b.CreateZExt(x, b.typ(t), "")
}

func (b *Backend) TypeOf(x llvm.Value) tp.Int {
	w := x.Type().IntTypeWidth()

	return tp.Int{Bits: int16(w), Signed: w != 1}
}

func (b *Backend) NewBlock(name string) llvm.BasicBlock {
	return b.ctx.AddBasicBlock(b.cur, name)
}

func (b *Backend) Block() llvm.BasicBlock {
	return b.b.GetInsertBlock()
}

func (b *Backend) SetBlock(bb llvm.BasicBlock) {
	b.b.SetInsertPointAtEnd(bb)
}

func (b *Backend) Branch(to llvm.BasicBlock) {
	b.b.CreateBr(to)
}

func (b *Backend) BranchIf(x llvm.Value, then, els llvm.BasicBlock) {
	if x.Type().IntTypeWidth() != 1 {
		x = b.b.CreateICmp(llvm.IntNE, x, llvm.ConstInt(x.Type(), 0, false), "")
	}

	b.b.CreateCondBr(x, then, els)
}

func (b *Backend) Phi(t tp.Int, vals []llvm.Value, from []llvm.BasicBlock) llvm.Value {
	phi := b.b.CreatePHI(b.typ(t), "")
	phi.AddIncoming(vals, from)

	return phi
}

// Call continues in a new block if the callee didn't trap.
func (b *Backend) Call(f llvm.Value, args []llvm.Value) llvm.Value {
	res := b.b.CreateCall(b.ftypes[f], f, args, "")

	i64 := b.ctx.Int64Type()

	flag := b.b.CreateLoad(i64, b.trap, "trap")
	trapped := b.b.CreateICmp(llvm.IntNE, flag, llvm.ConstInt(i64, 0, false), "trapped")

	unwind := b.NewBlock("call.unwind")
	ok := b.NewBlock("call.ok")

	b.b.CreateCondBr(trapped, unwind, ok)

	b.SetBlock(unwind)
	b.b.CreateRet(llvm.ConstInt(i64, 0, false))

	b.SetBlock(ok)

	return res
}

func (b *Backend) Trap(code ir.TrapCode) {
	switch code {
	case ir.TrapDivByZero:
		b.trapCode(trapDivByZero)
	default:
		panic(code)
	}
}

func (b *Backend) Ret(x llvm.Value) {
	i64 := b.ctx.Int64Type()

	d := b.b.CreateLoad(i64, b.depth, "depth")
	d = b.b.CreateSub(d, llvm.ConstInt(i64, 1, false), "depth.dec")
	b.b.CreateStore(d, b.depth)

	b.b.CreateRet(x)
}

func (b *Backend) trapCode(code int64) {
	i64 := b.ctx.Int64Type()

	b.b.CreateStore(llvm.ConstInt(i64, uint64(code), false), b.trap)
	b.b.CreateRet(llvm.ConstInt(i64, 0, false))
}

func (b *Backend) typ(t tp.Int) llvm.Type {
	return b.ctx.IntType(int(t.Bits))
}

// Invoke compiles the module on the first call and runs the named function.
func (b *Backend) Invoke(ctx context.Context, name string, args ...int64) (res int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "llvm: invoke", "name", name, "args", args)
	defer tr.Finish("res", &res, "err", &err)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err = ctx.Err(); err != nil {
		return 0, errors.Wrap(err, "invoke")
	}

	f := b.mod.NamedFunction(name)
	if f.IsNil() {
		return 0, &back.InvokeError{Kind: back.UnknownFunction, Name: name}
	}

	if n := f.ParamsCount(); n != len(args) {
		return 0, &back.InvokeError{Kind: back.ArgumentCount, Name: name, Want: n, Got: len(args)}
	}

	err = b.compile(ctx)
	if err != nil {
		return 0, err
	}

	i64 := b.ctx.Int64Type()

	trap := (*int64)(b.ee.PointerToGlobal(b.trap))
	depth := (*int64)(b.ee.PointerToGlobal(b.depth))

	*trap, *depth = 0, 0

	gargs := make([]llvm.GenericValue, len(args))

	for i, a := range args {
		gargs[i] = llvm.NewGenericValueFromInt(i64, uint64(a), true)
	}

	gv := b.ee.RunFunction(f, gargs)
	defer gv.Dispose()

	for _, a := range gargs {
		a.Dispose()
	}

	switch *trap {
	case trapNone:
	case trapDivByZero:
		return 0, &back.RuntimeError{Kind: back.DivisionByZero}
	case trapStackOverflow:
		return 0, &back.RuntimeError{Kind: back.StackOverflow}
	default:
		return 0, errors.New("unknown trap: %d", *trap)
	}

	return int64(gv.Int(true)), nil
}

func (b *Backend) compile(ctx context.Context) (err error) {
	if b.jit {
		return nil
	}

	tr := tlog.SpanFromContext(ctx)

	err = llvm.VerifyModule(b.mod, llvm.ReturnStatusAction)
	if err != nil {
		return errors.Wrap(err, "verify module")
	}

	if tr.If("dump_llvm") {
		tr.Printw("llvm module", "ir", b.mod.String())
	}

	err = initNative()
	if err != nil {
		return err
	}

	opts := llvm.NewMCJITCompilerOptions()

	b.ee, err = llvm.NewMCJITCompiler(b.mod, opts)
	if err != nil {
		return errors.Wrap(err, "create jit")
	}

	b.jit = true

	return nil
}

func initNative() error {
	initOnce.Do(func() {
		llvm.LinkInMCJIT()

		if err := llvm.InitializeNativeTarget(); err != nil {
			initErr = errors.Wrap(err, "init native target")
			return
		}

		if err := llvm.InitializeNativeAsmPrinter(); err != nil {
			initErr = errors.Wrap(err, "init native asm printer")
		}
	})

	return initErr
}
