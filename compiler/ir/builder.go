package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/tiny/compiler/tp"
)

type (
	// Builder emits IR into a Package.
	// Emission errors are sticky and reported by EndFunc and Finish.
	Builder struct {
		*Package

		nextlabel Label

		f   *funContext
		err error
	}

	funContext struct {
		*Func

		id Expr

		blocks []*block
		labels map[Label]*block

		cur *block
	}

	block struct {
		name  string
		lab   Label
		labid Expr

		code []Expr
	}
)

func NewBuilder(path string) *Builder {
	return &Builder{
		Package: &Package{Path: path},
	}
}

// Finish returns the built package.
func (b *Builder) Finish() (*Package, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.f != nil {
		return nil, errors.New("function %v is not finished", b.f.Name)
	}

	return b.Package, nil
}

func (b *Builder) DeclareFunc(name string, params int) (Expr, error) {
	if id, _ := b.Lookup(name); id != Nil {
		return Nil, errors.New("function redefined: %v", name)
	}

	f := &Func{
		Name: name,
		Out:  tp.I64,
	}

	id := b.alloc(f, tp.Ints(params))
	b.Funcs = append(b.Funcs, id)

	for i := 0; i < params; i++ {
		f.In = append(f.In, b.alloc(Arg(i), tp.I64))
	}

	return id, nil
}

func (b *Builder) BeginFunc(id Expr) error {
	if b.f != nil {
		return errors.New("function %v is not finished", b.f.Name)
	}

	f := b.Package.Func(id)
	if f == nil {
		return errors.New("not a function: %v", id)
	}

	if f.Code != nil {
		return errors.New("function %v is already defined", f.Name)
	}

	b.f = &funContext{
		Func:   f,
		id:     id,
		labels: map[Label]*block{},
	}

	entry := b.NewBlock("entry")
	b.SetBlock(entry)

	b.f.cur.code = append(b.f.cur.code, f.In...)

	return nil
}

func (b *Builder) Param(id Expr, i int) Expr {
	f := b.Package.Func(id)
	if f == nil || i < 0 || i >= len(f.In) {
		b.fail("no param %d in %v", i, id)
		return Nil
	}

	return f.In[i]
}

func (b *Builder) EndFunc(id Expr) (err error) {
	if b.err != nil {
		return b.err
	}

	if b.f == nil || b.f.id != id {
		return errors.New("function %v is not started", id)
	}

	f := b.f
	b.f = nil

	code := []Expr{}

	for _, bl := range f.blocks {
		if len(bl.code) == 0 || !Terminator(b.Exprs[bl.code[len(bl.code)-1]]) {
			return errors.New("%v: block %v (%v) is not terminated", f.Name, bl.lab, bl.name)
		}

		code = append(code, bl.labid)
		code = append(code, bl.code...)
	}

	f.Code = code

	return nil
}

// AbortFunc drops the body being built.
// The function stays declared without code.
func (b *Builder) AbortFunc(id Expr) {
	if b.f != nil && b.f.id == id {
		b.f = nil
	}
}

func (b *Builder) Const(t tp.Int, v int64) Expr {
	return b.emit(Imm(v), t)
}

func (b *Builder) Neg(x Expr) Expr {
	return b.emit(Neg{X: x}, b.typeOf(x))
}

func (b *Builder) Add(l, r Expr) Expr {
	return b.emit(Add{L: l, R: r}, b.binType(l, r))
}

func (b *Builder) Sub(l, r Expr) Expr {
	return b.emit(Sub{L: l, R: r}, b.binType(l, r))
}

func (b *Builder) Mul(l, r Expr) Expr {
	return b.emit(Mul{L: l, R: r}, b.binType(l, r))
}

func (b *Builder) Div(l, r Expr) Expr {
	return b.emit(Div{L: l, R: r}, b.binType(l, r))
}

func (b *Builder) Cmp(c Cond, l, r Expr) Expr {
	if !c.Valid() {
		b.fail("bad condition: %q", c)
	}

	b.binType(l, r)

	return b.emit(Cmp{Cond: c, L: l, R: r}, tp.Bool)
}

func (b *Builder) Zext(x Expr, t tp.Int) Expr {
	if xt := b.typeOf(x); xt.Bits > t.Bits {
		b.fail("zext %v to narrower %v", xt, t)
	}

	return b.emit(Zext{X: x}, t)
}

// TypeOf returns the integer type of x.
func (b *Builder) TypeOf(x Expr) tp.Int {
	return b.typeOf(x)
}

func (b *Builder) NewBlock(name string) Label {
	if b.f == nil {
		b.fail("block outside of function")
		return -1
	}

	lab := b.label()

	bl := &block{
		name:  name,
		lab:   lab,
		labid: b.alloc(lab, nil),
	}

	b.f.blocks = append(b.f.blocks, bl)
	b.f.labels[lab] = bl

	return lab
}

func (b *Builder) Block() Label {
	if b.f == nil || b.f.cur == nil {
		return -1
	}

	return b.f.cur.lab
}

func (b *Builder) SetBlock(l Label) {
	if b.f == nil {
		b.fail("block outside of function")
		return
	}

	bl, ok := b.f.labels[l]
	if !ok {
		b.fail("no such block: %v", l)
		return
	}

	b.f.cur = bl
}

func (b *Builder) Branch(to Label) {
	b.term(B{Label: to})
}

// BranchIf jumps to then if x is not zero and to els otherwise.
func (b *Builder) BranchIf(x Expr, then, els Label) {
	b.emit(BCond{Expr: x, Cond: NotEq, Label: then}, nil)
	b.term(B{Label: els})
}

// Phi must be emitted before any other instruction of the block.
func (b *Builder) Phi(t tp.Int, vals []Expr, from []Label) Expr {
	if len(vals) != len(from) {
		b.fail("phi: %d values from %d blocks", len(vals), len(from))
		return Nil
	}

	phi := make(Phi, len(vals))

	for i, v := range vals {
		if vt := b.typeOf(v); vt != t {
			b.fail("phi: value %v of type %v merged into %v", v, vt, t)
		}

		phi[i] = PhiBranch{B: from[i], Expr: v}
	}

	if bl := b.cur(); bl != nil {
		for _, id := range bl.code {
			if _, ok := b.Exprs[id].(Phi); !ok {
				b.fail("phi after instruction in block %v", bl.lab)
				break
			}
		}
	}

	return b.emit(phi, t)
}

func (b *Builder) Call(f Expr, args []Expr) Expr {
	fn := b.Package.Func(f)
	if fn == nil {
		b.fail("call of non-function %v", f)
		return Nil
	}

	if len(args) != len(fn.In) {
		b.fail("call %v: %d args for %d params", fn.Name, len(args), len(fn.In))
	}

	return b.emit(Call{Func: f, In: args}, fn.Out)
}

func (b *Builder) Trap(code TrapCode) {
	b.term(Trap{Code: code})
}

func (b *Builder) Ret(x Expr) {
	if t := b.typeOf(x); t != tp.I64 {
		b.fail("return of %v", t)
	}

	b.term(Ret{Expr: x})
}

func (b *Builder) term(x any) {
	b.emit(x, nil)

	if bl := b.cur(); bl != nil {
		b.f.cur = nil
	}
}

func (b *Builder) emit(x any, t tp.Type) Expr {
	bl := b.cur()
	if bl == nil {
		b.fail("%T emitted out of block", x)
		return Nil
	}

	id := b.alloc(x, t)
	bl.code = append(bl.code, id)

	return id
}

func (b *Builder) cur() *block {
	if b.f == nil {
		return nil
	}

	return b.f.cur
}

func (b *Builder) binType(l, r Expr) tp.Int {
	lt, rt := b.typeOf(l), b.typeOf(r)
	if lt != rt {
		b.fail("operand types mismatch: %v and %v", lt, rt)
	}

	return lt
}

func (b *Builder) typeOf(x Expr) tp.Int {
	if x < 0 || int(x) >= len(b.EType) {
		b.fail("bad expr: %v", x)
		return tp.I64
	}

	t, ok := b.EType[x].(tp.Int)
	if !ok {
		b.fail("not an integer: %v (%T)", x, b.EType[x])
		return tp.I64
	}

	return t
}

func (b *Builder) fail(f string, args ...any) {
	if b.err != nil {
		return
	}

	b.err = errors.New(f, args...)
}

func (b *Builder) alloc(x any, t tp.Type) Expr {
	id := Expr(len(b.Exprs))

	b.Exprs = append(b.Exprs, x)
	b.EType = append(b.EType, t)

	return id
}

func (b *Builder) label() Label {
	l := b.nextlabel
	b.nextlabel++

	return l
}
