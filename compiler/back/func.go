package back

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/set"
)

type (
	function struct {
		name   string
		params int

		nregs   int
		maxPhis int

		args   []int
		blocks []*fblock
	}

	fblock struct {
		lab ir.Label

		phis []phiMove
		ops  []op
		term term
	}

	phiMove struct {
		dst int
		src map[int]int // pred block -> reg
	}

	op func(e *exec, r []int64) error

	termKind int

	term struct {
		kind termKind

		x    int
		cond ir.Cond

		then, els int

		trap ir.TrapCode
	}

	// funContext is the state of translating one ir.Func.
	funContext struct {
		*Module
		*ir.Func

		fn *function

		regs   map[ir.Expr]int
		labels map[ir.Label]int

		// code of each block without its label
		code [][]ir.Expr

		preds []set.Bits[int]
	}
)

const (
	_ termKind = iota
	termJump
	termCond
	termRet
	termTrap
)

func (m *Module) compileFunc(ctx context.Context, fn *function, f *ir.Func) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", f.Name, "in", f.In)
	defer tr.Finish("err", &err)

	if len(f.Code) == 0 {
		return errors.New("no body")
	}

	if tr.If("dump_code") {
		for i, id := range f.Code {
			x := m.pkg.Exprs[id]

			tr.Printw("code", "i", i, "id", id, "tp", m.pkg.EType[id], "typ", tlog.NextAsType, x, "val", x)
		}
	}

	c := &funContext{
		Module: m,
		Func:   f,
		fn:     fn,
		regs:   map[ir.Expr]int{},
		labels: map[ir.Label]int{},
	}

	err = c.split()
	if err != nil {
		return errors.Wrap(err, "split blocks")
	}

	for i, in := range f.In {
		if a, ok := m.pkg.Exprs[in].(ir.Arg); !ok || int(a) != i {
			return errors.New("param %d: bad arg expr %v", i, in)
		}

		r, ok := c.regs[in]
		if !ok {
			return errors.New("param %d: not in code", i)
		}

		fn.args = append(fn.args, r)
	}

	fn.blocks = make([]*fblock, len(c.code))

	for i := range c.code {
		fn.blocks[i], err = c.block(i)
		if err != nil {
			return errors.Wrap(err, "block %v", c.blockLabel(i))
		}
	}

	err = c.walk(ctx)
	if err != nil {
		return errors.Wrap(err, "walk")
	}

	for i, b := range fn.blocks {
		err = c.checkPhis(i, b)
		if err != nil {
			return errors.Wrap(err, "block %v", b.lab)
		}
	}

	tr.V("func_stats").Printw("func compiled", "blocks", len(fn.blocks), "regs", fn.nregs, "max_phis", fn.maxPhis)

	return nil
}

// split cuts the code into blocks and assigns a register to every value.
func (c *funContext) split() error {
	for i, id := range c.Code {
		if id < 0 || int(id) >= len(c.pkg.Exprs) {
			return errors.New("bad expr at %d: %v", i, id)
		}

		switch x := c.pkg.Exprs[id].(type) {
		case ir.Label:
			if _, ok := c.labels[x]; ok {
				return errors.New("label %v redefined", x)
			}

			c.labels[x] = len(c.code)
			c.code = append(c.code, nil)

			continue
		case ir.B, ir.BCond, ir.Ret, ir.Trap:
		default:
			if _, ok := c.regs[id]; ok {
				return errors.New("expr %v defined twice", id)
			}

			c.regs[id] = c.fn.nregs
			c.fn.nregs++
		}

		if len(c.code) == 0 {
			return errors.New("code doesn't start with a label")
		}

		l := len(c.code) - 1
		c.code[l] = append(c.code[l], id)
	}

	return nil
}

func (c *funContext) block(bi int) (b *fblock, err error) {
	b = &fblock{
		lab: c.blockLabel(bi),
	}

	code := c.code[bi]

	for i := 0; i < len(code); i++ {
		id := code[i]
		x := c.pkg.Exprs[id]

		if b.term.kind != 0 {
			return nil, errors.New("expr %v after terminator", id)
		}

		switch x := x.(type) {
		case ir.Phi:
			if len(b.ops) != 0 {
				return nil, errors.New("phi %v after instruction", id)
			}

			b.phis = append(b.phis, phiMove{dst: c.regs[id]})

			if len(b.phis) > c.fn.maxPhis {
				c.fn.maxPhis = len(b.phis)
			}

			continue
		case ir.BCond:
			if !x.Cond.Valid() {
				return nil, errors.New("bcond %v: bad condition %q", id, x.Cond)
			}

			if i+1 == len(code) {
				return nil, errors.New("bcond %v is not followed by b", id)
			}

			els, ok := c.pkg.Exprs[code[i+1]].(ir.B)
			if !ok {
				return nil, errors.New("bcond %v is followed by %T", id, c.pkg.Exprs[code[i+1]])
			}

			i++

			b.term = term{kind: termCond, cond: x.Cond}

			b.term.x, err = c.reg(x.Expr)
			if err == nil {
				b.term.then, err = c.target(x.Label)
			}
			if err == nil {
				b.term.els, err = c.target(els.Label)
			}
		case ir.B:
			b.term = term{kind: termJump}
			b.term.then, err = c.target(x.Label)
		case ir.Ret:
			b.term = term{kind: termRet}
			b.term.x, err = c.reg(x.Expr)
		case ir.Trap:
			if x.Code != ir.TrapDivByZero {
				return nil, errors.New("trap %v: unsupported code %d", id, int(x.Code))
			}

			b.term = term{kind: termTrap, trap: x.Code}
		default:
			var o op

			o, err = c.op(id, x)
			if err == nil {
				b.ops = append(b.ops, o)
			}
		}

		if err != nil {
			return nil, errors.Wrap(err, "expr %v", id)
		}
	}

	if b.term.kind == 0 {
		return nil, errors.New("not terminated")
	}

	return b, nil
}

// walk finds reachable blocks and their predecessors.
func (c *funContext) walk(ctx context.Context) error {
	tr := tlog.SpanFromContext(ctx)

	c.preds = make([]set.Bits[int], len(c.code))

	for i := range c.preds {
		c.preds[i] = set.MakeBits(0)
	}

	seen := set.MakeBits(0)
	q := heap.Heap[int]{Less: func(d []int, i, j int) bool { return d[i] < d[j] }}

	q.Push(0)
	seen.Set(0)

	for q.Len() != 0 {
		bi := q.Pop()
		t := c.fn.blocks[bi].term

		var next []int

		switch t.kind {
		case termJump:
			next = []int{t.then}
		case termCond:
			next = []int{t.then, t.els}
		}

		for _, n := range next {
			c.preds[n].Set(bi)

			if seen.IsSet(n) {
				continue
			}

			seen.Set(n)
			q.Push(n)
		}
	}

	if n := seen.Size(); n != len(c.code) {
		tr.V("unreachable").Printw("unreachable blocks", "func", c.Name, "reachable", seen, "blocks", len(c.code))
	}

	return nil
}

func (c *funContext) checkPhis(bi int, b *fblock) error {
	if len(b.phis) == 0 {
		return nil
	}

	if bi == 0 {
		return errors.New("phi in entry block")
	}

	preds := c.preds[bi]

	for i := range b.phis {
		id := c.code[bi][i]
		phi := c.pkg.Exprs[id].(ir.Phi)

		if preds.Size() != 0 && len(phi) != preds.Size() {
			return errors.New("phi %v: %d branches for %d predecessors", id, len(phi), preds.Size())
		}

		b.phis[i].src = make(map[int]int, len(phi))

		for _, br := range phi {
			from, err := c.target(br.B)
			if err != nil {
				return errors.Wrap(err, "phi %v", id)
			}

			if preds.Size() != 0 && !preds.IsSet(from) {
				return errors.New("phi %v: %v is not a predecessor", id, br.B)
			}

			b.phis[i].src[from], err = c.reg(br.Expr)
			if err != nil {
				return errors.Wrap(err, "phi %v", id)
			}
		}
	}

	return nil
}

func (c *funContext) reg(x ir.Expr) (int, error) {
	r, ok := c.regs[x]
	if !ok {
		return 0, errors.New("use of undefined e%d", x)
	}

	return r, nil
}

func (c *funContext) target(l ir.Label) (int, error) {
	bi, ok := c.labels[l]
	if !ok {
		return 0, errors.New("branch to undefined label %v", l)
	}

	return bi, nil
}

func (c *funContext) blockLabel(bi int) ir.Label {
	for l, i := range c.labels {
		if i == bi {
			return l
		}
	}

	return -1
}

func (fn *function) run(e *exec, args []int64) (int64, error) {
	r := make([]int64, fn.nregs)

	for i, reg := range fn.args {
		r[reg] = args[i]
	}

	var tmp []int64
	if fn.maxPhis != 0 {
		tmp = make([]int64, fn.maxPhis)
	}

	from, cur := -1, 0

	for {
		b := fn.blocks[cur]

		if from >= 0 {
			for i, ph := range b.phis {
				tmp[i] = r[ph.src[from]]
			}

			for i, ph := range b.phis {
				r[ph.dst] = tmp[i]
			}
		}

		for _, o := range b.ops {
			if err := o(e, r); err != nil {
				return 0, err
			}
		}

		t := b.term

		switch t.kind {
		case termJump:
			from, cur = cur, t.then
		case termCond:
			if t.cond.Eval(r[t.x], 0) {
				from, cur = cur, t.then
			} else {
				from, cur = cur, t.els
			}
		case termRet:
			return r[t.x], nil
		case termTrap:
			return 0, trapError(t.trap, fn.name)
		}
	}
}
