package back

import (
	"tlog.app/go/errors"

	"github.com/slowlang/tiny/compiler/ir"
	"github.com/slowlang/tiny/compiler/tp"
)

func (c *funContext) op(id ir.Expr, x any) (o op, err error) {
	d := c.regs[id]

	regs := func(ids ...ir.Expr) ([]int, error) {
		rs := make([]int, len(ids))

		for i, x := range ids {
			rs[i], err = c.reg(x)
			if err != nil {
				return nil, err
			}
		}

		return rs, nil
	}

	binary := func(l, r ir.Expr, f func(x, y int64) int64) (op, error) {
		rs, err := regs(l, r)
		if err != nil {
			return nil, err
		}

		a, b := rs[0], rs[1]

		return func(e *exec, r []int64) error {
			r[d] = f(r[a], r[b])
			return nil
		}, nil
	}

	switch x := x.(type) {
	case ir.Arg:
		return func(e *exec, r []int64) error { return nil }, nil
	case ir.Imm:
		v := int64(x)

		if t, ok := c.pkg.EType[id].(tp.Int); ok && t == tp.Bool {
			v &= 1
		}

		return func(e *exec, r []int64) error {
			r[d] = v
			return nil
		}, nil
	case ir.Neg:
		a, err := c.reg(x.X)
		if err != nil {
			return nil, err
		}

		return func(e *exec, r []int64) error {
			r[d] = -r[a]
			return nil
		}, nil
	case ir.Zext:
		a, err := c.reg(x.X)
		if err != nil {
			return nil, err
		}

		return func(e *exec, r []int64) error {
			r[d] = r[a]
			return nil
		}, nil
	case ir.Add:
		return binary(x.L, x.R, func(x, y int64) int64 { return x + y })
	case ir.Sub:
		return binary(x.L, x.R, func(x, y int64) int64 { return x - y })
	case ir.Mul:
		return binary(x.L, x.R, func(x, y int64) int64 { return x * y })
	case ir.Cmp:
		if !x.Cond.Valid() {
			return nil, errors.New("bad condition %q", x.Cond)
		}

		cond := x.Cond

		return binary(x.L, x.R, func(x, y int64) int64 {
			if cond.Eval(x, y) {
				return 1
			}

			return 0
		})
	case ir.Div:
		rs, err := regs(x.L, x.R)
		if err != nil {
			return nil, err
		}

		a, b := rs[0], rs[1]
		name := c.Name

		// MinInt64 / -1 wraps to MinInt64
		return func(e *exec, r []int64) error {
			if r[b] == 0 {
				return &RuntimeError{Kind: DivisionByZero, Func: name}
			}

			r[d] = r[a] / r[b]

			return nil
		}, nil
	case ir.Call:
		callee, ok := c.byID[x.Func]
		if !ok {
			return nil, errors.New("call of unknown function %v", x.Func)
		}

		if len(x.In) != callee.params {
			return nil, errors.New("call %v: %d args for %d params", callee.name, len(x.In), callee.params)
		}

		in, err := regs(x.In...)
		if err != nil {
			return nil, err
		}

		return func(e *exec, r []int64) error {
			args := make([]int64, len(in))

			for i, reg := range in {
				args[i] = r[reg]
			}

			res, err := e.call(callee, args)
			if err != nil {
				return err
			}

			r[d] = res

			return nil
		}, nil
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}
}
