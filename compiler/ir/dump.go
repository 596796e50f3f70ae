package ir

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
)

// Dump renders the package in a readable listing.
func Dump(b []byte, p *Package) (_ []byte, err error) {
	for i, id := range p.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = DumpFunc(b, p, id)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func DumpFunc(b []byte, p *Package, id Expr) (_ []byte, err error) {
	f := p.Func(id)
	if f == nil {
		return nil, errors.New("not a function: %v", id)
	}

	b = hfmt.Appendf(b, "func %s(", f.Name)

	for i, in := range f.In {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "e%d", in)
	}

	b = hfmt.Appendf(b, ") %v\n", f.Out)

	for _, id := range f.Code {
		b, err = dumpExpr(b, p, id)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func dumpExpr(b []byte, p *Package, id Expr) ([]byte, error) {
	val := func(f string, args ...any) []byte {
		b = hfmt.Appendf(b, "\te%d = ", id)
		b = hfmt.Appendf(b, f, args...)
		b = hfmt.Appendf(b, "\t: %v\n", p.EType[id])

		return b
	}

	switch x := p.Exprs[id].(type) {
	case Label:
		b = hfmt.Appendf(b, "L%d:\n", x)
	case Arg:
		b = val("arg %d", int(x))
	case Imm:
		b = val("imm %d", int64(x))
	case Neg:
		b = val("neg e%d", x.X)
	case Add:
		b = val("add e%d, e%d", x.L, x.R)
	case Sub:
		b = val("sub e%d, e%d", x.L, x.R)
	case Mul:
		b = val("mul e%d, e%d", x.L, x.R)
	case Div:
		b = val("div e%d, e%d", x.L, x.R)
	case Cmp:
		b = val("cmp e%d %s e%d", x.L, x.Cond, x.R)
	case Zext:
		b = val("zext e%d", x.X)
	case Phi:
		b = hfmt.Appendf(b, "\te%d = phi", id)

		for _, br := range x {
			b = hfmt.Appendf(b, " [L%d: e%d]", br.B, br.Expr)
		}

		b = hfmt.Appendf(b, "\t: %v\n", p.EType[id])
	case Call:
		name := "?"
		if f := p.Func(x.Func); f != nil {
			name = f.Name
		}

		b = hfmt.Appendf(b, "\te%d = call %s(", id, name)

		for i, a := range x.In {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = hfmt.Appendf(b, "e%d", a)
		}

		b = hfmt.Appendf(b, ")\t: %v\n", p.EType[id])
	case B:
		b = hfmt.Appendf(b, "\tb L%d\n", x.Label)
	case BCond:
		b = hfmt.Appendf(b, "\tb.if e%d %s 0, L%d\n", x.Expr, x.Cond, x.Label)
	case Ret:
		b = hfmt.Appendf(b, "\tret e%d\n", x.Expr)
	case Trap:
		b = hfmt.Appendf(b, "\ttrap %v\n", x.Code)
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}
