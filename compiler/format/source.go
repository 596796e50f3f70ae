package format

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/tiny/compiler/ast"
)

const (
	precIf = iota + 1
	precCompare
	precSum
	precProduct
	precUnary
	precAtom
)

// Source renders code back to parsable text with minimal parentheses.
func Source(b []byte, c *ast.Code) (_ []byte, err error) {
	for i, f := range c.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = app(b, 0, "fn %s(", f.Name.Name)
		b = params(b, f.Params)
		b = append(b, ") {\n"...)

		b = app(b, 1, "")

		b, err = expr(b, f.Body.Ret, precIf)
		if err != nil {
			return nil, errors.Wrap(err, "fn %v", f.Name.Name)
		}

		b = append(b, "\n}\n"...)
	}

	return b, nil
}

func expr(b []byte, x ast.Expr, min int) (_ []byte, err error) {
	p := prec(x)

	if p < min {
		b = append(b, '(')
	}

	switch x := x.(type) {
	case ast.Num:
		b = hfmt.Appendf(b, "%d", x.Value)
	case ast.Var:
		b = append(b, x.Name...)
	case ast.Neg:
		b = append(b, '-')

		b, err = expr(b, x.X, precUnary)
	case ast.Call:
		b = append(b, x.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = expr(b, a, precIf)
			if err != nil {
				return nil, errors.Wrap(err, "call %v", x.Name)
			}
		}

		b = append(b, ')')
	case ast.If:
		b = append(b, "if "...)

		b, err = expr(b, x.Cond, precIf)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, " { "...)

		b, err = expr(b, x.Then, precIf)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		b = append(b, " } else { "...)

		b, err = expr(b, x.Else, precIf)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		b = append(b, " }"...)
	default:
		op, l, r, ok := ast.Operands(x)
		if !ok {
			return nil, errors.New("unsupported expr: %T", x)
		}

		b, err = expr(b, l, p)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = append(b, ' ', op, ' ')

		b, err = expr(b, r, p+1)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	}

	if err != nil {
		return nil, err
	}

	if p < min {
		b = append(b, ')')
	}

	return b, nil
}

func prec(x ast.Expr) int {
	switch x.(type) {
	case ast.If:
		return precIf
	case ast.Bigger, ast.Smaller:
		return precCompare
	case ast.Add, ast.Sub:
		return precSum
	case ast.Mul, ast.Div:
		return precProduct
	case ast.Neg:
		return precUnary
	default:
		return precAtom
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
