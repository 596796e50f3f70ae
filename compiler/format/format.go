package format

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/tiny/compiler/ast"
)

// Tree renders x in constructor form: Add(Num(1), Mul(Num(2), Var(x))).
func Tree(b []byte, x ast.Node) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Code:
		for i, f := range x.Funcs {
			if i != 0 {
				b = append(b, '\n')
			}

			var err error
			b, err = Tree(b, f)
			if err != nil {
				return nil, err
			}
		}

		return b, nil
	case *ast.Fn:
		b = hfmt.Appendf(b, "Fn(%s, [", x.Name.Name)
		b = params(b, x.Params)
		b = append(b, "], "...)

		b, err := Tree(b, x.Body.Ret)
		if err != nil {
			return nil, errors.Wrap(err, "fn %v", x.Name.Name)
		}

		return append(b, ')'), nil
	case ast.Num:
		return hfmt.Appendf(b, "Num(%d)", x.Value), nil
	case ast.Var:
		return hfmt.Appendf(b, "Var(%s)", x.Name), nil
	case ast.Neg:
		return call(b, "Neg", x.X)
	case ast.Add:
		return call(b, "Add", x.Left, x.Right)
	case ast.Sub:
		return call(b, "Sub", x.Left, x.Right)
	case ast.Mul:
		return call(b, "Mul", x.Left, x.Right)
	case ast.Div:
		return call(b, "Div", x.Left, x.Right)
	case ast.Bigger:
		return call(b, "Bigger", x.Left, x.Right)
	case ast.Smaller:
		return call(b, "Smaller", x.Left, x.Right)
	case ast.If:
		return call(b, "If", x.Cond, x.Then, x.Else)
	case ast.Call:
		b = hfmt.Appendf(b, "Call(%s, [", x.Name)

		b, err := list(b, x.Args...)
		if err != nil {
			return nil, errors.Wrap(err, "call %v", x.Name)
		}

		return append(b, "])"...), nil
	default:
		return nil, errors.New("unsupported node: %T", x)
	}
}

// TreeString is Tree to a string. Unsupported nodes render as their error.
func TreeString(x ast.Node) string {
	b, err := Tree(nil, x)
	if err != nil {
		return err.Error()
	}

	return string(b)
}

func call(b []byte, name string, args ...ast.Expr) (_ []byte, err error) {
	b = append(b, name...)
	b = append(b, '(')

	b, err = list(b, args...)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return append(b, ')'), nil
}

func list(b []byte, args ...ast.Expr) (_ []byte, err error) {
	for i, a := range args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b, err = Tree(b, a)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func params(b []byte, l []ast.Ident) []byte {
	for i, p := range l {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, p.Name...)
	}

	return b
}
