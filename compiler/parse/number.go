package parse

import (
	"context"
	"strconv"

	"github.com/slowlang/tiny/compiler/ast"
)

// integer parses a non-negative decimal literal.
// A leading zero is a literal on its own, so 07 is not a number.
func (s *State) integer(ctx context.Context, st int) (x ast.Num, i int, err error) {
	i = SpaceAll.Skip(s.b, st)
	pos := i

	if i == len(s.b) || !isDigit(s.b[i]) {
		return x, st, s.fail(i, "integer")
	}

	if s.b[i] == '0' {
		i++
	} else {
		i = skipDigits(s.b, i)
	}

	v, err := strconv.ParseInt(string(s.b[pos:i]), 10, 64)
	if err != nil {
		s.pos, s.want = pos, s.want[:0]

		return x, st, s.fail(pos, "integer in signed 64-bit range")
	}

	return ast.Num{
		Base:  ast.Base{Pos: pos, End: i},
		Value: v,
	}, i, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func skipDigits(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}

	return i
}
