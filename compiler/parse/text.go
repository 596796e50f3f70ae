package parse

import (
	"bytes"
	"context"
	"strconv"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
)

var keywords = []string{"fn", "if", "else"}

// sym consumes the fixed symbol p after optional spaces.
func (s *State) sym(ctx context.Context, st int, p string) (i int, ok bool) {
	if tr := tlog.SpanFromContext(ctx); tr.If("parse_token") {
		defer func() {
			tr.Printw("symbol", "st", st, "sym", p, "ok", ok, "from", loc.Callers(1, 3))
		}()
	}

	i = SpaceAll.Skip(s.b, st)

	if !bytes.HasPrefix(s.b[i:], []byte(p)) {
		s.expect(i, strconv.Quote(p))
		return st, false
	}

	return i + len(p), true
}

// keyword is like sym but the word must not continue as an identifier.
func (s *State) keyword(ctx context.Context, st int, kw string) (i int, ok bool) {
	i = SpaceAll.Skip(s.b, st)

	if !bytes.HasPrefix(s.b[i:], []byte(kw)) || skipIdent(s.b, i) != i+len(kw) {
		s.expect(i, strconv.Quote(kw))
		return st, false
	}

	return i + len(kw), true
}

func (s *State) ident(ctx context.Context, st int) (x ast.Ident, i int, err error) {
	i = SpaceAll.Skip(s.b, st)

	if i == len(s.b) || !isIdentStart(s.b[i]) {
		return x, st, s.fail(i, "identifier")
	}

	end := skipIdent(s.b, i)
	name := string(s.b[i:end])

	if isKeyword(name) {
		return x, st, s.fail(i, "identifier")
	}

	tlog.V("parse_token").Printw("ident", "pos", i, "name", name)

	return ast.Ident{
		Base: ast.Base{Pos: i, End: end},
		Name: name,
	}, end, nil
}

// peekIdent reports whether an identifier (not a keyword) starts after spaces.
func (s *State) peekIdent(st int) bool {
	i := SpaceAll.Skip(s.b, st)

	if i == len(s.b) || !isIdentStart(s.b[i]) {
		return false
	}

	return !isKeyword(string(s.b[i:skipIdent(s.b, i)]))
}

func isKeyword(w string) bool {
	for _, kw := range keywords {
		if w == kw {
			return true
		}
	}

	return false
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && isIdentChar(b[i]) {
		i++
	}

	return i
}
