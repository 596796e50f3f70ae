package parse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler/ast"
)

type (
	State struct {
		name string
		b    []byte

		// furthest failure
		pos  int
		want []string
	}

	// SyntaxError is the furthest point the parser reached
	// and what it expected to find there.
	SyntaxError struct {
		File     string
		Pos      int
		Line     int
		Col      int
		Expected []string
		Found    string
	}
)

func ParseFile(ctx context.Context, name string) (*ast.Code, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return New(name, text).Parse(ctx)
}

func Parse(ctx context.Context, text []byte) (*ast.Code, error) {
	return New("", text).Parse(ctx)
}

func New(name string, text []byte) *State {
	return &State{
		name: name,
		b:    text,
		pos:  -1,
	}
}

// Parse parses the whole text.
// On failure no partial tree is returned and the error is *SyntaxError.
func (s *State) Parse(ctx context.Context) (c *ast.Code, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse: code", "name", s.name, "size", len(s.b))
	defer tr.Finish("err", &err)

	c, _, err = s.parseCode(ctx, 0)
	if err != nil {
		return nil, err
	}

	tr.Printw("parsed", "funcs", len(c.Funcs))

	return c, nil
}

// expect records a failed expectation at pos.
// Only expectations at the furthest position are kept.
func (s *State) expect(pos int, what string) {
	if pos < s.pos {
		return
	}

	if pos > s.pos {
		s.pos = pos
		s.want = s.want[:0]
	}

	for _, w := range s.want {
		if w == what {
			return
		}
	}

	s.want = append(s.want, what)
}

// fail records expectations at pos and returns the furthest failure.
func (s *State) fail(pos int, what ...string) error {
	for _, w := range what {
		s.expect(pos, w)
	}

	return s.syntaxError()
}

func (s *State) syntaxError() *SyntaxError {
	line, col := s.lineCol(s.pos)

	return &SyntaxError{
		File:     s.name,
		Pos:      s.pos,
		Line:     line,
		Col:      col,
		Expected: append([]string{}, s.want...),
		Found:    s.found(s.pos),
	}
}

func (s *State) lineCol(pos int) (line, col int) {
	return LineCol(s.b, pos)
}

// LineCol converts byte offset into 1-based line and column.
func LineCol(text []byte, pos int) (line, col int) {
	if pos > len(text) {
		pos = len(text)
	}

	line = 1 + bytes.Count(text[:pos], []byte{'\n'})
	col = 1 + pos - (bytes.LastIndexByte(text[:pos], '\n') + 1)

	return line, col
}

func (s *State) found(pos int) string {
	if pos >= len(s.b) {
		return "end of input"
	}

	c := s.b[pos]

	switch {
	case isDigit(c):
		return "integer " + strconv.Quote(string(s.b[pos:skipDigits(s.b, pos)]))
	case isIdentStart(c):
		return "identifier " + strconv.Quote(string(s.b[pos:skipIdent(s.b, pos)]))
	}

	return strconv.QuoteRune(rune(c))
}

func (e *SyntaxError) Error() string {
	var b strings.Builder

	if e.File != "" {
		fmt.Fprintf(&b, "%s:", e.File)
	}

	fmt.Fprintf(&b, "%d:%d: syntax error: %s", e.Line, e.Col, e.Message())

	return b.String()
}

// Message is the error description without position.
func (e *SyntaxError) Message() string {
	return fmt.Sprintf("expected %s, found %s", joinHuman(e.Expected), e.Found)
}

func joinHuman(l []string) string {
	switch len(l) {
	case 0:
		return "<none>"
	case 1:
		return l[0]
	}

	var b strings.Builder

	for i, w := range l {
		if i+1 == len(l) {
			b.WriteString(" or ")
		} else if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(w)
	}

	return b.String()
}
