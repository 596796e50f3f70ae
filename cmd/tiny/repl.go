package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tiny/compiler"
)

type (
	session struct {
		defs []string
		n    int
	}
)

const (
	historyFile = ".tiny_history"

	promptMain = "tiny> "
	promptCont = "  ... "
)

func replAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opts, closer, err := options(c)
	if err != nil {
		return err
	}

	defer closer()

	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	hist := filepath.Join(home, historyFile)

	if f, err := os.Open(hist); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	defer func() {
		if f, err := os.Create(hist); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := &session{}

	fmt.Println("fn definitions are kept for the session, other lines are evaluated; :defs, :reset, :quit")

	for {
		text, err := readInput(ln)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read line")
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(text, "\n", " "))

		switch text {
		case ":quit", ":q":
			return nil
		case ":reset":
			s.defs = s.defs[:0]
			continue
		case ":defs":
			for _, d := range s.defs {
				fmt.Println(d)
			}

			continue
		}

		res, ok, err := s.eval(ctx, text, opts)
		if err != nil {
			printErrors(err)
			continue
		}

		if ok {
			fmt.Println(res)
		}
	}
}

// eval adds fn definitions to the session or evaluates an expression.
func (s *session) eval(ctx context.Context, text string, opts []compiler.Option) (res int64, ok bool, err error) {
	if strings.HasPrefix(text, "fn") && (len(text) == 2 || !isIdentChar(text[2])) {
		src := s.source(text)

		_, err = compiler.Compile(ctx, "<repl>", []byte(src), opts...)
		if err != nil {
			return 0, false, err
		}

		s.defs = append(s.defs, text)

		return 0, false, nil
	}

	s.n++
	entry := fmt.Sprintf("_expr%d", s.n)

	src := s.source(fmt.Sprintf("fn %s() {\n%s\n}", entry, text))

	opts = append(opts[:len(opts):len(opts)], compiler.WithEntry(entry))

	res, err = compiler.Run(ctx, "<repl>", []byte(src), opts...)
	if err != nil {
		return 0, false, err
	}

	return res, true, nil
}

func (s *session) source(add string) string {
	return strings.Join(append(s.defs[:len(s.defs):len(s.defs)], add), "\n")
}

// readInput reads lines until they make complete input.
// Unbalanced braces or parentheses continue on the next line.
func readInput(ln *liner.State) (string, error) {
	text, err := ln.Prompt(promptMain)
	if err != nil {
		return "", err
	}

	for depth(text) > 0 {
		more, err := ln.Prompt(promptCont)
		if err != nil {
			return "", err
		}

		text += "\n" + more
	}

	return text, nil
}

func depth(text string) (d int) {
	for _, c := range text {
		switch c {
		case '{', '(':
			d++
		case '}', ')':
			d--
		}
	}

	return d
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
