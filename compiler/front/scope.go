package front

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	// Scope binds parameter names of one function to backend values.
	Scope[V, B, F any] struct {
		*pkgContext[V, B, F]

		def *funcDef[F]

		vars map[string]V
	}
)

func newScope[V, B, F any](p *pkgContext[V, B, F], d *funcDef[F]) *Scope[V, B, F] {
	return &Scope[V, B, F]{
		pkgContext: p,
		def:        d,
		vars:       make(map[string]V, len(d.fn.Params)),
	}
}

func (s *Scope[V, B, F]) define(name string, v V) {
	s.vars[name] = v

	tlog.V("scope").Printw("define var", "fn", s.def.fn.Name.Name, "name", name, "from", loc.Callers(1, 3))
}

func (s *Scope[V, B, F]) lookup(name string) (v V, ok bool) {
	v, ok = s.vars[name]

	return
}

func (s *Scope[V, B, F]) errorf(kind Kind, name string, pos int) *SemanticError {
	return &SemanticError{
		Kind: kind,
		Name: name,
		Func: s.def.fn.Name.Name,
		Pos:  pos,
	}
}
