package tp

import "fmt"

type (
	Type interface {
		Size() int
	}

	Func struct {
		In  []Type
		Out []Type
	}

	Int struct {
		Bits   int16
		Signed bool
	}
)

var (
	I64  = Int{Bits: 64, Signed: true}
	Bool = Int{Bits: 1}
)

func (x Int) Size() int {
	return (int(x.Bits) + 7) / 8
}

func (x Int) String() string {
	if x.Bits == 1 {
		return "bool"
	}

	if x.Signed {
		return fmt.Sprintf("i%d", x.Bits)
	}

	return fmt.Sprintf("u%d", x.Bits)
}

func (x *Func) Size() int {
	return 8
}

func (x *Func) String() string {
	return fmt.Sprintf("func(%v) %v", x.In, x.Out)
}

// Ints returns a function type taking and returning n and 1 i64 values.
func Ints(n int) *Func {
	f := &Func{
		In:  make([]Type, n),
		Out: []Type{I64},
	}

	for i := range f.In {
		f.In[i] = I64
	}

	return f
}
