package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	s := MakeBits(0)

	assert.False(t, s.IsSet(3))
	assert.Equal(t, 0, s.Size())

	s.Set(3)
	s.Set(64)
	s.Set(200)
	s.Set(3)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(64))
	assert.True(t, s.IsSet(200))
	assert.False(t, s.IsSet(4))
	assert.False(t, s.IsSet(1000))
	assert.Equal(t, 3, s.Size())

	var keys []int

	s.Range(func(k int) bool {
		keys = append(keys, k)
		return true
	})

	assert.Equal(t, []int{3, 64, 200}, keys)
}

func TestBitsBase(t *testing.T) {
	s := MakeBits(int64(100))

	s.Set(100)
	s.Set(170)

	assert.True(t, s.IsSet(170))
	assert.False(t, s.IsSet(99))

	var first int64

	s.Range(func(k int64) bool {
		first = k
		return false
	})

	assert.Equal(t, int64(100), first)
}
