package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tiny/compiler"
	"github.com/slowlang/tiny/compiler/back"
)

func TestWithCloser(t *testing.T) {
	ctx := context.Background()

	var dump bytes.Buffer
	closed := 0

	closer := func() { closed++ }

	_, err := withCloser(closer, func() (int64, error) {
		return compiler.Run(ctx, "t.tiny", []byte("fn main(){10/0}"), compiler.DumpIR(&dump))
	})

	var rerr *back.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, closed)
	assert.Contains(t, dump.String(), "trap division by zero")

	res, err := withCloser(closer, func() (int64, error) {
		return compiler.Run(ctx, "t.tiny", []byte("fn main(){7}"))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res)
	assert.Equal(t, 2, closed)
}

func TestPosition(t *testing.T) {
	assert.Equal(t, "", position("", 0, 0))
	assert.Equal(t, "a.tiny:", position("a.tiny", 0, 0))
	assert.Equal(t, "2:3:", position("", 2, 3))
	assert.Equal(t, "a.tiny:2:3:", position("a.tiny", 2, 3))
}
