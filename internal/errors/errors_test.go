package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lua-embed/luabridge/internal/luaerr"
)

func TestFormatIncludesSourceLineAndCaret(t *testing.T) {
	source := "local x = 1\nlocal y = x +\nreturn y"
	err := &luaerr.Error{
		Kind:    luaerr.Syntax,
		Message: "unexpected symbol near '<eof>'",
		Frames:  []luaerr.Frame{{Source: "test", Line: 2}},
	}

	se := NewSourceError(err, source, "test.lua")
	out := se.Format(false)

	require.Contains(t, out, "syntax")
	assert.Contains(t, out, "local y = x +")
	assert.Contains(t, out, "test.lua:2")
	assert.Contains(t, out, "^")
}

func TestFormatWithoutFramesOmitsSourceLine(t *testing.T) {
	err := &luaerr.Error{Kind: luaerr.Runtime, Message: "boom"}
	se := NewSourceError(err, "return 1", "")
	out := se.Format(false)

	assert.Equal(t, "runtime: boom", out)
}

func TestFormatAllNumbersMultipleErrors(t *testing.T) {
	errs := []*SourceError{
		NewSourceError(&luaerr.Error{Kind: luaerr.Runtime, Message: "first"}, "", ""),
		NewSourceError(&luaerr.Error{Kind: luaerr.Runtime, Message: "second"}, "", ""),
	}

	out := FormatAll(errs, false)
	require.True(t, strings.Contains(out, "2 error(s)"))
	assert.Contains(t, out, "[error 1 of 2]")
	assert.Contains(t, out, "[error 2 of 2]")
}
