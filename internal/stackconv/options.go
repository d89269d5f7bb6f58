// Package stackconv implements the stack converter (C2): push/pull between
// the universal value model (internal/value) and a github.com/Shopify/go-lua
// interpreter stack, per spec.md §4.2.
//
// Grounded on the teacher's FFI test suite (pkg/dwscript/ffi_test.go,
// ffi_arrays_maps_test.go) for the push/pull contract shape, and
// internal/interp/runtime/conversion.go for the numeric-promotion idiom
// generalized into internal/value.ToHost.
package stackconv

import "github.com/lua-embed/luabridge/internal/alloc"

// NilMode controls how the optional nil-interpretation mode affects
// *comparison* contexts; per spec.md §4.2 it MUST NOT alter conversion.
type NilMode int

const (
	NilStrict NilMode = iota
	NilLenient
	NilHostLike
)

// Options configures a single push/pull operation.
type Options struct {
	// MaxDepth bounds container nesting; exceeding it fails pull with
	// a *TooDeepError. Default 100 per spec.md §4.2.
	MaxDepth int
	// AllowFunctions, when false, converts pulled Lua functions to Nil
	// instead of registering a callable handle.
	AllowFunctions bool
	// NilMode affects only comparison helpers built on top of Pull, never
	// conversion itself.
	NilMode NilMode
	// Allocator is optional; when set, every push/pull meters an
	// approximate byte cost through it (see internal/alloc doc comment for
	// why this sits at the conversion boundary rather than a raw
	// lua_Alloc hook).
	Allocator *alloc.Shim
}

// DefaultOptions returns the spec.md default: unbounded functions allowed,
// depth capped at 100, strict nil semantics.
func DefaultOptions() Options {
	return Options{MaxDepth: 100, AllowFunctions: true, NilMode: NilStrict}
}
