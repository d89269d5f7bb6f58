package stackconv

import (
	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/value"
)

// approxSlotCost and approxHeaderCost are the byte-accounting estimates the
// allocator shim (C5) meters at this boundary; see internal/alloc's doc
// comment for why metering happens here rather than at a raw lua_Alloc
// seam.
const (
	approxSlotCost   = 16
	approxHeaderCost = 32
)

// Push converts v onto the top of l's stack. Array becomes a 1-based
// sequence table; Object becomes a hash table with string keys; the
// destination table is pre-sized when the payload length is known
// (spec.md §4.2).
func Push(l *lua.State, reg *handle.Registry, opts Options, v value.Value) error {
	return pushValue(l, reg, opts, v)
}

func pushValue(l *lua.State, reg *handle.Registry, opts Options, v value.Value) error {
	switch t := v.(type) {
	case nil:
		l.PushNil()
	case value.Nil:
		l.PushNil()
	case value.Boolean:
		l.PushBoolean(bool(t))
		return meter(opts, 1)
	case value.Integer:
		l.PushInteger(int(t))
		return meter(opts, 8)
	case value.Number:
		l.PushNumber(float64(t))
		return meter(opts, 8)
	case *value.String:
		l.PushString(string(t.Bytes))
		return meter(opts, int64(len(t.Bytes))+approxHeaderCost)
	case *value.Array:
		return pushArray(l, reg, opts, t)
	case *value.Object:
		return pushObject(l, reg, opts, t)
	case *value.Function:
		return pushFunction(l, reg, opts, t)
	case *value.Userdata:
		return pushUserdata(l, reg, opts, t)
	default:
		return &UnsupportedTypeError{Kind: v.Kind().String()}
	}
	return nil
}

func pushArray(l *lua.State, reg *handle.Registry, opts Options, arr *value.Array) error {
	l.CreateTable(len(arr.Elements), 0)
	if err := meter(opts, int64(len(arr.Elements))*approxSlotCost+approxHeaderCost); err != nil {
		return err
	}
	for i, e := range arr.Elements {
		if err := pushValue(l, reg, opts, e); err != nil {
			return err
		}
		l.RawSetInt(-2, i+1) // 1-based sequence table
	}
	return nil
}

func pushObject(l *lua.State, reg *handle.Registry, opts Options, obj *value.Object) error {
	l.CreateTable(0, obj.Len())
	if err := meter(opts, int64(obj.Len())*approxSlotCost+approxHeaderCost); err != nil {
		return err
	}
	for _, k := range obj.Keys() {
		fv, _ := obj.Get(k)
		l.PushString(k)
		if err := pushValue(l, reg, opts, fv); err != nil {
			return err
		}
		l.SetTable(-3)
	}
	return nil
}

func pushFunction(l *lua.State, reg *handle.Registry, opts Options, fn *value.Function) error {
	c, ok := fn.Handle.(*handle.Callable)
	if !ok {
		l.PushNil()
		return nil
	}
	return reg.PushCallable(l, c)
}

func pushUserdata(l *lua.State, reg *handle.Registry, opts Options, ud *value.Userdata) error {
	if ud.Light {
		if lh, ok := ud.Handle.(interface{ Value() any }); ok {
			handle.CreateLightUserdata(l, ud.Handle.TypeName(), lh.Value())
			return nil
		}
	}
	// Full userdata was already materialized on the stack at creation time
	// (handle.Registry.CreateUserdata leaves it at top); re-pushing an
	// existing full Userdata value is not supported and fails.
	return &UnsupportedTypeError{Kind: "userdata (not re-pushable without registry context)"}
}

// meter accounts n bytes through opts.Allocator, surfacing a cap breach as
// an error so Push fails instead of silently continuing to push a value
// the allocator refused to account for.
func meter(opts Options, n int64) error {
	if opts.Allocator == nil || n <= 0 {
		return nil
	}
	if _, err := opts.Allocator.Alloc(uintptr(n)); err != nil {
		return &MemoryCapError{Cause: err}
	}
	return nil
}
