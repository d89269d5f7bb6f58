package handle

import (
	lua "github.com/Shopify/go-lua"
)

// magicSentinel is the header marker spec.md §3.2 requires for full
// userdata, distinguishing host-registered payloads from foreign userdata
// a script might otherwise construct.
const magicSentinel uint32 = 0xDEADBEEF

// fullHeader is the aligned header every full-userdata payload carries:
// magic sentinel, type name, version, and a back-reference to the owning
// registry so the __gc trampoline can find the destructor.
type fullHeader struct {
	magic    uint32
	typeName string
	version  int
	registry *Registry
	payload  any
}

// userdataHandle implements value.UserdataHandle for full userdata.
type userdataHandle struct {
	header *fullHeader
}

func (u *userdataHandle) TypeName() string { return u.header.typeName }
func (u *userdataHandle) Pointer() uintptr { return uintptr(0) } // pure-Go VM: no raw address; identity is by header pointer

// lightUserdataHandle implements value.UserdataHandle for light userdata:
// a bare POD value with zero per-object overhead and no destructor.
type lightUserdataHandle struct {
	typeName string
	value    any
}

func (l *lightUserdataHandle) TypeName() string { return l.typeName }
func (l *lightUserdataHandle) Pointer() uintptr  { return uintptr(0) }

// Value returns the wrapped POD payload, used when a light userdata value
// needs to be re-pushed onto another stack slot.
func (l *lightUserdataHandle) Value() any { return l.value }

// CreateUserdata allocates a full-userdata instance of typeName on l's
// stack (leaving it at the top), writes the header, invokes the
// registered metatable installer (once per type when the type is
// Cacheable, on every call otherwise), and returns the payload handle.
func (r *Registry) CreateUserdata(l *lua.State, payload any, typeName string) (*userdataHandle, error) {
	info, ok := r.TypeInfo(typeName)
	if !ok {
		return nil, &NotUserdataError{Index: 0}
	}

	ud := l.NewUserData(int(info.Size))
	header := &fullHeader{magic: magicSentinel, typeName: typeName, version: info.Version, registry: r, payload: payload}
	if box, ok := ud.(*any); ok {
		*box = header
	}

	if !r.markInstalled(typeName) || !info.Cacheable {
		if info.MetatableInstaller != nil {
			info.MetatableInstaller(l)
		}
		r.installGC(l, info)
	}
	l.SetMetaTableNamed(typeName)

	return &userdataHandle{header: header}, nil
}

// installGC attaches the unconditional __gc metamethod spec.md §4.3
// requires on every registered type's metatable: it invokes the
// registered destructor with the payload only; the owning allocator is
// not passed to it.
func (r *Registry) installGC(l *lua.State, info *TypeInfo) {
	if !l.NewMetaTable(info.Name) {
		// metatable already existed; fall through to attach __gc anyway.
	}
	l.PushGoFunction(func(l *lua.State) int {
		ud := l.ToUserData(1)
		if box, ok := ud.(*any); ok {
			if header, ok := (*box).(*fullHeader); ok && header.registry == r {
				if d := info.Destructor; d != nil {
					d(header.payload)
				}
			}
		}
		return 0
	})
	l.SetField(-2, "__gc")
	l.Pop(1)
}

// GetUserdata verifies the magic sentinel, type name, and size at
// stackIndex, returning the payload or a type-mismatch failure
// (spec.md §4.3).
func (r *Registry) GetUserdata(l *lua.State, stackIndex int, expectedTypeName string) (any, error) {
	ud := l.ToUserData(stackIndex)
	box, ok := ud.(*any)
	if !ok {
		return nil, &NotUserdataError{Index: stackIndex}
	}
	header, ok := (*box).(*fullHeader)
	if !ok || header.magic != magicSentinel {
		return nil, &NotUserdataError{Index: stackIndex}
	}
	if header.typeName != expectedTypeName {
		return nil, &TypeMismatchError{Expected: expectedTypeName, Actual: header.typeName}
	}
	return header.payload, nil
}

// PeekUserdata inspects stackIndex for the magic sentinel without enforcing
// an expected type name, returning the type name and payload when present.
// This is the classification primitive the stack converter's Pull uses
// (spec.md §4.2: "Userdata is inspected for the magic sentinel; if present,
// the type name is read from the header... otherwise the raw pointer is
// exposed with a generic type tag"); GetUserdata layers the expected-type
// check on top for typed FFI call sites (spec.md §4.3).
func (r *Registry) PeekUserdata(l *lua.State, stackIndex int) (typeName string, payload any, ok bool) {
	ud := l.ToUserData(stackIndex)
	box, isBox := ud.(*any)
	if !isBox {
		return "", nil, false
	}
	header, isHeader := (*box).(*fullHeader)
	if !isHeader || header.magic != magicSentinel {
		return "", nil, false
	}
	return header.typeName, header.payload, true
}

// CreateLightUserdata wraps a POD value (size <= pointer-width) with no
// per-object header overhead and no destructor, per spec.md §3.2.
func CreateLightUserdata(l *lua.State, typeName string, v any) *lightUserdataHandle {
	l.PushLightUserData(v)
	return &lightUserdataHandle{typeName: typeName, value: v}
}
