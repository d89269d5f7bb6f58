package stackconv

import (
	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/value"
)

// Pull dispatches on the interpreter's own type tag at stackIndex and
// converts the value there into the universal Value model. Table shape
// classification (array vs. object), cycle detection, and depth capping
// follow spec.md §4.2.
func Pull(l *lua.State, reg *handle.Registry, opts Options, stackIndex int) (value.Value, error) {
	if opts.MaxDepth <= 0 {
		opts = Options{MaxDepth: 100, AllowFunctions: opts.AllowFunctions, NilMode: opts.NilMode, Allocator: opts.Allocator}
	}
	visited := make(map[uintptr]bool)
	return pull(l, reg, opts, stackIndex, visited, 0)
}

func pull(l *lua.State, reg *handle.Registry, opts Options, index int, visited map[uintptr]bool, depth int) (value.Value, error) {
	if depth > opts.MaxDepth {
		return nil, &TooDeepError{MaxDepth: opts.MaxDepth}
	}

	switch l.TypeOf(index) {
	case lua.TypeNil:
		return value.Nil{}, nil
	case lua.TypeBoolean:
		return value.Boolean(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		return pullNumber(l, index), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		if err := meter(opts, int64(len(s))+approxHeaderCost); err != nil {
			return nil, err
		}
		return value.NewString(s), nil
	case lua.TypeTable:
		return pullTable(l, reg, opts, index, visited, depth)
	case lua.TypeFunction:
		return pullFunction(l, reg, opts, index)
	case lua.TypeUserData, lua.TypeLightUserData:
		return pullUserdata(l, reg, opts, index)
	default:
		return value.Nil{}, nil
	}
}

// pullNumber disambiguates Integer vs. Number using the interpreter's own
// integer predicate, per spec.md §4.2.
func pullNumber(l *lua.State, index int) value.Value {
	if l.IsInteger(index) {
		i, _ := l.ToInteger(index)
		return value.Integer(int64(i))
	}
	n, _ := l.ToNumber(index)
	return value.Number(n)
}

func tablePointer(l *lua.State, index int) uintptr {
	return l.ToPointer(index)
}

func pullTable(l *lua.State, reg *handle.Registry, opts Options, index int, visited map[uintptr]bool, depth int) (value.Value, error) {
	ptr := tablePointer(l, index)
	if ptr != 0 {
		if visited[ptr] {
			return nil, &CircularReferenceError{Index: index}
		}
		visited[ptr] = true
		defer delete(visited, ptr)
	}

	abs := l.AbsIndex(index)
	n := int(l.RawLength(abs))
	isArray := n > 0
	if isArray {
		for i := 1; i <= n; i++ {
			l.RawGetInt(abs, i)
			isPresent := l.TypeOf(-1) != lua.TypeNil
			l.Pop(1)
			if !isPresent {
				isArray = false
				break
			}
		}
	}
	if isArray {
		// Reject non-integer keys beyond the sequence length, per
		// spec.md §4.2's array-shaped classification.
		hasExtraKeys := false
		l.PushNil()
		for l.Next(abs) {
			if !l.IsNumber(-2) {
				hasExtraKeys = true
				l.Pop(2)
				break
			}
			key, _ := l.ToInteger(-2)
			if key < 1 || key > n {
				hasExtraKeys = true
				l.Pop(2)
				break
			}
			l.Pop(1)
		}
		if hasExtraKeys {
			isArray = false
		}
	}

	if isArray {
		return pullArray(l, reg, opts, abs, n, visited, depth)
	}
	return pullObject(l, reg, opts, abs, visited, depth)
}

func pullArray(l *lua.State, reg *handle.Registry, opts Options, index, n int, visited map[uintptr]bool, depth int) (value.Value, error) {
	elems := make([]value.Value, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(index, i)
		ev, err := pull(l, reg, opts, -1, visited, depth+1)
		l.Pop(1)
		if err != nil {
			return nil, err
		}
		elems[i-1] = ev
	}
	return &value.Array{Elements: elems}, nil
}

func pullObject(l *lua.State, reg *handle.Registry, opts Options, index int, visited map[uintptr]bool, depth int) (value.Value, error) {
	obj := value.NewObject()
	l.PushNil()
	for l.Next(index) {
		// key at -2, value at -1
		var key string
		switch l.TypeOf(-2) {
		case lua.TypeString:
			key, _ = l.ToString(-2)
		case lua.TypeNumber:
			if l.IsInteger(-2) {
				i, _ := l.ToInteger(-2)
				key = value.Integer(int64(i)).String()
			} else {
				n, _ := l.ToNumber(-2)
				key = value.Number(n).String()
			}
		default:
			key = l.ToStringMeta(-2)
		}
		fv, err := pull(l, reg, opts, -1, visited, depth+1)
		l.Pop(1)
		if err != nil {
			return nil, err
		}
		obj.Set(key, fv)
	}
	return obj, nil
}

func pullFunction(l *lua.State, reg *handle.Registry, opts Options, index int) (value.Value, error) {
	if !opts.AllowFunctions {
		return value.Nil{}, nil
	}
	l.PushValue(index)
	c := reg.RegisterCallable(l, "")
	return &value.Function{Handle: c}, nil
}

func pullUserdata(l *lua.State, reg *handle.Registry, opts Options, index int) (value.Value, error) {
	if typeName, payload, ok := reg.PeekUserdata(l, index); ok {
		return &value.Userdata{Handle: &peekedUserdata{typeName: typeName, payload: payload}}, nil
	}
	// No magic sentinel present: expose the raw pointer with a generic tag
	// per spec.md §4.2.
	return &value.Userdata{Light: true, Handle: &peekedUserdata{typeName: "userdata"}}, nil
}

// peekedUserdata adapts a PeekUserdata result to value.UserdataHandle for
// values that originated on the stack rather than through CreateUserdata.
type peekedUserdata struct {
	typeName string
	payload  any
}

func (p *peekedUserdata) TypeName() string { return p.typeName }
func (p *peekedUserdata) Pointer() uintptr { return 0 }
