package luabridge

import (
	"fmt"

	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/value"
)

// ScriptContext is the first argument passed to every registered capability
// handler (spec.md §6): the instance the call is running on, for handlers
// that need to look up tenant identity or other per-instance state.
type ScriptContext struct {
	Instance *instance.Instance
}

// HandlerFunc is a host capability function exposed to scripts. It receives
// the already-converted call arguments and returns a single result or an
// error; the core converts both directions through C2 (spec.md §6).
type HandlerFunc func(ctx *ScriptContext, args []value.Value) (value.Value, error)

// FunctionDescriptor names and bounds one registered capability function.
type FunctionDescriptor struct {
	Name string
	// MinArity/MaxArity bound the accepted argument count; MaxArity < 0
	// means unbounded.
	MinArity int
	MaxArity int
	Handler  HandlerFunc
}

type namespace struct {
	name      string
	functions []FunctionDescriptor
}

// RegisterNamespace installs a table of capability functions under name,
// reachable from scripts as name.function(...) (spec.md §6). Registration
// takes effect on every instance the engine subsequently acquires,
// including ones created before the call (namespaces are (re)installed on
// each Acquire/Execute so a Reset-rebuilt global table never loses them).
func (e *Engine) RegisterNamespace(name string, functions []FunctionDescriptor) error {
	if name == "" {
		return luaerr.RuntimeError("capability namespace name must not be empty")
	}
	if len(functions) == 0 {
		return luaerr.RuntimeError("capability namespace '" + name + "' has no functions")
	}
	for _, fd := range functions {
		if fd.Name == "" || fd.Handler == nil {
			return luaerr.RuntimeError("capability function in namespace '" + name + "' missing name or handler")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.namespaces = append(e.namespaces, namespace{name: name, functions: functions})
	return nil
}

// installNamespaces pushes every registered namespace as a global table of
// Go-function trampolines onto inst's Lua state.
func (e *Engine) installNamespaces(inst *instance.Instance) error {
	e.mu.Lock()
	namespaces := make([]namespace, len(e.namespaces))
	copy(namespaces, e.namespaces)
	e.mu.Unlock()

	l := inst.State()
	conv := stackconv.DefaultOptions()

	for _, ns := range namespaces {
		l.CreateTable(0, len(ns.functions))
		for _, fd := range ns.functions {
			l.PushGoFunction(trampoline(inst, conv, fd))
			l.SetField(-2, fd.Name)
		}
		l.SetGlobal(ns.name)
	}
	return nil
}

// trampoline converts stack arguments to Values, invokes fd.Handler inside
// a recovered call, and converts the result back, matching spec.md §6's
// "converts arguments via C2, invokes the handler inside pcall_wrapped,
// converts the return, and surfaces errors uniformly" contract. The
// enclosing pcall_wrapped the script's own call sits inside (installed by
// C6's execution path) is what actually provides the protected-call
// boundary; this trampoline only needs to convert and classify.
func trampoline(inst *instance.Instance, conv stackconv.Options, fd FunctionDescriptor) func(l *lua.State) int {
	return func(l *lua.State) int {
		n := l.Top()
		if n < fd.MinArity || (fd.MaxArity >= 0 && n > fd.MaxArity) {
			l.PushString("wrong number of arguments to '" + fd.Name + "'")
			l.Error()
			return 0
		}

		args := make([]value.Value, n)
		for i := 1; i <= n; i++ {
			v, err := stackconv.Pull(l, inst.Registry(), conv, i)
			if err != nil {
				l.PushString(err.Error())
				l.Error()
				return 0
			}
			args[i-1] = v
		}

		result, err := func() (res value.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in '%s': %v", fd.Name, r)
				}
			}()
			return fd.Handler(&ScriptContext{Instance: inst}, args)
		}()
		if err != nil {
			l.PushString(err.Error())
			l.Error()
			return 0
		}

		if err := stackconv.Push(l, inst.Registry(), conv, result); err != nil {
			l.PushString(err.Error())
			l.Error()
			return 0
		}
		return 1
	}
}
