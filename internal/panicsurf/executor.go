package panicsurf

import (
	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/luaerr"
)

// ProtectedExecutor wraps an instance's C6 executor with a Go-level
// recover() boundary: pcall_wrapped already converts ordinary Lua runtime
// errors into *luaerr.Error, but a handful of fatal conditions in
// go-lua's pure-Go VM (and any bug in this bridge's own Go code running
// inside a Go-function callback) surface as a Go panic instead. Execute is
// the single point where that panic is caught, classified, and handed to
// the configured recovery Policy (spec.md §4.11).
type ProtectedExecutor struct {
	inst   *instance.Instance
	policy Policy
}

// New builds a ProtectedExecutor bound to inst, applying policy to any
// panic recovered during Execute.
func New(inst *instance.Instance, policy Policy) *ProtectedExecutor {
	return &ProtectedExecutor{inst: inst, policy: policy}
}

// Execute runs fn, recovering any Go panic raised during its execution.
// On a clean return, fn's result passes through unchanged. On a recovered
// panic, the panic is classified, the configured recovery strategy is
// applied to the owning instance, and a *luaerr.Error derived from the
// PanicInfo is returned as the execution's error.
func (p *ProtectedExecutor) Execute(fn func() *exec.ExecutionResult) (result *exec.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			info := Classify(r)
			p.inst.RecordError()
			err := p.recover(info)
			result = &exec.ExecutionResult{Err: err}
		}
	}()
	return fn()
}

// recover applies the configured Policy to a classified panic, returning
// the error to surface to the caller.
func (p *ProtectedExecutor) recover(info PanicInfo) *luaerr.Error {
	switch p.policy.Strategy {
	case ResetState:
		_ = p.inst.Reset()
	case NewState:
		p.inst.ForceUnhealthy()
	case Custom:
		if p.policy.Handler != nil {
			if err := p.policy.Handler(info); err != nil {
				return toLuaErr(info, err)
			}
		}
	case Propagate:
		// fall through to the classified error below.
	}
	return classifiedError(info)
}

// classifiedError maps a PanicInfo's Kind onto the shared error taxonomy.
func classifiedError(info PanicInfo) *luaerr.Error {
	switch info.Kind {
	case MemoryPanic:
		return luaerr.MemoryError(info.Message)
	case StackOverflowPanic:
		return luaerr.StackOverflowError(0)
	case ProtectionPanic:
		return luaerr.SecurityError(info.Message)
	case ErrorObjectPanic:
		return luaerr.RuntimeError(info.Message)
	default:
		return &luaerr.Error{Kind: luaerr.Runtime, Message: "internal panic: " + info.Message}
	}
}

func toLuaErr(info PanicInfo, handlerErr error) *luaerr.Error {
	if le, ok := handlerErr.(*luaerr.Error); ok {
		return le
	}
	return &luaerr.Error{Kind: luaerr.Runtime, Message: handlerErr.Error(), Cause: handlerErr}
}
