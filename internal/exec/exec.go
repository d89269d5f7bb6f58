// Package exec implements the three PCall/Execution operations (C6):
// load_and_execute, call_global, and the shared pcall_wrapped primitive
// both build on. Grounded on the teacher's compile-then-run orchestration
// (internal/interp/runner/runner.go) and its error-catalog discipline
// (internal/interp/errors/catalog.go), retargeted from the teacher's
// tree-walking interpreter onto github.com/Shopify/go-lua's stack VM.
package exec

import (
	"bytes"
	"errors"
	"strings"
	"time"

	lua "github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/lua-embed/luabridge/internal/alloc"
	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/value"
)

// bytecodeMarker is the first byte of every Lua binary chunk (the ESC
// character, 0x1B), used by load_and_execute to reject binary sources when
// allow_bytecode is false without attempting to compile them first.
const bytecodeMarker = 0x1B

// Executor runs protected calls against a single interpreter instance's
// *lua.State, converting arguments and results through the stack converter
// and classifying every failure into the shared taxonomy.
type Executor struct {
	l    *lua.State
	reg  *handle.Registry
	conv stackconv.Options
	al   *alloc.Shim
	sbox *sandbox.Sandbox
	log  *zap.SugaredLogger
}

// New builds an Executor bound to l. al may be nil if the instance has no
// configured memory cap (C5 metering is then skipped). sbox may be nil or
// non-Strict, in which case no chunk environment is installed.
func New(l *lua.State, reg *handle.Registry, conv stackconv.Options, al *alloc.Shim, sbox *sandbox.Sandbox, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Executor{l: l, reg: reg, conv: conv, al: al, sbox: sbox, log: log}
}

// LoadAndExecute compiles source under name and, on success, runs it with
// pcall_wrapped (spec.md §4.6 operation 1).
func (e *Executor) LoadAndExecute(source []byte, name string, opts Options) *ExecutionResult {
	if !opts.AllowBytecode && len(source) > 0 && source[0] == bytecodeMarker {
		return &ExecutionResult{Err: luaerr.BytecodeDeniedError()}
	}

	mode := "t"
	if opts.Mode == ModeBinary {
		mode = "b"
	}
	if opts.AllowBytecode {
		mode = "bt"
	}

	start := time.Now()
	if err := e.l.Load(bytes.NewReader(source), name, mode); err != nil {
		return &ExecutionResult{
			Err:     classifyCompileError(err),
			Metrics: Metrics{WallClock: time.Since(start)},
		}
	}
	if e.sbox != nil {
		e.sbox.SetChunkEnv(e.l, e.l.Top())
	}

	return e.pcallWrapped(0, opts.ExpectedReturns, opts)
}

// CallGlobal resolves name as a global function, pushes args, and invokes
// pcall_wrapped (spec.md §4.6 operation 2).
func (e *Executor) CallGlobal(name string, args []value.Value, opts Options) *ExecutionResult {
	e.l.Global(name)
	if e.l.TypeOf(-1) != lua.TypeFunction {
		e.l.Pop(1)
		return &ExecutionResult{Err: &luaerr.Error{Kind: luaerr.Runtime, Message: "global '" + name + "' is not a function"}}
	}

	for _, a := range args {
		if err := stackconv.Push(e.l, e.reg, e.conv, a); err != nil {
			e.l.Pop(1 + len(args))
			return &ExecutionResult{Err: &luaerr.Error{Kind: pushErrorKind(err), Message: err.Error()}}
		}
	}

	return e.pcallWrapped(len(args), opts.ExpectedReturns, opts)
}

// pcallWrapped is the shared protected-call primitive (spec.md §4.6
// operation 3): it assumes the function and argCount arguments are already
// on top of the stack, pre-sizes the stack, optionally installs a traceback
// handler and instruction-count hook, calls, and converts the outcome.
func (e *Executor) pcallWrapped(argCount, expectedReturns int, opts Options) *ExecutionResult {
	start := time.Now()
	gcBefore := e.l.GC(lua.GCCount, 0)
	var memBefore int64
	if e.al != nil {
		memBefore = e.al.CurrentBytes()
	}

	if opts.StackReserve > 0 && !e.l.CheckStack(opts.StackReserve) {
		return &ExecutionResult{
			Err:     luaerr.StackOverflowError(opts.StackReserve),
			Metrics: Metrics{WallClock: time.Since(start)},
		}
	}

	msgHandlerIndex := 0
	if opts.CaptureStackTrace {
		e.l.PushGoFunction(e.tracebackHandler(opts.MaxTraceDepth))
		// Move the handler below the function+args it must wrap.
		e.l.Insert(-2 - argCount)
		msgHandlerIndex = e.l.AbsIndex(-2 - argCount)
	}

	var removeHook func()
	if opts.TimeoutMs > 0 || opts.YieldInstructions > 0 || (e.al != nil && e.al.CapBytes() > 0) {
		removeHook = installTimeoutHook(e.l, opts.TimeoutMs, opts.YieldInstructions, e.al)
	}

	nResults := expectedReturns
	if opts.MultiReturn {
		nResults = lua.MultipleReturns
	}
	base := e.l.Top() - argCount - 1 // slot just below the function

	callErr := e.l.ProtectedCall(argCount, nResults, msgHandlerIndex)

	if removeHook != nil {
		removeHook()
	}

	metrics := Metrics{WallClock: time.Since(start)}
	if e.al != nil {
		metrics.MemoryDelta = e.al.CurrentBytes() - memBefore
	}
	metrics.GCCycles = int64(e.l.GC(lua.GCCount, 0) - gcBefore)

	if callErr != nil {
		errVal, _ := stackconv.Pull(e.l, e.reg, e.conv, -1)
		e.l.Pop(1)
		if opts.CaptureStackTrace {
			e.l.Pop(1) // remove the now-unused message handler slot
		}
		return &ExecutionResult{Err: classifyRuntimeFailure(callErr, errVal), Metrics: metrics}
	}

	n := nResults
	if opts.MultiReturn {
		n = e.l.Top() - base
	}
	values := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := stackconv.Pull(e.l, e.reg, e.conv, -(n - i))
		if err != nil {
			var capErr *stackconv.MemoryCapError
			if errors.As(err, &capErr) {
				e.l.Pop(n)
				if opts.CaptureStackTrace {
					e.l.Pop(1)
				}
				return &ExecutionResult{Err: &luaerr.Error{Kind: luaerr.Memory, Message: err.Error()}, Metrics: metrics}
			}
			values = append(values, value.Nil{})
			continue
		}
		values = append(values, v)
	}
	e.l.Pop(n)
	if opts.CaptureStackTrace {
		e.l.Pop(1)
	}

	return &ExecutionResult{Values: values, Metrics: metrics}
}

// tracebackHandler returns a Go function installed as the protected call's
// message handler, capturing up to maxDepth frames via the debug
// introspection API before the stack unwinds (spec.md §4.6).
func (e *Executor) tracebackHandler(maxDepth int) func(l *lua.State) int {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return func(l *lua.State) int {
		msg, _ := l.ToString(-1)
		frames := captureFrames(l, maxDepth)
		l.PushString(encodeTraceback(msg, frames))
		return 1
	}
}

// captureFrames walks the call stack via lua.Debug, stopping at maxDepth.
func captureFrames(l *lua.State, maxDepth int) []luaerr.Frame {
	frames := make([]luaerr.Frame, 0, maxDepth)
	for level := 0; level < maxDepth; level++ {
		var ar lua.Debug
		if !l.Stack(level, &ar) {
			break
		}
		l.Info("Sln", &ar)
		frames = append(frames, luaerr.Frame{
			Function: ar.Name,
			Source:   ar.ShortSource,
			Line:     ar.CurrentLine,
		})
	}
	return frames
}

// frameSeparator is how encoded frames are delimited inside the traceback
// string the message handler pushes; classifyRuntimeFailure splits on it.
const frameSeparator = "\x1f"

func encodeTraceback(msg string, frames []luaerr.Frame) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for _, f := range frames {
		sb.WriteString(frameSeparator)
		sb.WriteString(f.Source)
		sb.WriteString(":")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// pushErrorKind classifies a stackconv.Push failure: a MemoryCapError means
// the allocator shim refused the boundary allocation (C5), anything else is
// a value the converter couldn't place on the stack.
func pushErrorKind(err error) luaerr.Kind {
	var capErr *stackconv.MemoryCapError
	if errors.As(err, &capErr) {
		return luaerr.Memory
	}
	return luaerr.TypeMismatch
}

// classifyCompileError maps a Load failure to Syntax or Memory per
// spec.md §4.6 operation 1.
func classifyCompileError(err error) *luaerr.Error {
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "memory") {
		return luaerr.MemoryError(msg)
	}
	return luaerr.SyntaxError(msg)
}

// classifyRuntimeFailure inspects the error value ProtectedCall produced
// (a string if our traceback handler ran, otherwise whatever the script
// raised) and classifies it per the taxonomy of spec.md §4.6.
func classifyRuntimeFailure(callErr error, errVal value.Value) *luaerr.Error {
	msg := callErr.Error()
	if s, ok := errVal.(*value.String); ok {
		msg = s.String()
	}

	parts := strings.SplitN(msg, frameSeparator, 2)
	head := parts[0]
	var frames []luaerr.Frame
	if len(parts) == 2 {
		for _, raw := range strings.Split(parts[1], frameSeparator) {
			if raw == "" {
				continue
			}
			frames = append(frames, luaerr.Frame{Function: raw})
		}
	}

	lower := strings.ToLower(head)
	var kind luaerr.Kind
	switch {
	case strings.Contains(head, timeoutSentinel):
		kind = luaerr.Timeout
	case strings.Contains(head, memorySentinel):
		kind = luaerr.Memory
	case strings.Contains(lower, "stack overflow"):
		kind = luaerr.StackOverflow
	case strings.Contains(lower, "not enough memory") || strings.Contains(lower, "out of memory"):
		kind = luaerr.Memory
	case strings.Contains(lower, "error in error handling"):
		kind = luaerr.InHandler
	default:
		kind = luaerr.Runtime
	}

	return &luaerr.Error{Kind: kind, Message: head, Frames: frames}
}
