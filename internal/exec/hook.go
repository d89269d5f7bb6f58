package exec

import (
	"time"

	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/alloc"
)

// budget tracks the wall-clock deadline and memory cap an instruction-count
// hook enforces. The hook itself cannot block on a timer or a raw
// lua_Alloc seam; it samples time.Now() and the VM's own GC byte count
// every hookInstructionInterval instructions and raises a runtime error
// once either limit is breached (spec.md §4.5, §4.6).
type budget struct {
	deadline time.Time
	exceeded bool

	al       *alloc.Shim
	capBytes int64
}

// hookInstructionInterval is how many VM instructions elapse between two
// consecutive invocations of the debug hook when only a timeout (not an
// explicit yield_instructions count) is configured.
const hookInstructionInterval = 1000

// installTimeoutHook arms l's debug hook so that execution still running
// past timeoutMs raises a Lua error from inside the hook, unwinding the
// protected call with a classifiable message (spec.md §4.6). If al is
// non-nil and carries a cap, the same hook samples lua.GCCount against
// that cap and raises a Memory error when breached, catching allocation
// that happens entirely inside the VM and never crosses the push/pull
// boundary (spec.md §4.5, §8 "Memory cap"). The returned func removes the
// hook; callers must defer it so later calls on the same state are not
// limited by a stale budget.
func installTimeoutHook(l *lua.State, timeoutMs int64, yieldInstructions int64, al *alloc.Shim) func() {
	interval := int(yieldInstructions)
	if interval <= 0 {
		interval = hookInstructionInterval
	}

	b := &budget{deadline: time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)}
	if al != nil {
		b.al = al
		b.capBytes = al.CapBytes()
	}

	l.SetDebugHook(func(l *lua.State, ar *lua.Debug) {
		if timeoutMs > 0 && time.Now().After(b.deadline) {
			b.exceeded = true
			l.PushString(timeoutSentinel)
			l.Error()
			return
		}
		if b.capBytes > 0 {
			usedBytes := int64(l.GC(lua.GCCount, 0)) * 1024
			if usedBytes > b.capBytes {
				b.exceeded = true
				b.al.RecordVMFailure()
				l.PushString(memorySentinel)
				l.Error()
			}
		}
	}, lua.MaskCount, interval)

	return func() { l.SetDebugHook(nil, 0, 0) }
}

// timeoutSentinel is pushed by the hook as the error value so
// classifyRuntimeFailure can recognize a hook-raised timeout distinctly from a
// script-raised runtime error.
const timeoutSentinel = "luabridge: execution timeout exceeded"

// memorySentinel is pushed by the hook as the error value when the VM's
// own GC byte count exceeds the instance's memory cap, classified as
// Memory rather than Runtime (spec.md §4.5).
const memorySentinel = "luabridge: memory cap exceeded"
