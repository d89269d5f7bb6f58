package exec

import (
	"time"

	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/value"
)

// Metrics are returned for every call regardless of outcome (spec.md §4.6).
// GCCycles holds the change in the interpreter's heap size in KiB
// (lua.GCCount) across the call, not a count of collection cycles; it can
// be negative.
type Metrics struct {
	WallClock   time.Duration
	MemoryDelta int64
	GCCycles    int64
}

// ExecutionResult is the outcome of load_and_execute / call_global /
// pcall_wrapped: either Values is populated or Err is, never both.
type ExecutionResult struct {
	Values  []value.Value
	Err     *luaerr.Error
	Metrics Metrics
}

func (r *ExecutionResult) Ok() bool { return r.Err == nil }
