package luabridge

import (
	"fmt"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/value"
)

// TestEndToEndScenarios snapshot-tests the deterministic literal scenarios
// of spec.md §8. The timing/resource-sensitive scenarios (timeout, memory
// cap) are driven end-to-end separately below, since their wall-clock and
// cap-breach nature makes them a poor fit for a byte-for-byte golden
// snapshot. Grounded on the teacher's fixture-driven golden-snapshot style
// (internal/interp/fixture_test.go's snaps.MatchSnapshot usage), retargeted
// from DWScript source fixtures onto this spec's literal scenario inputs.
func TestEndToEndScenarios(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	scenarios := []struct {
		name   string
		source string
	}{
		{"simple_return", "return 42"},
		{"array_round_trip", "local arg = {10, 20, 30}; return #arg, arg[2]"},
	}

	for _, sc := range scenarios {
		result, err := e.Execute([]byte(sc.source), sc.name, exec.DefaultOptions())
		if err != nil {
			t.Fatalf("%s: execute: %v", sc.name, err)
		}
		snaps.MatchSnapshot(t, sc.name, summarize(result))
	}
}

// TestEndToEndTimeoutScenario drives spec.md §8 scenario 3: a script that
// never returns control must be aborted by the instruction-count hook's
// wall-clock budget and classified as luaerr.Timeout.
func TestEndToEndTimeoutScenario(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	opts := exec.DefaultOptions()
	opts.TimeoutMs = 50

	result, err := e.Execute([]byte("while true do end"), "timeout_scenario", opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Ok() {
		t.Fatalf("expected the timeout budget to abort the call, got success: %v", result.Values)
	}
	if result.Err.Kind != luaerr.Timeout {
		t.Fatalf("expected luaerr.Timeout, got %s (%s)", result.Err.Kind, result.Err.Message)
	}
}

// TestEndToEndMemoryCapScenario drives spec.md §8 scenario 4: allocation
// that happens entirely inside the VM (no value ever crosses the push/pull
// boundary) must still trip the configured allocator cap, via the
// instruction-count hook sampling the interpreter's own GC accounting.
func TestEndToEndMemoryCapScenario(t *testing.T) {
	e, err := New(WithMaxMemoryBytes(64 * 1024))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	source := `local t = {}
for i = 1, 10000 do
  t[i] = string.rep("x", 1000)
end
return #t`

	result, err := e.Execute([]byte(source), "memory_cap_scenario", exec.DefaultOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Ok() {
		t.Fatalf("expected the memory cap to abort the call, got success: %v", result.Values)
	}
	if result.Err.Kind != luaerr.Memory {
		t.Fatalf("expected luaerr.Memory, got %s (%s)", result.Err.Kind, result.Err.Message)
	}
}

func TestEndToEndFunctionHandleCall(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	inst, err := e.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer e.Release(inst)

	ex, err := inst.Executor()
	if err != nil {
		t.Fatalf("executor: %v", err)
	}

	defineOpts := exec.DefaultOptions()
	if res := ex.LoadAndExecute([]byte("function add(a,b) return a+b end"), "define", defineOpts); !res.Ok() {
		t.Fatalf("define: %v", res.Err)
	}

	result, err := e.CallGlobal(inst, "add", []value.Value{value.Integer(10), value.Integer(20)}, exec.DefaultOptions())
	if err != nil {
		t.Fatalf("call_global: %v", err)
	}
	snaps.MatchSnapshot(t, "function_handle_call", summarize(result))
}

func summarize(result *exec.ExecutionResult) string {
	if !result.Ok() {
		return fmt.Sprintf("error: %s", result.Err.Error())
	}
	out := ""
	for i, v := range result.Values {
		if i > 0 {
			out += ", "
		}
		out += value.DebugString(v)
	}
	return out
}
