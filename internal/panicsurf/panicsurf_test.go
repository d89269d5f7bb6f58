package panicsurf

import (
	"errors"
	"testing"

	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
)

func newActiveInstance(t *testing.T) *instance.Instance {
	t.Helper()
	inst := instance.New()
	if err := inst.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg := instance.Config{
		StackconvOptions: stackconv.DefaultOptions(),
		Sandbox:          sandbox.Config{Level: sandbox.Basic},
		ErrorCountLimit:  3,
	}
	if err := inst.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := inst.Activate(); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return inst
}

func TestClassifyStackOverflow(t *testing.T) {
	info := Classify(errors.New("stack overflow: too many nested calls"))
	if info.Kind != StackOverflowPanic {
		t.Fatalf("expected StackOverflowPanic, got %v", info.Kind)
	}
}

func TestClassifyMemory(t *testing.T) {
	info := Classify(errors.New("not enough memory to allocate table"))
	if info.Kind != MemoryPanic {
		t.Fatalf("expected MemoryPanic, got %v", info.Kind)
	}
}

func TestClassifyUnknownNonError(t *testing.T) {
	info := Classify("some arbitrary string panic")
	if info.Kind != Unknown {
		t.Fatalf("expected Unknown, got %v", info.Kind)
	}
}

func TestExecuteRecoversAndResetsState(t *testing.T) {
	inst := newActiveInstance(t)
	pe := New(inst, Policy{Strategy: ResetState})

	result := pe.Execute(func() *exec.ExecutionResult {
		panic(errors.New("stack overflow during deep recursion"))
	})

	if result.Ok() {
		t.Fatal("expected an error result from a recovered panic")
	}
	if inst.Stage() != instance.Active {
		t.Fatalf("expected instance reset back to Active, got %v", inst.Stage())
	}
}

func TestExecutePassesThroughOnNoPanic(t *testing.T) {
	inst := newActiveInstance(t)
	pe := New(inst, DefaultPolicy())

	result := pe.Execute(func() *exec.ExecutionResult {
		return &exec.ExecutionResult{}
	})
	if !result.Ok() {
		t.Fatalf("expected clean result to pass through, got err %v", result.Err)
	}
}

func TestExecuteNewStateMarksInstanceUnhealthy(t *testing.T) {
	inst := newActiveInstance(t)
	pe := New(inst, Policy{Strategy: NewState})

	pe.Execute(func() *exec.ExecutionResult {
		panic(errors.New("out of memory"))
	})

	if inst.HealthCheck() {
		t.Fatal("expected instance marked unhealthy after new_state recovery")
	}
}
