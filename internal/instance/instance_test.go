package instance

import (
	"testing"

	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/value"
)

func newActiveInstance(t *testing.T) *Instance {
	t.Helper()
	i := New()
	if err := i.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg := Config{
		StackconvOptions: stackconv.DefaultOptions(),
		Sandbox:          sandbox.Config{Level: sandbox.Basic},
		ErrorCountLimit:  10,
	}
	if err := i.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := i.Activate(); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return i
}

func TestLifecycleTransitions(t *testing.T) {
	i := newActiveInstance(t)
	if i.Stage() != Active {
		t.Fatalf("expected Active, got %v", i.Stage())
	}
	if err := i.Suspend(); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := i.Activate(); err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	if err := i.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if i.Stage() != Destroyed {
		t.Fatalf("expected Destroyed, got %v", i.Stage())
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	i := New()
	if err := i.Activate(); err == nil {
		t.Fatal("expected error activating an uninitialized instance")
	}
}

func TestResetReturnsToActive(t *testing.T) {
	i := newActiveInstance(t)
	if err := i.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if i.Stage() != Active {
		t.Fatalf("expected Active after reset, got %v", i.Stage())
	}
	if i.CallCount() != 0 {
		t.Fatal("expected call count cleared after reset")
	}
}

func TestHealthCheckFailsWhenNotActive(t *testing.T) {
	i := newActiveInstance(t)
	i.Suspend()
	if i.HealthCheck() {
		t.Fatal("expected unhealthy while suspended")
	}
}

func TestHealthCheckFailsAboveErrorThreshold(t *testing.T) {
	i := newActiveInstance(t)
	for n := 0; n < 10; n++ {
		i.RecordError()
	}
	if i.HealthCheck() {
		t.Fatal("expected unhealthy after exceeding error threshold")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	mgr := NewSnapshotManager(SnapshotPolicy{MaxCount: 4})
	globals := value.NewObject()
	globals.Set("x", value.Integer(7))
	arr := value.NewArray(value.Integer(1), value.NewString("a"))
	globals.Set("list", arr)

	snap, err := mgr.CreateSnapshot("", "before change", globals, 200, 200)
	if err != nil {
		t.Fatalf("create snapshot: %v", err)
	}

	restored, err := mgr.Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	v, ok := restored.Get("x")
	if !ok || v.(value.Integer) != 7 {
		t.Fatalf("expected x=7, got %v, %v", v, ok)
	}
}

func TestSnapshotEvictionRespectsMaxCount(t *testing.T) {
	mgr := NewSnapshotManager(SnapshotPolicy{MaxCount: 2})
	for n := 0; n < 5; n++ {
		globals := value.NewObject()
		globals.Set("n", value.Integer(int64(n)))
		if _, err := mgr.CreateSnapshot("", "", globals, 200, 200); err != nil {
			t.Fatalf("create snapshot %d: %v", n, err)
		}
	}
	mgr.mu.Lock()
	count := len(mgr.order)
	mgr.mu.Unlock()
	if count > 2 {
		t.Fatalf("expected eviction to cap at 2, got %d", count)
	}
}
