package instpool

import (
	"testing"

	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
)

func testFactory() (*instance.Instance, instance.Config) {
	return instance.New(), instance.Config{
		StackconvOptions: stackconv.DefaultOptions(),
		Sandbox:          sandbox.Config{Level: sandbox.Basic},
		ErrorCountLimit:  10,
	}
}

func TestPoolWarmsToMinSize(t *testing.T) {
	p, err := New(Config{MinPoolSize: 2, MaxPoolSize: 4, Factory: testFactory})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if p.Size() != 2 {
		t.Fatalf("expected pool warmed to 2, got %d", p.Size())
	}
	if p.Available() != 2 {
		t.Fatalf("expected 2 available, got %d", p.Available())
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p, err := New(Config{MinPoolSize: 1, MaxPoolSize: 2, Factory: testFactory})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	inst, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if inst.Stage() != instance.Active {
		t.Fatalf("expected acquired instance Active, got %v", inst.Stage())
	}
	if p.Available() != 0 {
		t.Fatalf("expected 0 available after acquire, got %d", p.Available())
	}

	if err := p.Release(inst); err != nil {
		t.Fatalf("release: %v", err)
	}
	if p.Available() != 1 {
		t.Fatalf("expected 1 available after release, got %d", p.Available())
	}
}

func TestAcquireGrowsUpToMaxThenExhausts(t *testing.T) {
	p, err := New(Config{MinPoolSize: 0, MaxPoolSize: 1, Factory: testFactory})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	if _, err := p.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := p.Acquire(); err == nil {
		t.Fatal("expected PoolExhausted on second acquire at capacity 1")
	}
}
