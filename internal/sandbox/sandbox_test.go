package sandbox

import (
	"strings"
	"testing"

	lua "github.com/Shopify/go-lua"
)

func newTestState(t *testing.T) *lua.State {
	t.Helper()
	l := lua.NewState()
	l.OpenLibraries()
	return l
}

func TestNoneLeavesGlobalsIntact(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: None})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}
	l.Global("os")
	if l.TypeOf(-1) == lua.TypeNil {
		t.Fatal("expected os to remain available at None level")
	}
}

func TestBasicRemovesDangerousGlobals(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: Basic})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadfile", "require", "load"} {
		l.Global(name)
		if l.TypeOf(-1) != lua.TypeNil {
			t.Fatalf("expected %s to be removed at Basic level", name)
		}
		l.Pop(1)
	}
}

func TestStrictBuildsAllowlistedEnv(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: Strict})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !s.envTable {
		t.Fatal("expected Strict to build an environment table")
	}

	// the env table is retained in the registry, not left on the stack.
	if l.Top() != 0 {
		t.Fatalf("expected Apply to leave the stack empty, got top=%d", l.Top())
	}
	l.RawGetInt(lua.RegistryIndex, s.envRef)
	l.GetField(-1, "math")
	if l.TypeOf(-1) == lua.TypeNil {
		t.Fatal("expected math library present in strict env")
	}
}

func TestStrictSetChunkEnvInstallsRestrictedGlobals(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: Strict})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := l.Load(strings.NewReader("return math ~= nil, os"), "chunk", "t"); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.SetChunkEnv(l, l.Top())

	if err := l.ProtectedCall(0, 2, 0); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !l.ToBoolean(-2) {
		t.Fatal("expected math to be visible inside the strict environment")
	}
	if l.TypeOf(-1) != lua.TypeNil {
		t.Fatal("expected os to be nil inside the strict environment, since it is outside the allowlist")
	}
}

func TestValidateDetectsIsolationBreach(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: Basic})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Validate(l, false, false); err != nil {
		t.Fatalf("expected no breach immediately after apply: %v", err)
	}

	// Simulate a script reintroducing a dangerous global.
	l.PushBoolean(true)
	l.SetGlobal("io")

	if err := s.Validate(l, false, false); err == nil {
		t.Fatal("expected IsolationBreach after reintroducing io")
	}
}

func TestValidateRequiresHookWhenConfigured(t *testing.T) {
	l := newTestState(t)
	s := New(Config{Level: None})
	if err := s.Apply(l); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Validate(l, true, false); err == nil {
		t.Fatal("expected IsolationBreach when required hook is missing")
	}
	if err := s.Validate(l, true, true); err != nil {
		t.Fatalf("expected no breach when hook present: %v", err)
	}
}
