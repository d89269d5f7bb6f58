package exec

import (
	"testing"

	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/alloc"
	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/value"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	l := lua.NewState()
	l.OpenLibraries()
	reg := handle.NewRegistry("exec-test", l)
	return New(l, reg, stackconv.DefaultOptions(), nil, nil, nil)
}

func TestLoadAndExecuteReturnsValues(t *testing.T) {
	e := newTestExecutor(t)
	opts := DefaultOptions()
	opts.ExpectedReturns = 1

	res := e.LoadAndExecute([]byte("return 1 + 2"), "chunk", opts)
	if !res.Ok() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if len(res.Values) != 1 {
		t.Fatalf("expected 1 return value, got %d", len(res.Values))
	}
}

func TestLoadAndExecuteClassifiesSyntaxError(t *testing.T) {
	e := newTestExecutor(t)
	res := e.LoadAndExecute([]byte("this is not lua ((("), "chunk", DefaultOptions())
	if res.Ok() {
		t.Fatal("expected failure for malformed source")
	}
	if res.Err.Kind != luaerr.Syntax {
		t.Fatalf("expected Syntax kind, got %v", res.Err.Kind)
	}
}

func TestLoadAndExecuteRejectsBytecodeWhenDisallowed(t *testing.T) {
	e := newTestExecutor(t)
	opts := DefaultOptions()
	opts.AllowBytecode = false

	source := append([]byte{bytecodeMarker}, []byte("fake bytecode")...)
	res := e.LoadAndExecute(source, "chunk", opts)
	if res.Ok() {
		t.Fatal("expected bytecode rejection")
	}
	if res.Err.Kind != luaerr.Bytecode {
		t.Fatalf("expected Bytecode kind, got %v", res.Err.Kind)
	}
}

func TestCallGlobalClassifiesRuntimeError(t *testing.T) {
	e := newTestExecutor(t)
	opts := DefaultOptions()

	setup := e.LoadAndExecute([]byte("function boom() error('kaboom') end"), "setup", opts)
	if !setup.Ok() {
		t.Fatalf("setup failed: %v", setup.Err)
	}

	res := e.CallGlobal("boom", nil, opts)
	if res.Ok() {
		t.Fatal("expected runtime error")
	}
	if res.Err.Kind != luaerr.Runtime {
		t.Fatalf("expected Runtime kind, got %v", res.Err.Kind)
	}
}

// TestLoadAndExecuteInstallsStrictSandboxEnv drives the Strict sandbox
// through a real Executor end-to-end (C7): the restricted environment
// built by sandbox.Apply must actually become the loaded chunk's _ENV,
// not sit orphaned on the stack.
func TestLoadAndExecuteInstallsStrictSandboxEnv(t *testing.T) {
	l := lua.NewState()
	l.OpenLibraries()
	reg := handle.NewRegistry("exec-sandbox-test", l)

	sbox := sandbox.New(sandbox.Config{Level: sandbox.Strict})
	if err := sbox.Apply(l); err != nil {
		t.Fatalf("apply sandbox: %v", err)
	}

	e := New(l, reg, stackconv.DefaultOptions(), nil, sbox, nil)
	opts := DefaultOptions()
	opts.ExpectedReturns = 2

	res := e.LoadAndExecute([]byte("return math ~= nil, os"), "chunk", opts)
	if !res.Ok() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if len(res.Values) != 2 {
		t.Fatalf("expected 2 return values, got %d", len(res.Values))
	}
	if b, ok := res.Values[0].(value.Boolean); !ok || !bool(b) {
		t.Fatalf("expected math to be visible in the strict environment, got %#v", res.Values[0])
	}
	if _, ok := res.Values[1].(value.Nil); !ok {
		t.Fatalf("expected os to be nil in the strict environment (outside the allowlist), got %#v", res.Values[1])
	}
}

func TestCallGlobalRejectsNonFunction(t *testing.T) {
	e := newTestExecutor(t)
	opts := DefaultOptions()

	setup := e.LoadAndExecute([]byte("notAFunction = 42"), "setup", opts)
	if !setup.Ok() {
		t.Fatalf("setup failed: %v", setup.Err)
	}

	res := e.CallGlobal("notAFunction", nil, opts)
	if res.Ok() {
		t.Fatal("expected failure calling a non-function global")
	}
}
