package luabridge

import (
	"testing"

	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/value"
)

func TestExecuteSimpleReturn(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result, err := e.Execute([]byte("return 42"), "test", exec.DefaultOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("expected success, got err %v", result.Err)
	}
	if len(result.Values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(result.Values))
	}
	if n, ok := result.Values[0].(value.Integer); !ok || n != 42 {
		t.Fatalf("expected Integer(42), got %#v", result.Values[0])
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result, err := e.Execute([]byte("return 42 +"), "test", exec.DefaultOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Ok() {
		t.Fatal("expected syntax error")
	}
}

func TestRegisterNamespaceAndCallFromScript(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	err = e.RegisterNamespace("host", []FunctionDescriptor{
		{
			Name:     "add",
			MinArity: 2,
			MaxArity: 2,
			Handler: func(_ *ScriptContext, args []value.Value) (value.Value, error) {
				a, _ := args[0].(value.Integer)
				b, _ := args[1].(value.Integer)
				return a + b, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("register namespace: %v", err)
	}

	result, err := e.Execute([]byte("return host.add(10, 20)"), "test", exec.DefaultOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("expected success, got err %v", result.Err)
	}
	if n, ok := result.Values[0].(value.Integer); !ok || n != 30 {
		t.Fatalf("expected Integer(30), got %#v", result.Values[0])
	}
}

func TestTenantExecuteIsolatesGlobals(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := e.CreateTenant("t1", "tenant one", nil); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if _, err := e.CreateTenant("t2", "tenant two", nil); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	if _, err := e.ExecuteTenant("t1", []byte("x = 100"), "t1-chunk"); err != nil {
		t.Fatalf("execute t1: %v", err)
	}

	result, err := e.ExecuteTenant("t2", []byte("return x"), "t2-chunk")
	if err != nil {
		t.Fatalf("execute t2: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("expected success, got err %v", result.Err)
	}
	if _, isNil := result.Values[0].(value.Nil); !isNil {
		t.Fatalf("expected tenant t2 to see x as nil, got %#v", result.Values[0])
	}
}
