package tenant

import (
	"testing"

	"github.com/lua-embed/luabridge/internal/instance"
)

func TestCreateTenantRefusesDuplicates(t *testing.T) {
	m := NewManager(0, nil)
	if _, err := m.CreateTenant("a", "first", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateTenant("a", "dup", nil); err == nil {
		t.Fatal("expected error creating duplicate tenant id")
	}
}

func TestCreateTenantEnforcesGlobalCap(t *testing.T) {
	m := NewManager(1, nil)
	if _, err := m.CreateTenant("a", "first", nil); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := m.CreateTenant("b", "second", nil); err == nil {
		t.Fatal("expected error exceeding max tenant count")
	}
}

func TestExecuteReturnsValueAndRecordsUsage(t *testing.T) {
	m := NewManager(0, nil)
	if _, err := m.CreateTenant("a", "first", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := m.Execute("a", []byte("return 1 + 1"), "chunk")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("expected successful execution, got err %v", result.Err)
	}

	usage, err := m.GetUsage("a")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.CallCount != 1 {
		t.Fatalf("expected call count 1, got %d", usage.CallCount)
	}
}

func TestExecuteRejectsUnknownTenant(t *testing.T) {
	m := NewManager(0, nil)
	if _, err := m.Execute("missing", []byte("return 1"), "chunk"); err == nil {
		t.Fatal("expected error executing under unknown tenant")
	}
}

func TestUpdateLimitsReappliesSandbox(t *testing.T) {
	m := NewManager(0, nil)
	if _, err := m.CreateTenant("a", "first", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	stricter := DefaultLimits()
	stricter.AllowIO = false
	stricter.AllowOS = false
	if err := m.UpdateLimits("a", stricter); err != nil {
		t.Fatalf("update limits: %v", err)
	}

	tn, err := m.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tn.inst.Stage() != instance.Active {
		t.Fatalf("expected instance still Active after update, got stage %v", tn.inst.Stage())
	}
}

func TestRemoveTenantDestroysInstance(t *testing.T) {
	m := NewManager(0, nil)
	if _, err := m.CreateTenant("a", "first", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.RemoveTenant("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if m.Count() != 0 {
		t.Fatalf("expected 0 tenants after removal, got %d", m.Count())
	}
}
