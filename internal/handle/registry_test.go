package handle

import "testing"

func TestRegisterTypeDeduplicatesOnName(t *testing.T) {
	r := NewRegistry("inst-1", nil)
	info := TypeInfo{Name: "Vector3", Size: 24, Alignment: 8}
	if err := r.RegisterType(info); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.RegisterType(info); err != nil {
		t.Fatalf("re-registering identical descriptor should succeed: %v", err)
	}
	got, ok := r.TypeInfo("Vector3")
	if !ok || got.Size != 24 {
		t.Fatalf("expected registered type to be retrievable, got %#v, %v", got, ok)
	}
}

func TestRegisterTypeRejectsIncompatibleRedefinition(t *testing.T) {
	r := NewRegistry("inst-1", nil)
	if err := r.RegisterType(TypeInfo{Name: "Vector3", Size: 24, Alignment: 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.RegisterType(TypeInfo{Name: "Vector3", Size: 32, Alignment: 8})
	if err == nil {
		t.Fatal("expected IncompatibleTypeError for mismatched size")
	}
	if _, ok := err.(*IncompatibleTypeError); !ok {
		t.Fatalf("expected *IncompatibleTypeError, got %T", err)
	}
}

func TestMarkInstalledOnlyOncePerType(t *testing.T) {
	r := NewRegistry("inst-1", nil)
	if r.markInstalled("Vector3") {
		t.Fatal("first call should report not-yet-installed")
	}
	if !r.markInstalled("Vector3") {
		t.Fatal("second call should report already-installed")
	}
}
