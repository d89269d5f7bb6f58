package stackconv

import (
	"testing"

	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/value"
)

func newTestState(t *testing.T) (*lua.State, *handle.Registry) {
	t.Helper()
	l := lua.NewState()
	l.OpenLibraries()
	return l, handle.NewRegistry("test-instance", l)
}

func TestPushPullNilRoundTrip(t *testing.T) {
	l, reg := newTestState(t)
	opts := DefaultOptions()

	if err := Push(l, reg, opts, value.Nil{}); err != nil {
		t.Fatalf("push nil: %v", err)
	}
	got, err := Pull(l, reg, opts, -1)
	if err != nil {
		t.Fatalf("pull nil: %v", err)
	}
	if !value.IsNil(got) {
		t.Fatalf("expected Nil round trip, got %#v", got)
	}
}

func TestPushPullPrimitives(t *testing.T) {
	l, reg := newTestState(t)
	opts := DefaultOptions()

	cases := []value.Value{
		value.Boolean(true),
		value.Integer(42),
		value.Number(3.5),
		value.NewString("hello\x00world"),
	}
	for _, c := range cases {
		if err := Push(l, reg, opts, c); err != nil {
			t.Fatalf("push %v: %v", c, err)
		}
		got, err := Pull(l, reg, opts, -1)
		if err != nil {
			t.Fatalf("pull %v: %v", c, err)
		}
		if !value.Equal(c, got) {
			t.Fatalf("round trip mismatch: pushed %v, pulled %v", value.DebugString(c), value.DebugString(got))
		}
		l.Pop(1)
	}
}

func TestArrayRoundTripPreservesOrder(t *testing.T) {
	l, reg := newTestState(t)
	opts := DefaultOptions()

	arr := value.NewArray(value.Integer(10), value.Integer(20), value.Integer(30))
	if err := Push(l, reg, opts, arr); err != nil {
		t.Fatalf("push array: %v", err)
	}
	got, err := Pull(l, reg, opts, -1)
	if err != nil {
		t.Fatalf("pull array: %v", err)
	}
	gotArr, ok := got.(*value.Array)
	if !ok || len(gotArr.Elements) != 3 {
		t.Fatalf("expected 3-element array, got %#v", got)
	}
	for i, want := range []int64{10, 20, 30} {
		if gotArr.Elements[i].(value.Integer) != value.Integer(want) {
			t.Fatalf("element %d mismatch: %v", i, gotArr.Elements[i])
		}
	}
}

func TestObjectRoundTripPreservesKeySet(t *testing.T) {
	l, reg := newTestState(t)
	opts := DefaultOptions()

	obj := value.NewObject()
	obj.Set("a", value.Integer(1))
	obj.Set("b", value.NewString("hi"))
	if err := Push(l, reg, opts, obj); err != nil {
		t.Fatalf("push object: %v", err)
	}
	got, err := Pull(l, reg, opts, -1)
	if err != nil {
		t.Fatalf("pull object: %v", err)
	}
	gotObj, ok := got.(*value.Object)
	if !ok || gotObj.Len() != 2 {
		t.Fatalf("expected 2-field object, got %#v", got)
	}
	if v, ok := gotObj.Get("a"); !ok || v.(value.Integer) != 1 {
		t.Fatalf("field a mismatch: %v, %v", v, ok)
	}
}

func TestDepthBoundary(t *testing.T) {
	l, reg := newTestState(t)
	opts := Options{MaxDepth: 2, AllowFunctions: true}

	nested := value.NewArray(value.NewArray(value.NewArray(value.Integer(1))))
	if err := Push(l, reg, DefaultOptions(), nested); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := Pull(l, reg, opts, -1); err == nil {
		t.Fatal("expected TooDeepError exceeding max depth")
	}
}
