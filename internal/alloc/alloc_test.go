package alloc

import "testing"

func TestAllocRespectsCap(t *testing.T) {
	s := New(1024, false)
	if _, err := s.Alloc(512); err != nil {
		t.Fatalf("unexpected error under cap: %v", err)
	}
	if _, err := s.Alloc(512); err != nil {
		t.Fatalf("unexpected error reaching cap exactly: %v", err)
	}
	if _, err := s.Alloc(1); err == nil {
		t.Fatal("expected out-of-memory error breaching cap")
	}
	if got := s.Stats().FailureCount; got != 1 {
		t.Fatalf("expected one recorded failure, got %d", got)
	}
}

func TestFreeSaturatesAtZero(t *testing.T) {
	s := New(0, false)
	tok, _ := s.Alloc(100)
	s.Free(tok, 100)
	s.Free(tok, 50) // double-free style overcount must not go negative
	if s.CurrentBytes() != 0 {
		t.Fatalf("expected saturating subtraction to clamp at 0, got %d", s.CurrentBytes())
	}
}

func TestPeakAllocatedTracksHighWaterMark(t *testing.T) {
	s := New(0, false)
	tok, _ := s.Alloc(1000)
	s.Free(tok, 1000)
	s.Alloc(10)
	if s.Stats().PeakAllocated != 1000 {
		t.Fatalf("expected peak to remain at historical high, got %d", s.Stats().PeakAllocated)
	}
}

func TestReallocOnlyChecksDelta(t *testing.T) {
	s := New(150, false)
	tok, err := s.Alloc(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Realloc(tok, 100, 140); err != nil {
		t.Fatalf("growing within cap should succeed: %v", err)
	}
	if _, err := s.Realloc(tok, 140, 1000); err == nil {
		t.Fatal("expected out-of-memory growing past cap")
	}
}

func TestDebugModeLeakReport(t *testing.T) {
	s := New(0, true)
	tok, _ := s.Alloc(64)
	report := s.LeakReport()
	if report[tok] != 64 {
		t.Fatalf("expected leak report to show live allocation, got %v", report)
	}
	s.Free(tok, 64)
	if len(s.LeakReport()) != 0 {
		t.Fatal("expected leak report to be empty after free")
	}
}
