package weakref

import (
	"testing"
	"time"
)

func TestScriptRefExpiresWhenProbeGoesDead(t *testing.T) {
	r := NewRegistry(time.Minute)
	alive := true
	ref := r.NewScriptRef(func(ID) bool { return alive })

	live, err := r.LookupScript(ref.ID, time.Now())
	if err != nil || !live {
		t.Fatalf("expected live reference, got live=%v err=%v", live, err)
	}

	alive = false
	live, err = r.LookupScript(ref.ID, time.Now())
	if err != nil {
		t.Fatalf("expired reference should not error, got %v", err)
	}
	if live {
		t.Fatal("expected reference to report expired once probe goes dead")
	}
	if ref.State() != StateExpired {
		t.Fatalf("expected StateExpired, got %v", ref.State())
	}
}

func TestHostRefCollectedAtZeroRefCount(t *testing.T) {
	r := NewRegistry(time.Minute)
	ref := r.NewHostRef("payload", 8)
	ref.Retain()
	if n := ref.Release(); n != 1 {
		t.Fatalf("expected refcount 1 after one release, got %d", n)
	}
	if ref.State() != StateActive {
		t.Fatalf("expected still active, got %v", ref.State())
	}
	ref.Release()
	if ref.State() != StateCollected {
		t.Fatalf("expected StateCollected at zero refcount, got %v", ref.State())
	}
	if _, err := r.LookupHost(ref.ID); err != ErrCollected {
		t.Fatalf("expected ErrCollected, got %v", err)
	}
}

func TestPairReconcileExpiresBothSides(t *testing.T) {
	r := NewRegistry(time.Minute)
	script := r.NewScriptRef(func(ID) bool { return false })
	host := r.NewHostRef("x", 1)
	pair := r.NewPair(script, host)

	if state := pair.Reconcile(time.Now()); state != StateExpired {
		t.Fatalf("expected pair to expire when script side is dead, got %v", state)
	}
	if host.State() != StateExpired {
		t.Fatalf("expected host side to transition to Expired, got %v", host.State())
	}
}

func TestSweepRemovesCollectedEntries(t *testing.T) {
	r := NewRegistry(0) // use the one-minute default, force via direct sweep
	host := r.NewHostRef("x", 1)
	host.Release() // refcount -> 0, Collected

	r.sweep(time.Now())

	if stats := r.Stats(); stats.HostRefs != 0 {
		t.Fatalf("expected collected host ref to be swept, stats=%+v", stats)
	}
}
