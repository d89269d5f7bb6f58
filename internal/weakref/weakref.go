// Package weakref implements the bidirectional weak-reference registry
// (C4): non-owning references between host and script objects that
// observe liveness without ever forming an owning cycle (spec.md §3.3,
// §9 "Weak references between host and script objects").
//
// Grounded on the teacher's internal/interp/runtime/refcount.go callback-
// based lifecycle management (RefCountManager / DestructorCallback),
// generalized from strong reference counting to a tri-state weak
// reference, and on method_registry.go's ID-keyed RWMutex registry shape.
package weakref

import (
	"sync/atomic"
	"time"
)

// State is the lifecycle of a weak reference, per spec.md §3.3/§9.
type State int

const (
	StateActive State = iota
	StateExpired
	StateCollected
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateCollected:
		return "collected"
	default:
		return "unknown"
	}
}

// ID is a monotonically increasing reference identifier.
type ID int64

// LivenessProbe pushes the registry slot backing a script-side reference
// and reports whether it is still live, i.e. not yet reclaimed by the
// script's garbage collector.
// Implemented by the stack converter / instance layer, which has access to
// the live *lua.State; weakref itself has no interpreter dependency.
type LivenessProbe func(id ID) (live bool)

// ScriptRef is a script→host weak reference: an integer handle into the
// owning registry plus access bookkeeping.
type ScriptRef struct {
	ID          ID
	lastAccess  atomic.Int64 // unix nanos
	accessCount atomic.Uint64
	probe       LivenessProbe
	state       atomic.Int32
}

// Touch records an access and returns whether the reference is still live.
func (r *ScriptRef) Touch(now time.Time) bool {
	r.lastAccess.Store(now.UnixNano())
	r.accessCount.Add(1)
	if State(r.state.Load()) == StateCollected {
		return false
	}
	if r.probe != nil && !r.probe(r.ID) {
		r.state.Store(int32(StateExpired))
		return false
	}
	return true
}

// State returns the current lifecycle state.
func (r *ScriptRef) State() State { return State(r.state.Load()) }

// AccessCount returns the number of times Touch was called, whether or not
// the reference was still live.
func (r *ScriptRef) AccessCount() uint64 { return r.accessCount.Load() }

// HostRef is a host→script weak reference: an opaque pointer, a size used
// to validate it hasn't been reallocated out from under the reference, and
// an atomic reference count.
type HostRef struct {
	ID       ID
	Ptr      any
	Size     uintptr
	refCount atomic.Int64
	state    atomic.Int32
}

// Retain increments the atomic reference count, returning the new count.
func (r *HostRef) Retain() int64 {
	return r.refCount.Add(1)
}

// Release decrements the reference count; when it reaches zero the
// reference transitions to Collected.
func (r *HostRef) Release() int64 {
	n := r.refCount.Add(-1)
	if n <= 0 {
		r.state.Store(int32(StateCollected))
	}
	return n
}

// State returns the current lifecycle state.
func (r *HostRef) State() State { return State(r.state.Load()) }

// Pair couples a ScriptRef and HostRef sharing one lifecycle: either side
// becoming invalid transitions the pair to Expired (spec.md §3.3).
type Pair struct {
	ID     ID
	Script *ScriptRef
	Host   *HostRef
}

// Reconcile observes both sides and transitions the pair to Expired if
// either side is no longer Active. Returns the resulting combined state.
func (p *Pair) Reconcile(now time.Time) State {
	scriptLive := p.Script == nil || p.Script.Touch(now)
	hostLive := p.Host == nil || p.Host.State() == StateActive
	if !scriptLive || !hostLive {
		if p.Script != nil {
			p.Script.state.Store(int32(StateExpired))
		}
		if p.Host != nil && p.Host.State() != StateCollected {
			p.Host.state.Store(int32(StateExpired))
		}
		return StateExpired
	}
	return StateActive
}
