// Package instance implements the managed interpreter instance (C8): a
// lifecycle state machine wrapped around a single *lua.State, GC tuning
// derived from a configured memory cap, an optional snapshot manager, and
// a health check. Grounded on the teacher's interpreter construction and
// reset flow (internal/interp/interpreter.go's New/reset helpers) and its
// runtime pooling knobs (internal/interp/runtime/pool.go).
package instance

// Stage is the managed instance's lifecycle state (spec.md §4.8).
type Stage int

const (
	Uninitialized Stage = iota
	Created
	Configured
	Active
	Suspended
	Cleanup
	Destroyed
)

func (s Stage) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case Configured:
		return "configured"
	case Active:
		return "active"
	case Suspended:
		return "suspended"
	case Cleanup:
		return "cleanup"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// transitions enumerates every legal Stage move; Transition rejects
// anything else (spec.md §4.8's explicit state machine).
var transitions = map[Stage][]Stage{
	Uninitialized: {Created},
	Created:       {Configured, Destroyed},
	Configured:    {Active, Destroyed},
	Active:        {Suspended, Cleanup, Destroyed},
	Suspended:     {Active, Destroyed},
	Cleanup:       {Configured, Destroyed},
	Destroyed:     {},
}

func (s Stage) canTransitionTo(next Stage) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
