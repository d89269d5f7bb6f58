package panicsurf

// Strategy selects how a ProtectedExecutor responds to a classified panic
// (spec.md §4.11).
type Strategy int

const (
	// Propagate converts the panic into a returned error without touching
	// the owning instance's state.
	Propagate Strategy = iota
	// ResetState drives the owning instance through Reset, discarding any
	// in-progress script state but keeping the instance in the pool.
	ResetState
	// NewState marks the instance unhealthy so the pool replaces it on
	// release rather than recycling it.
	NewState
	// Custom delegates entirely to Policy.Handler.
	Custom
)

// Policy configures a ProtectedExecutor's response to a recovered panic.
type Policy struct {
	Strategy Strategy
	// Handler is invoked when Strategy is Custom; any error it returns
	// propagates to the caller of Execute.
	Handler func(PanicInfo) error
}

// DefaultPolicy resets the instance (ResetState) on every recovered panic,
// whatever its classified kind.
func DefaultPolicy() Policy {
	return Policy{Strategy: ResetState}
}
