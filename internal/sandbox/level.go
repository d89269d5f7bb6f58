// Package sandbox implements the three isolation levels (C7): global
// filtering, capability gating for require, and the security validation
// routine that re-checks a live interpreter against its configured
// sandbox. Grounded on the teacher's semantic-validation pass style
// (internal/semantic: a restriction-checking stage run before execution)
// generalized from compile-time type checking to runtime global-table
// filtering.
package sandbox

// Level selects how aggressively an instance's global environment is
// restricted (spec.md §4.7).
type Level int

const (
	// None leaves the default globals intact.
	None Level = iota
	// Basic removes filesystem/process/introspection access.
	Basic
	// Strict applies Basic, then installs a minimal allow-listed
	// environment as the default for user code.
	Strict
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Basic:
		return "basic"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}
