// Package tenant implements the multi-tenant quota manager (C10): per-
// tenant resource limits, capability flags, and usage accounting layered
// on top of a dedicated managed instance per tenant. Grounded on the
// teacher's environment/symbol-table scoping style
// (internal/interp/environment.go) generalized from lexical scoping to
// resource-quota scoping.
package tenant

// Limits are the per-tenant resource caps and capability flags (spec.md
// §4.10).
type Limits struct {
	MaxMemoryBytes   int64
	MaxCPUTimeMs     int64
	MaxStackSize     int
	MaxGlobalVars    int
	MaxTableSize     int
	MaxStringLength  int
	MaxFunctionCalls int64

	AllowIO          bool
	AllowOS          bool
	AllowPackage     bool
	AllowDebug       bool
	AllowCoroutines  bool
	AllowMetatables  bool
	AllowBytecode    bool

	AllowedModules []string
	DeniedGlobals  []string
}

// DefaultLimits returns a conservative baseline: no dangerous
// capabilities, a 64 MiB memory cap, a 5 second CPU budget.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryBytes:   64 << 20,
		MaxCPUTimeMs:     5000,
		MaxStackSize:     256,
		MaxGlobalVars:    1024,
		MaxTableSize:     100_000,
		MaxStringLength:  1 << 20,
		MaxFunctionCalls: 1_000_000,
	}
}
