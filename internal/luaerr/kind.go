// Package luaerr defines the stable error taxonomy shared by every
// component from the stack converter up through the tenant manager
// (spec.md §4.6): a flat Kind enum plus a structured Error that carries
// position/trace context, generalizing the teacher's two-tier error design
// (internal/interp/errors.ErrorCategory wrapping *InterpreterError).
package luaerr

// Kind classifies a failure into one of the taxonomy buckets every
// component (C2-C11) reports errors through, stable across the module per
// spec.md §4.6.
type Kind int

const (
	Syntax Kind = iota
	Runtime
	Memory
	InHandler
	StackOverflow
	Bytecode
	TypeMismatch
	Timeout
	ResourceLimit
	Security
	IsolationBreach

	// The remaining kinds complete spec.md §7's taxonomy; the pool (C9),
	// the snapshot manager (C8) and the tenant manager (C10) raise some of
	// them (PoolExhausted, SnapshotNotFound, TenantNotFound,
	// TenantAlreadyExists, QuotaExceeded).
	PoolExhausted
	TenantNotFound
	TenantAlreadyExists
	QuotaExceeded
	PermissionDenied
	SnapshotNotFound
	CircularReference
	TooDeep
	UnsupportedType
	IncompatibleVersion
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Runtime:
		return "runtime"
	case Memory:
		return "memory"
	case InHandler:
		return "in_handler"
	case StackOverflow:
		return "stack_overflow"
	case Bytecode:
		return "bytecode"
	case TypeMismatch:
		return "type_mismatch"
	case Timeout:
		return "timeout"
	case ResourceLimit:
		return "resource_limit"
	case Security:
		return "security"
	case IsolationBreach:
		return "isolation_breach"
	case PoolExhausted:
		return "pool_exhausted"
	case TenantNotFound:
		return "tenant_not_found"
	case TenantAlreadyExists:
		return "tenant_already_exists"
	case QuotaExceeded:
		return "quota_exceeded"
	case PermissionDenied:
		return "permission_denied"
	case SnapshotNotFound:
		return "snapshot_not_found"
	case CircularReference:
		return "circular_reference"
	case TooDeep:
		return "too_deep"
	case UnsupportedType:
		return "unsupported_type"
	case IncompatibleVersion:
		return "incompatible_version"
	default:
		return "unknown"
	}
}
