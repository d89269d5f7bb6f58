package luaerr

import "fmt"

// Standardized message formats, mirroring the teacher's error message
// catalog (internal/interp/errors/catalog.go): lowercase, present tense,
// "kind: reason" shape.
const (
	msgSyntax          = "syntax error: %s"
	msgRuntime         = "runtime error: %s"
	msgMemory          = "allocation failed: %s"
	msgInHandler       = "error in error handler: %s"
	msgStackOverflow   = "stack overflow: requested %d additional slots"
	msgBytecodeDenied  = "bytecode loading is not permitted for this instance"
	msgTypeMismatch    = "type mismatch: expected %s, got %s"
	msgTimeout         = "execution exceeded timeout of %d ms"
	msgResourceLimit   = "resource limit exceeded: %s (limit %d, actual %d)"
	msgSecurity            = "security check failed: %s"
	msgIsolationBreach     = "isolation breach detected: %s"
	msgPoolExhausted       = "resource limit exceeded: instance pool exhausted (max_pool_size %d)"
	msgTenantNotFound      = "tenant not found: %s"
	msgTenantAlreadyExists = "tenant already exists: %s"
	msgQuotaExceeded       = "quota exceeded: %s (limit %d, actual %d)"
	msgPermissionDenied    = "permission denied: %s"
	msgSnapshotNotFound    = "snapshot not found: %s"
	msgCircularReference   = "circular reference detected while converting %s"
	msgTooDeep             = "nesting exceeds max_depth %d"
	msgUnsupportedType     = "unsupported type: %s"
	msgIncompatibleVersion = "incompatible snapshot version: %s"
)

// SyntaxError wraps a compile-time failure reported by the interpreter's
// loader.
func SyntaxError(detail string) *Error {
	return &Error{Kind: Syntax, Message: fmt.Sprintf(msgSyntax, detail)}
}

// RuntimeError wraps an uncaught script-level error raised during a call.
func RuntimeError(detail string) *Error {
	return &Error{Kind: Runtime, Message: fmt.Sprintf(msgRuntime, detail)}
}

// MemoryError wraps an allocator-shim failure (C5) surfaced through a call.
func MemoryError(detail string) *Error {
	return &Error{Kind: Memory, Message: fmt.Sprintf(msgMemory, detail)}
}

// InHandlerError wraps a failure that occurred inside the traceback error
// handler itself.
func InHandlerError(detail string) *Error {
	return &Error{Kind: InHandler, Message: fmt.Sprintf(msgInHandler, detail)}
}

// StackOverflowError reports that stack_reserve slots were unavailable
// before a protected call (spec.md §4.6).
func StackOverflowError(requested int) *Error {
	return &Error{Kind: StackOverflow, Message: fmt.Sprintf(msgStackOverflow, requested)}
}

// BytecodeDeniedError reports that a source beginning with the bytecode
// marker byte was rejected because allow_bytecode is false.
func BytecodeDeniedError() *Error {
	return &Error{Kind: Bytecode, Message: msgBytecodeDenied}
}

// TypeMismatchError reports an argument or return value of the wrong kind.
func TypeMismatchError(expected, actual string) *Error {
	return &Error{Kind: TypeMismatch, Message: fmt.Sprintf(msgTypeMismatch, expected, actual)}
}

// TimeoutError reports that the instruction-count hook's wall-clock budget
// was exceeded.
func TimeoutError(timeoutMs int64) *Error {
	return &Error{Kind: Timeout, Message: fmt.Sprintf(msgTimeout, timeoutMs)}
}

// ResourceLimitError reports a tenant quota (C10) violation.
func ResourceLimitError(resource string, limit, actual int64) *Error {
	return &Error{Kind: ResourceLimit, Message: fmt.Sprintf(msgResourceLimit, resource, limit, actual)}
}

// SecurityError reports a sandbox capability check (C7) rejection.
func SecurityError(detail string) *Error {
	return &Error{Kind: Security, Message: fmt.Sprintf(msgSecurity, detail)}
}

// IsolationBreachError reports that the security validation routine (C7)
// found the live interpreter in a state inconsistent with its configured
// sandbox.
func IsolationBreachError(detail string) *Error {
	return &Error{Kind: IsolationBreach, Message: fmt.Sprintf(msgIsolationBreach, detail)}
}

// PoolExhaustedError reports that Acquire found no available instance and
// capacity did not permit creating a new one (C9).
func PoolExhaustedError(maxPoolSize int) *Error {
	return &Error{Kind: PoolExhausted, Message: fmt.Sprintf(msgPoolExhausted, maxPoolSize)}
}

// TenantNotFoundError reports a lookup against an unknown tenant ID (C10).
func TenantNotFoundError(tenantID string) *Error {
	return &Error{Kind: TenantNotFound, Message: fmt.Sprintf(msgTenantNotFound, tenantID)}
}

// TenantAlreadyExistsError reports create_tenant called with a duplicate
// ID (C10).
func TenantAlreadyExistsError(tenantID string) *Error {
	return &Error{Kind: TenantAlreadyExists, Message: fmt.Sprintf(msgTenantAlreadyExists, tenantID)}
}

// QuotaExceededError reports a tenant resource limit breach (C10) distinct
// from a bare ResourceLimitError raised by the pool itself.
func QuotaExceededError(resource string, limit, actual int64) *Error {
	return &Error{Kind: QuotaExceeded, Message: fmt.Sprintf(msgQuotaExceeded, resource, limit, actual)}
}

// PermissionDeniedError reports a capability check rejection at the host
// API boundary (pkg/luabridge), distinct from C7's internal SecurityError.
func PermissionDeniedError(detail string) *Error {
	return &Error{Kind: PermissionDenied, Message: fmt.Sprintf(msgPermissionDenied, detail)}
}

// SnapshotNotFoundError reports a lookup against an unknown snapshot ID
// (C8).
func SnapshotNotFoundError(id string) *Error {
	return &Error{Kind: SnapshotNotFound, Message: fmt.Sprintf(msgSnapshotNotFound, id)}
}

// CircularReferenceError reports a script-authored table cycle detected
// during pull (C2).
func CircularReferenceError(context string) *Error {
	return &Error{Kind: CircularReference, Message: fmt.Sprintf(msgCircularReference, context)}
}

// TooDeepError reports a container nested beyond max_depth during pull
// (C2).
func TooDeepError(maxDepth int) *Error {
	return &Error{Kind: TooDeep, Message: fmt.Sprintf(msgTooDeep, maxDepth)}
}

// UnsupportedTypeError reports a Go value with no Lua-bridge representation
// encountered during push (C2).
func UnsupportedTypeError(goType string) *Error {
	return &Error{Kind: UnsupportedType, Message: fmt.Sprintf(msgUnsupportedType, goType)}
}

// IncompatibleVersionError reports a snapshot whose wire format does not
// match what this build can restore (C8).
func IncompatibleVersionError(detail string) *Error {
	return &Error{Kind: IncompatibleVersion, Message: fmt.Sprintf(msgIncompatibleVersion, detail)}
}
