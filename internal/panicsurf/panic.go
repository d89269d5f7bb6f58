// Package panicsurf implements the panic/error surface (C11): classifying
// a Go-level panic recovered from inside the Lua VM boundary, and applying
// a configured recovery strategy to the owning instance. Grounded on
// internal/interp/errors/errors.go's InterpreterError (category + message)
// generalized to PanicInfo, and the recover-and-convert idiom visible at
// the call boundaries of internal/interp/interpreter.go.
package panicsurf

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies a recovered panic (spec.md §4.11).
type Kind int

const (
	Unknown Kind = iota
	MemoryPanic
	StackOverflowPanic
	ProtectionPanic
	InternalPanic
	ErrorObjectPanic
)

func (k Kind) String() string {
	switch k {
	case MemoryPanic:
		return "memory"
	case StackOverflowPanic:
		return "stack_overflow"
	case ProtectionPanic:
		return "protection"
	case InternalPanic:
		return "internal"
	case ErrorObjectPanic:
		return "error_object"
	default:
		return "unknown"
	}
}

// PanicInfo describes a panic recovered while running script code
// (spec.md §4.11).
type PanicInfo struct {
	Kind      Kind
	Message   string
	GoStack   string
	Recovered any
}

// Classify inspects a value recovered via recover() and assigns it a Kind.
// go-lua's pure-Go implementation panics (rather than returning an error)
// for a handful of fatal conditions that arise outside any pcall boundary
// it controls internally; Classify is the last line of defense for those.
func Classify(recovered any) PanicInfo {
	info := PanicInfo{Recovered: recovered, GoStack: string(debug.Stack())}

	msg := fmt.Sprint(recovered)
	info.Message = msg
	lower := strings.ToLower(msg)
	_, isErr := recovered.(error)

	switch {
	case strings.Contains(lower, "stack overflow"):
		info.Kind = StackOverflowPanic
	case strings.Contains(lower, "out of memory") || strings.Contains(lower, "not enough memory"):
		info.Kind = MemoryPanic
	case strings.Contains(lower, "index out of range") || strings.Contains(lower, "invalid memory address") || strings.Contains(lower, "nil pointer"):
		info.Kind = InternalPanic
	case strings.Contains(lower, "protect") || strings.Contains(lower, "permission") || strings.Contains(lower, "not allowed"):
		info.Kind = ProtectionPanic
	case isErr:
		info.Kind = ErrorObjectPanic
	default:
		info.Kind = Unknown
	}
	return info
}
