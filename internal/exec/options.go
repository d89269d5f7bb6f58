package exec

// LoadMode selects the compilation mode load_and_execute uses, mirroring
// go-lua's text/binary chunk distinction (spec.md §4.6).
type LoadMode int

const (
	ModeText LoadMode = iota
	ModeBinary
)

// Options configures a single load_and_execute / call_global / pcall_wrapped
// invocation (spec.md §4.6).
type Options struct {
	// AllowBytecode gates whether a source beginning with the bytecode
	// marker byte is accepted at all.
	AllowBytecode bool
	Mode          LoadMode

	// StackReserve is the number of stack slots pre-sized before the call;
	// failure to reserve them surfaces as StackOverflow.
	StackReserve int

	CaptureStackTrace bool
	MaxTraceDepth     int

	// TimeoutMs and YieldInstructions each independently trigger
	// installation of the instruction-count hook; either being > 0 is
	// sufficient.
	TimeoutMs         int64
	YieldInstructions int64

	MultiReturn     bool
	ExpectedReturns int
}

// DefaultOptions returns conservative defaults: no bytecode, text mode, a
// modest stack reserve, traceback capture on, no timeout.
func DefaultOptions() Options {
	return Options{
		AllowBytecode:     false,
		Mode:              ModeText,
		StackReserve:      32,
		CaptureStackTrace: true,
		MaxTraceDepth:     32,
		MultiReturn:       false,
		ExpectedReturns:   1,
	}
}
