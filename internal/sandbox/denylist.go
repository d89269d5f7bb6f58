package sandbox

// basicDenylist is the set of globally named entities Basic removes
// outright (spec.md §4.7): file/process escape hatches and the
// introspection libraries that could defeat any other restriction.
var basicDenylist = []string{
	"dofile", "loadfile", "require",
	"io", "os", "debug", "package",
	"load", "loadstring", "getfenv", "setfenv",
}

// strictAllowlist is the complete set of names present in a Strict
// environment table (spec.md §4.7): safe reflective primitives plus the
// math/string/table libraries.
var strictAllowlist = []string{
	"print", "tostring", "tonumber", "type", "next", "pairs", "ipairs",
	"math", "string", "table",
}
