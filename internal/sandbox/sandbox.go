package sandbox

import (
	lua "github.com/Shopify/go-lua"

	"github.com/lua-embed/luabridge/internal/luaerr"
)

// Config is the per-instance sandbox configuration (spec.md §4.7,
// generalized with C10's tenant capability flags).
type Config struct {
	Level Level

	// AllowedModules whitelists the names require may load; empty means
	// require itself was already removed by Basic/Strict, so this only
	// matters when Level is None but capability gating is still desired.
	AllowedModules []string
	// DeniedGlobals blacklists additional names on top of Level's set.
	DeniedGlobals []string

	MaxStringLength int
}

// Sandbox applies and re-validates a Config against a live *lua.State.
type Sandbox struct {
	cfg       Config
	allowlist map[string]bool // globals present immediately after Apply, for Validate
	envTable  bool             // whether a restricted environment table was installed
	envRef    int              // registry reference to the Strict environment table
}

// New constructs a Sandbox from cfg. Apply must be called once before use.
func New(cfg Config) *Sandbox {
	return &Sandbox{cfg: cfg}
}

// Apply installs the configured restrictions on l's global table: Basic and
// Strict remove the denylist, Strict additionally builds a fresh
// environment table and stashes it in the registry so the caller can
// install it as a loaded chunk's _ENV upvalue via SetChunkEnv.
func (s *Sandbox) Apply(l *lua.State) error {
	switch s.cfg.Level {
	case None:
		// default globals left intact.
	case Basic, Strict:
		removeGlobals(l, basicDenylist)
		removeGlobals(l, s.cfg.DeniedGlobals)
	}

	if s.cfg.Level == Strict {
		s.buildStrictEnv(l)
		s.envTable = true
	}

	if len(s.cfg.AllowedModules) > 0 && s.cfg.Level == None {
		installRequireWrapper(l, s.cfg.AllowedModules)
	}

	s.captureAllowlist(l)
	return nil
}

// SetChunkEnv sets the restricted environment table (built by Apply for
// Strict, retained in the registry) as upvalue 1 (_ENV) of the function at
// chunkIndex, matching Lua 5.2+ lexical-scoping semantics for a chunk's
// default environment. No-op when the sandbox is not Strict. Every closure
// the chunk defines shares this upvalue by reference, so a single call
// immediately after Load suffices for the whole chunk.
func (s *Sandbox) SetChunkEnv(l *lua.State, chunkIndex int) {
	if !s.envTable {
		return
	}
	abs := l.AbsIndex(chunkIndex)
	l.RawGetInt(lua.RegistryIndex, s.envRef)
	l.SetUpValue(abs, 1)
}

func removeGlobals(l *lua.State, names []string) {
	for _, name := range names {
		l.PushNil()
		l.SetGlobal(name)
	}
}

// buildStrictEnv builds a table containing only strictAllowlist's entries,
// copied by reference from the real global table, and stores it in the
// registry (via envRef) so it survives until a chunk claims it as _ENV.
func (s *Sandbox) buildStrictEnv(l *lua.State) {
	l.CreateTable(0, len(strictAllowlist))
	for _, name := range strictAllowlist {
		l.Global(name)
		l.SetField(-2, name)
	}
	s.envRef = l.Ref(lua.RegistryIndex)
}

// captureAllowlist snapshots the names currently reachable as globals so
// Validate can detect later additions (spec.md §4.7 security validation
// point (c)).
func (s *Sandbox) captureAllowlist(l *lua.State) {
	s.allowlist = make(map[string]bool)
	l.PushGlobalTable()
	l.PushNil()
	for l.Next(-2) {
		if l.TypeOf(-2) == lua.TypeString {
			name, _ := l.ToString(-2)
			s.allowlist[name] = true
		}
		l.Pop(1)
	}
	l.Pop(1)
}

// installRequireWrapper replaces the global require (if still present)
// with a wrapper that denies any module name outside allowed.
func installRequireWrapper(l *lua.State, allowed []string) {
	allowedSet := make(map[string]bool, len(allowed))
	for _, m := range allowed {
		allowedSet[m] = true
	}
	l.Global("require")
	if l.TypeOf(-1) != lua.TypeFunction {
		l.Pop(1)
		return
	}
	original := l.Ref(lua.RegistryIndex)
	l.PushGoFunction(func(l *lua.State) int {
		name, _ := l.ToString(1)
		if !allowedSet[name] {
			l.PushString("module '" + name + "' is not in the allowed module list")
			l.Error()
			return 0
		}
		l.RawGetInt(lua.RegistryIndex, original)
		l.PushValue(1)
		l.Call(1, 1)
		return 1
	})
	l.SetGlobal("require")
}

// Validate re-inspects the live interpreter against the configuration
// captured at Apply time (spec.md §4.7 security validation): an
// instruction-count hook must still be present when required, and no
// global outside the captured allow-list may have appeared. Any
// discrepancy is an IsolationBreach. It does not check that the Strict
// sandbox environment is still installed.
func (s *Sandbox) Validate(l *lua.State, requireHook bool, hookInstalled bool) error {
	if requireHook && !hookInstalled {
		return luaerr.IsolationBreachError("instruction-count hook missing")
	}

	current := make(map[string]bool)
	l.PushGlobalTable()
	l.PushNil()
	for l.Next(-2) {
		if l.TypeOf(-2) == lua.TypeString {
			name, _ := l.ToString(-2)
			current[name] = true
		}
		l.Pop(1)
	}
	l.Pop(1)

	for name := range current {
		if !s.allowlist[name] {
			return luaerr.IsolationBreachError("unexpected global introduced after sandbox configuration: " + name)
		}
	}
	return nil
}
