package instance

import (
	"sync"
	"sync/atomic"

	lua "github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/lua-embed/luabridge/internal/alloc"
	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/handle"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/weakref"
)

// Config configures a managed instance at Configure time (spec.md §4.8).
type Config struct {
	MaxMemoryBytes    int64
	Sandbox           sandbox.Config
	StackconvOptions  stackconv.Options
	ErrorCountLimit   int
	SnapshotPolicy    *SnapshotPolicy
	Logger            *zap.SugaredLogger
}

// Instance is a managed interpreter instance wrapping a single *lua.State:
// lifecycle state machine, GC tuning, optional snapshotting, and health
// reporting (spec.md §4.8).
type Instance struct {
	mu sync.Mutex

	stage Stage
	cfg   Config

	l       *lua.State
	reg     *handle.Registry
	weak    *weakref.Registry
	allocer *alloc.Shim
	sbox    *sandbox.Sandbox
	exec    *exec.Executor
	snaps   *SnapshotManager

	errorCount atomic.Int64
	callCount  atomic.Int64
}

// New creates a fresh instance in the Uninitialized stage; no *lua.State
// exists yet until Create runs.
func New() *Instance {
	return &Instance{stage: Uninitialized}
}

// Stage reports the current lifecycle stage.
func (i *Instance) Stage() Stage {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stage
}

func (i *Instance) transition(to Stage) error {
	if !i.stage.canTransitionTo(to) {
		return &InvalidTransitionError{From: i.stage, To: to}
	}
	i.stage = to
	return nil
}

// Create allocates the *lua.State and opens the standard libraries,
// transitioning Uninitialized → Created.
func (i *Instance) Create() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.transition(Created); err != nil {
		return err
	}
	i.l = lua.NewState()
	i.l.OpenLibraries()
	i.reg = handle.NewRegistry("", i.l)
	i.weak = weakref.NewRegistry(0)
	return nil
}

// Configure applies cfg (sandbox, GC tuning, allocator cap, snapshot
// policy) and transitions Created → Configured.
func (i *Instance) Configure(cfg Config) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.transition(Configured); err != nil {
		return err
	}
	return i.applyConfigLocked(cfg)
}

// applyConfigLocked performs the GC/sandbox/executor wiring Configure and
// Reset share; the caller must already hold i.mu.
func (i *Instance) applyConfigLocked(cfg Config) error {
	i.cfg = cfg
	if cfg.MaxMemoryBytes > 0 {
		i.allocer = alloc.New(cfg.MaxMemoryBytes, false)
	}
	tuneGC(i.l, cfg.MaxMemoryBytes)

	i.sbox = sandbox.New(cfg.Sandbox)
	if err := i.sbox.Apply(i.l); err != nil {
		return err
	}

	i.exec = exec.New(i.l, i.reg, cfg.StackconvOptions, i.allocer, i.sbox, cfg.Logger)

	if cfg.SnapshotPolicy != nil {
		i.snaps = NewSnapshotManager(*cfg.SnapshotPolicy)
	}
	return nil
}

// Activate transitions Configured/Suspended → Active.
func (i *Instance) Activate() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.transition(Active)
}

// Suspend transitions Active → Suspended, e.g. when returned to a pool.
func (i *Instance) Suspend() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.transition(Suspended)
}

// Reset clears the stack, rebuilds the global environment from scratch
// (standard libraries reopened, sandbox reapplied), and runs a full GC
// cycle: Active → Cleanup → Configured → Active (spec.md §4.8).
func (i *Instance) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resetLocked(i.cfg)
}

// UpdateConfig re-applies a new Config to an Active instance by driving it
// through the same Active → Cleanup → Configured → Active cycle as Reset,
// but with cfg substituted for the instance's current configuration. Used
// by the tenant manager's update_limits (spec.md §4.10).
func (i *Instance) UpdateConfig(cfg Config) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resetLocked(cfg)
}

// resetLocked performs the Active → Cleanup → Configured → Active rebuild
// with cfg as the configuration to apply; the caller must already hold i.mu.
func (i *Instance) resetLocked(cfg Config) error {
	if err := i.transition(Cleanup); err != nil {
		return err
	}

	i.l.SetTop(0)
	i.l = lua.NewState()
	i.l.OpenLibraries()
	i.reg = handle.NewRegistry("", i.l)
	i.weak = weakref.NewRegistry(0)
	i.errorCount.Store(0)
	i.callCount.Store(0)

	if err := i.transition(Configured); err != nil {
		return err
	}
	if err := i.applyConfigLocked(cfg); err != nil {
		return err
	}

	i.l.GC(lua.GCCollect, 0)

	return i.transition(Active)
}

// Destroy transitions to the terminal Destroyed stage. Idempotent.
func (i *Instance) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stage == Destroyed {
		return nil
	}
	return i.transition(Destroyed)
}

// Executor exposes the instance's C6 executor for call_global/
// load_and_execute, valid only while Active.
func (i *Instance) Executor() (*exec.Executor, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stage != Active {
		return nil, luaerr.RuntimeError("instance is not active")
	}
	return i.exec, nil
}

// RecordError increments the error counter used by HealthCheck.
func (i *Instance) RecordError() { i.errorCount.Add(1) }

// ForceUnhealthy marks the instance so the next HealthCheck fails
// regardless of its configured error-count threshold, used by C11's
// new_state recovery strategy to signal the owning pool to replace rather
// than recycle this instance.
func (i *Instance) ForceUnhealthy() {
	i.mu.Lock()
	threshold := i.cfg.ErrorCountLimit
	i.mu.Unlock()
	if threshold <= 0 {
		threshold = 1
	}
	i.errorCount.Store(int64(threshold))
}

// RecordCall increments the call counter used by usage reporting.
func (i *Instance) RecordCall() { i.callCount.Add(1) }

// CallCount returns the number of calls executed since the last Reset.
func (i *Instance) CallCount() int64 { return i.callCount.Load() }

// CurrentMemoryBytes reports the allocator shim's current usage, or 0 if
// no cap is configured.
func (i *Instance) CurrentMemoryBytes() int64 {
	if i.allocer == nil {
		return 0
	}
	return i.allocer.CurrentBytes()
}

// HealthCheck reports whether the instance is healthy: stage == Active,
// error_count below the configured threshold, and current memory at most
// 2x the configured cap (spec.md §4.8).
func (i *Instance) HealthCheck() bool {
	i.mu.Lock()
	stage := i.stage
	memCap := i.cfg.MaxMemoryBytes
	threshold := i.cfg.ErrorCountLimit
	i.mu.Unlock()

	if stage != Active {
		return false
	}
	if threshold > 0 && i.errorCount.Load() >= int64(threshold) {
		return false
	}
	if memCap > 0 && i.CurrentMemoryBytes() > 2*memCap {
		return false
	}
	return true
}

// ValidateSuspended is the pool's cheap validity probe for an idle
// instance (spec.md §4.9's "cheap stack-probe + health check" before
// Acquire recycles or returns it): same error-count and memory bounds as
// HealthCheck, but for the Suspended stage rather than Active.
func (i *Instance) ValidateSuspended() bool {
	i.mu.Lock()
	stage := i.stage
	memCap := i.cfg.MaxMemoryBytes
	threshold := i.cfg.ErrorCountLimit
	i.mu.Unlock()

	if stage != Suspended {
		return false
	}
	if threshold > 0 && i.errorCount.Load() >= int64(threshold) {
		return false
	}
	if memCap > 0 && i.CurrentMemoryBytes() > 2*memCap {
		return false
	}
	return i.l != nil && i.l.Top() >= 0 // cheap stack probe
}

// Registry exposes the handle registry for C3 operations.
func (i *Instance) Registry() *handle.Registry { return i.reg }

// WeakRefs exposes the weak-reference registry for C4 operations.
func (i *Instance) WeakRefs() *weakref.Registry { return i.weak }

// State exposes the raw *lua.State for components that need direct stack
// access (e.g. the snapshot manager).
func (i *Instance) State() *lua.State { return i.l }

// Sandbox exposes the configured sandbox for security re-validation.
func (i *Instance) Sandbox() *sandbox.Sandbox { return i.sbox }

// Snapshots exposes the instance's snapshot manager, nil if no snapshot
// policy was configured.
func (i *Instance) Snapshots() *SnapshotManager { return i.snaps }
