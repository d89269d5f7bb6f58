package luabridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/instpool"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
	"github.com/lua-embed/luabridge/internal/tenant"
	"github.com/lua-embed/luabridge/internal/value"
)

// Engine is the host-facing entry point: one initialization creates an
// instance pool, a tenant manager, and a capability-registration surface,
// per spec.md §6's "single initialization entry point" contract.
type Engine struct {
	cfg     Config
	pool    *instpool.Pool
	tenants *tenant.Manager
	log     *zap.SugaredLogger

	mu         sync.Mutex
	namespaces []namespace
}

// New constructs an Engine, warming its instance pool to MinPoolSize.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e := &Engine{cfg: cfg, log: log}

	pool, err := instpool.New(instpool.Config{
		MinPoolSize:  cfg.MinPoolSize,
		MaxPoolSize:  cfg.MaxPoolSize,
		MaxIdleTime:  cfg.MaxIdleTime,
		MaxStateAge:  cfg.MaxStateAge,
		MaxStateUses: cfg.MaxStateUses,
		Factory:      e.newInstance,
	})
	if err != nil {
		return nil, err
	}
	e.pool = pool
	e.tenants = tenant.NewManager(cfg.MaxTenants, log)
	return e, nil
}

// newInstance is the instpool.Config.Factory: a fresh instance plus the
// instance.Config this engine applies to every instance it owns.
func (e *Engine) newInstance() (*instance.Instance, instance.Config) {
	return instance.New(), instance.Config{
		MaxMemoryBytes: e.cfg.MaxMemoryBytes,
		Sandbox: sandbox.Config{
			Level: e.cfg.SandboxLevel,
		},
		StackconvOptions: stackconv.DefaultOptions(),
		ErrorCountLimit:  e.cfg.ErrorCountLimit,
		SnapshotPolicy:   e.cfg.snapshotPolicy(),
		Logger:           e.log,
	}
}

// Execute runs source under chunkName through a pooled instance, acquiring
// and releasing it automatically (spec.md §4.6/§4.9).
func (e *Engine) Execute(source []byte, chunkName string, opts exec.Options) (*exec.ExecutionResult, error) {
	inst, err := e.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer func() { _ = e.pool.Release(inst) }()

	if err := e.installNamespaces(inst); err != nil {
		return nil, err
	}

	ex, err := inst.Executor()
	if err != nil {
		return nil, err
	}
	if chunkName == "" {
		chunkName = "<script>"
	}
	result := ex.LoadAndExecute(source, chunkName, opts)
	inst.RecordCall()
	if result.Err != nil {
		inst.RecordError()
	}
	return result, nil
}

// CallGlobal invokes a previously defined global function on inst, a handle
// the host obtained from Acquire (and must Release when done). Since an
// instance acquired and released through Execute may be recycled or handed
// to another caller before a follow-up call, hosts that need "run a script,
// then call a function it defined" must hold the instance across both
// calls via Acquire/Release rather than calling Execute twice.
func (e *Engine) CallGlobal(inst *instance.Instance, name string, args []value.Value, opts exec.Options) (*exec.ExecutionResult, error) {
	ex, err := inst.Executor()
	if err != nil {
		return nil, err
	}
	result := ex.CallGlobal(name, args, opts)
	inst.RecordCall()
	if result.Err != nil {
		inst.RecordError()
	}
	return result, nil
}

// Acquire checks out a pooled instance for a sequence of calls the host
// wants to run on the same underlying interpreter (e.g. Execute followed
// by CallGlobal against a function the script just defined). Release must
// be called when done.
func (e *Engine) Acquire() (*instance.Instance, error) {
	inst, err := e.pool.Acquire()
	if err != nil {
		return nil, err
	}
	if err := e.installNamespaces(inst); err != nil {
		_ = e.pool.Release(inst)
		return nil, err
	}
	return inst, nil
}

// Release returns inst to the pool.
func (e *Engine) Release(inst *instance.Instance) error {
	return e.pool.Release(inst)
}

// PoolSize and PoolAvailable expose pool introspection for host monitoring
// (e.g. the cmd/luabridge pool-stats command).
func (e *Engine) PoolSize() int      { return e.pool.Size() }
func (e *Engine) PoolAvailable() int { return e.pool.Available() }

// Tenants exposes the tenant manager for create/execute/usage/update-limits
// operations (spec.md §4.10).
func (e *Engine) Tenants() *tenant.Manager { return e.tenants }
