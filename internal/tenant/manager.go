package tenant

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/stackconv"
)

// capabilityDenylist maps a disabled capability flag to the extra globals
// DeniedGlobals must carry on top of the sandbox Level's own denylist, since
// Basic/Strict already remove the dangerous set but a tenant may need finer
// per-capability control (e.g. allow_os=false while allow_io=true).
var capabilityDenylist = map[string][]string{
	"io":      {"io"},
	"os":      {"os"},
	"package": {"package", "require"},
	"debug":   {"debug"},
}

// Usage reports a tenant's accumulated resource consumption (spec.md
// §4.10's get_usage).
type Usage struct {
	MemoryBytes int64
	CallCount   int64
	ErrorCount  int64
}

// Tenant is one isolated scripting tenant: a dedicated managed instance
// plus the limits that were last applied to it.
type Tenant struct {
	ID     string
	Name   string
	Limits Limits

	inst      *instance.Instance
	createdAt time.Time
}

// Manager owns the set of active tenants, enforcing a global tenant cap and
// providing the create/execute/usage/update-limits operations of spec.md
// §4.10. Grounded on the teacher's registry-with-counters idiom
// (internal/interp/runtime/method_registry.go), generalized from method IDs
// to tenant IDs.
type Manager struct {
	mu         sync.RWMutex
	tenants    map[string]*Tenant
	maxTenants int
	log        *zap.SugaredLogger
}

// NewManager constructs a Manager. maxTenants <= 0 means unbounded. A nil
// logger falls back to a no-op logger, matching exec.New's convention.
func NewManager(maxTenants int, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		tenants:    make(map[string]*Tenant),
		maxTenants: maxTenants,
		log:        log,
	}
}

// CreateTenant provisions a dedicated instance for id, refusing duplicate
// IDs and enforcing the global tenant cap (spec.md §4.10). id may be empty,
// in which case a UUID is generated. limits may be nil to use DefaultLimits.
func (m *Manager) CreateTenant(id, name string, limits *Limits) (*Tenant, error) {
	if id == "" {
		id = uuid.NewString()
	}
	lim := DefaultLimits()
	if limits != nil {
		lim = *limits
	}

	m.mu.Lock()
	if _, exists := m.tenants[id]; exists {
		m.mu.Unlock()
		return nil, luaerr.TenantAlreadyExistsError(id)
	}
	if m.maxTenants > 0 && len(m.tenants) >= m.maxTenants {
		m.mu.Unlock()
		return nil, luaerr.QuotaExceededError("tenant_count", int64(m.maxTenants), int64(len(m.tenants)))
	}
	m.mu.Unlock()

	inst := instance.New()
	if err := inst.Create(); err != nil {
		return nil, err
	}
	if err := inst.Configure(instanceConfigFor(lim, m.log)); err != nil {
		return nil, err
	}
	if err := inst.Activate(); err != nil {
		return nil, err
	}

	t := &Tenant{ID: id, Name: name, Limits: lim, inst: inst, createdAt: time.Now()}

	m.mu.Lock()
	m.tenants[id] = t
	m.mu.Unlock()

	m.log.Infow("tenant created", "tenant_id", id, "name", name)
	return t, nil
}

// instanceConfigFor translates tenant Limits into an instance.Config,
// layering capability-flag denials on top of a Basic sandbox, or a Strict
// one when neither metatables nor coroutines are allowed.
func instanceConfigFor(lim Limits, log *zap.SugaredLogger) instance.Config {
	denied := append([]string{}, lim.DeniedGlobals...)
	if !lim.AllowIO {
		denied = append(denied, capabilityDenylist["io"]...)
	}
	if !lim.AllowOS {
		denied = append(denied, capabilityDenylist["os"]...)
	}
	if !lim.AllowPackage {
		denied = append(denied, capabilityDenylist["package"]...)
	}
	if !lim.AllowDebug {
		denied = append(denied, capabilityDenylist["debug"]...)
	}

	level := sandbox.Basic
	if !lim.AllowMetatables && !lim.AllowCoroutines {
		level = sandbox.Strict
	}

	return instance.Config{
		MaxMemoryBytes: lim.MaxMemoryBytes,
		Sandbox: sandbox.Config{
			Level:           level,
			AllowedModules:  lim.AllowedModules,
			DeniedGlobals:   denied,
			MaxStringLength: lim.MaxStringLength,
		},
		StackconvOptions: stackconv.DefaultOptions(),
		ErrorCountLimit:  10,
		Logger:           log,
	}
}

// Get returns the tenant by ID.
func (m *Manager) Get(id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, luaerr.TenantNotFoundError(id)
	}
	return t, nil
}

// Execute runs source under tenant_id's dedicated instance, re-validating
// the sandbox for isolation breaches before executing and recording usage
// counters afterward (spec.md §4.10).
func (m *Manager) Execute(tenantID string, source []byte, scriptName string) (*exec.ExecutionResult, error) {
	t, err := m.Get(tenantID)
	if err != nil {
		return nil, err
	}

	if t.Limits.MaxFunctionCalls > 0 && t.inst.CallCount() >= t.Limits.MaxFunctionCalls {
		return nil, luaerr.QuotaExceededError("max_function_calls", t.Limits.MaxFunctionCalls, t.inst.CallCount())
	}

	if sbox := t.inst.Sandbox(); sbox != nil {
		if err := sbox.Validate(t.inst.State(), false, false); err != nil {
			t.inst.RecordError()
			return nil, err
		}
	}

	ex, err := t.inst.Executor()
	if err != nil {
		return nil, err
	}

	opts := exec.DefaultOptions()
	opts.AllowBytecode = t.Limits.AllowBytecode
	opts.TimeoutMs = t.Limits.MaxCPUTimeMs

	result := ex.LoadAndExecute(source, scriptName, opts)
	t.inst.RecordCall()
	if result.Err != nil {
		t.inst.RecordError()
	}
	return result, nil
}

// GetUsage reports tenant_id's accumulated memory and call statistics
// (spec.md §4.10); Usage.ErrorCount is not filled in and stays zero.
func (m *Manager) GetUsage(tenantID string) (Usage, error) {
	t, err := m.Get(tenantID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		MemoryBytes: t.inst.CurrentMemoryBytes(),
		CallCount:   t.inst.CallCount(),
	}, nil
}

// UpdateLimits replaces tenant_id's limits and re-applies sandbox
// restrictions via Reset (spec.md §4.10).
func (m *Manager) UpdateLimits(tenantID string, newLimits Limits) error {
	t, err := m.Get(tenantID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	t.Limits = newLimits
	m.mu.Unlock()

	return t.inst.UpdateConfig(instanceConfigFor(newLimits, m.log))
}

// RemoveTenant destroys tenant_id's instance and drops it from the manager.
func (m *Manager) RemoveTenant(tenantID string) error {
	t, err := m.Get(tenantID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.tenants, tenantID)
	m.mu.Unlock()
	return t.inst.Destroy()
}

// Count reports the number of live tenants.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tenants)
}
