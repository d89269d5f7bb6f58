package handle

import (
	"sync"

	lua "github.com/Shopify/go-lua"
)

// TypeInfo describes a registered full-userdata type, installed once and
// cached thereafter (spec.md §3.2, §4.3).
type TypeInfo struct {
	Name               string
	Size               uintptr
	Alignment          uintptr
	Destructor         func(payload any)
	MetatableInstaller func(l *lua.State)
	Version            int
	Cacheable          bool
}

// Registry stores callable handles and registered userdata types for a
// single interpreter instance. All operations are safe for concurrent use,
// though spec.md §5 forbids concurrent execution on one instance — the
// RWMutex here guards registration races with the weak-reference cleanup
// sweep (C4), not script concurrency.
type Registry struct {
	mu         sync.RWMutex
	instanceID string
	l          *lua.State
	nextID     int
	callables  map[int]*Callable
	types      map[string]*TypeInfo
	installed  map[string]bool
}

// NewRegistry creates a handle registry scoped to instanceID, bound to the
// Lua state it indexes references into. A Registry is 1:1 with the
// interpreter instance that owns l; it must not outlive that instance.
func NewRegistry(instanceID string, l *lua.State) *Registry {
	return &Registry{
		instanceID: instanceID,
		l:          l,
		callables:  make(map[int]*Callable),
		types:      make(map[string]*TypeInfo),
		installed:  make(map[string]bool),
	}
}

// InstanceID returns the owning interpreter instance's ID.
func (r *Registry) InstanceID() string { return r.instanceID }

// RegisterType installs a userdata type descriptor, deduplicating on name.
// Re-registration with an incompatible {size, alignment} fails per
// spec.md §4.3.
func (r *Registry) RegisterType(info TypeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[info.Name]; ok {
		if existing.Size != info.Size || existing.Alignment != info.Alignment {
			return &IncompatibleTypeError{Name: info.Name}
		}
		return nil
	}
	cp := info
	r.types[info.Name] = &cp
	return nil
}

// TypeInfo returns the registered descriptor for name, if any.
func (r *Registry) TypeInfo(name string) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[name]
	return info, ok
}

// markInstalled records that the metatable installer for name has run, so
// subsequent CreateUserdata calls skip re-installation (the "cached" flag
// of spec.md §4.3).
func (r *Registry) markInstalled(name string) (alreadyInstalled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed[name] {
		return true
	}
	r.installed[name] = true
	return false
}

func (r *Registry) unref(ref int) {
	r.l.Unref(lua.RegistryIndex, ref)
}
