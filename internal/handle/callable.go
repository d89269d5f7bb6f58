package handle

import (
	lua "github.com/Shopify/go-lua"
	"github.com/lua-embed/luabridge/internal/value"
)

// Callable is the concrete CallableHandle implementation returned to C2
// (the stack converter) when a script function is pulled off the stack.
// It is valid only within its originating instance; calling Release more
// than once is a no-op.
type Callable struct {
	id         int
	ref        int
	instanceID string
	name       string
	registry   *Registry
}

var _ value.CallableHandle = (*Callable)(nil)

// InstanceID identifies the interpreter instance that owns this handle.
func (c *Callable) InstanceID() string { return c.instanceID }

// Name is the optional display name captured at registration time.
func (c *Callable) Name() string { return c.name }

// Ref is the interpreter registry reference, exposed so C6 can push the
// function back onto the stack before calling it.
func (c *Callable) Ref() int { return c.ref }

// Release returns the registry slot to the interpreter. Safe to call more
// than once.
func (c *Callable) Release() {
	c.registry.releaseCallable(c)
}

// RegisterCallable captures the function value currently at the top of the
// Lua stack into a strong handle. The caller retains stack discipline: the
// function value is popped as part of lua.Ref.
func (r *Registry) RegisterCallable(l *lua.State, name string) *Callable {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := l.Ref(lua.RegistryIndex)
	r.nextID++
	id := r.nextID
	c := &Callable{id: id, ref: ref, instanceID: r.instanceID, name: name, registry: r}
	r.callables[id] = c
	return c
}

// PushCallable pushes the handle's function value back onto l's stack so it
// can be invoked by C6.
func (r *Registry) PushCallable(l *lua.State, c *Callable) error {
	if c.instanceID != r.instanceID {
		return &ForeignHandleError{HandleInstanceID: c.instanceID, CallerInstanceID: r.instanceID}
	}
	l.RawGetInt(lua.RegistryIndex, c.ref)
	return nil
}

func (r *Registry) releaseCallable(c *Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callables[c.id]; !ok {
		return
	}
	delete(r.callables, c.id)
	r.unref(c.ref)
}

// Count returns the number of live callable handles, used by diagnostics
// and tests.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callables)
}
