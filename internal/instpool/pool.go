// Package instpool implements the instance pool (C9): warm-up to a
// minimum size, age/use/idle-based recycling, and a scoped acquire/release
// handle. Grounded on internal/interp/runtime/pool.go's sync.Pool usage,
// generalized from per-value pooling to per-instance pooling.
package instpool

import (
	"sync"
	"time"

	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/luaerr"
)

// Config configures the pool (spec.md §4.9). Defaults match the spec's
// stated defaults when a field is zero.
type Config struct {
	MinPoolSize  int
	MaxPoolSize  int
	MaxIdleTime  time.Duration
	MaxStateAge  time.Duration
	MaxStateUses int64

	Factory func() (*instance.Instance, instance.Config)
}

func (c *Config) applyDefaults() {
	if c.MinPoolSize <= 0 {
		c.MinPoolSize = 2
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 8
	}
	if c.MinPoolSize > c.MaxPoolSize {
		c.MinPoolSize = c.MaxPoolSize
	}
}

type entry struct {
	inst      *instance.Instance
	createdAt time.Time
	idleSince time.Time
	uses      int64
}

// Pool is a bounded set of managed instances recycled across acquire/
// release cycles (spec.md §4.9).
type Pool struct {
	mu        sync.Mutex
	cfg       Config
	available []*entry
	liveCount int
}


// New constructs a Pool and warms it to cfg.MinPoolSize suspended
// instances.
func New(cfg Config) (*Pool, error) {
	cfg.applyDefaults()
	p := &Pool{cfg: cfg}
	for n := 0; n < cfg.MinPoolSize; n++ {
		e, err := p.createEntry()
		if err != nil {
			return nil, err
		}
		p.available = append(p.available, e)
	}
	return p, nil
}

func (p *Pool) createEntry() (*entry, error) {
	inst, icfg := p.cfg.Factory()
	if err := inst.Create(); err != nil {
		return nil, err
	}
	if err := inst.Configure(icfg); err != nil {
		return nil, err
	}
	if err := inst.Activate(); err != nil {
		return nil, err
	}
	if err := inst.Suspend(); err != nil {
		return nil, err
	}
	now := time.Now()
	p.liveCount++
	return &entry{inst: inst, createdAt: now, idleSince: now}, nil
}

// Acquire pops an available instance, validating and recycling it if
// expired by age or use count; otherwise resets and returns it. If none
// are available and capacity permits, a new instance is created;
// otherwise Acquire fails with ErrPoolExhausted (spec.md §4.9).
func (p *Pool) Acquire() (*instance.Instance, error) {
	p.mu.Lock()
	for len(p.available) > 0 {
		e := p.available[len(p.available)-1]
		p.available = p.available[:len(p.available)-1]
		p.mu.Unlock()

		if p.expired(e) || !e.inst.ValidateSuspended() {
			p.discard(e)
			p.mu.Lock()
			continue
		}

		if err := e.inst.Activate(); err != nil {
			p.discard(e)
			p.mu.Lock()
			continue
		}
		if err := e.inst.Reset(); err != nil {
			p.discard(e)
			p.mu.Lock()
			continue
		}
		e.uses++
		return e.inst, nil
	}
	defer p.mu.Unlock()

	if p.liveCount >= p.cfg.MaxPoolSize {
		return nil, luaerr.PoolExhaustedError(p.cfg.MaxPoolSize)
	}
	e, err := p.createEntry()
	if err != nil {
		return nil, err
	}
	if err := e.inst.Activate(); err != nil {
		return nil, err
	}
	e.uses++
	return e.inst, nil
}

// Release returns inst to the pool (suspending it first) if healthy, or
// destroys it otherwise; no replacement is created here, a later Acquire
// creates one on demand (spec.md §4.9).
func (p *Pool) Release(inst *instance.Instance) error {
	if !inst.HealthCheck() {
		p.mu.Lock()
		p.liveCount--
		p.mu.Unlock()
		_ = inst.Destroy()
		return nil
	}
	if err := inst.Suspend(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = append(p.available, &entry{inst: inst, createdAt: time.Now(), idleSince: time.Now()})
	return nil
}

// Cleanup evicts expired idle instances while maintaining MinPoolSize
// (spec.md §4.9).
func (p *Pool) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.available[:0]
	for _, e := range p.available {
		if len(kept) < p.cfg.MinPoolSize || !p.expiredLocked(e) {
			kept = append(kept, e)
			continue
		}
		_ = e.inst.Destroy()
		p.liveCount--
	}
	p.available = kept
}

func (p *Pool) expired(e *entry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiredLocked(e)
}

func (p *Pool) expiredLocked(e *entry) bool {
	now := time.Now()
	if p.cfg.MaxIdleTime > 0 && now.Sub(e.idleSince) > p.cfg.MaxIdleTime {
		return true
	}
	if p.cfg.MaxStateAge > 0 && now.Sub(e.createdAt) > p.cfg.MaxStateAge {
		return true
	}
	if p.cfg.MaxStateUses > 0 && e.uses >= p.cfg.MaxStateUses {
		return true
	}
	return false
}

func (p *Pool) discard(e *entry) {
	_ = e.inst.Destroy()
	p.mu.Lock()
	p.liveCount--
	p.mu.Unlock()
}

// Size reports the number of live (available + checked-out) instances.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveCount
}

// Available reports the number of instances currently idle in the pool.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}
