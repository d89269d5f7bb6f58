// Package luabridge is the public Host↔Core API of the embedding runtime:
// a single Engine type constructed with functional options, through which
// a host runs scripts, registers Go capability functions, manages tenants,
// and creates/restores snapshots. Grounded on pkg/dwscript's Engine/New/
// functional-options/RegisterFunction shape (inferred from
// examples/ffi/main.go and the pkg/dwscript/*_test.go suite, since that
// package's non-test sources were not included in the retrieval pack this
// module was built from).
package luabridge

import (
	"time"

	"go.uber.org/zap"

	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/sandbox"
)

// Config is the engine-level configuration recognized by the core
// (spec.md §6).
type Config struct {
	MaxMemoryBytes       int64
	SandboxLevel         sandbox.Level
	EnableSnapshots      bool
	MaxSnapshots         int
	MaxSnapshotSizeBytes int64
	EnableDebugging      bool

	MinPoolSize  int
	MaxPoolSize  int
	MaxIdleTime  time.Duration
	MaxStateAge  time.Duration
	MaxStateUses int64

	MaxTenants int

	ErrorCountLimit int
	Logger          *zap.SugaredLogger
}

func defaultConfig() Config {
	return Config{
		MaxMemoryBytes:  0,
		SandboxLevel:    sandbox.Basic,
		MinPoolSize:     1,
		MaxPoolSize:     1,
		ErrorCountLimit: 10,
	}
}

// Option configures an Engine at construction time.
type Option func(*Config)

// WithMaxMemoryBytes sets the per-instance allocator cap (0 = unlimited).
func WithMaxMemoryBytes(n int64) Option {
	return func(c *Config) { c.MaxMemoryBytes = n }
}

// WithSandboxLevel sets the default sandbox level applied to every
// instance the engine creates.
func WithSandboxLevel(level sandbox.Level) Option {
	return func(c *Config) { c.SandboxLevel = level }
}

// WithSnapshots enables snapshot support, bounding the number retained and
// their total serialized size.
func WithSnapshots(maxSnapshots int, maxTotalBytes int64) Option {
	return func(c *Config) {
		c.EnableSnapshots = true
		c.MaxSnapshots = maxSnapshots
		c.MaxSnapshotSizeBytes = maxTotalBytes
	}
}

// WithPool configures the engine's instance pool (spec.md §4.9). Calling
// this with both sizes equal to 1 (the default) yields a single-instance
// engine in all but name.
func WithPool(minSize, maxSize int, maxIdle, maxAge time.Duration, maxUses int64) Option {
	return func(c *Config) {
		c.MinPoolSize = minSize
		c.MaxPoolSize = maxSize
		c.MaxIdleTime = maxIdle
		c.MaxStateAge = maxAge
		c.MaxStateUses = maxUses
	}
}

// WithMaxTenants bounds the number of tenants create_tenant will admit
// (spec.md §4.10). 0 means unbounded.
func WithMaxTenants(n int) Option {
	return func(c *Config) { c.MaxTenants = n }
}

// WithErrorCountLimit sets the error-count threshold HealthCheck enforces
// on every instance (spec.md §4.8).
func WithErrorCountLimit(n int) Option {
	return func(c *Config) { c.ErrorCountLimit = n }
}

// WithLogger installs a structured logger; nil (the default) falls back
// to a no-op logger throughout the engine and its instances.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Config) { c.Logger = log }
}

// snapshotPolicy builds the instance.SnapshotPolicy implied by Config, or
// nil if snapshots are disabled.
func (c Config) snapshotPolicy() *instance.SnapshotPolicy {
	if !c.EnableSnapshots {
		return nil
	}
	return &instance.SnapshotPolicy{MaxCount: c.MaxSnapshots, MaxTotalBytes: c.MaxSnapshotSizeBytes}
}
