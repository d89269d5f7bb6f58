package cmd

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lua-embed/luabridge/internal/sandbox"
	"github.com/lua-embed/luabridge/internal/tenant"
)

// fileConfig is the on-disk shape accepted by --config: engine-level
// settings plus an optional named set of tenant limit presets, loaded with
// gopkg.in/yaml.v3 (the teacher pack's YAML library, not present in
// go-dws itself but carried from the rest of the retrieval pack per
// SPEC_FULL.md's domain-stack wiring).
type fileConfig struct {
	Engine struct {
		MaxMemoryBytes  int64  `yaml:"max_memory_bytes"`
		SandboxLevel    string `yaml:"sandbox_level"`
		MinPoolSize     int    `yaml:"min_pool_size"`
		MaxPoolSize     int    `yaml:"max_pool_size"`
		MaxIdleTimeMs   int64  `yaml:"max_idle_time_ms"`
		MaxStateAgeMs   int64  `yaml:"max_state_age_ms"`
		MaxStateUses    int64  `yaml:"max_state_uses"`
		ErrorCountLimit int    `yaml:"error_count_limit"`
	} `yaml:"engine"`

	TenantLimits map[string]struct {
		MaxMemoryBytes   int64 `yaml:"max_memory_bytes"`
		MaxCPUTimeMs     int64 `yaml:"max_cpu_time_ms"`
		MaxFunctionCalls int64 `yaml:"max_function_calls"`
		AllowIO          bool  `yaml:"allow_io"`
		AllowOS          bool  `yaml:"allow_os"`
		AllowPackage     bool  `yaml:"allow_package"`
		AllowDebug       bool  `yaml:"allow_debug"`
		AllowCoroutines  bool  `yaml:"allow_coroutines"`
		AllowMetatables  bool  `yaml:"allow_metatables"`
		AllowBytecode    bool  `yaml:"allow_bytecode"`
	} `yaml:"tenant_limits"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *fileConfig) sandboxLevel() sandbox.Level {
	switch fc.Engine.SandboxLevel {
	case "strict":
		return sandbox.Strict
	case "none":
		return sandbox.None
	default:
		return sandbox.Basic
	}
}

func (fc *fileConfig) maxIdleTime() time.Duration {
	return time.Duration(fc.Engine.MaxIdleTimeMs) * time.Millisecond
}

func (fc *fileConfig) maxStateAge() time.Duration {
	return time.Duration(fc.Engine.MaxStateAgeMs) * time.Millisecond
}

func (fc *fileConfig) tenantLimits(name string) (tenant.Limits, bool) {
	preset, ok := fc.TenantLimits[name]
	if !ok {
		return tenant.Limits{}, false
	}
	lim := tenant.DefaultLimits()
	lim.MaxMemoryBytes = preset.MaxMemoryBytes
	lim.MaxCPUTimeMs = preset.MaxCPUTimeMs
	lim.MaxFunctionCalls = preset.MaxFunctionCalls
	lim.AllowIO = preset.AllowIO
	lim.AllowOS = preset.AllowOS
	lim.AllowPackage = preset.AllowPackage
	lim.AllowDebug = preset.AllowDebug
	lim.AllowCoroutines = preset.AllowCoroutines
	lim.AllowMetatables = preset.AllowMetatables
	lim.AllowBytecode = preset.AllowBytecode
	return lim, true
}
