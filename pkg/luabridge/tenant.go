package luabridge

import (
	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/tenant"
)

// CreateTenant provisions a new isolated tenant (spec.md §4.10).
func (e *Engine) CreateTenant(id, name string, limits *tenant.Limits) (*tenant.Tenant, error) {
	return e.tenants.CreateTenant(id, name, limits)
}

// ExecuteTenant runs source under tenantID's dedicated instance.
func (e *Engine) ExecuteTenant(tenantID string, source []byte, chunkName string) (*exec.ExecutionResult, error) {
	return e.tenants.Execute(tenantID, source, chunkName)
}

// TenantUsage reports tenantID's accumulated resource consumption.
func (e *Engine) TenantUsage(tenantID string) (tenant.Usage, error) {
	return e.tenants.GetUsage(tenantID)
}

// UpdateTenantLimits re-applies new limits to an existing tenant.
func (e *Engine) UpdateTenantLimits(tenantID string, limits tenant.Limits) error {
	return e.tenants.UpdateLimits(tenantID, limits)
}

// RemoveTenant destroys a tenant and its dedicated instance.
func (e *Engine) RemoveTenant(tenantID string) error {
	return e.tenants.RemoveTenant(tenantID)
}
