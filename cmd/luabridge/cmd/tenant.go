package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	srcerr "github.com/lua-embed/luabridge/internal/errors"
	"github.com/lua-embed/luabridge/internal/tenant"
	"github.com/lua-embed/luabridge/pkg/luabridge"
)

var (
	tenantID       string
	tenantName     string
	tenantConfig   string
	tenantPreset   string
	tenantEvalFile string
	tenantEval     string
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Create a tenant, run a script under it, and report usage",
	Long: `Provision a single tenant against a fresh engine, execute one
script under that tenant's quota, and print its resulting usage
statistics. Grounded on spec.md §4.10's create_tenant/execute/get_usage
operations; since this CLI builds a new engine per invocation there is no
persistent tenant registry across calls.`,
	RunE: runTenant,
}

func init() {
	rootCmd.AddCommand(tenantCmd)

	tenantCmd.Flags().StringVar(&tenantID, "id", "", "tenant id (generated if empty)")
	tenantCmd.Flags().StringVar(&tenantName, "name", "", "tenant display name")
	tenantCmd.Flags().StringVar(&tenantConfig, "config", "", "path to a YAML engine/tenant-limits config file")
	tenantCmd.Flags().StringVar(&tenantPreset, "limits-preset", "", "named tenant_limits preset from --config")
	tenantCmd.Flags().StringVarP(&tenantEval, "eval", "e", "", "evaluate inline source instead of reading from file")
	tenantCmd.Flags().StringVar(&tenantEvalFile, "file", "", "path to a Lua script to execute under the tenant")
}

func runTenant(_ *cobra.Command, _ []string) error {
	var source []byte
	chunkName := "<eval>"
	switch {
	case tenantEval != "":
		source = []byte(tenantEval)
	case tenantEvalFile != "":
		chunkName = tenantEvalFile
		content, err := os.ReadFile(tenantEvalFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", tenantEvalFile, err)
		}
		source = content
	default:
		return fmt.Errorf("either --eval or --file must be provided")
	}

	engine, err := luabridge.New(luabridge.WithMaxTenants(0))
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	var limits *tenant.Limits
	if tenantConfig != "" && tenantPreset != "" {
		fc, err := loadFileConfig(tenantConfig)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", tenantConfig, err)
		}
		lim, ok := fc.tenantLimits(tenantPreset)
		if !ok {
			return fmt.Errorf("no tenant_limits preset named %q in %s", tenantPreset, tenantConfig)
		}
		limits = &lim
	}

	t, err := engine.CreateTenant(tenantID, tenantName, limits)
	if err != nil {
		return fmt.Errorf("create_tenant failed: %w", err)
	}

	result, err := engine.ExecuteTenant(t.ID, source, chunkName)
	if err != nil {
		return fmt.Errorf("execute failed: %w", err)
	}
	if !result.Ok() {
		se := srcerr.NewSourceError(result.Err, string(source), chunkName)
		fmt.Fprintln(os.Stderr, se.Format(false))
	}

	usage, err := engine.TenantUsage(t.ID)
	if err != nil {
		return fmt.Errorf("get_usage failed: %w", err)
	}
	fmt.Printf("tenant=%s memory_bytes=%d call_count=%d\n", t.ID, usage.MemoryBytes, usage.CallCount)

	if !result.Ok() {
		return fmt.Errorf("execution failed")
	}
	return nil
}
