package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "luabridge",
	Short: "Lua 5.4 embedding runtime CLI",
	Long: `luabridge drives the Lua scripting embedding runtime from the
command line: run a script through a managed instance, exercise the
tenant manager's per-tenant quotas, or inspect instance-pool sizing.

This CLI is a thin front-end over pkg/luabridge; each invocation builds
its own short-lived Engine rather than talking to a persistent daemon.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
