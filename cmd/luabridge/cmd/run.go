package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	srcerr "github.com/lua-embed/luabridge/internal/errors"
	"github.com/lua-embed/luabridge/internal/exec"
	"github.com/lua-embed/luabridge/internal/value"
	"github.com/lua-embed/luabridge/pkg/luabridge"
)

var (
	runEval        string
	runConfigPath  string
	runMaxMemory   int64
	runTimeoutMs   int64
	runAllowByte   bool
	runStackTrace  bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a Lua script through a managed instance",
	Long: `Execute a Lua script from a file or inline expression against a
fresh engine.

Examples:
  # Run a script file
  luabridge run script.lua

  # Evaluate inline source
  luabridge run -e "return 1 + 1"

  # Cap memory and wall-clock time
  luabridge run --max-memory 1048576 --timeout-ms 100 script.lua`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runEval, "eval", "e", "", "evaluate inline source instead of reading from file")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a YAML engine config file")
	runCmd.Flags().Int64Var(&runMaxMemory, "max-memory", 0, "per-instance memory cap in bytes (0 = unlimited)")
	runCmd.Flags().Int64Var(&runTimeoutMs, "timeout-ms", 0, "execution timeout in milliseconds (0 = none)")
	runCmd.Flags().BoolVar(&runAllowByte, "allow-bytecode", false, "allow loading precompiled bytecode chunks")
	runCmd.Flags().BoolVar(&runStackTrace, "stack-trace", true, "capture a stack trace on runtime errors")
}

func runScript(_ *cobra.Command, args []string) error {
	var source []byte
	var chunkName string

	switch {
	case runEval != "":
		source = []byte(runEval)
		chunkName = "<eval>"
	case len(args) == 1:
		chunkName = args[0]
		content, err := os.ReadFile(chunkName)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", chunkName, err)
		}
		source = content
	default:
		return fmt.Errorf("either provide a file path or use -e for inline source")
	}

	opts := []luabridge.Option{luabridge.WithMaxMemoryBytes(runMaxMemory)}
	if runConfigPath != "" {
		fc, err := loadFileConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", runConfigPath, err)
		}
		opts = []luabridge.Option{
			luabridge.WithMaxMemoryBytes(fc.Engine.MaxMemoryBytes),
			luabridge.WithSandboxLevel(fc.sandboxLevel()),
			luabridge.WithPool(fc.Engine.MinPoolSize, fc.Engine.MaxPoolSize, fc.maxIdleTime(), fc.maxStateAge(), fc.Engine.MaxStateUses),
		}
	}

	engine, err := luabridge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	execOpts := exec.DefaultOptions()
	execOpts.AllowBytecode = runAllowByte
	execOpts.TimeoutMs = runTimeoutMs
	execOpts.CaptureStackTrace = runStackTrace
	execOpts.MultiReturn = true

	if verbose {
		fmt.Fprintf(os.Stderr, "[running %s]\n", chunkName)
	}

	result, err := engine.Execute(source, chunkName, execOpts)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.Ok() {
		se := srcerr.NewSourceError(result.Err, string(source), chunkName)
		fmt.Fprintln(os.Stderr, se.Format(false))
		return fmt.Errorf("execution failed")
	}

	for i, v := range result.Values {
		fmt.Printf("[%d] %s\n", i, value.DebugString(v))
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "wall_clock=%s gc_cycles=%d\n", result.Metrics.WallClock, result.Metrics.GCCycles)
	}
	return nil
}
