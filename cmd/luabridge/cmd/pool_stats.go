package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lua-embed/luabridge/pkg/luabridge"
)

var (
	poolMinSize int
	poolMaxSize int
)

var poolStatsCmd = &cobra.Command{
	Use:   "pool-stats",
	Short: "Build an instance pool and report its warmed-up sizing",
	Long: `Construct an engine with the given pool bounds, let it warm up to
min_pool_size, and print its live/available instance counts. Since this
CLI is a one-shot process rather than a daemon, this demonstrates C9's
warm-up behavior in isolation rather than monitoring a running pool.`,
	RunE: runPoolStats,
}

func init() {
	rootCmd.AddCommand(poolStatsCmd)

	poolStatsCmd.Flags().IntVar(&poolMinSize, "min-pool-size", 2, "minimum warmed-up pool size")
	poolStatsCmd.Flags().IntVar(&poolMaxSize, "max-pool-size", 8, "maximum live instances")
}

func runPoolStats(_ *cobra.Command, _ []string) error {
	start := time.Now()
	engine, err := luabridge.New(luabridge.WithPool(poolMinSize, poolMaxSize, 0, 0, 0))
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	fmt.Printf("warm_up_duration=%s\n", time.Since(start))
	fmt.Printf("live=%d available=%d\n", engine.PoolSize(), engine.PoolAvailable())
	return nil
}
