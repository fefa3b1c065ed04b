package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/logger"
)

// errResultsFailed makes glup exit 1 after the report was printed
var errResultsFailed = errors.New("one or more resources failed to converge")

var rootCmd = &cobra.Command{
	Use:   "glup",
	Short: "GlusterFS convergence tool",
	Long: `Glup converges a GlusterFS trusted pool toward a declared state.

It peers hosts, creates and starts volumes, and adds bricks to running
volumes. Every operation is idempotent: it queries the pool first, acts only
when something is missing, and re-queries to confirm the change took effect.

Use --dry-run to preview changes, or --simulate to run against an in-memory
pool without touching any node.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("log-level") || os.Getenv("LOG_LEVEL") == "" {
			if err := logger.SetLevel(flags.logLevel); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
		}
		return nil
	},
}

func init() {
	flags.register(rootCmd)

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(peerCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errResultsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
