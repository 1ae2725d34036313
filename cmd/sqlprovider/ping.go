package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured database is reachable",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	application, ctx, cleanup, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := application.Provider()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := provider.HealthCheck(ctx); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s unreachable\n", color.RedString("✗"), provider.Driver())
		return err
	}

	stats := provider.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s reachable in %s (open: %d, idle: %d)\n",
		color.GreenString("✓"), provider.Driver(), time.Since(start).Round(time.Millisecond),
		stats.OpenConnections, stats.Idle)
	return nil
}
