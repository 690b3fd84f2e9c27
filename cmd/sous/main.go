package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sous",
		Short:         "Sous: AI-assisted menu, recommendation, inventory and review features",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "sous.yaml", "path to config file")

	root.AddCommand(
		newDescribeCmd(&configPath),
		newRecommendCmd(&configPath),
		newRiskCmd(&configPath),
		newSentimentCmd(&configPath),
		newCacheCmd(&configPath),
		newStatsCmd(&configPath),
		newBudgetCmd(&configPath),
	)
	return root
}
