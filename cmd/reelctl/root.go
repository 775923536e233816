package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var serverFlag string
	var tokenFlag string

	_ = godotenv.Load()
	ctx := newCommandContext(&serverFlag, &tokenFlag)

	rootCmd := &cobra.Command{
		Use:           "reelctl",
		Short:         "Review, schedule and publish reels",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", envOr("REELFLOW_SERVER", "http://localhost:3000"), "Reelflow server URL")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", os.Getenv("REELFLOW_TOKEN"), "API token")

	for _, cmd := range newReelCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newCalendarCommand(ctx))
	rootCmd.AddCommand(newSlotsCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newAnalyticsCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
