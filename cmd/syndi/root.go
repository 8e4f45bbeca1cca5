package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syndi",
		Short: "Syndi - paid persuasion sessions on a ledger",
		Long: `Syndi runs persuasion sessions between a persuader agent and a roster of
counterparts. Counterparts pay per round to talk, a judge scores how far they
were converted, and converts are rewarded from the treasury.

It serves the live session API, runs arenas and batch simulations, and reports
wallet balances and session logs.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("dir", ".", "Directory to search for .syndi.yaml")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCounterpartsCommand())
	cmd.AddCommand(newArenaCommand())
	cmd.AddCommand(newSimulateCommand())
	cmd.AddCommand(newBalancesCommand())
	cmd.AddCommand(newChatCommand())
	cmd.AddCommand(newSessionsCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

func configDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil || dir == "" {
		return "."
	}
	return dir
}
