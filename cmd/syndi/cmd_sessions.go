package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spboyer/syndi/internal/projectconfig"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spboyer/syndi/internal/session"
	"github.com/spf13/cobra"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "View recorded session logs",
		Long: `View session event logs.

Session logs are NDJSON files written by serve and simulate when session
logging is on. They record every phase of a session: payment, each message,
the evaluation, the reward and the final result.`,
	}

	cmd.AddCommand(newSessionsListCommand())
	cmd.AddCommand(newSessionsViewCommand())

	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded session logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := projectconfig.Load(configDir(cmd))
				if err != nil {
					return err
				}
				dir = cfg.Resolve(cfg.Paths.Sessions)
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListSessions(absDir)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No session logs found.") //nolint:errcheck
				return nil
			}

			fmt.Fprintf(out, "%-32s %-6s %-9s %10s  %s\n%s\n", "File", "Events", "Completed", "Net", "Counterparts", strings.Repeat("─", 80)) //nolint:errcheck
			for _, f := range files {
				fmt.Fprintf(out, "%-32s %-6d %-9d %10s  %s\n", //nolint:errcheck
					f.Name, f.Events, f.Completed, reporting.Signed(f.Net), strings.Join(f.Counterparts, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "logs", "", "Directory to search for session logs (default from .syndi.yaml)")

	return cmd
}

func newSessionsViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view <session-file>",
		Short: "View a session timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := session.ReadEvents(args[0])
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}
			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}
}
