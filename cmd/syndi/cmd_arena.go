package main

import (
	"encoding/json"
	"fmt"

	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spf13/cobra"
)

func newArenaCommand() *cobra.Command {
	var execute bool
	var stake int64
	var bonus int64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "arena [counterpart...]",
		Short: "Run every counterpart against the persuader and settle the pooled stakes",
		Long: `Run a conversation with each named counterpart (all of them when none are
named), judge each, and split the pooled stakes among the converted in
proportion to their scores. Counterparts who echoed the persuader's arguments
earn a missionary bonus.

Without --execute the settlement is only computed and printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}
			if err := a.start(false); err != nil {
				return err
			}
			defer a.close(cmd.Context())

			out := cmd.OutOrStdout()
			a.runner.OnProgress(func(e orchestration.ProgressEvent) {
				if d, ok := e.Data.(orchestration.EntrantData); ok {
					fmt.Fprintf(out, "  %s scored %d (%s)\n", d.Name, d.Score, d.Level) //nolint:errcheck
				}
			})

			names := args
			if len(names) == 0 {
				names = a.roster.Names()
			}
			if stake == 0 {
				stake = a.cfg.Arena.Stake
			}
			if bonus == 0 {
				bonus = a.cfg.Arena.MissionaryBonus
			}

			res, err := a.runner.Arena(cmd.Context(), names, orchestration.ArenaOptions{
				Stake:   stake,
				Bonus:   bonus,
				Execute: execute,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out) //nolint:errcheck
			reporting.WriteArena(out, res.Settlement, res.Missionaries)
			reporting.WritePayouts(out, "Arena payouts", res.Payouts)
			reporting.WritePayouts(out, "Missionary bonuses", res.Bonuses)
			return nil
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "Pay the settlement on the ledger")
	cmd.Flags().Int64Var(&stake, "stake", 0, "Stake per entrant (default from .syndi.yaml)")
	cmd.Flags().Int64Var(&bonus, "bonus", 0, "Missionary bonus (default from .syndi.yaml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}
