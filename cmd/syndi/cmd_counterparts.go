package main

import (
	"encoding/json"

	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spf13/cobra"
)

func newCounterpartsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "counterparts",
		Short: "List counterparts with session prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}
			prices := orchestration.DefaultPrices()
			for c, p := range a.cfg.Session.Prices {
				prices[c] = p
			}
			reg, err := a.registry()
			if err != nil {
				a.logger.Warn("wallet registry unavailable", "error", err)
			}

			rows := make([]reporting.CounterpartRow, 0, len(a.roster.List()))
			for _, cp := range a.roster.List() {
				_, funded := reg.Account(cp.Name)
				rows = append(rows, reporting.CounterpartRow{Counterpart: cp, Price: prices[cp.Caliber], Funded: funded})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			reporting.WriteCounterparts(out, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}
