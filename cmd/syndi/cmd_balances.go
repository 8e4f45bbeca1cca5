package main

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const balanceConcurrency = 4

var errWalletNotRegistered = errors.New("no address in wallet registry")

func newBalancesCommand() *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "balances [wallet...]",
		Short: "Show ledger balances of registered wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				for name := range reg.Wallets {
					names = append(names, name)
				}
				slices.Sort(names)
			}

			client := ledger.NewBalanceClient(a.cfg.Ledger.APIURL, nil)
			rows := make([]reporting.BalanceRow, len(names))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(balanceConcurrency)
			for i, name := range names {
				rows[i].Name = name
				acct, ok := reg.Account(name)
				if !ok {
					rows[i].Err = errWalletNotRegistered
					continue
				}
				g.Go(func() error {
					ctx, cancel := context.WithTimeout(ctx, timeout)
					defer cancel()
					b, err := client.Balance(ctx, acct.Address)
					b.Address = acct.Address
					rows[i].Balance, rows[i].Err = b, err
					return nil
				})
			}
			g.Wait() //nolint:errcheck // per-wallet errors are reported in the table

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(balanceJSON(rows))
			}
			reporting.WriteBalances(out, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Per-wallet request timeout")

	return cmd
}

type balanceEntry struct {
	Name string `json:"name"`
	ledger.Balance
	Error string `json:"error,omitempty"`
}

func balanceJSON(rows []reporting.BalanceRow) []balanceEntry {
	out := make([]balanceEntry, 0, len(rows))
	for _, r := range rows {
		e := balanceEntry{Name: r.Name, Balance: r.Balance}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		out = append(out, e)
	}
	return out
}
