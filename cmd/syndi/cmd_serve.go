package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/webapi"
	"github.com/spboyer/syndi/internal/webserver"
	"github.com/spboyer/syndi/internal/x402"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var host string
	var port int
	var sessionLog bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session API server",
		Long: `Start the HTTP API server.

Endpoints:
  GET  /api/health           Health and busy state
  GET  /api/counterparts     Roster with session prices
  GET  /api/debate/check     Pre-flight a session without starting it
  GET  /api/debate           Run a session, streamed as server-sent events
  GET  /api/payments         Payments verified since startup
  POST /api/chat             One persuader reply (priced)
  POST /api/arena            Settle an arena from submitted scores (priced)
  POST /api/evaluate         Score a transcript (priced)

Priced endpoints answer 402 Payment Required with payment terms until the
request carries a verified X-Payment proof.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}
			if err := a.start(sessionLog); err != nil {
				return err
			}
			defer a.close(context.Background())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if port == 0 {
				port = a.cfg.Server.Port
			}
			srv, err := webserver.New(webserver.Config{
				Host:    host,
				Port:    port,
				Handler: webapi.NewHandler(a.apiConfig()),
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "syndi API: http://%s\n", srv.Addr()) //nolint:errcheck
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", webserver.DefaultHost, "Address to bind")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from .syndi.yaml)")
	cmd.Flags().BoolVar(&sessionLog, "session-log", false, "Write session events to NDJSON logs")

	return cmd
}

// apiConfig wires the payment gate and handlers. Payments go to the
// configured pay-to address, or the treasury wallet when unset.
func (a *app) apiConfig() webapi.Config {
	payTo := a.cfg.Payments.PayTo
	if payTo == "" {
		if reg, err := a.registry(); err == nil {
			if acct, ok := reg.Account(a.cfg.Ledger.Treasury); ok {
				payTo = acct.Address
			}
		}
	}

	gate := x402.NewGate(x402.GateConfig{
		Verifier:       x402.NewFacilitator(a.cfg.Payments.FacilitatorURL, nil),
		FacilitatorURL: a.cfg.Payments.FacilitatorURL,
		PayTo:          payTo,
		Network:        a.cfg.Payments.Network,
		Tier: func(name string) (models.Caliber, bool) {
			cp, err := a.roster.Get(name)
			if err != nil {
				return "", false
			}
			return cp.Caliber, true
		},
		Logger: a.logger,
	})

	return webapi.Config{
		Runner:      a.runner,
		Driver:      a.driver,
		Judge:       a.judge,
		Registry:    a.registry,
		Gate:        gate,
		Stake:       a.cfg.Arena.Stake,
		Bonus:       a.cfg.Arena.MissionaryBonus,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Logger:      a.logger,
	}
}
