package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/settlement"
	"github.com/spboyer/syndi/internal/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSimulateCommand() *cobra.Command {
	var count int
	var seed uint64
	var verbose bool
	var asJSON bool
	var sessionLog bool

	cmd := &cobra.Command{
		Use:   "simulate [counterpart...]",
		Short: "Run a batch of full sessions and summarize the economics",
		Long: `Run one full paid session per counterpart, one after another, then pay
missionary bonuses across the batch and print the treasury's economic ledger.

With no counterparts named, an interactive terminal offers a picker; otherwise
--count counterparts are drawn at random, covering every caliber first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names, err = chooseCounterparts(cmd, a.roster, count, seed)
				if err != nil {
					return err
				}
			}

			if err := a.start(sessionLog); err != nil {
				return err
			}
			defer a.close(cmd.Context())

			out := cmd.OutOrStdout()
			var sink orchestration.Sink
			var sp *spinner.Spinner
			switch {
			case verbose && !asJSON:
				sink = progressPrinter(out)
			case isTerminal(cmd.ErrOrStderr()):
				sp = spinner.Start(cmd.ErrOrStderr(), "starting")
				sink = statusSink(sp)
			}

			res, err := a.runner.Simulate(cmd.Context(), names, sink, a.cfg.Arena.MissionaryBonus)
			if sp != nil {
				sp.Stop()
			}
			if asJSON && res != nil {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(struct {
					*orchestration.SimulationResult
					Summary settlement.Summary `json:"summary"`
				}{res, res.Ledger.Summary()}); encErr != nil {
					return encErr
				}
			} else if res != nil {
				printSimulation(out, a, res)
			}
			if err != nil {
				return err
			}
			if len(res.Failures) > 0 {
				return &SessionFailureError{
					Message: fmt.Sprintf("simulation finished with %d failed session(s)", len(res.Failures)),
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of counterparts to draw when none are named")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for the draw (0 picks one)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every message as it happens")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&sessionLog, "session-log", false, "Write session events to NDJSON logs")

	return cmd
}

// chooseCounterparts draws count counterparts, letting an interactive user
// adjust the draw.
func chooseCounterparts(cmd *cobra.Command, r *roster.Roster, count int, seed uint64) ([]string, error) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	var picked []string
	for _, cp := range r.Pick(count, rng) {
		picked = append(picked, cp.Name)
	}

	if !isTerminal(cmd.InOrStdin()) {
		return picked, nil
	}

	selected := map[string]bool{}
	for _, n := range picked {
		selected[n] = true
	}
	options := make([]huh.Option[string], 0, len(r.List()))
	for _, cp := range r.List() {
		label := fmt.Sprintf("%s (%s)", cp.Name, cp.Caliber)
		options = append(options, huh.NewOption(label, cp.Name).Selected(selected[cp.Name]))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Counterparts").
				Description("Sessions run in roster order").
				Options(options...).
				Value(&picked).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("pick at least one counterpart")
					}
					return nil
				}),
		),
	).
		WithInput(cmd.InOrStdin()).
		WithOutput(cmd.OutOrStdout())
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("picker: %w", err)
	}
	return picked, nil
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func progressPrinter(w io.Writer) orchestration.Sink {
	return func(e orchestration.ProgressEvent) error {
		switch d := e.Data.(type) {
		case orchestration.InitData:
			fmt.Fprintf(w, "\n▶ %s\n", d.Counterpart) //nolint:errcheck
		case models.TranscriptEntry:
			fmt.Fprintf(w, "  r%d %s: %s\n", d.Round, d.Speaker, strings.TrimSpace(d.Text)) //nolint:errcheck
		case *models.Evaluation:
			fmt.Fprintf(w, "  ⚖ %d (%s)\n", d.Score, d.Level) //nolint:errcheck
		}
		return nil
	}
}

// statusSink keeps a spinner on the current session's phase.
func statusSink(sp *spinner.Spinner) orchestration.Sink {
	var name string
	return func(e orchestration.ProgressEvent) error {
		switch d := e.Data.(type) {
		case orchestration.InitData:
			name = d.Counterpart
			sp.Set(name + ": paying")
		case models.TranscriptEntry:
			sp.Set(fmt.Sprintf("%s: round %d", name, d.Round))
		default:
			switch e.Type {
			case orchestration.EventPhaseEvaluation:
				sp.Set(name + ": judging")
			case orchestration.EventPhaseReward:
				sp.Set(name + ": rewarding")
			}
		}
		return nil
	}
}

func printSimulation(w io.Writer, a *app, res *orchestration.SimulationResult) {
	for _, s := range res.Sessions {
		fmt.Fprintf(w, "\n%s", reporting.FormatSessionReport(s, a.cfg.Session.Rewards)) //nolint:errcheck
		if msg, failed := res.Failures[s.Counterpart.Name]; failed {
			fmt.Fprintf(w, "Failed:   %s\n", msg) //nolint:errcheck
		}
	}
	if len(res.Missionaries) > 0 {
		fmt.Fprintln(w, "\nMissionaries:") //nolint:errcheck
		for _, m := range res.Missionaries {
			fmt.Fprintf(w, "  %s +%s  %q\n", m.Agent, reporting.Amount(m.Bonus), m.Message) //nolint:errcheck
		}
	}
	fmt.Fprintln(w, "\nEconomics:") //nolint:errcheck
	reporting.WriteLedgerSummary(w, res.Ledger.Summary(), a.gateway.ExplorerURL)
}
