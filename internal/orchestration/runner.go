// Package orchestration drives a session through its phases: payment,
// dialogue, evaluation and reward. It also runs arenas and multi-session
// simulations on top of the same phase machinery.
package orchestration

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/guard"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/settlement"
)

// DefaultTreasury is the registry name of the wallet that receives chat
// payments and funds rewards.
const DefaultTreasury = "Treasury"

// DefaultPrices is the per-round price of a session by caliber.
func DefaultPrices() map[models.Caliber]int64 {
	return map[models.Caliber]int64{
		models.CaliberLow:    100,
		models.CaliberMedium: 500,
		models.CaliberHigh:   1000,
	}
}

// Evaluator judges a finished conversation. It never fails: problems are
// reported as an evaluation with models.ScoreError.
type Evaluator interface {
	Evaluate(ctx context.Context, transcript models.Transcript) *models.Evaluation
}

// Config wires a Runner to its collaborators.
type Config struct {
	Roster    *roster.Roster
	Registry  func() (*roster.Registry, error)
	Driver    *dialogue.Driver
	Evaluator Evaluator
	Payer     settlement.Payer

	// Treasury is the registry name of the house wallet.
	Treasury string
	Prices   map[models.Caliber]int64
	Rewards  settlement.RewardTable

	// Credentials maps a credential name to its value; empty values fail
	// preflight.
	Credentials map[string]string

	Logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPaymentFailurePolicy decides whether the dialogue still runs when the
// chat payment does not confirm. The default is to proceed.
func WithPaymentFailurePolicy(proceed bool) RunnerOption {
	return func(r *Runner) {
		r.proceedOnPaymentFailure = proceed
	}
}

// WithGuard shares a concurrency guard between runners.
func WithGuard(g *guard.Guard) RunnerOption {
	return func(r *Runner) {
		r.guard = g
	}
}

// Runner orchestrates sessions. At most one session, arena or simulation
// runs at a time.
type Runner struct {
	cfg    Config
	roster *roster.Roster
	guard  *guard.Guard
	logger *slog.Logger

	proceedOnPaymentFailure bool

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewRunner creates a Runner, filling unset configuration with defaults.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	if cfg.Treasury == "" {
		cfg.Treasury = DefaultTreasury
	}
	prices := DefaultPrices()
	for c, p := range cfg.Prices {
		if p > 0 {
			prices[c] = p
		}
	}
	cfg.Prices = prices
	if cfg.Rewards == nil {
		cfg.Rewards = settlement.DefaultRewardTable()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Runner{
		cfg:                     cfg,
		roster:                  cfg.Roster,
		guard:                   guard.New(),
		logger:                  cfg.Logger,
		proceedOnPaymentFailure: true,
		listeners:               []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Busy reports whether a session currently holds the guard.
func (r *Runner) Busy() bool {
	return r.guard.Busy()
}

// Roster returns the counterparts this runner can play.
func (r *Runner) Roster() *roster.Roster {
	return r.roster
}

// UnitPrice returns the per-round price for a caliber.
func (r *Runner) UnitPrice(c models.Caliber) int64 {
	return r.cfg.Prices[c]
}

// Begin validates a session request and claims the guard. The returned Run
// must be executed or aborted.
func (r *Runner) Begin(name string) (*Run, error) {
	plan, err := r.Preflight(name)
	if err != nil {
		return nil, err
	}
	release, err := r.guard.TryAcquire()
	if err != nil {
		return nil, busyError()
	}
	return &Run{runner: r, plan: plan, release: release}, nil
}
