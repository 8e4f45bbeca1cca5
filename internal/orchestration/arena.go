package orchestration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/settlement"
)

// ArenaOptions configures an arena.
type ArenaOptions struct {
	Stake int64
	Bonus int64

	// Execute pays the settlement and bonuses on the ledger. Without it the
	// arena only computes who is owed what.
	Execute bool
}

// ArenaEntrant is one counterpart's conversation in an arena.
type ArenaEntrant struct {
	Name       string             `json:"name"`
	Transcript models.Transcript  `json:"transcript"`
	Evaluation *models.Evaluation `json:"evaluation"`
}

// EntrantData is the payload of arena:entrant.
type EntrantData struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Level string `json:"level"`
}

// ArenaResult is the outcome of an arena.
type ArenaResult struct {
	Entrants     []ArenaEntrant          `json:"entrants"`
	Settlement   settlement.Settlement   `json:"settlement"`
	Missionaries []settlement.Missionary `json:"missionaries"`
	Payouts      []settlement.Payout     `json:"payouts,omitempty"`
	Bonuses      []settlement.Payout     `json:"bonuses,omitempty"`
}

// Arena plays a conversation against every named counterpart, judges each,
// and settles the pooled stakes among the converted.
func (r *Runner) Arena(ctx context.Context, names []string, opts ArenaOptions) (*ArenaResult, error) {
	if opts.Stake <= 0 {
		opts.Stake = settlement.DefaultStake
	}
	if opts.Bonus <= 0 {
		opts.Bonus = settlement.DefaultMissionaryBonus
	}
	if len(names) < settlement.MinArenaSize {
		return nil, refuse(ReasonMissingCounterpart, http.StatusBadRequest, nil,
			"an arena needs at least %d counterparts", settlement.MinArenaSize)
	}
	if err := r.distinct(names); err != nil {
		return nil, err
	}

	counterparts := make([]*models.Counterpart, 0, len(names))
	for _, name := range names {
		cp, err := r.roster.Get(name)
		if err != nil {
			return nil, refuse(ReasonUnknownCounterpart, http.StatusNotFound, err, "unknown counterpart %q", name)
		}
		counterparts = append(counterparts, cp)
	}

	release, err := r.guard.TryAcquire()
	if err != nil {
		return nil, busyError()
	}
	defer release()

	res := &ArenaResult{}
	var combined models.Transcript
	participants := make([]settlement.Participant, 0, len(counterparts))
	for _, cp := range counterparts {
		transcript, err := r.cfg.Driver.Run(ctx, cp, cp.TurnBudget(), nil)
		if err != nil {
			return nil, fmt.Errorf("arena dialogue with %s: %w", cp.Name, err)
		}
		eval := r.cfg.Evaluator.Evaluate(ctx, transcript)

		res.Entrants = append(res.Entrants, ArenaEntrant{Name: cp.Name, Transcript: transcript, Evaluation: eval})
		participants = append(participants, settlement.Participant{Name: cp.Name, Score: eval.Score, Level: eval.Level})
		combined = append(combined, transcript...)

		r.notifyProgress(ProgressEvent{
			Type: EventArenaEntrant,
			Data: EntrantData{Name: cp.Name, Score: eval.Score, Level: eval.Level},
		})
	}

	res.Settlement = settlement.SettleArena(opts.Stake, participants)
	detector := settlement.NewPatternDetector(r.cfg.Driver.Persuader().Name)
	res.Missionaries = settlement.DetectMissionaries(combined, participants, detector, opts.Bonus)
	r.notifyProgress(ProgressEvent{Type: EventArenaSettled, Data: res.Settlement})

	if !opts.Execute {
		return res, nil
	}

	ex, err := r.treasuryExecutor(nil)
	if err != nil {
		return res, err
	}
	res.Payouts = ex.PayArena(ctx, res.Settlement)
	res.Bonuses = ex.PayMissionaries(ctx, res.Missionaries)
	return res, nil
}

// treasuryExecutor builds an Executor paying out of the treasury wallet.
func (r *Runner) treasuryExecutor(l *settlement.EconomicLedger) (*settlement.Executor, error) {
	reg, err := r.loadRegistry()
	if err != nil {
		return nil, refuse(ReasonMissingRegistry, http.StatusInternalServerError, err, "wallet registry unavailable: %v", err)
	}
	treasury, ok := reg.Account(r.cfg.Treasury)
	if !ok {
		return nil, refuse(ReasonMissingWallet, http.StatusInternalServerError, nil, "no wallet registered for %s", r.cfg.Treasury)
	}
	return settlement.NewExecutor(r.cfg.Payer, treasury, reg.Account, l, r.logger), nil
}
