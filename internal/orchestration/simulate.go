package orchestration

import (
	"context"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/settlement"
)

// SimulationResult is the outcome of a batch of sessions.
type SimulationResult struct {
	Sessions     []*models.Session          `json:"sessions"`
	Failures     map[string]string          `json:"failures,omitempty"`
	Missionaries []settlement.Missionary    `json:"missionaries"`
	Bonuses      []settlement.Payout        `json:"bonuses,omitempty"`
	Ledger       *settlement.EconomicLedger `json:"-"`
}

// Simulate runs one full session per named counterpart, one after another,
// then pays missionary bonuses across all of them. Every transfer is
// recorded in the result's economic ledger.
//
// A session that fails is recorded and the batch moves on; a refusal at
// preflight stops the batch. Naming a counterpart twice is refused before
// any session starts.
func (r *Runner) Simulate(ctx context.Context, names []string, sink Sink, bonus int64) (*SimulationResult, error) {
	if bonus <= 0 {
		bonus = settlement.DefaultMissionaryBonus
	}
	res := &SimulationResult{Ledger: &settlement.EconomicLedger{}, Failures: map[string]string{}}
	if err := r.distinct(names); err != nil {
		return res, err
	}

	var (
		combined     models.Transcript
		participants []settlement.Participant
	)
	for _, name := range names {
		run, err := r.Begin(name)
		if err != nil {
			return res, err
		}
		run.ledger = res.Ledger

		s, err := run.Execute(ctx, sink)
		res.Sessions = append(res.Sessions, s)
		if err != nil {
			res.Failures[s.Counterpart.Name] = err.Error()
			continue
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if s.Evaluation == nil {
			continue
		}
		combined = append(combined, s.Transcript...)
		participants = append(participants, settlement.Participant{
			Name:  s.Counterpart.Name,
			Score: s.Evaluation.Score,
			Level: s.Evaluation.Level,
		})
	}

	detector := settlement.NewPatternDetector(r.cfg.Driver.Persuader().Name)
	res.Missionaries = settlement.DetectMissionaries(combined, participants, detector, bonus)
	if len(res.Missionaries) == 0 {
		return res, nil
	}

	ex, err := r.treasuryExecutor(res.Ledger)
	if err != nil {
		return res, err
	}
	res.Bonuses = ex.PayMissionaries(ctx, res.Missionaries)
	return res, nil
}
