package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/settlement"
)

// errDisconnected stops a run whose observer has gone away.
var errDisconnected = errors.New("observer disconnected")

// Run is a session that has passed preflight and holds the guard.
type Run struct {
	runner  *Runner
	plan    *Plan
	release func()
	ledger  *settlement.EconomicLedger
}

// Plan returns the validated request.
func (run *Run) Plan() *Plan {
	return run.plan
}

// Abort releases the guard without running the session.
func (run *Run) Abort() {
	run.release()
}

// Execute drives the session to completion, reporting every step to sink
// and to the runner's listeners. The guard is released on every path.
//
// When sink fails or ctx is cancelled the run stops at its next step and
// Execute returns a nil error: a vanished observer is not a failure. Calls
// already in flight are allowed to finish; their results are dropped.
func (run *Run) Execute(ctx context.Context, sink Sink) (s *models.Session, err error) {
	defer run.release()

	r := run.runner
	s = models.NewSession(run.plan.Counterpart, run.plan.UnitPrice)
	e := &emitter{ctx: ctx, runner: r, sink: sink, sessionID: s.ID}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("session %s panicked: %v", s.ID, p)
			run.fail(e, s, err)
		}
	}()

	err = run.execute(context.WithoutCancel(ctx), s, e)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, errDisconnected):
		r.logger.InfoContext(ctx, "observer disconnected, abandoning session",
			"session", s.ID, "counterpart", s.Counterpart.Name, "phase", s.Phase)
		return s, nil
	default:
		run.fail(e, s, err)
		return s, err
	}
}

func (run *Run) fail(e *emitter, s *models.Session, err error) {
	_ = s.Advance(models.PhaseFailed)
	run.runner.logger.Error("session failed", "session", s.ID, "error", err)
	_ = e.emit(EventError, ErrorData{Message: err.Error()})
}

func (run *Run) execute(ctx context.Context, s *models.Session, e *emitter) error {
	r := run.runner
	cp := s.Counterpart
	plan := run.plan

	if err := e.emit(EventPhaseInit, InitData{
		Counterpart: cp.Name,
		Caliber:     cp.Caliber,
		Model:       cp.Model,
		Price:       s.UnitPrice,
		Rounds:      s.Rounds,
		TotalCost:   s.TotalCost,
	}); err != nil {
		return err
	}

	// Payment: counterpart pays the treasury for the whole session.
	if err := run.advance(s, models.PhasePayment); err != nil {
		return err
	}
	if err := e.emit(EventPhasePayment, PaymentPhaseData{
		Status: StatusSending,
		Amount: s.TotalCost,
		From:   cp.Name,
		To:     plan.Treasury.Name,
	}); err != nil {
		return err
	}

	payment := r.cfg.Payer.Transfer(ctx, plan.Payer, plan.Treasury.Address, s.TotalCost, "x402:chat:"+cp.Name)
	s.Payment = &payment
	if run.ledger != nil {
		entry := settlement.NewEntry(settlement.KindChatPayment, payment)
		entry.To = plan.Treasury.Name
		run.ledger.Add(entry)
	}
	if err := e.emit(EventPayment, transferData(&payment, s.TotalCost, "")); err != nil {
		return err
	}
	if !payment.Confirmed() {
		r.logger.WarnContext(ctx, "chat payment failed", "session", s.ID, "counterpart", cp.Name, "error", payment.Error)
		if !r.proceedOnPaymentFailure {
			return fmt.Errorf("payment failed: %s", payment.Error)
		}
	}

	// Dialogue.
	if err := run.advance(s, models.PhaseDialogue); err != nil {
		return err
	}
	if err := e.emit(EventPhaseDialogue, DialoguePhaseData{Rounds: s.Rounds}); err != nil {
		return err
	}
	transcript, err := r.cfg.Driver.Run(ctx, cp, s.Rounds, func(entry models.TranscriptEntry) error {
		return e.emit(EventMessage, entry)
	})
	s.Transcript = transcript
	if err != nil {
		return err
	}

	// Evaluation.
	if err := run.advance(s, models.PhaseEvaluation); err != nil {
		return err
	}
	if err := e.emit(EventPhaseEvaluation, StatusData{Status: StatusEvaluating}); err != nil {
		return err
	}
	s.Evaluation = r.cfg.Evaluator.Evaluate(ctx, s.Transcript)
	if err := e.emit(EventEvaluation, s.Evaluation); err != nil {
		return err
	}

	// Reward.
	if err := run.advance(s, models.PhaseReward); err != nil {
		return err
	}
	if err := run.reward(ctx, s, e); err != nil {
		return err
	}

	if err := run.advance(s, models.PhaseDone); err != nil {
		return err
	}
	if err := e.emit(EventComplete, CompleteData{
		SessionID:    s.ID,
		Counterpart:  cp.Name,
		Caliber:      cp.Caliber,
		Model:        cp.Model,
		Rounds:       s.Rounds,
		Paid:         s.TotalCost,
		Score:        s.Evaluation.Score,
		Level:        s.Evaluation.Level,
		Reward:       s.RewardValue,
		Net:          s.Net(),
		PaymentTxID:  s.Payment.TxIDPtr(),
		RewardTxID:   s.Reward.TxIDPtr(),
		MessageCount: len(s.Transcript),
	}); err != nil {
		return err
	}
	return e.emit(EventDone, struct{}{})
}

func (run *Run) reward(ctx context.Context, s *models.Session, e *emitter) error {
	r := run.runner
	table := r.cfg.Rewards
	score := s.Evaluation.Score
	reward := table.Lookup(score)

	if reward.Amount <= 0 {
		if err := e.emit(EventPhaseReward, RewardPhaseData{
			Status: StatusNone,
			Reason: fmt.Sprintf("Score %d < %d", score, table.Threshold()),
		}); err != nil {
			return err
		}
		return e.emit(EventReward, TransferData{Status: StatusNone, Amount: 0})
	}

	if err := e.emit(EventPhaseReward, RewardPhaseData{Status: StatusSending, Amount: reward.Amount}); err != nil {
		return err
	}

	ex := settlement.NewExecutor(r.cfg.Payer, run.plan.Treasury, run.plan.Registry.Account, run.ledger, r.logger)
	payout, _ := ex.PayReward(ctx, s.Counterpart.Name, score, reward)
	s.Reward = payout.Transfer
	if payout.Paid() {
		s.RewardValue = reward.Amount
	}
	return e.emit(EventReward, transferData(payout.Transfer, reward.Amount, payout.Error))
}

func (run *Run) advance(s *models.Session, next models.Phase) error {
	if err := s.Advance(next); err != nil {
		return err
	}
	run.runner.logger.Debug("session phase", "session", s.ID, "phase", next)
	return nil
}

// emitter delivers events in order to listeners and the run's sink, and
// latches the first observer failure.
type emitter struct {
	ctx       context.Context
	runner    *Runner
	sink      Sink
	sessionID string
	gone      bool
}

func (e *emitter) emit(t EventType, data any) error {
	if e.gone {
		return errDisconnected
	}
	if e.ctx.Err() != nil {
		e.gone = true
		return errDisconnected
	}

	event := ProgressEvent{SessionID: e.sessionID, Type: t, Data: data}
	e.runner.notifyProgress(event)
	if e.sink == nil {
		return nil
	}
	if err := e.sink(event); err != nil {
		e.gone = true
		return fmt.Errorf("%w: %v", errDisconnected, err)
	}
	return nil
}
