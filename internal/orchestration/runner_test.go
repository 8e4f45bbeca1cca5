package orchestration

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/settlement"
	"github.com/stretchr/testify/require"
)

// lineResponder answers every turn with a fixed line per speaker.
type lineResponder struct {
	lines map[string]string
	err   error
}

func (l lineResponder) Respond(_ context.Context, req dialogue.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if l.err != nil {
			yield("", l.err)
			return
		}
		text, ok := l.lines[req.Speaker]
		if !ok {
			text = req.Speaker + " speaks"
		}
		yield(text, nil)
	}
}

type scoreEvaluator struct {
	scores map[string]int
	panics bool
}

func (s scoreEvaluator) Evaluate(_ context.Context, transcript models.Transcript) *models.Evaluation {
	if s.panics {
		panic("judge exploded")
	}
	score := s.scores[transcript[0].Speaker]
	return &models.Evaluation{Score: score, Level: fmt.Sprintf("level-%d", score), Evidence: []string{}}
}

type fakePayer struct {
	mu        sync.Mutex
	transfers []models.Transfer
	failFrom  map[string]string
}

func (p *fakePayer) Transfer(_ context.Context, from ledger.Account, to string, amount int64, memo string) models.Transfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := models.Transfer{From: from.Name, To: to, Amount: amount, Memo: memo}
	if reason, ok := p.failFrom[from.Name]; ok {
		t.Status = models.TransferFailed
		t.Error = reason
	} else {
		t.Status = models.TransferConfirmed
		t.TxID = fmt.Sprintf("0x%d", len(p.transfers)+1)
		t.ExplorerURL = "https://explorer/" + t.TxID
	}
	p.transfers = append(p.transfers, t)
	return t
}

func testRoster(t *testing.T) *roster.Roster {
	t.Helper()
	r, err := roster.New(
		&models.Counterpart{Name: "Mel", Caliber: models.CaliberMedium, Model: "gpt-4o", SystemPrompt: "You are Mel.", Opener: "Hello?"},
		&models.Counterpart{Name: "Gary", Caliber: models.CaliberLow, Model: "gpt-4o-mini", SystemPrompt: "You are Gary.", Opener: "What?"},
		&models.Counterpart{Name: "Tessa", Caliber: models.CaliberHigh, Model: "gpt-4.1", SystemPrompt: "You are Tessa.", Opener: "Go on."},
		&models.Counterpart{Name: "Orphan", Caliber: models.CaliberLow, Model: "gpt-4o-mini", SystemPrompt: "You are lost.", Opener: "Hm."},
	)
	require.NoError(t, err)
	return r
}

func testRegistry() (*roster.Registry, error) {
	return &roster.Registry{
		Network: "testnet",
		Wallets: map[string]roster.Wallet{
			"Treasury": {Address: "ST1TREASURY", Index: 0},
			"Mel":      {Address: "ST2MEL", Index: 1},
			"Gary":     {Address: "ST3GARY", Index: 2},
			"Tessa":    {Address: "ST4TESSA", Index: 3},
		},
	}, nil
}

type fixture struct {
	runner *Runner
	payer  *fakePayer
}

func newFixture(t *testing.T, eval Evaluator, opts ...RunnerOption) *fixture {
	t.Helper()
	payer := &fakePayer{failFrom: map[string]string{}}
	driver := dialogue.NewDriver(lineResponder{lines: map[string]string{
		"Mel":   "I agree with Syndi, that makes sense.",
		"Syndi": "Consider the evidence.",
	}}, dialogue.Options{})

	r := NewRunner(Config{
		Roster:      testRoster(t),
		Registry:    testRegistry,
		Driver:      driver,
		Evaluator:   eval,
		Payer:       payer,
		Credentials: map[string]string{"OPENAI_API_KEY": "sk-test"},
	}, opts...)
	return &fixture{runner: r, payer: payer}
}

type collector struct {
	events []ProgressEvent
	failAt int
}

func (c *collector) sink(e ProgressEvent) error {
	c.events = append(c.events, e)
	if c.failAt > 0 && len(c.events) >= c.failAt {
		return errors.New("broken pipe")
	}
	return nil
}

func (c *collector) types() []EventType {
	out := make([]EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func (c *collector) data(t EventType) []any {
	var out []any
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e.Data)
		}
	}
	return out
}

var phaseEvents = map[EventType]models.Phase{
	EventPhaseInit:       models.PhaseInit,
	EventPhasePayment:    models.PhasePayment,
	EventPhaseDialogue:   models.PhaseDialogue,
	EventPhaseEvaluation: models.PhaseEvaluation,
	EventPhaseReward:     models.PhaseReward,
	EventDone:            models.PhaseDone,
}

// requirePhasePrefix checks the phase events form a prefix of the phase order.
func requirePhasePrefix(t *testing.T, events []EventType) {
	t.Helper()
	order := []models.Phase{models.PhaseInit, models.PhasePayment, models.PhaseDialogue, models.PhaseEvaluation, models.PhaseReward, models.PhaseDone}
	i := 0
	for _, e := range events {
		p, ok := phaseEvents[e]
		if !ok {
			continue
		}
		require.Less(t, i, len(order))
		require.Equal(t, order[i], p)
		i++
	}
}

func TestExecuteFullSession(t *testing.T) {
	f := newFixture(t, scoreEvaluator{scores: map[string]int{"Mel": 3}})
	var heard []EventType
	f.runner.OnProgress(func(e ProgressEvent) { heard = append(heard, e.Type) })

	run, err := f.runner.Begin("mel")
	require.NoError(t, err)
	require.True(t, f.runner.Busy())

	var c collector
	s, err := run.Execute(context.Background(), c.sink)
	require.NoError(t, err)
	require.False(t, f.runner.Busy())

	require.Equal(t, []EventType{
		EventPhaseInit,
		EventPhasePayment, EventPayment,
		EventPhaseDialogue,
		EventMessage, EventMessage, EventMessage, EventMessage, EventMessage, EventMessage, EventMessage,
		EventPhaseEvaluation, EventEvaluation,
		EventPhaseReward, EventReward,
		EventComplete, EventDone,
	}, c.types())
	require.Equal(t, c.types(), heard)
	requirePhasePrefix(t, c.types())

	require.Equal(t, InitData{Counterpart: "Mel", Caliber: models.CaliberMedium, Model: "gpt-4o", Price: 500, Rounds: 3, TotalCost: 1500}, c.events[0].Data)
	require.Equal(t, PaymentPhaseData{Status: StatusSending, Amount: 1500, From: "Mel", To: "Treasury"}, c.events[1].Data)
	require.Equal(t, RewardPhaseData{Status: StatusSending, Amount: 200}, c.data(EventPhaseReward)[0])

	complete := c.data(EventComplete)[0].(CompleteData)
	require.Equal(t, int64(1500), complete.Paid)
	require.Equal(t, 3, complete.Score)
	require.Equal(t, int64(200), complete.Reward)
	require.Equal(t, int64(200-1500), complete.Net)
	require.Equal(t, 7, complete.MessageCount)
	require.NotNil(t, complete.PaymentTxID)
	require.NotNil(t, complete.RewardTxID)
	require.Equal(t, s.ID, c.events[0].SessionID)

	require.Equal(t, models.PhaseDone, s.Phase)
	require.Len(t, f.payer.transfers, 2)
	require.Equal(t, "x402:chat:Mel", f.payer.transfers[0].Memo)
	require.Equal(t, "ST1TREASURY", f.payer.transfers[0].To)
	require.Equal(t, "x402:reward:score3", f.payer.transfers[1].Memo)
	require.Equal(t, "ST2MEL", f.payer.transfers[1].To)
}

func TestExecutePaymentFailureStillTalks(t *testing.T) {
	f := newFixture(t, scoreEvaluator{scores: map[string]int{"Mel": 0}})
	f.payer.failFrom["Mel"] = "NotEnoughFunds"

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	s, err := run.Execute(context.Background(), c.sink)
	require.NoError(t, err)

	payment := c.data(EventPayment)[0].(TransferData)
	require.Equal(t, "failed", payment.Status)
	require.Equal(t, "NotEnoughFunds", payment.Error)
	require.Empty(t, payment.TxID)

	require.Len(t, s.Transcript, 7)
	require.Len(t, c.data(EventMessage), 7)

	require.Equal(t, RewardPhaseData{Status: StatusNone, Reason: "Score 0 < 2"}, c.data(EventPhaseReward)[0])
	require.Equal(t, TransferData{Status: StatusNone, Amount: 0}, c.data(EventReward)[0])

	complete := c.data(EventComplete)[0].(CompleteData)
	require.Nil(t, complete.PaymentTxID)
	require.Nil(t, complete.RewardTxID)
	require.Equal(t, int64(-1500), complete.Net)
}

func TestExecutePaymentFailureHalts(t *testing.T) {
	f := newFixture(t, scoreEvaluator{}, WithPaymentFailurePolicy(false))
	f.payer.failFrom["Mel"] = "NotEnoughFunds"

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	s, err := run.Execute(context.Background(), c.sink)
	require.Error(t, err)
	require.Equal(t, models.PhaseFailed, s.Phase)
	require.False(t, f.runner.Busy())

	types := c.types()
	require.Equal(t, EventError, types[len(types)-1])
	require.NotContains(t, types, EventMessage)
	require.Contains(t, c.data(EventError)[0].(ErrorData).Message, "NotEnoughFunds")
}

func TestExecuteRewardFailure(t *testing.T) {
	f := newFixture(t, scoreEvaluator{scores: map[string]int{"Mel": 5}})
	f.payer.failFrom["Treasury"] = "ConflictingNonceInMempool"

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	s, err := run.Execute(context.Background(), c.sink)
	require.NoError(t, err)

	require.Equal(t, TransferData{Status: "failed", Amount: 1000, Error: "ConflictingNonceInMempool"}, c.data(EventReward)[0])
	require.Zero(t, s.RewardValue)
	require.Equal(t, models.PhaseDone, s.Phase)
}

func TestExecuteSentinelScoreGetsNoReward(t *testing.T) {
	f := newFixture(t, scoreEvaluator{scores: map[string]int{"Mel": models.ScoreError}})

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	_, err = run.Execute(context.Background(), c.sink)
	require.NoError(t, err)
	require.Equal(t, "none", c.data(EventReward)[0].(TransferData).Status)
	require.Len(t, f.payer.transfers, 1)
}

func TestExecuteObserverDisconnectReleasesGuard(t *testing.T) {
	f := newFixture(t, scoreEvaluator{scores: map[string]int{"Mel": 5}})

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	c := collector{failAt: 6}
	s, err := run.Execute(context.Background(), c.sink)
	require.NoError(t, err)
	require.Len(t, c.events, 6)
	require.False(t, f.runner.Busy())
	require.Equal(t, models.PhaseDialogue, s.Phase)
	require.Len(t, f.payer.transfers, 1, "no reward after the observer left")
	requirePhasePrefix(t, c.types())

	run, err = f.runner.Begin("Mel")
	require.NoError(t, err)
	run.Abort()
}

func TestExecuteCancelledContextStopsQuietly(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})
	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var c collector
	_, err = run.Execute(ctx, c.sink)
	require.NoError(t, err)
	require.Empty(t, c.events)
	require.False(t, f.runner.Busy())
}

func TestExecutePanicReleasesGuard(t *testing.T) {
	f := newFixture(t, scoreEvaluator{panics: true})

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	s, err := run.Execute(context.Background(), c.sink)
	require.ErrorContains(t, err, "judge exploded")
	require.Equal(t, models.PhaseFailed, s.Phase)
	require.False(t, f.runner.Busy())

	types := c.types()
	require.Equal(t, EventError, types[len(types)-1])
	require.NotContains(t, types, EventComplete)
	requirePhasePrefix(t, types)
}

func TestExecuteDialogueFailure(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})
	f.runner.cfg.Driver = dialogue.NewDriver(lineResponder{err: errors.New("rate limited")}, dialogue.Options{})

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	var c collector
	_, err = run.Execute(context.Background(), c.sink)
	require.ErrorContains(t, err, "rate limited")
	require.Equal(t, EventError, c.types()[len(c.events)-1])
	require.Len(t, c.data(EventMessage), 1, "only the opener")
}
