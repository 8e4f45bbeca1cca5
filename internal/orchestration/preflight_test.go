package orchestration

import (
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/spboyer/syndi/internal/guard"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPreflightRefusals(t *testing.T) {
	cases := map[string]struct {
		name   string
		mutate func(r *Runner)
		reason Reason
		code   int
	}{
		"empty name": {
			name:   "  ",
			reason: ReasonMissingCounterpart,
			code:   http.StatusBadRequest,
		},
		"unknown": {
			name:   "Nobody",
			reason: ReasonUnknownCounterpart,
			code:   http.StatusNotFound,
		},
		"missing credential": {
			name:   "Mel",
			mutate: func(r *Runner) { r.cfg.Credentials["WALLET_SERVICE_TOKEN"] = "" },
			reason: ReasonMissingCredential,
			code:   http.StatusInternalServerError,
		},
		"missing registry": {
			name: "Mel",
			mutate: func(r *Runner) {
				r.cfg.Registry = func() (*roster.Registry, error) { return nil, roster.ErrRegistryMissing }
			},
			reason: ReasonMissingRegistry,
			code:   http.StatusInternalServerError,
		},
		"missing counterpart wallet": {
			name:   "Orphan",
			reason: ReasonMissingWallet,
			code:   http.StatusInternalServerError,
		},
		"missing treasury wallet": {
			name:   "Mel",
			mutate: func(r *Runner) { r.cfg.Treasury = "Vault" },
			reason: ReasonMissingWallet,
			code:   http.StatusInternalServerError,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, scoreEvaluator{})
			if tc.mutate != nil {
				tc.mutate(f.runner)
			}

			_, err := f.runner.Begin(tc.name)
			var pe *PreflightError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tc.reason, pe.Reason)
			require.Equal(t, tc.code, pe.Code)
			require.False(t, f.runner.Busy(), "refusal must not claim the guard")
			require.Empty(t, f.payer.transfers)
		})
	}
}

func TestPreflightMissingRegistryUnwraps(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})
	f.runner.cfg.Registry = func() (*roster.Registry, error) { return nil, roster.ErrRegistryMissing }

	_, err := f.runner.Preflight("Mel")
	require.ErrorIs(t, err, roster.ErrRegistryMissing)
}

func TestPreflightPlan(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})

	plan, err := f.runner.Preflight("tessa")
	require.NoError(t, err)
	require.Equal(t, "Tessa", plan.Counterpart.Name)
	require.Equal(t, int64(1000), plan.UnitPrice)
	require.Equal(t, "ST4TESSA", plan.Payer.Address)
	require.Equal(t, "ST1TREASURY", plan.Treasury.Address)
	require.False(t, f.runner.Busy())
}

func TestBeginBusy(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})

	run, err := f.runner.Begin("Mel")
	require.NoError(t, err)

	_, err = f.runner.Begin("Gary")
	var pe *PreflightError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonBusy, pe.Reason)
	require.Equal(t, http.StatusTooManyRequests, pe.Code)
	require.ErrorIs(t, err, guard.ErrBusy)

	run.Abort()
	run.Abort()

	run, err = f.runner.Begin("Gary")
	require.NoError(t, err)
	run.Abort()
}

func TestBeginConcurrentAdmitsOne(t *testing.T) {
	f := newFixture(t, scoreEvaluator{})

	var (
		admitted atomic.Int32
		busy     atomic.Int32
		runs     = make(chan *Run, 16)
		g        errgroup.Group
	)
	for range 16 {
		g.Go(func() error {
			run, err := f.runner.Begin("Mel")
			var pe *PreflightError
			switch {
			case err == nil:
				admitted.Add(1)
				runs <- run
			case errors.As(err, &pe) && pe.Reason == ReasonBusy:
				busy.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(runs)

	require.Equal(t, int32(1), admitted.Load())
	require.Equal(t, int32(15), busy.Load())
	for run := range runs {
		run.Abort()
	}
	require.False(t, f.runner.Busy())
}

func TestSharedGuard(t *testing.T) {
	g := guard.New()
	a := newFixture(t, scoreEvaluator{}, WithGuard(g))
	b := newFixture(t, scoreEvaluator{}, WithGuard(g))

	run, err := a.runner.Begin("Mel")
	require.NoError(t, err)
	require.True(t, b.runner.Busy())
	run.Abort()
	require.False(t, b.runner.Busy())
}
