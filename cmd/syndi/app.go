package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/projectconfig"
	"github.com/spboyer/syndi/internal/reasoning"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/session"
)

// app holds the configuration and collaborators shared by the commands.
// The reasoning engine is only built by commands that hold conversations.
type app struct {
	cfg     *projectconfig.ProjectConfig
	secrets projectconfig.Secrets
	roster  *roster.Roster
	logger  *slog.Logger

	engine  reasoning.Engine
	driver  *dialogue.Driver
	judge   *reasoning.Judge
	gateway *ledger.Gateway
	runner  *orchestration.Runner
	log     session.Logger
}

// loadApp reads .syndi.yaml, secrets and the counterpart roster.
func loadApp(dir string) (*app, error) {
	cfg, err := projectconfig.Load(dir)
	if err != nil {
		return nil, err
	}
	secrets := cfg.LoadSecrets(cfg.Resolve(".env"))

	r, err := roster.Load(cfg.Resolve(cfg.Paths.Counterparts))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, secrets: secrets, roster: r, logger: slog.Default()}, nil
}

// registry re-reads the wallet registry on every call so wallets added
// while serving are picked up.
func (a *app) registry() (*roster.Registry, error) {
	return roster.LoadRegistry(a.cfg.Resolve(a.cfg.Paths.Wallets))
}

func (a *app) persona() dialogue.Persona {
	p := a.roster.Persuader
	model := p.Model
	if model == "" {
		model = a.cfg.Reasoning.PersuaderModel
	}
	return dialogue.Persona{
		Name:         p.Name,
		Model:        model,
		MaxTokens:    a.cfg.Reasoning.PersuaderMaxTokens,
		SystemPrompt: p.SystemPrompt,
	}
}

func (a *app) newGateway() *ledger.Gateway {
	var b ledger.Broadcaster
	if a.cfg.DryRun() {
		b = ledger.NewDryRun(a.logger)
	} else {
		b = ledger.NewWalletService(a.cfg.Ledger.WalletServiceURL, a.secrets.WalletToken, a.cfg.Ledger.Network, nil)
	}
	opts := []ledger.GatewayOption{
		ledger.WithMemoLimit(a.cfg.Ledger.MemoLimit),
		ledger.WithLogger(a.logger),
	}
	if a.cfg.Ledger.ExplorerURL != "" {
		opts = append(opts, ledger.WithExplorerURL(a.cfg.Ledger.ExplorerURL))
	}
	return ledger.NewGateway(b, opts...)
}

// start builds the reasoning engine, the ledger gateway and the runner.
// withLog attaches a session log listener.
func (a *app) start(withLog bool) error {
	score := models.WinningScore
	if a.cfg.Reasoning.MockScore != nil {
		score = *a.cfg.Reasoning.MockScore
	}
	engine, err := reasoning.New(reasoning.Config{
		Backend: a.cfg.Reasoning.Backend,
		APIKey:  a.secrets.OpenAIKey,
		BaseURL: a.secrets.OpenAIBaseURL,
		Score:   score,
	})
	if err != nil {
		return fmt.Errorf("reasoning backend: %w", err)
	}
	a.engine = engine

	persona := a.persona()
	a.driver = dialogue.NewDriver(engine, dialogue.Options{
		Persuader:            persona,
		CounterpartMaxTokens: a.cfg.Reasoning.CounterpartMaxTokens,
		Logger:               a.logger,
	})
	a.judge = reasoning.NewJudge(engine, reasoning.JudgeOptions{
		Model:     a.cfg.Reasoning.JudgeModel,
		Window:    a.cfg.Reasoning.JudgeWindow,
		Persuader: a.driver.Persuader().Name,
		Logger:    a.logger,
	})
	a.gateway = a.newGateway()

	proceed := a.cfg.Session.ProceedOnPaymentFailure == nil || *a.cfg.Session.ProceedOnPaymentFailure
	a.runner = orchestration.NewRunner(orchestration.Config{
		Roster:      a.roster,
		Registry:    a.registry,
		Driver:      a.driver,
		Evaluator:   a.judge,
		Payer:       a.gateway,
		Treasury:    a.cfg.Ledger.Treasury,
		Prices:      a.cfg.Session.Prices,
		Rewards:     a.cfg.Session.Rewards,
		Credentials: a.cfg.RequiredCredentials(a.secrets),
		Logger:      a.logger,
	}, orchestration.WithPaymentFailurePolicy(proceed))

	a.log = session.NopLogger{}
	if withLog || (a.cfg.Session.Log != nil && *a.cfg.Session.Log) {
		l, err := session.NewJSONLogger(session.DefaultLogPath(a.cfg.Resolve(a.cfg.Paths.Sessions)))
		if err != nil {
			return err
		}
		a.log = l
		a.runner.OnProgress(session.Listener(l, a.logger))
		a.logger.Info("session log enabled", "path", l.Path())
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.log != nil {
		if err := a.log.Close(); err != nil {
			a.logger.Warn("closing session log", "error", err)
		}
	}
	if a.engine != nil {
		if err := a.engine.Shutdown(ctx); err != nil {
			a.logger.Warn("shutting down reasoning backend", "error", err)
		}
	}
}
