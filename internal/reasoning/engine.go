// Package reasoning adapts external reasoning services to the dialogue and
// evaluation contracts.
package reasoning

import (
	"context"
	"fmt"

	"github.com/spboyer/syndi/internal/dialogue"
)

// Backend names accepted by New.
const (
	BackendOpenAI  = "openai"
	BackendCopilot = "copilot"
	BackendMock    = "mock"
)

// Completer answers a judge prompt with one complete JSON document.
type Completer interface {
	CompleteJSON(ctx context.Context, model, system, user string) (string, error)
}

// Engine is a reasoning backend able to stream dialogue turns and answer
// judge prompts.
type Engine interface {
	dialogue.Responder
	Completer

	// Shutdown releases any resources held by the engine.
	Shutdown(ctx context.Context) error
}

// Config selects and configures an Engine.
type Config struct {
	Backend string
	APIKey  string
	BaseURL string

	// Score is the fixed conversion score the mock backend reports.
	Score int
}

// New creates the engine named by cfg.Backend.
func New(cfg Config) (Engine, error) {
	switch cfg.Backend {
	case BackendOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key")
		}
		return NewOpenAI(cfg.APIKey, cfg.BaseURL), nil
	case BackendCopilot:
		return NewCopilot(nil), nil
	case BackendMock:
		return NewScripted(cfg.Score), nil
	default:
		return nil, fmt.Errorf("unknown reasoning backend %q: must be openai, copilot, or mock", cfg.Backend)
	}
}

// RequiresCredential reports whether backend needs an API key.
func RequiresCredential(backend string) bool {
	return backend == BackendOpenAI || backend == ""
}
