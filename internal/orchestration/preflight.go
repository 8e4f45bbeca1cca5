package orchestration

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/spboyer/syndi/internal/guard"
	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/roster"
)

// Reason identifies why a session was refused before it started.
type Reason string

const (
	ReasonMissingCounterpart Reason = "missing_counterpart"
	ReasonUnknownCounterpart Reason = "unknown_counterpart"
	ReasonBusy               Reason = "busy"
	ReasonMissingCredential  Reason = "missing_credential"
	ReasonMissingRegistry    Reason = "missing_registry"
	ReasonMissingWallet      Reason = "missing_wallet"

	// ReasonDuplicateCounterpart refuses a batch naming one counterpart twice.
	ReasonDuplicateCounterpart Reason = "duplicate_counterpart"
)

// PreflightError is a structured refusal. Code is the HTTP status the
// transport reports it with.
type PreflightError struct {
	Reason  Reason
	Code    int
	Message string
	Err     error
}

func (e *PreflightError) Error() string {
	return e.Message
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

func refuse(reason Reason, code int, err error, format string, args ...any) *PreflightError {
	return &PreflightError{Reason: reason, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Plan is a validated session request.
type Plan struct {
	Counterpart *models.Counterpart
	Payer       ledger.Account
	Treasury    ledger.Account
	UnitPrice   int64
	Registry    *roster.Registry
}

// Preflight validates a session request without side effects.
func (r *Runner) Preflight(name string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, refuse(ReasonMissingCounterpart, http.StatusBadRequest, nil, "counterpart is required")
	}

	cp, err := r.roster.Get(name)
	if err != nil {
		return nil, refuse(ReasonUnknownCounterpart, http.StatusNotFound, err, "unknown counterpart %q", name)
	}

	if r.guard.Busy() {
		return nil, busyError()
	}

	if missing := r.missingCredentials(); len(missing) > 0 {
		return nil, refuse(ReasonMissingCredential, http.StatusInternalServerError, nil,
			"missing credential: %s", strings.Join(missing, ", "))
	}

	reg, err := r.loadRegistry()
	if err != nil {
		return nil, refuse(ReasonMissingRegistry, http.StatusInternalServerError, err, "wallet registry unavailable: %v", err)
	}

	payer, ok := reg.Account(cp.Name)
	if !ok {
		return nil, refuse(ReasonMissingWallet, http.StatusInternalServerError, nil, "no wallet registered for %s", cp.Name)
	}
	treasury, ok := reg.Account(r.cfg.Treasury)
	if !ok {
		return nil, refuse(ReasonMissingWallet, http.StatusInternalServerError, nil, "no wallet registered for %s", r.cfg.Treasury)
	}

	return &Plan{
		Counterpart: cp,
		Payer:       payer,
		Treasury:    treasury,
		UnitPrice:   r.cfg.Prices[cp.Caliber],
		Registry:    reg,
	}, nil
}

// distinct refuses a batch that names the same counterpart more than once,
// in any spelling the roster resolves to one entry.
func (r *Runner) distinct(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if cp, err := r.roster.Get(name); err == nil {
			key = cp.Name
		}
		if seen[key] {
			return refuse(ReasonDuplicateCounterpart, http.StatusBadRequest, nil, "counterpart %q is named more than once", key)
		}
		seen[key] = true
	}
	return nil
}

func busyError() *PreflightError {
	return refuse(ReasonBusy, http.StatusTooManyRequests, guard.ErrBusy, "a session is already in progress")
}

func (r *Runner) missingCredentials() []string {
	var missing []string
	for name, value := range r.cfg.Credentials {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}

func (r *Runner) loadRegistry() (*roster.Registry, error) {
	if r.cfg.Registry == nil {
		return nil, errors.New("no wallet registry configured")
	}
	return r.cfg.Registry()
}
