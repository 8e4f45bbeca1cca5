// Package webapi is the HTTP surface: pre-flight checks, the live session
// event stream, priced actions behind payment-required negotiation, and
// listings.
package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/settlement"
	"github.com/spboyer/syndi/internal/x402"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0-dev"

const maxRequestBody = 1 << 20

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	runner   *orchestration.Runner
	driver   *dialogue.Driver
	judge    orchestration.Evaluator
	registry func() (*roster.Registry, error)
	payments *x402.PaymentLog
	stake    int64
	bonus    int64
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Busy:    h.runner.Busy(),
	})
}

// HandleCounterparts lists every counterpart with its session price and
// whether it has a registered wallet.
func (h *Handlers) HandleCounterparts(w http.ResponseWriter, _ *http.Request) {
	reg, _ := h.registry() //nolint:errcheck // an unreadable registry lists everyone as unfunded

	list := []CounterpartSummary{}
	for _, cp := range h.runner.Roster().List() {
		_, funded := reg.Account(cp.Name)
		list = append(list, CounterpartSummary{
			Name:    cp.Name,
			Caliber: cp.Caliber,
			Model:   cp.Model,
			Price:   h.runner.UnitPrice(cp.Caliber),
			Rounds:  cp.TurnBudget(),
			Opener:  cp.Opener,
			Funded:  funded,
		})
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCheck validates a session request without starting it.
func (h *Handlers) HandleCheck(w http.ResponseWriter, r *http.Request) {
	plan, err := h.runner.Preflight(r.URL.Query().Get("counterpart"))
	if err != nil {
		writePreflightError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{
		OK:          true,
		Counterpart: plan.Counterpart.Name,
		Caliber:     plan.Counterpart.Caliber,
	})
}

// HandleChat produces one persuader reply over the supplied history.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cp, err := h.runner.Roster().Get(req.Counterpart)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	history := req.History
	if msg := strings.TrimSpace(req.Message); msg != "" {
		round := 0
		if n := len(history); n > 0 {
			round = history[n-1].Round
		}
		history = append(history, models.TranscriptEntry{Speaker: cp.Name, Text: msg, Round: round})
	}
	if len(history) == 0 {
		history = models.Transcript{{Speaker: cp.Name, Text: cp.Opener, Round: 0}}
	}

	reply, err := h.driver.Reply(r.Context(), cp, history)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply, Payment: paymentOf(r)})
}

// HandleArena settles an arena from submitted scores. Nothing is paid.
func (h *Handlers) HandleArena(w http.ResponseWriter, r *http.Request) {
	var req ArenaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Participants) < settlement.MinArenaSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("an arena needs at least %d participants", settlement.MinArenaSize))
		return
	}

	var transcript models.Transcript
	participants := make([]settlement.Participant, 0, len(req.Participants))
	seen := make(map[string]bool, len(req.Participants))
	for _, p := range req.Participants {
		if strings.TrimSpace(p.Name) == "" {
			writeError(w, http.StatusBadRequest, "every participant needs a name")
			return
		}
		if seen[p.Name] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("participant %q is listed more than once", p.Name))
			return
		}
		seen[p.Name] = true
		participants = append(participants, settlement.Participant{Name: p.Name, Score: p.Score, Level: p.Level})
		for _, m := range p.Messages {
			transcript = append(transcript, models.TranscriptEntry{Speaker: p.Name, Text: m})
		}
	}

	detector := settlement.NewPatternDetector(h.driver.Persuader().Name)
	missionaries := settlement.DetectMissionaries(transcript, participants, detector, h.bonus)
	if missionaries == nil {
		missionaries = []settlement.Missionary{}
	}
	writeJSON(w, http.StatusOK, ArenaResponse{
		Settlement:   settlement.SettleArena(h.stake, participants),
		Missionaries: missionaries,
		Payment:      paymentOf(r),
	})
}

// HandleEvaluate scores a submitted transcript.
func (h *Handlers) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Transcript) == 0 {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Evaluation: h.judge.Evaluate(r.Context(), req.Transcript),
		Payment:    paymentOf(r),
	})
}

// HandlePayments lists the payments verified since startup.
func (h *Handlers) HandlePayments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PaymentsResponse{
		Payments: h.payments.Entries(),
		Total:    h.payments.Total(),
	})
}

func paymentOf(r *http.Request) *x402.Payment {
	if p, ok := x402.PaymentFromContext(r.Context()); ok {
		return &p
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writePreflightError(w http.ResponseWriter, err error) {
	var pe *orchestration.PreflightError
	if errors.As(err, &pe) {
		writeJSON(w, pe.Code, ErrorResponse{Error: pe.Message, Reason: string(pe.Reason)})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
