package webapi

import (
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/settlement"
	"github.com/spboyer/syndi/internal/x402"
)

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Busy    bool   `json:"busy"`
}

// ErrorResponse is returned for errors. Reason is set for structured
// refusals.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// CounterpartSummary is one entry of the counterpart listing.
type CounterpartSummary struct {
	Name    string         `json:"name"`
	Caliber models.Caliber `json:"caliber"`
	Model   string         `json:"model"`
	Price   int64          `json:"price"`
	Rounds  int            `json:"rounds"`
	Opener  string         `json:"opener"`
	Funded  bool           `json:"funded"`
}

// CheckResponse acknowledges a session request before the stream opens.
type CheckResponse struct {
	OK          bool           `json:"ok"`
	Counterpart string         `json:"counterpart"`
	Caliber     models.Caliber `json:"caliber"`
}

// ChatRequest asks for the persuader's next reply.
type ChatRequest struct {
	Counterpart string            `json:"counterpart"`
	History     models.Transcript `json:"history"`
	Message     string            `json:"message"`
}

// ChatResponse carries the persuader's reply.
type ChatResponse struct {
	Reply   models.TranscriptEntry `json:"reply"`
	Payment *x402.Payment          `json:"payment,omitempty"`
}

// ArenaParticipant is one judged entrant submitted for settlement.
type ArenaParticipant struct {
	Name     string   `json:"name"`
	Score    int      `json:"score"`
	Level    string   `json:"level"`
	Messages []string `json:"messages"`
}

// ArenaRequest asks for an arena settlement.
type ArenaRequest struct {
	Participants []ArenaParticipant `json:"participants"`
}

// ArenaResponse is a computed, unexecuted arena settlement.
type ArenaResponse struct {
	Settlement   settlement.Settlement   `json:"settlement"`
	Missionaries []settlement.Missionary `json:"missionaries"`
	Payment      *x402.Payment           `json:"payment,omitempty"`
}

// EvaluateRequest asks for a conversion score.
type EvaluateRequest struct {
	Transcript models.Transcript `json:"transcript"`
}

// EvaluateResponse carries the evaluation.
type EvaluateResponse struct {
	Evaluation *models.Evaluation `json:"evaluation"`
	Payment    *x402.Payment      `json:"payment,omitempty"`
}

// PaymentsResponse lists verified payments.
type PaymentsResponse struct {
	Payments []x402.Payment `json:"payments"`
	Total    int64          `json:"total"`
}
