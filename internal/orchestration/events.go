package orchestration

import (
	"github.com/spboyer/syndi/internal/models"
)

// EventType names a progress event. The names double as SSE event names.
type EventType string

// EventType constants
const (
	EventPhaseInit       EventType = "phase:init"
	EventPhasePayment    EventType = "phase:payment"
	EventPayment         EventType = "payment"
	EventPhaseDialogue   EventType = "phase:dialogue"
	EventMessage         EventType = "message"
	EventPhaseEvaluation EventType = "phase:evaluation"
	EventEvaluation      EventType = "evaluation"
	EventPhaseReward     EventType = "phase:reward"
	EventReward          EventType = "reward"
	EventComplete        EventType = "complete"
	EventDone            EventType = "done"
	EventError           EventType = "error"

	EventArenaEntrant EventType = "arena:entrant"
	EventArenaSettled EventType = "arena:settled"
)

// ProgressEvent is one write-once progress update.
type ProgressEvent struct {
	SessionID string
	Type      EventType
	Data      any
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// Sink is the observer of a single run. A non-nil error means the observer
// has gone away.
type Sink func(event ProgressEvent) error

// Transfer statuses used in progress events beyond the ledger's own.
const (
	StatusSending    = "sending"
	StatusNone       = "none"
	StatusEvaluating = "evaluating"
)

// InitData is the payload of phase:init.
type InitData struct {
	Counterpart string         `json:"counterpart"`
	Caliber     models.Caliber `json:"caliber"`
	Model       string         `json:"model"`
	Price       int64          `json:"price"`
	Rounds      int            `json:"rounds"`
	TotalCost   int64          `json:"totalCost"`
}

// PaymentPhaseData is the payload of phase:payment.
type PaymentPhaseData struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// TransferData is the payload of payment and reward.
type TransferData struct {
	Status      string `json:"status"`
	TxID        string `json:"txId,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Amount      int64  `json:"amount"`
	Error       string `json:"error,omitempty"`
}

func transferData(t *models.Transfer, amount int64, fallbackErr string) TransferData {
	if t == nil {
		return TransferData{Status: string(models.TransferFailed), Amount: amount, Error: fallbackErr}
	}
	d := TransferData{Status: string(t.Status), Amount: amount, Error: t.Error}
	if t.Confirmed() {
		d.TxID = t.TxID
		d.ExplorerURL = t.ExplorerURL
	}
	return d
}

// DialoguePhaseData is the payload of phase:dialogue.
type DialoguePhaseData struct {
	Rounds int `json:"rounds"`
}

// StatusData is the payload of phase:evaluation.
type StatusData struct {
	Status string `json:"status"`
}

// RewardPhaseData is the payload of phase:reward.
type RewardPhaseData struct {
	Status string `json:"status"`
	Amount int64  `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CompleteData is the payload of complete.
type CompleteData struct {
	SessionID    string         `json:"sessionId"`
	Counterpart  string         `json:"counterpart"`
	Caliber      models.Caliber `json:"caliber"`
	Model        string         `json:"model"`
	Rounds       int            `json:"rounds"`
	Paid         int64          `json:"paid"`
	Score        int            `json:"score"`
	Level        string         `json:"level"`
	Reward       int64          `json:"reward"`
	Net          int64          `json:"net"`
	PaymentTxID  *string        `json:"paymentTxId"`
	RewardTxID   *string        `json:"rewardTxId"`
	MessageCount int            `json:"messageCount"`
}

// ErrorData is the payload of error.
type ErrorData struct {
	Message string `json:"message"`
}
