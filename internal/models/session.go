package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one conversation attempt. It lives only for the duration of a
// run and is owned by a single goroutine, so it carries no locking.
type Session struct {
	ID          string       `json:"id"`
	Counterpart *Counterpart `json:"counterpart"`
	Rounds      int          `json:"rounds"`
	UnitPrice   int64        `json:"price"`
	TotalCost   int64        `json:"totalCost"`
	Phase       Phase        `json:"phase"`
	Transcript  Transcript   `json:"transcript"`
	Evaluation  *Evaluation  `json:"evaluation,omitempty"`
	Payment     *Transfer    `json:"payment,omitempty"`
	Reward      *Transfer    `json:"reward,omitempty"`
	RewardValue int64        `json:"rewardAmount"`
	StartedAt   time.Time    `json:"startedAt"`
}

// NewSession creates a session in the init phase. The total cost is fixed
// here and never recomputed.
func NewSession(cp *Counterpart, unitPrice int64) *Session {
	rounds := cp.TurnBudget()
	return &Session{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Counterpart: cp,
		Rounds:      rounds,
		UnitPrice:   unitPrice,
		TotalCost:   unitPrice * int64(rounds),
		Phase:       PhaseInit,
		StartedAt:   time.Now().UTC(),
	}
}

// Advance moves the session to next, refusing any backwards move.
func (s *Session) Advance(next Phase) error {
	if !s.Phase.CanAdvance(next) {
		return advanceError(s.Phase, next)
	}
	s.Phase = next
	return nil
}

// Net returns the reward received minus the total cost paid.
func (s *Session) Net() int64 {
	return s.RewardValue - s.TotalCost
}
