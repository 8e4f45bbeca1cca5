package models

import (
	"errors"
	"fmt"
)

// Phase is a state of the session state machine.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhasePayment    Phase = "payment"
	PhaseDialogue   Phase = "dialogue"
	PhaseEvaluation Phase = "evaluation"
	PhaseReward     Phase = "reward"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// ErrPhaseRegression is returned when a session is asked to move backwards.
var ErrPhaseRegression = errors.New("phase cannot regress")

var phaseRank = map[Phase]int{
	PhaseInit:       0,
	PhasePayment:    1,
	PhaseDialogue:   2,
	PhaseEvaluation: 3,
	PhaseReward:     4,
	PhaseDone:       5,
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Before reports whether p comes strictly before other in the phase order.
// Failed is not ordered relative to the other phases.
func (p Phase) Before(other Phase) bool {
	a, okA := phaseRank[p]
	b, okB := phaseRank[other]
	return okA && okB && a < b
}

// CanAdvance reports whether a session in phase p may move to next.
func (p Phase) CanAdvance(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	return p.Before(next)
}

// advanceError describes a rejected transition.
func advanceError(from, to Phase) error {
	return fmt.Errorf("%w: %s -> %s", ErrPhaseRegression, from, to)
}
