package models

// Conversion scores run from ScoreMin to ScoreMax. ScoreError marks a failed
// evaluation; it is outside the reward table on purpose so it falls through
// to the zero reward.
const (
	ScoreMin   = 0
	ScoreMax   = 5
	ScoreError = -1

	// WinningScore is the lowest score that counts as a conversion in arena
	// settlement and missionary detection.
	WinningScore = 3
)

// LevelError is the level label attached to failed evaluations.
const LevelError = "error"

// Evaluation is the judged outcome of one conversation. It is produced once
// per session and never modified afterwards.
type Evaluation struct {
	Score     int      `json:"score"`
	Level     string   `json:"level"`
	Evidence  []string `json:"evidence"`
	Reasoning string   `json:"reasoning"`
}

// InRange reports whether the score is a real conversion score.
func (e *Evaluation) InRange() bool {
	return e.Score >= ScoreMin && e.Score <= ScoreMax
}

// Converted reports whether the score qualifies as a conversion.
func (e *Evaluation) Converted() bool {
	return e.Score >= WinningScore
}

// EvaluationFromError converts an evaluation failure into the sentinel
// evaluation used downstream.
func EvaluationFromError(err error) *Evaluation {
	reason := "evaluation failed"
	if err != nil {
		reason = err.Error()
	}
	return &Evaluation{
		Score:     ScoreError,
		Level:     LevelError,
		Evidence:  []string{},
		Reasoning: reason,
	}
}
