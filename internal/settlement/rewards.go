// Package settlement computes who is owed what after conversations are
// judged, and turns those amounts into ledger transfers. Computation is pure;
// execution is a separate, explicit step.
package settlement

import "github.com/spboyer/syndi/internal/models"

// Reward is the payout for one conversion score.
type Reward struct {
	Amount int64  `yaml:"amount" json:"amount"`
	Label  string `yaml:"label" json:"label"`
}

// RewardTable maps a conversion score to its reward. Entry 0 is the
// fallback for every score missing from the table.
type RewardTable map[int]Reward

// DefaultRewardTable returns the stock schedule, in micro-STX.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		0: {Amount: 0, Label: "No engagement"},
		1: {Amount: 0, Label: "Acknowledged"},
		2: {Amount: 50, Label: "Interested"},
		3: {Amount: 200, Label: "Soft conversion"},
		4: {Amount: 500, Label: "Strong conversion"},
		5: {Amount: 1000, Label: "Full conversion"},
	}
}

// Lookup returns the reward for score. Scores outside the table, including
// models.ScoreError, get the score-0 entry.
func (t RewardTable) Lookup(score int) Reward {
	if r, ok := t[score]; ok && score >= models.ScoreMin && score <= models.ScoreMax {
		return r
	}
	return t[0]
}

// Threshold returns the lowest in-range score that earns a positive reward,
// or ScoreMax+1 when no score does.
func (t RewardTable) Threshold() int {
	for score := models.ScoreMin; score <= models.ScoreMax; score++ {
		if t.Lookup(score).Amount > 0 {
			return score
		}
	}
	return models.ScoreMax + 1
}
