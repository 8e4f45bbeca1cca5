package reporting

import (
	"fmt"
	"strings"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/settlement"
)

// InterpretScore returns a plain-language label for a conversion score.
func InterpretScore(score int, rewards settlement.RewardTable) string {
	if score < models.ScoreMin || score > models.ScoreMax {
		return "Evaluation failed"
	}
	if rewards == nil {
		rewards = settlement.DefaultRewardTable()
	}
	return fmt.Sprintf("%s (%d/%d)", rewards.Lookup(score).Label, score, models.ScoreMax)
}

// InterpretNet explains what a session's net result means for the
// treasury.
func InterpretNet(net int64) string {
	switch {
	case net > 0:
		return fmt.Sprintf("Counterpart came out ahead by %s", Amount(net))
	case net < 0:
		return fmt.Sprintf("Treasury kept %s", Amount(-net))
	default:
		return "Broke even"
	}
}

// FormatSessionReport produces a plain-language report of a finished
// session.
func FormatSessionReport(s *models.Session, rewards settlement.RewardTable) string {
	var b strings.Builder
	cp := s.Counterpart

	fmt.Fprintf(&b, "=== %s (%s, %s) ===\n\n", cp.Name, cp.Caliber, cp.Model)
	fmt.Fprintf(&b, "Rounds:   %d × %s = %s\n", s.Rounds, Amount(s.UnitPrice), Amount(s.TotalCost))
	fmt.Fprintf(&b, "Payment:  %s\n", transferLine(s.Payment))

	if e := s.Evaluation; e != nil {
		fmt.Fprintf(&b, "Score:    %s\n", InterpretScore(e.Score, rewards))
		if e.Reasoning != "" {
			fmt.Fprintf(&b, "          %s\n", e.Reasoning)
		}
	}
	if s.Reward != nil {
		fmt.Fprintf(&b, "Reward:   %s\n", transferLine(s.Reward))
	}
	fmt.Fprintf(&b, "Net:      %s (%s)\n", Signed(s.Net()), InterpretNet(s.Net()))
	fmt.Fprintf(&b, "Messages: %d\n", len(s.Transcript))
	return b.String()
}

func transferLine(t *models.Transfer) string {
	switch {
	case t == nil:
		return "none"
	case t.Confirmed():
		return fmt.Sprintf("✓ %s %s", Amount(t.Amount), t.TxID)
	case t.Error != "":
		return fmt.Sprintf("✗ %s (%s)", Amount(t.Amount), t.Error)
	default:
		return fmt.Sprintf("✗ %s (%s)", Amount(t.Amount), t.Status)
	}
}
