package settlement

import (
	"cmp"
	"slices"

	"github.com/spboyer/syndi/internal/models"
)

const (
	// DefaultStake is what each arena participant puts into the pool.
	DefaultStake = 500

	// MinArenaSize is the fewest participants an arena is played with.
	MinArenaSize = 2
)

// Participant is one judged arena entrant.
type Participant struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Level string `json:"level"`
}

// Share is one participant's line in an arena settlement.
type Share struct {
	Agent  string `json:"agent"`
	Score  int    `json:"score"`
	Level  string `json:"level"`
	Staked int64  `json:"staked"`
	Earned int64  `json:"earned"`
	Net    int64  `json:"net"`
}

// Settlement is the outcome of an arena.
type Settlement struct {
	TotalPool         int64   `json:"totalPool"`
	Shares            []Share `json:"settlements"`
	TreasuryRemainder int64   `json:"treasuryRemainder"`
	Winners           int     `json:"winners"`
	Losers            int     `json:"losers"`
}

// Distributed returns the sum of all earned amounts.
func (s *Settlement) Distributed() int64 {
	var sum int64
	for _, sh := range s.Shares {
		sum += sh.Earned
	}
	return sum
}

// SettleArena splits a pool of len(participants)*stake among the winners
// (score >= models.WinningScore) in proportion to their scores, rounding
// each share down. Losers forfeit their stake. Whatever is not paid out,
// rounding included, stays with the treasury.
//
// The result depends only on the inputs: shares are ordered by score
// descending, then name ascending. A name that appears more than once is
// settled once, on its first entry.
func SettleArena(stake int64, participants []Participant) Settlement {
	sorted := Unique(participants)
	slices.SortStableFunc(sorted, func(a, b Participant) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	pool := int64(len(sorted)) * stake

	var winningScore int64
	for _, p := range sorted {
		if p.Score >= models.WinningScore {
			winningScore += int64(p.Score)
		}
	}

	s := Settlement{TotalPool: pool, Shares: make([]Share, 0, len(sorted))}
	for _, p := range sorted {
		sh := Share{Agent: p.Name, Score: p.Score, Level: p.Level, Staked: stake}
		if p.Score >= models.WinningScore && winningScore > 0 {
			sh.Earned = pool * int64(p.Score) / winningScore
			s.Winners++
		} else {
			s.Losers++
		}
		sh.Net = sh.Earned - stake
		s.Shares = append(s.Shares, sh)
	}

	s.TreasuryRemainder = pool - s.Distributed()
	return s
}

// Unique returns participants with every repeated name dropped after its
// first occurrence.
func Unique(participants []Participant) []Participant {
	seen := make(map[string]bool, len(participants))
	out := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
