package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/models"
)

var scriptedLines = []string{
	"Consider the parable of the talents: capital buried in the ground returns nothing.",
	"Fair question. The data says aligned incentives outlast hype cycles.",
	"haha, fair. But even the worst skeptic keeps their wallet open.",
	"The Way that can be told is not the eternal Way, and the token is just the ledger of it.",
}

var levels = map[int]string{0: "none", 1: "acknowledge", 2: "interest", 3: "soft", 4: "strong", 5: "full"}

// Scripted is a deterministic offline engine. It is used for dry runs and
// tests where no reasoning service is reachable.
type Scripted struct {
	score int

	mu    sync.Mutex
	turns map[string]int
}

// NewScripted creates a Scripted engine whose judge always reports score.
func NewScripted(score int) *Scripted {
	return &Scripted{score: score, turns: map[string]int{}}
}

// Respond implements dialogue.Responder, yielding one word at a time.
func (s *Scripted) Respond(_ context.Context, req dialogue.Request) iter.Seq2[string, error] {
	s.mu.Lock()
	n := s.turns[req.Speaker]
	s.turns[req.Speaker] = n + 1
	s.mu.Unlock()

	line := fmt.Sprintf("%s (turn %d): %s", req.Speaker, n+1, scriptedLines[n%len(scriptedLines)])

	return func(yield func(string, error) bool) {
		for i, word := range strings.Fields(line) {
			if i > 0 {
				word = " " + word
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

// CompleteJSON implements Completer with the configured score.
func (s *Scripted) CompleteJSON(context.Context, string, string, string) (string, error) {
	level, ok := levels[s.score]
	if !ok {
		return "", fmt.Errorf("scripted score %d out of range", s.score)
	}
	b, err := json.Marshal(models.Evaluation{
		Score:     s.score,
		Level:     level,
		Evidence:  []string{},
		Reasoning: "scripted evaluation",
	})
	return string(b), err
}

// Shutdown implements Engine.
func (s *Scripted) Shutdown(context.Context) error {
	return nil
}
