// Package dialogue runs bounded conversations between the persuader and a
// counterpart, one strictly sequential turn at a time.
package dialogue

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// Role is the perspective of a message in a turn request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the history sent to the reasoning service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request asks a reasoning service for one turn.
type Request struct {
	// Speaker is the name of the party the turn is generated for.
	Speaker   string
	Model     string
	MaxTokens int
	Messages  []Message
}

// Responder produces the text of one turn as a lazy, finite sequence of
// fragments. A sequence is consumed once; it is not restartable. An error
// ends the sequence.
type Responder interface {
	Respond(ctx context.Context, req Request) iter.Seq2[string, error]
}

// ErrEmptyTurn is returned when a responder finishes without any text.
var ErrEmptyTurn = errors.New("reasoning service returned an empty turn")

// Collect drains seq and returns the joined, trimmed text.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for frag, err := range seq {
		if err != nil {
			return "", err
		}
		sb.WriteString(frag)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyTurn
	}
	return text, nil
}
