package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spboyer/syndi/internal/models"
)

const (
	DefaultPersuaderName      = "Syndi"
	DefaultPersuaderModel     = "gpt-4.1"
	DefaultPersuaderMaxTokens = 300
	DefaultCounterpartTokens  = 150
)

// Persona describes the persuader side of every conversation.
type Persona struct {
	Name         string
	Model        string
	MaxTokens    int
	SystemPrompt string
}

// Options configures a Driver.
type Options struct {
	Persuader            Persona
	CounterpartMaxTokens int
	Classifier           Classifier
	Logger               *slog.Logger
}

// TurnFunc observes each transcript entry right after it is appended. A
// returned error stops the conversation before the next turn starts.
type TurnFunc func(entry models.TranscriptEntry) error

// Driver runs conversations against a Responder.
type Driver struct {
	responder Responder
	opts      Options
}

// NewDriver creates a Driver, filling unset options with defaults.
func NewDriver(r Responder, opts Options) *Driver {
	if opts.Persuader.Name == "" {
		opts.Persuader.Name = DefaultPersuaderName
	}
	if opts.Persuader.Model == "" {
		opts.Persuader.Model = DefaultPersuaderModel
	}
	if opts.Persuader.MaxTokens <= 0 {
		opts.Persuader.MaxTokens = DefaultPersuaderMaxTokens
	}
	if opts.CounterpartMaxTokens <= 0 {
		opts.CounterpartMaxTokens = DefaultCounterpartTokens
	}
	if opts.Classifier == nil {
		opts.Classifier = PatternClassifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{responder: r, opts: opts}
}

// Persuader returns the persuader persona.
func (d *Driver) Persuader() Persona {
	return d.opts.Persuader
}

// Run plays the counterpart's opener and then exactly rounds rounds of
// persuader and counterpart turns, producing 1+2*rounds entries. On error
// the transcript built so far is returned with it.
func (d *Driver) Run(ctx context.Context, cp *models.Counterpart, rounds int, onTurn TurnFunc) (models.Transcript, error) {
	if onTurn == nil {
		onTurn = func(models.TranscriptEntry) error { return nil }
	}

	tracker := NewChannelTracker(d.opts.Classifier)
	transcript := make(models.Transcript, 0, 1+2*rounds)

	opener := models.TranscriptEntry{Speaker: cp.Name, Text: cp.Opener, Round: 0}
	transcript.Append(opener)
	if err := onTurn(opener); err != nil {
		return transcript, err
	}

	for round := 1; round <= rounds; round++ {
		entry, err := d.persuaderTurn(ctx, cp, transcript, tracker, round)
		if err != nil {
			return transcript, err
		}
		transcript.Append(entry)
		if err := onTurn(entry); err != nil {
			return transcript, err
		}

		entry, err = d.counterpartTurn(ctx, cp, transcript, round)
		if err != nil {
			return transcript, err
		}
		transcript.Append(entry)
		if err := onTurn(entry); err != nil {
			return transcript, err
		}
	}

	d.opts.Logger.DebugContext(ctx, "dialogue finished",
		"counterpart", cp.Name, "entries", len(transcript), "channels", tracker.Metrics().Counts)
	return transcript, nil
}

// Reply produces a single persuader turn over an existing history. Channel
// guidance is rebuilt from the persuader's turns in history.
func (d *Driver) Reply(ctx context.Context, cp *models.Counterpart, history models.Transcript) (models.TranscriptEntry, error) {
	tracker := NewChannelTracker(d.opts.Classifier)
	round := 0
	for _, e := range history {
		if e.Speaker == d.opts.Persuader.Name {
			tracker.Record(e.Text)
		}
		round = max(round, e.Round)
	}
	if len(history) > 0 && history[len(history)-1].Speaker != d.opts.Persuader.Name {
		round++
	}
	return d.persuaderTurn(ctx, cp, history, tracker, max(round, 1))
}

func (d *Driver) persuaderTurn(ctx context.Context, cp *models.Counterpart, transcript models.Transcript, tracker *ChannelTracker, round int) (models.TranscriptEntry, error) {
	p := d.opts.Persuader
	msgs := make([]Message, 0, len(transcript)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: PersuaderPrompt(p.SystemPrompt, cp)})
	msgs = appendHistory(msgs, transcript, p.Name)
	if hint := tracker.Hint(len(transcript)); hint != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: hint})
	}

	text, err := Collect(d.responder.Respond(ctx, Request{
		Speaker:   p.Name,
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
		Messages:  msgs,
	}))
	if err != nil {
		return models.TranscriptEntry{}, fmt.Errorf("%s turn %d: %w", p.Name, round, err)
	}
	tracker.Record(text)
	return models.TranscriptEntry{Speaker: p.Name, Text: text, Round: round}, nil
}

func (d *Driver) counterpartTurn(ctx context.Context, cp *models.Counterpart, transcript models.Transcript, round int) (models.TranscriptEntry, error) {
	msgs := make([]Message, 0, len(transcript)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: cp.SystemPrompt})
	msgs = appendHistory(msgs, transcript, cp.Name)

	text, err := Collect(d.responder.Respond(ctx, Request{
		Speaker:   cp.Name,
		Model:     cp.Model,
		MaxTokens: d.opts.CounterpartMaxTokens,
		Messages:  msgs,
	}))
	if err != nil {
		return models.TranscriptEntry{}, fmt.Errorf("%s turn %d: %w", cp.Name, round, err)
	}
	return models.TranscriptEntry{Speaker: cp.Name, Text: text, Round: round}, nil
}

// appendHistory replays transcript from self's perspective.
func appendHistory(msgs []Message, transcript models.Transcript, self string) []Message {
	for _, e := range transcript {
		role := RoleUser
		if e.Speaker == self {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: fmt.Sprintf("[%s]: %s", e.Speaker, e.Text)})
	}
	return msgs
}

// PersuaderPrompt appends the counterpart's tactical brief, if any, to the
// persuader's base prompt.
func PersuaderPrompt(base string, cp *models.Counterpart) string {
	if cp == nil || cp.Brief == "" {
		return base
	}
	return fmt.Sprintf("%s\n\n---\n\n## TACTICAL BRIEF: Fighting %s\n\n%s", base, cp.Name, cp.Brief)
}
