package reasoning

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/spboyer/syndi/internal/dialogue"
)

// Copilot generates turns through GitHub Copilot sessions, one session per
// turn so no history leaks between speakers.
type Copilot struct {
	client copilotClient

	startOnce sync.Once
	startErr  error
}

// CopilotOptions overrides how the underlying client is created.
type CopilotOptions struct {
	NewCopilotClient func(options *copilot.ClientOptions) copilotClient
}

// NewCopilot creates a Copilot engine. A nil opts uses the real SDK client.
func NewCopilot(opts *CopilotOptions) *Copilot {
	clientOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	var client copilotClient
	if opts == nil || opts.NewCopilotClient == nil {
		client = newCopilotClient(clientOptions)
	} else {
		client = opts.NewCopilotClient(clientOptions)
	}
	return &Copilot{client: client}
}

func (c *Copilot) start(ctx context.Context) error {
	c.startOnce.Do(func() {
		c.startErr = c.client.Start(ctx)
	})
	if c.startErr != nil {
		return fmt.Errorf("copilot failed to start: %w", c.startErr)
	}
	return nil
}

// Respond implements dialogue.Responder. Streaming deltas are yielded as
// they arrive; if the service sends no deltas the final message is yielded
// whole.
func (c *Copilot) Respond(ctx context.Context, req dialogue.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := c.start(ctx); err != nil {
			yield("", err)
			return
		}

		session, err := c.client.CreateSession(ctx, &copilot.SessionConfig{
			Model:     req.Model,
			Streaming: true,
		})
		if err != nil {
			yield("", fmt.Errorf("failed to create copilot session: %w", err))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		frags := make(chan string, 64)

		var mu sync.Mutex
		streamed := false

		unsubscribe := session.On(func(event copilot.SessionEvent) {
			logSessionEvent(req.Speaker, event)
			if event.Data.Content == nil || *event.Data.Content == "" {
				return
			}
			mu.Lock()
			switch event.Type {
			case copilot.AssistantMessageDelta:
				streamed = true
			case copilot.AssistantMessage:
				if streamed {
					mu.Unlock()
					return
				}
			default:
				mu.Unlock()
				return
			}
			mu.Unlock()

			select {
			case frags <- *event.Data.Content:
			case <-ctx.Done():
			}
		})
		defer func() {
			cancel()
			unsubscribe()
		}()

		errc := make(chan error, 1)
		go func() {
			_, err := session.SendAndWait(ctx, copilot.MessageOptions{Prompt: renderPrompt(req)})
			errc <- err
		}()

		for {
			select {
			case frag := <-frags:
				if !yield(frag, nil) {
					return
				}
			case err := <-errc:
				for {
					select {
					case frag := <-frags:
						if !yield(frag, nil) {
							return
						}
					default:
						if err != nil {
							yield("", fmt.Errorf("copilot turn failed: %w", err))
						}
						return
					}
				}
			}
		}
	}
}

// CompleteJSON implements Completer by collecting a whole Copilot turn.
func (c *Copilot) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	text, err := dialogue.Collect(c.Respond(ctx, dialogue.Request{
		Speaker: "judge",
		Model:   model,
		Messages: []dialogue.Message{
			{Role: dialogue.RoleSystem, Content: system + "\n\nAnswer with the JSON object only."},
			{Role: dialogue.RoleUser, Content: user},
		},
	}))
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}

// Shutdown stops the Copilot client.
func (c *Copilot) Shutdown(context.Context) error {
	return c.client.Stop()
}

// renderPrompt flattens a turn request into one prompt, keeping message
// order. Copilot sessions carry no role-tagged history of their own.
func renderPrompt(req dialogue.Request) string {
	var sb strings.Builder
	inHistory := false
	for _, m := range req.Messages {
		if m.Role == dialogue.RoleSystem {
			if inHistory {
				sb.WriteString("\n")
				inHistory = false
			}
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
			continue
		}
		if !inHistory {
			sb.WriteString("Conversation so far:\n")
			inHistory = true
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	if req.Speaker != "" && req.Speaker != "judge" {
		if inHistory {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Reply as %s with your next message only.", req.Speaker)
	}
	return strings.TrimSpace(sb.String())
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
