package reasoning

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// logSessionEvent traces a Copilot session event at debug level.
func logSessionEvent(speaker string, event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"speaker", speaker,
		"type", event.Type,
	}
	attrs = addIf(attrs, "content", event.Data.Content)
	attrs = addIf(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = addIf(attrs, "reasoningText", event.Data.ReasoningText)
	slog.Debug("copilot event", attrs...)
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name, *v)
	}
	return attrs
}
