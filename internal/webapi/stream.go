package webapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spboyer/syndi/internal/orchestration"
)

// HandleDebate runs a live session and streams its progress as server-sent
// events. Refusals are answered with an ordinary JSON error before the
// stream opens.
func (h *Handlers) HandleDebate(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	run, err := h.runner.Begin(r.URL.Query().Get("counterpart"))
	if err != nil {
		writePreflightError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := func(e orchestration.ProgressEvent) error {
		return writeEvent(w, flusher, string(e.Type), e.Data)
	}
	// Execute reports failures as an error event on the stream itself.
	_, _ = run.Execute(r.Context(), sink) //nolint:errcheck
}

func writeEvent(w http.ResponseWriter, f http.Flusher, name string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	f.Flush()
	return nil
}
