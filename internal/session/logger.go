// Package session persists the progress events of runs as NDJSON for audit.
// It is an append-only log, not a session store.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spboyer/syndi/internal/orchestration"
)

// logSuffix marks files written by this package.
const logSuffix = "-session.jsonl"

// Logger receives session events.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends one JSON object per event to a file. Concurrent runs
// in the same process may share it.
type JSONLogger struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONLogger opens path for appending, creating missing directories.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	return &JSONLogger{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

func (l *JSONLogger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	return l.enc.Encode(event)
}

// Close is idempotent.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *JSONLogger) Path() string { return l.path }

// NopLogger drops every event. It stands in when session logging is off.
type NopLogger struct{}

func (NopLogger) Log(Event) error { return nil }
func (NopLogger) Close() error { return nil }

// DefaultLogPath names a new log in dir after the current UTC time.
func DefaultLogPath(dir string) string {
	return filepath.Join(dir, time.Now().UTC().Format("20060102T150405Z")+logSuffix)
}

// Listener adapts a Logger to an orchestration progress listener. Write
// failures are reported to logger and never reach the run.
func Listener(l Logger, logger *slog.Logger) orchestration.ProgressListener {
	if logger == nil {
		logger = slog.Default()
	}
	return func(pe orchestration.ProgressEvent) {
		ev, err := FromProgress(pe)
		if err == nil {
			err = l.Log(ev)
		}
		if err != nil {
			logger.Warn("session log write failed", "event", pe.Type, "error", err)
		}
	}
}
