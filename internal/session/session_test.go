package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/orchestration"
)

func TestFromProgressFlattensPayload(t *testing.T) {
	ev, err := FromProgress(orchestration.ProgressEvent{
		SessionID: "s-1",
		Type:      orchestration.EventPayment,
		Data:      orchestration.TransferData{Status: "confirmed", TxID: "0xabc", Amount: 1500},
	})
	if err != nil {
		t.Fatalf("FromProgress: %v", err)
	}
	if ev.Type != "payment" {
		t.Errorf("Type = %q, want payment", ev.Type)
	}
	if ev.SessionID != "s-1" {
		t.Errorf("SessionID = %q", ev.SessionID)
	}
	if ev.Data["txId"] != "0xabc" {
		t.Errorf("txId = %v", ev.Data["txId"])
	}
	if ev.Data["amount"] != float64(1500) {
		t.Errorf("amount = %v", ev.Data["amount"])
	}
	if _, ok := ev.Data["error"]; ok {
		t.Error("empty error should be omitted")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestFromProgressEmptyObject(t *testing.T) {
	ev, err := FromProgress(orchestration.ProgressEvent{Type: orchestration.EventDone, Data: struct{}{}})
	if err != nil {
		t.Fatalf("FromProgress: %v", err)
	}
	if len(ev.Data) != 0 {
		t.Errorf("Data = %v, want empty", ev.Data)
	}
}

func TestListenerWritesNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "run-session.jsonl")

	l, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	listen := Listener(l, nil)

	listen(orchestration.ProgressEvent{SessionID: "s", Type: orchestration.EventPhaseInit, Data: orchestration.InitData{
		Counterpart: "Mel", Caliber: models.CaliberMedium, Model: "gpt-4o", Price: 500, Rounds: 3, TotalCost: 1500,
	}})
	listen(orchestration.ProgressEvent{SessionID: "s", Type: orchestration.EventMessage, Data: models.TranscriptEntry{
		Speaker: "Mel", Text: "Hello?", Round: 0,
	}})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "phase:init" || events[1].Type != "message" {
		t.Errorf("types = %q, %q", events[0].Type, events[1].Type)
	}
	if events[1].Data["speaker"] != "Mel" {
		t.Errorf("speaker = %v", events[1].Data["speaker"])
	}
	if l.Path() != path {
		t.Errorf("Path = %q, want %q", l.Path(), path)
	}
}

type failingLogger struct{ calls int }

func (f *failingLogger) Log(Event) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingLogger) Close() error { return nil }

func TestListenerSwallowsWriteErrors(t *testing.T) {
	fl := &failingLogger{}
	Listener(fl, nil)(orchestration.ProgressEvent{Type: orchestration.EventDone, Data: struct{}{}})
	if fl.calls != 1 {
		t.Errorf("calls = %d, want 1", fl.calls)
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	if err := l.Log(NewEvent("s", "done", nil)); err != nil {
		t.Errorf("Log: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestReadEventsSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x-session.jsonl")
	content := `{"timestamp":"2026-01-01T00:00:00Z","type":"phase:init","data":{"counterpart":"Mel"}}
not json
{"timestamp":"2026-01-01T00:00:01Z","type":"done"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestListSessions(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "20260101T000000Z-session.jsonl")
	newer := filepath.Join(dir, "20260102T000000Z-session.jsonl")
	log := `{"type":"phase:init","data":{"counterpart":"Mel"}}
{"type":"complete","data":{"counterpart":"Mel","net":-1300}}
{"type":"phase:init","data":{"counterpart":"Gary"}}
{"type":"complete","data":{"counterpart":"Gary","net":-100}}
{"type":"phase:init","data":{"counterpart":"Mel"}}
`
	for _, p := range []string{older, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte(log), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	files, err := ListSessions(dir)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Path != newer {
		t.Errorf("first = %s, want newest", files[0].Name)
	}
	got := files[0]
	if got.Events != 5 || got.Completed != 2 || got.Net != -1400 {
		t.Errorf("summary = %d events, %d completed, net %d", got.Events, got.Completed, got.Net)
	}
	if strings.Join(got.Counterparts, ",") != "Mel,Gary" {
		t.Errorf("Counterparts = %v", got.Counterparts)
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath("logs")
	if filepath.Dir(p) != "logs" || !strings.HasSuffix(p, "-session.jsonl") {
		t.Errorf("DefaultLogPath = %q", p)
	}
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: "phase:init", Data: map[string]any{"counterpart": "Mel", "caliber": "medium", "model": "gpt-4o", "rounds": float64(3), "price": float64(500), "totalCost": float64(1500)}},
		{Timestamp: base.Add(100 * time.Millisecond), Type: "phase:payment", Data: map[string]any{"status": "sending"}},
		{Timestamp: base.Add(200 * time.Millisecond), Type: "payment", Data: map[string]any{"status": "failed", "amount": float64(1500), "error": "NotEnoughFunds"}},
		{Timestamp: base.Add(2 * time.Second), Type: "message", Data: map[string]any{"speaker": "Mel", "text": "Hello?", "round": float64(0)}},
		{Timestamp: base.Add(3 * time.Second), Type: "evaluation", Data: map[string]any{"score": float64(3), "level": "soft"}},
		{Timestamp: base.Add(4 * time.Second), Type: "complete", Data: map[string]any{"counterpart": "Mel", "paid": float64(1500), "reward": float64(200), "net": float64(-1300)}},
		{Timestamp: base.Add(4 * time.Second), Type: "done"},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)
	out := buf.String()

	for _, want := range []string{
		"Mel (medium, gpt-4o)  3 rounds × 500 = 1500",
		"payment failed 1500  (NotEnoughFunds)",
		"payment sending",
		"r0 Mel: Hello?",
		"score=3 level=soft",
		"net=-1300",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	if !strings.Contains(buf.String(), "No events found.") {
		t.Errorf("got %q", buf.String())
	}
}
