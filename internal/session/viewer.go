package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spboyer/syndi/internal/orchestration"
)

// SessionFile summarizes one log on disk.
type SessionFile struct {
	Path         string
	Name         string
	ModTime      time.Time
	Events       int
	Counterparts []string
	Completed    int
	Net          int64
}

// ListSessions summarizes every session log in dir, newest first. Files
// that cannot be read are listed with an empty summary.
func ListSessions(dir string) ([]SessionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var files []SessionFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), logSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sf := SessionFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			ModTime: info.ModTime(),
		}
		if events, err := ReadEvents(sf.Path); err == nil {
			sf.summarize(events)
		}
		files = append(files, sf)
	}

	slices.SortFunc(files, func(a, b SessionFile) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return files, nil
}

func (sf *SessionFile) summarize(events []Event) {
	sf.Events = len(events)
	for _, ev := range events {
		switch orchestration.EventType(ev.Type) {
		case orchestration.EventPhaseInit:
			if name, _ := ev.Data["counterpart"].(string); name != "" && !slices.Contains(sf.Counterparts, name) {
				sf.Counterparts = append(sf.Counterparts, name)
			}
		case orchestration.EventComplete:
			sf.Completed++
			sf.Net += jsonNumber(ev.Data["net"])
		}
	}
}

// ReadEvents parses all events from a session log file. Malformed lines are
// skipped.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var ev Event
		if json.Unmarshal(sc.Bytes(), &ev) != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable session timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintf(w, "Session timeline (%d events)\n%s\n", len(events), strings.Repeat("─", 56))

	start := events[0].Timestamp
	for _, ev := range events {
		ts := formatDuration(ev.Timestamp.Sub(start))
		str := func(k string) string {
			s, _ := ev.Data[k].(string) //nolint:errcheck
			return s
		}

		switch orchestration.EventType(ev.Type) {
		case orchestration.EventPhaseInit:
			fmt.Fprintf(w, "[%s] 🚀 %s (%s, %s)  %d rounds × %d = %d\n", ts,
				str("counterpart"), str("caliber"), str("model"),
				jsonNumber(ev.Data["rounds"]), jsonNumber(ev.Data["price"]), jsonNumber(ev.Data["totalCost"]))

		case orchestration.EventPayment, orchestration.EventReward:
			icon := "✓"
			if str("status") != "confirmed" {
				icon = "✗"
			}
			line := fmt.Sprintf("[%s] %s %s %s %d", ts, icon, ev.Type, str("status"), jsonNumber(ev.Data["amount"]))
			if tx := str("txId"); tx != "" {
				line += "  tx=" + tx
			}
			if e := str("error"); e != "" {
				line += "  (" + e + ")"
			}
			fmt.Fprintln(w, line)

		case orchestration.EventMessage:
			fmt.Fprintf(w, "[%s]    r%d %s: %s\n", ts, jsonNumber(ev.Data["round"]), str("speaker"), str("text"))

		case orchestration.EventEvaluation:
			fmt.Fprintf(w, "[%s] ⚖  score=%d level=%s\n", ts, jsonNumber(ev.Data["score"]), str("level"))

		case orchestration.EventComplete:
			fmt.Fprintf(w, "[%s] 🏁 %s paid=%d reward=%d net=%d\n", ts,
				str("counterpart"), jsonNumber(ev.Data["paid"]), jsonNumber(ev.Data["reward"]), jsonNumber(ev.Data["net"]))

		case orchestration.EventError:
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, str("message"))

		case orchestration.EventDone:

		default:
			if strings.HasPrefix(ev.Type, "phase:") {
				fmt.Fprintf(w, "[%s] ▶  %s %s\n", ts, strings.TrimPrefix(ev.Type, "phase:"), str("status"))
				continue
			}
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

// formatDuration renders an offset from the first event.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%6dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%6.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%3dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// jsonNumber reads an integer amount out of decoded JSON.
func jsonNumber(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return 0
}
