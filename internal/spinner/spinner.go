// Package spinner shows a one-line animated status on a terminal.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a status line whose message can change while it runs.
type Spinner struct {
	w io.Writer

	mu    sync.Mutex
	msg   string
	width int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// Start displays an animated spinner with the given message on w. Call
// Stop to clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	s.Set(message)
	go s.loop()
	return s
}

// Set replaces the status message.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = message
	s.width = max(s.width, runewidth.StringWidth(message)+2)
}

// Stop clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.mu.Lock()
		msg, width := s.msg, s.width
		s.mu.Unlock()

		select {
		case <-s.done:
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
			close(s.cleared)
			return
		case <-ticker.C:
			line := frames[i%len(frames)] + " " + msg
			fmt.Fprintf(s.w, "\r%s", runewidth.FillRight(line, width)) //nolint:errcheck
		}
	}
}
