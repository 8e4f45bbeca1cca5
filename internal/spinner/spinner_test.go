package spinner

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerShowsLatestMessage(t *testing.T) {
	var buf bytes.Buffer
	s := Start(&buf, "paying")
	time.Sleep(3 * interval)
	s.Set("round 2")
	time.Sleep(3 * interval)
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "paying")
	assert.Contains(t, out, "round 2")
	assert.True(t, strings.HasSuffix(out, "\r"), "line is cleared on stop")
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := Start(&buf, "x")
	s.Stop()
	s.Stop()
}
