package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerHintOnlyAtInterval(t *testing.T) {
	tr := NewChannelTracker(nil)
	for _, pos := range []int{0, 1, 5, 9, 11, 19} {
		assert.Empty(t, tr.Hint(pos), "position %d", pos)
	}
	assert.NotEmpty(t, tr.Hint(10))
	assert.NotEmpty(t, tr.Hint(20))
}

func TestTrackerStuckHint(t *testing.T) {
	tr := NewChannelTracker(nil)
	tr.Record("haha")
	tr.Record("the data says")
	tr.Record("the evidence says")
	tr.Record("measure it")

	assert.Equal(t,
		"[CHANNEL CHECK] You've been stuck on logic for the last 3+ messages. SWITCH NOW to HUMOR (jokes, wit, absurdity, kayfabe) or SCRIPTURE/ART (parables, Tao Te Ching, Jesus quotes, beauty).",
		tr.Hint(10))
}

func TestTrackerLeastUsedHint(t *testing.T) {
	tr := NewChannelTracker(nil)
	tr.Record("lol")
	tr.Record("a parable")
	tr.Record("lol again")

	assert.Equal(t,
		"[CHANNEL CHECK] Your least-used channel is LOGIC (data, mechanics, FAB, concrete details). Use it in your next response.",
		tr.Hint(10))
}

func TestTrackerLeastUsedTieBreak(t *testing.T) {
	tr := NewChannelTracker(nil)
	assert.Contains(t, tr.Hint(10), "least-used channel is HUMOR", "all zero counts pick the first channel")

	tr.Record("haha")
	assert.Contains(t, tr.Hint(10), "least-used channel is LOGIC")
}

func TestTrackerKeepsLastFive(t *testing.T) {
	tr := NewChannelTracker(nil)
	for range 7 {
		tr.Record("lol")
	}
	tr.Record("data")

	m := tr.Metrics()
	require.Len(t, m.Last, 5)
	assert.Equal(t, ChannelLogic, m.Last[4])
	assert.Equal(t, 7, m.Counts[ChannelComedy])
	assert.Equal(t, 1, m.Counts[ChannelLogic])
	assert.Equal(t, 0, m.Counts[ChannelScripture])
}
