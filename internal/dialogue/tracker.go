package dialogue

import "fmt"

const (
	// HintInterval is how often, in transcript positions, a hint is offered.
	HintInterval = 10

	historySize = 5
	stuckRun    = 3
)

var channelLabels = map[Channel]string{
	ChannelComedy:    "HUMOR (jokes, wit, absurdity, kayfabe)",
	ChannelLogic:     "LOGIC (data, mechanics, FAB, concrete details)",
	ChannelScripture: "SCRIPTURE/ART (parables, Tao Te Ching, Jesus quotes, beauty)",
}

// ChannelMetrics is a snapshot of a tracker.
type ChannelMetrics struct {
	Counts map[Channel]int `json:"counts"`
	Last   []Channel       `json:"lastChannels"`
}

// ChannelTracker keeps per-channel counts and the most recent
// classifications of the persuader's turns.
type ChannelTracker struct {
	classifier Classifier
	counts     map[Channel]int
	last       []Channel
}

// NewChannelTracker creates a tracker. A nil classifier uses
// PatternClassifier.
func NewChannelTracker(c Classifier) *ChannelTracker {
	if c == nil {
		c = PatternClassifier{}
	}
	return &ChannelTracker{
		classifier: c,
		counts:     map[Channel]int{ChannelComedy: 0, ChannelLogic: 0, ChannelScripture: 0},
	}
}

// Record classifies text and updates the counts and history.
func (t *ChannelTracker) Record(text string) Channel {
	ch := t.classifier.Classify(text)
	t.counts[ch]++
	t.last = append(t.last, ch)
	if len(t.last) > historySize {
		t.last = t.last[len(t.last)-historySize:]
	}
	return ch
}

// Hint returns steering guidance for the turn at transcript position, or ""
// when no hint is due. Hints are offered at every HintInterval-th position
// after the first.
func (t *ChannelTracker) Hint(position int) string {
	if position <= 0 || position%HintInterval != 0 {
		return ""
	}

	if stuck, ok := t.stuck(); ok {
		var alts []string
		for _, ch := range Channels {
			if ch != stuck {
				alts = append(alts, channelLabels[ch])
			}
		}
		return fmt.Sprintf("[CHANNEL CHECK] You've been stuck on %s for the last 3+ messages. SWITCH NOW to %s or %s.",
			stuck, alts[0], alts[1])
	}

	return fmt.Sprintf("[CHANNEL CHECK] Your least-used channel is %s. Use it in your next response.",
		channelLabels[t.leastUsed()])
}

func (t *ChannelTracker) stuck() (Channel, bool) {
	if len(t.last) < stuckRun {
		return "", false
	}
	tail := t.last[len(t.last)-stuckRun:]
	for _, ch := range tail[1:] {
		if ch != tail[0] {
			return "", false
		}
	}
	return tail[0], true
}

func (t *ChannelTracker) leastUsed() Channel {
	least := Channels[0]
	for _, ch := range Channels[1:] {
		if t.counts[ch] < t.counts[least] {
			least = ch
		}
	}
	return least
}

// Metrics returns a copy of the tracker state.
func (t *ChannelTracker) Metrics() ChannelMetrics {
	counts := make(map[Channel]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	last := make([]Channel, len(t.last))
	copy(last, t.last)
	return ChannelMetrics{Counts: counts, Last: last}
}
