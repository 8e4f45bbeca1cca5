package models

// TranscriptEntry is a single turn in a conversation. Round 0 is the
// counterpart's opener.
type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Round   int    `json:"round"`
}

// Transcript is the ordered, append-only record of a conversation. Order is
// meaningful: it is replayed as history to the reasoning service.
type Transcript []TranscriptEntry

// Append adds an entry to the end of the transcript.
func (t *Transcript) Append(e TranscriptEntry) {
	*t = append(*t, e)
}

// Tail returns a copy of the last n entries, or all entries when n <= 0 or
// the transcript is shorter than n.
func (t Transcript) Tail(n int) Transcript {
	start := 0
	if n > 0 && len(t) > n {
		start = len(t) - n
	}
	out := make(Transcript, len(t)-start)
	copy(out, t[start:])
	return out
}

// BySpeaker returns the entries spoken by the named speaker, in order.
func (t Transcript) BySpeaker(speaker string) Transcript {
	var out Transcript
	for _, e := range t {
		if e.Speaker == speaker {
			out = append(out, e)
		}
	}
	return out
}
