package settlement

import (
	"fmt"
	"regexp"

	"github.com/spboyer/syndi/internal/models"
)

const (
	// DefaultMissionaryBonus is the flat bonus paid to a missionary.
	DefaultMissionaryBonus = 300

	excerptLimit = 120
)

// Detector decides whether a message advocates for the persuader.
type Detector interface {
	Advocates(text string) bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(text string) bool

func (f DetectorFunc) Advocates(text string) bool {
	return f(text)
}

// PatternDetector recognises unsolicited advocacy by surface patterns built
// around the persuader's name.
type PatternDetector struct {
	patterns []*regexp.Regexp
}

// NewPatternDetector builds the advocacy patterns for persuader.
func NewPatternDetector(persuader string) *PatternDetector {
	name := regexp.QuoteMeta(persuader)
	sources := []string{
		`\b(%[1]s)\b.*\b(right|point|agree|makes sense|correct)\b`,
		`\b(you should|listen to|consider what)\b.*\b(%[1]s)\b`,
		`\b(I agree with|I('m| am) with)\b.*\b(%[1]s)\b`,
		`\b(actually|honestly|to be fair)\b.*\b(%[1]s)\b.*\b(point|argument|makes)\b`,
		`\b(come on|think about it|open your)\b.*\b(mind|eyes|heart)\b`,
	}

	d := &PatternDetector{}
	for _, src := range sources {
		d.patterns = append(d.patterns, regexp.MustCompile("(?i)"+fmt.Sprintf(src, name)))
	}
	return d
}

// Advocates implements Detector.
func (d *PatternDetector) Advocates(text string) bool {
	for _, p := range d.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Missionary is a converted participant caught advocating for the persuader.
type Missionary struct {
	Agent   string `json:"agent"`
	Score   int    `json:"score"`
	Message string `json:"message"`
	Bonus   int64  `json:"bonus"`
}

// DetectMissionaries scans the messages of every converted participant in
// transcript and reports at most one bonus per participant: scanning a
// participant stops at the first advocating message, and a name listed
// twice is scanned once.
func DetectMissionaries(transcript models.Transcript, participants []Participant, d Detector, bonus int64) []Missionary {
	var found []Missionary
	for _, p := range Unique(participants) {
		if p.Score < models.WinningScore {
			continue
		}
		for _, e := range transcript {
			if e.Speaker != p.Name || !d.Advocates(e.Text) {
				continue
			}
			found = append(found, Missionary{
				Agent:   p.Name,
				Score:   p.Score,
				Message: Clip(e.Text, excerptLimit),
				Bonus:   bonus,
			})
			break
		}
	}
	return found
}

// Clip returns at most n runes of s.
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
