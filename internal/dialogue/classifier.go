package dialogue

import "regexp"

// Channel is the argumentative register of a persuader turn.
type Channel string

const (
	ChannelComedy    Channel = "comedy"
	ChannelLogic     Channel = "logic"
	ChannelScripture Channel = "scripture"
)

// Channels lists every channel in tie-break order.
var Channels = []Channel{ChannelComedy, ChannelLogic, ChannelScripture}

// Classifier assigns a channel to a persuader turn.
type Classifier interface {
	Classify(text string) Channel
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(text string) Channel

func (f ClassifierFunc) Classify(text string) Channel {
	return f(text)
}

var (
	humorPattern     = regexp.MustCompile(`(?i)haha|lol|joke|funny|laugh|irony|ironic|\bwit\b|even the garden|shitcoin|walk into|the worst|WOOO+RST|SHADDA+P|puhleeease|anyhoo|bombaclaa|kayfabe|heel|DUH|riiiight|cute|adorable|idiot`)
	scripturePattern = regexp.MustCompile(`(?i)Ch\.?\s*\d+|Matthew \d+|Mark \d+|Luke \d+|John \d+|Tao|Lao.?tzu|the Way|parable|teaching of the Way|scripture`)
	logicPattern     = regexp.MustCompile(`(?i)data|evidence|hypothesis|measure|empirical|ROI|return|invest|capital|mechanism|streaming|dividend|accreditation`)
)

// PatternClassifier matches surface patterns in precedence order humor,
// scripture, logic. Text matching nothing is logic.
type PatternClassifier struct{}

func (PatternClassifier) Classify(text string) Channel {
	switch {
	case humorPattern.MatchString(text):
		return ChannelComedy
	case scripturePattern.MatchString(text):
		return ChannelScripture
	case logicPattern.MatchString(text):
		return ChannelLogic
	default:
		return ChannelLogic
	}
}
