package models

// DefaultRounds is the number of dialogue rounds when a counterpart does not
// set its own turn budget.
const DefaultRounds = 3

// Counterpart is one adversarial agent the persuader can be matched against.
// All persona content (prompts, opener, brief) is injected configuration.
type Counterpart struct {
	Name         string  `yaml:"name" json:"name"`
	Caliber      Caliber `yaml:"caliber" json:"caliber"`
	Model        string  `yaml:"model" json:"model"`
	SystemPrompt string  `yaml:"system_prompt" json:"-"`
	Opener       string  `yaml:"opener" json:"opener"`

	// Brief is extra guidance appended to the persuader's system prompt when
	// facing this counterpart.
	Brief string `yaml:"brief,omitempty" json:"-"`

	// Rounds overrides DefaultRounds when positive.
	Rounds int `yaml:"rounds,omitempty" json:"rounds,omitempty"`
}

// TurnBudget returns the number of dialogue rounds for this counterpart.
func (c *Counterpart) TurnBudget() int {
	if c.Rounds > 0 {
		return c.Rounds
	}
	return DefaultRounds
}
