// Package roster loads the injected counterpart configuration and the wallet
// registry. Nothing about a counterpart's persona is compiled in.
package roster

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/spboyer/syndi/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCounterpart is returned for names that are not in the roster.
var ErrUnknownCounterpart = errors.New("unknown counterpart")

// File is the on-disk layout of a counterparts file.
type File struct {
	Persuader    PersuaderConfig       `yaml:"persuader"`
	Counterparts []*models.Counterpart `yaml:"counterparts"`
}

// PersuaderConfig holds the persuader's persona.
type PersuaderConfig struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Roster is an ordered, read-only set of counterparts.
type Roster struct {
	Persuader PersuaderConfig
	order     []string
	byName    map[string]*models.Counterpart
}

// New validates counterparts and builds a Roster in the given order.
func New(counterparts ...*models.Counterpart) (*Roster, error) {
	r := &Roster{byName: make(map[string]*models.Counterpart, len(counterparts))}
	var errs []error
	for i, cp := range counterparts {
		if err := validate(cp); err != nil {
			errs = append(errs, fmt.Errorf("counterpart %d: %w", i, err))
			continue
		}
		key := strings.ToLower(cp.Name)
		if _, dup := r.byName[key]; dup {
			errs = append(errs, fmt.Errorf("counterpart %d: duplicate name %q", i, cp.Name))
			continue
		}
		r.byName[key] = cp
		r.order = append(r.order, key)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func validate(cp *models.Counterpart) error {
	switch {
	case cp == nil:
		return errors.New("empty entry")
	case strings.TrimSpace(cp.Name) == "":
		return errors.New("name is required")
	case !cp.Caliber.Valid():
		return fmt.Errorf("%s: invalid caliber %q", cp.Name, cp.Caliber)
	case strings.TrimSpace(cp.Opener) == "":
		return fmt.Errorf("%s: opener is required", cp.Name)
	case strings.TrimSpace(cp.SystemPrompt) == "":
		return fmt.Errorf("%s: system_prompt is required", cp.Name)
	case cp.Rounds < 0:
		return fmt.Errorf("%s: rounds must not be negative", cp.Name)
	}
	return nil
}

// Load reads a counterparts YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading counterparts: %w", err)
	}
	return Parse(data)
}

// Parse builds a Roster from counterparts YAML.
func Parse(data []byte) (*Roster, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing counterparts: %w", err)
	}
	r, err := New(f.Counterparts...)
	if err != nil {
		return nil, err
	}
	r.Persuader = f.Persuader
	return r, nil
}

// Get looks a counterpart up by name, ignoring case.
func (r *Roster) Get(name string) (*models.Counterpart, error) {
	cp, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCounterpart, name)
	}
	return cp, nil
}

// List returns every counterpart in file order.
func (r *Roster) List() []*models.Counterpart {
	out := make([]*models.Counterpart, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byName[key])
	}
	return out
}

// Names returns every counterpart name in file order.
func (r *Roster) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, cp := range r.List() {
		out = append(out, cp.Name)
	}
	return out
}

// ByCaliber returns the counterparts of one tier in file order.
func (r *Roster) ByCaliber(c models.Caliber) []*models.Counterpart {
	var out []*models.Counterpart
	for _, cp := range r.List() {
		if cp.Caliber == c {
			out = append(out, cp)
		}
	}
	return out
}

// Pick selects n counterparts for a simulation: one from each caliber while
// there is room, then random others without repeats.
func (r *Roster) Pick(n int, rng *rand.Rand) []*models.Counterpart {
	if n <= 0 {
		return nil
	}
	picked := make([]*models.Counterpart, 0, n)
	for _, c := range models.Calibers {
		if len(picked) == n {
			return picked
		}
		if tier := r.ByCaliber(c); len(tier) > 0 {
			picked = append(picked, tier[rng.IntN(len(tier))])
		}
	}

	rest := slices.DeleteFunc(r.List(), func(cp *models.Counterpart) bool {
		return slices.Contains(picked, cp)
	})
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for _, cp := range rest {
		if len(picked) == n {
			break
		}
		picked = append(picked, cp)
	}
	return picked
}
