package roster

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/syndi/internal/models"
	"github.com/stretchr/testify/require"
)

const sample = `
persuader:
  name: Syndi
  model: gpt-4.1
  system_prompt: You are Syndi.
counterparts:
  - name: Gary
    caliber: low
    model: gpt-4o-mini
    system_prompt: You are Gary.
    opener: What do you want?
  - name: Mel
    caliber: medium
    model: gpt-4o
    system_prompt: You are Mel.
    opener: Hello there.
    rounds: 4
  - name: Tessa
    caliber: high
    model: gpt-4.1
    system_prompt: You are Tessa.
    opener: Convince me.
    brief: She responds to evidence.
  - name: Rook
    caliber: low
    model: gpt-4o-mini
    system_prompt: You are Rook.
    opener: Hm.
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Equal(t, "Syndi", r.Persuader.Name)
	require.Equal(t, []string{"Gary", "Mel", "Tessa", "Rook"}, r.Names())

	mel, err := r.Get("mel")
	require.NoError(t, err)
	require.Equal(t, models.CaliberMedium, mel.Caliber)
	require.Equal(t, 4, mel.TurnBudget())

	_, err = r.Get("Nobody")
	require.ErrorIs(t, err, ErrUnknownCounterpart)

	require.Len(t, r.ByCaliber(models.CaliberLow), 2)
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New(
		&models.Counterpart{Name: "A", Caliber: "extreme", Opener: "x", SystemPrompt: "y"},
		&models.Counterpart{Name: "B", Caliber: models.CaliberLow, SystemPrompt: "y"},
		&models.Counterpart{Name: "C", Caliber: models.CaliberLow, Opener: "x", SystemPrompt: "y"},
		&models.Counterpart{Name: "c", Caliber: models.CaliberLow, Opener: "x", SystemPrompt: "y"},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid caliber "extreme"`)
	require.Contains(t, err.Error(), "opener is required")
	require.Contains(t, err.Error(), `duplicate name "c"`)
}

func TestPickCoversCalibers(t *testing.T) {
	r, err := Parse([]byte(sample))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	picked := r.Pick(3, rng)
	require.Len(t, picked, 3)
	require.Equal(t, models.CaliberLow, picked[0].Caliber)
	require.Equal(t, models.CaliberMedium, picked[1].Caliber)
	require.Equal(t, models.CaliberHigh, picked[2].Caliber)

	all := r.Pick(10, rng)
	require.Len(t, all, 4)
	seen := map[string]bool{}
	for _, cp := range all {
		require.False(t, seen[cp.Name], "duplicate %s", cp.Name)
		seen[cp.Name] = true
	}

	require.Len(t, r.Pick(1, rng), 1)
	require.Nil(t, r.Pick(0, rng))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"network": "testnet",
		"generated": "2026-01-01T00:00:00Z",
		"wallets": {
			"Treasury": {"address": "ST1TREASURY", "index": 0, "role": "treasury"},
			"Mel": {"address": "ST2MEL", "index": 3, "role": "counterpart", "caliber": "medium"}
		}
	}`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, "testnet", reg.Network)

	acct, ok := reg.Account("mel")
	require.True(t, ok)
	require.Equal(t, "Mel", acct.Name)
	require.Equal(t, "ST2MEL", acct.Address)
	require.Equal(t, 3, acct.Index)

	_, ok = reg.Account("Gary")
	require.False(t, ok)

	_, err = LoadRegistry(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrRegistryMissing)
}
