package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spboyer/syndi/internal/ledger"
)

// ErrRegistryMissing is returned when the wallet registry file is absent.
var ErrRegistryMissing = errors.New("wallet registry not found")

// Wallet is one registered ledger wallet. Keys stay with the signing
// service; only the address and derivation index are recorded.
type Wallet struct {
	Address string `json:"address"`
	Index   int    `json:"index"`
	Role    string `json:"role,omitempty"`
	Caliber string `json:"caliber,omitempty"`
}

// Registry maps participant names to wallets.
type Registry struct {
	Network   string            `json:"network"`
	Generated string            `json:"generated,omitempty"`
	Wallets   map[string]Wallet `json:"wallets"`
}

// LoadRegistry reads a wallet registry JSON file. A missing file is reported
// as ErrRegistryMissing.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRegistryMissing, path)
		}
		return nil, fmt.Errorf("reading wallet registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing wallet registry %s: %w", path, err)
	}
	if reg.Wallets == nil {
		reg.Wallets = map[string]Wallet{}
	}
	return &reg, nil
}

// Account resolves a name to a ledger account. Lookup is exact first, then
// case-insensitive.
func (r *Registry) Account(name string) (ledger.Account, bool) {
	if r == nil {
		return ledger.Account{}, false
	}
	w, ok := r.Wallets[name]
	if !ok {
		for k, v := range r.Wallets {
			if strings.EqualFold(k, name) {
				name, w, ok = k, v, true
				break
			}
		}
	}
	if !ok || w.Address == "" {
		return ledger.Account{}, false
	}
	return ledger.Account{Name: name, Address: w.Address, Index: w.Index}, true
}
