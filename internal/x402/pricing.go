// Package x402 implements the HTTP 402 payment-required negotiation used to
// gate priced API actions: a pricing table, a server-side gate that verifies
// proof of payment through a facilitator, and a client that pays on demand.
package x402

import (
	"github.com/spboyer/syndi/internal/models"
)

// DefaultCurrency is the ledger's native token. Prices are in its micro-unit.
const DefaultCurrency = "STX"

// Rule prices one action. The zero multiplier and per-unit settings leave
// the price at Base.
type Rule struct {
	Base     int64  `yaml:"base" json:"base"`
	Currency string `yaml:"currency,omitempty" json:"currency"`

	// TierMultiplier scales Base by the caliber of the counterpart named in
	// the request. Unknown tiers use a multiplier of 1.
	TierMultiplier map[models.Caliber]int64 `yaml:"tierMultiplier,omitempty" json:"tierMultiplier,omitempty"`

	// PerUnit is added for each unit beyond IncludedUnits.
	PerUnit       int64 `yaml:"perUnit,omitempty" json:"perUnit,omitempty"`
	IncludedUnits int   `yaml:"includedUnits,omitempty" json:"includedUnits,omitempty"`
}

// Subject carries the request attributes that can move a price.
type Subject struct {
	Tier  models.Caliber
	Units int
}

// Price resolves the rule against a request subject.
func (r *Rule) Price(s Subject) int64 {
	price := r.Base

	if len(r.TierMultiplier) > 0 && s.Tier != "" {
		if m, ok := r.TierMultiplier[s.Tier]; ok && m > 0 {
			price = r.Base * m
		}
	}

	if r.PerUnit > 0 && s.Units > 0 {
		extra := max(0, s.Units-r.IncludedUnits)
		price = r.Base + int64(extra)*r.PerUnit
	}

	return price
}

func (r *Rule) currency() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// Table maps an action ("METHOD /route/template") to its rule. A nil rule,
// or an action missing from the table, is free.
type Table map[string]*Rule

// Action builds the table key for a method and route template.
func Action(method, route string) string {
	return method + " " + route
}

// Lookup returns the rule for action, or nil when the action is free.
func (t Table) Lookup(action string) *Rule {
	return t[action]
}

// Merge returns a copy of t with every entry of overrides applied on top.
func (t Table) Merge(overrides Table) Table {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// DefaultTable is the stock price list, in micro-STX.
func DefaultTable() Table {
	return Table{
		"GET /api/counterparts": nil,
		"GET /api/payments":     nil,
		"POST /api/chat": {
			Base:     100,
			Currency: DefaultCurrency,
			TierMultiplier: map[models.Caliber]int64{
				models.CaliberLow:    1,
				models.CaliberMedium: 5,
				models.CaliberHigh:   10,
			},
		},
		"POST /api/arena": {
			Base:          2000,
			Currency:      DefaultCurrency,
			PerUnit:       500,
			IncludedUnits: 2,
		},
		"POST /api/evaluate": {
			Base:     200,
			Currency: DefaultCurrency,
		},
	}
}
