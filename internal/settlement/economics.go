package settlement

import (
	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
)

// EntryKind classifies a ledger entry by the economic flow it belongs to.
type EntryKind string

const (
	KindChatPayment      EntryKind = "chat_payment"
	KindConversionReward EntryKind = "conversion_reward"
	KindMissionaryBonus  EntryKind = "missionary_bonus"
	KindArenaPayout      EntryKind = "arena_payout"
)

// Entry is one recorded transfer attempt.
type Entry struct {
	Kind   EntryKind `json:"type"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount int64     `json:"amount"`
	Score  *int      `json:"score,omitempty"`
	TxID   string    `json:"txId,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// DryRun reports whether the entry was confirmed by a dry-run broadcaster.
func (e Entry) DryRun() bool {
	return ledger.IsDryRun(e.TxID)
}

// EconomicLedger accumulates the transfers of a run for reporting. It is
// owned by one goroutine.
type EconomicLedger struct {
	entries []Entry
}

// NewEntry builds an entry from the outcome of t. Failed transfers keep
// their reason and carry no transaction ID.
func NewEntry(kind EntryKind, t models.Transfer) Entry {
	e := Entry{Kind: kind, From: t.From, To: t.To, Amount: t.Amount, Error: t.Error}
	if t.Confirmed() {
		e.TxID = t.TxID
	}
	return e
}

// Add appends e.
func (l *EconomicLedger) Add(e Entry) {
	l.entries = append(l.entries, e)
}

// Entries returns the entries in the order they were recorded.
func (l *EconomicLedger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Summary totals a ledger.
type Summary struct {
	Inflow        int64    `json:"inflow"`
	Payments      int      `json:"payments"`
	Rewards       int64    `json:"rewards"`
	RewardCount   int      `json:"rewardCount"`
	Bonuses       int64    `json:"bonuses"`
	BonusCount    int      `json:"bonusCount"`
	ArenaPayouts  int64    `json:"arenaPayouts"`
	ArenaCount    int      `json:"arenaCount"`
	Outflow       int64    `json:"outflow"`
	NetRevenue    int64    `json:"netRevenue"`
	Successful    int      `json:"successful"`
	FailedOrDry   int      `json:"failedOrDryRun"`
	ExplorerTxIDs []string `json:"explorerTxIds,omitempty"`
}

// Summary totals inflow, outflow and transfer outcomes. Amounts count the
// attempted transfers whether or not they confirmed.
func (l *EconomicLedger) Summary() Summary {
	var s Summary
	for _, e := range l.entries {
		switch e.Kind {
		case KindChatPayment:
			s.Inflow += e.Amount
			s.Payments++
		case KindConversionReward:
			s.Rewards += e.Amount
			s.RewardCount++
		case KindMissionaryBonus:
			s.Bonuses += e.Amount
			s.BonusCount++
		case KindArenaPayout:
			s.ArenaPayouts += e.Amount
			s.ArenaCount++
		}

		if e.TxID != "" && !e.DryRun() {
			s.Successful++
			s.ExplorerTxIDs = append(s.ExplorerTxIDs, e.TxID)
		}
		if e.TxID == "" || e.Error != "" || e.DryRun() {
			s.FailedOrDry++
		}
	}
	s.Outflow = s.Rewards + s.Bonuses + s.ArenaPayouts
	s.NetRevenue = s.Inflow - s.Outflow
	return s
}
