package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
)

// Recorded for payees with no registered wallet.
const errWalletNotFound = "Wallet not found in registry"

// Payer moves value on the ledger. *ledger.Gateway satisfies it.
type Payer interface {
	Transfer(ctx context.Context, from ledger.Account, to string, amount int64, memo string) models.Transfer
}

// WalletLookup resolves a participant name to its wallet.
type WalletLookup func(name string) (ledger.Account, bool)

// Payout is the outcome of paying one participant.
type Payout struct {
	Agent    string           `json:"agent"`
	Kind     EntryKind        `json:"type"`
	Amount   int64            `json:"amount"`
	Transfer *models.Transfer `json:"transfer,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Paid reports whether the payout reached the ledger and confirmed.
func (p Payout) Paid() bool {
	return p.Transfer.Confirmed()
}

// Executor pays settlement amounts out of the treasury, one transfer at a
// time. Each payout is independent: a failure for one participant never
// stops the others.
type Executor struct {
	payer    Payer
	treasury ledger.Account
	wallets  WalletLookup
	ledger   *EconomicLedger
	logger   *slog.Logger
}

// NewExecutor creates an Executor. A nil economic ledger disables recording.
func NewExecutor(p Payer, treasury ledger.Account, wallets WalletLookup, l *EconomicLedger, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{payer: p, treasury: treasury, wallets: wallets, ledger: l, logger: logger}
}

// PayReward pays a conversion reward. Zero rewards produce no transfer and
// no payout.
func (e *Executor) PayReward(ctx context.Context, agent string, score int, reward Reward) (Payout, bool) {
	if reward.Amount <= 0 {
		return Payout{}, false
	}
	return e.pay(ctx, KindConversionReward, agent, reward.Amount, fmt.Sprintf("x402:reward:score%d", score), &score), true
}

// PayArena pays every share with a positive earned amount.
func (e *Executor) PayArena(ctx context.Context, s Settlement) []Payout {
	var out []Payout
	for _, sh := range s.Shares {
		if sh.Earned <= 0 {
			continue
		}
		score := sh.Score
		out = append(out, e.pay(ctx, KindArenaPayout, sh.Agent, sh.Earned, "x402:arena:"+Clip(sh.Agent, 20), &score))
	}
	return out
}

// PayMissionaries pays each missionary bonus.
func (e *Executor) PayMissionaries(ctx context.Context, ms []Missionary) []Payout {
	out := make([]Payout, 0, len(ms))
	for _, m := range ms {
		score := m.Score
		out = append(out, e.pay(ctx, KindMissionaryBonus, m.Agent, m.Bonus, "x402:missionary:"+Clip(m.Agent, 18), &score))
	}
	return out
}

func (e *Executor) pay(ctx context.Context, kind EntryKind, agent string, amount int64, memo string, score *int) Payout {
	p := Payout{Agent: agent, Kind: kind, Amount: amount}

	wallet, ok := e.wallets(agent)
	if !ok {
		p.Error = errWalletNotFound
		e.logger.WarnContext(ctx, "settlement payee has no wallet", "agent", agent, "type", kind)
		if e.ledger != nil {
			e.ledger.Add(Entry{Kind: kind, From: e.treasury.Name, To: agent, Amount: amount, Score: score, Error: p.Error})
		}
		return p
	}

	t := e.payer.Transfer(ctx, e.treasury, wallet.Address, amount, memo)
	p.Transfer = &t
	if !t.Confirmed() {
		p.Error = t.Error
	}

	if e.ledger != nil {
		entry := NewEntry(kind, t)
		entry.To = agent
		entry.Score = score
		e.ledger.Add(entry)
	}
	return p
}
