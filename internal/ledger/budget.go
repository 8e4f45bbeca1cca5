package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spboyer/syndi/internal/models"
)

const (
	DefaultMaxPerTransfer = 10_000
	DefaultBudgetLimit    = 1_000_000
)

// ErrBudgetExceeded is matched by every *BudgetError.
var ErrBudgetExceeded = errors.New("budget exceeded")

// BudgetError reports a transfer refused before reaching the ledger.
type BudgetError struct {
	Account string
	Amount  int64
	Limit   int64
	Spent   int64

	// PerTransfer is true when the single-transfer ceiling was hit, false
	// when the cumulative budget was.
	PerTransfer bool
}

func (e *BudgetError) Error() string {
	if e.PerTransfer {
		return fmt.Sprintf("[%s] price %d exceeds per-transfer limit %d", e.Account, e.Amount, e.Limit)
	}
	return fmt.Sprintf("[%s] budget exhausted: spent %d/%d, need %d more", e.Account, e.Spent, e.Limit, e.Amount)
}

func (e *BudgetError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// BudgetSummary is a snapshot of a guard's spending.
type BudgetSummary struct {
	Account   string            `json:"agent"`
	Spent     int64             `json:"totalSpent"`
	Remaining int64             `json:"budgetRemaining"`
	Limit     int64             `json:"budgetLimit"`
	History   []models.Transfer `json:"history"`
}

// BudgetGuard wraps a Gateway with a per-transfer ceiling and a running
// total for one paying account. Only confirmed transfers count as spent.
type BudgetGuard struct {
	gateway        *Gateway
	account        Account
	maxPerTransfer int64
	limit          int64

	mu      sync.Mutex
	spent   int64
	history []models.Transfer
}

// NewBudgetGuard creates a guard for account. Non-positive limits fall back
// to the defaults.
func NewBudgetGuard(g *Gateway, account Account, maxPerTransfer, limit int64) *BudgetGuard {
	if maxPerTransfer <= 0 {
		maxPerTransfer = DefaultMaxPerTransfer
	}
	if limit <= 0 {
		limit = DefaultBudgetLimit
	}
	return &BudgetGuard{
		gateway:        g,
		account:        account,
		maxPerTransfer: maxPerTransfer,
		limit:          limit,
	}
}

// Account returns the paying account.
func (b *BudgetGuard) Account() Account {
	return b.account
}

// Transfer checks both ceilings and, if they allow it, transfers through the
// gateway. A *BudgetError means the ledger was never contacted.
func (b *BudgetGuard) Transfer(ctx context.Context, to string, amount int64, memo string) (models.Transfer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount > b.maxPerTransfer {
		return models.Transfer{}, &BudgetError{
			Account: b.account.Name, Amount: amount, Limit: b.maxPerTransfer, Spent: b.spent, PerTransfer: true,
		}
	}
	if b.spent+amount > b.limit {
		return models.Transfer{}, &BudgetError{
			Account: b.account.Name, Amount: amount, Limit: b.limit, Spent: b.spent,
		}
	}

	t := b.gateway.Transfer(ctx, b.account, to, amount, memo)
	if t.Confirmed() {
		b.spent += amount
	}
	b.history = append(b.history, t)
	return t, nil
}

// Summary returns the current spending snapshot.
func (b *BudgetGuard) Summary() BudgetSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	history := make([]models.Transfer, len(b.history))
	copy(history, b.history)
	return BudgetSummary{
		Account:   b.account.Name,
		Spent:     b.spent,
		Remaining: b.limit - b.spent,
		Limit:     b.limit,
		History:   history,
	}
}

// Reset clears the spending tracker. It does not touch on-chain balances.
func (b *BudgetGuard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent = 0
	b.history = nil
}
