// Package ledger turns priced operations into transfers against an external
// ledger. Transfer failures are returned as values, never as fatal errors:
// callers decide whether a failed payment stops their work.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/spboyer/syndi/internal/models"
)

const (
	// DefaultMemoLimit is the maximum memo length, in bytes, the ledger accepts.
	DefaultMemoLimit = 34

	// DefaultExplorerURL is a printf template taking the transaction ID.
	DefaultExplorerURL = "https://explorer.hiro.so/txid/%s?chain=testnet"
)

// Account identifies a funded wallet. Keys never pass through this package;
// the broadcaster resolves the account to a signing key on its side.
type Account struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Index   int    `json:"index"`
}

// TransferRequest is what a Broadcaster is asked to sign and submit.
type TransferRequest struct {
	Sender    Account `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    int64   `json:"amount"`
	Memo      string  `json:"memo"`
}

//go:generate go tool mockgen -source gateway.go -destination mock_broadcaster_test.go -package ledger

// Broadcaster signs and submits a transfer, returning the transaction ID.
type Broadcaster interface {
	Broadcast(ctx context.Context, req TransferRequest) (string, error)
}

// Gateway is the single entry point for moving value on the ledger.
type Gateway struct {
	broadcaster Broadcaster
	memoLimit   int
	explorerURL string
	logger      *slog.Logger
	now         func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithMemoLimit overrides DefaultMemoLimit.
func WithMemoLimit(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.memoLimit = n
		}
	}
}

// WithExplorerURL overrides DefaultExplorerURL. The template must contain
// exactly one %s verb.
func WithExplorerURL(tmpl string) GatewayOption {
	return func(g *Gateway) {
		if tmpl != "" {
			g.explorerURL = tmpl
		}
	}
}

// WithLogger sets the logger used for transfer outcomes.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a Gateway that submits through b.
func NewGateway(b Broadcaster, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		broadcaster: b,
		memoLimit:   DefaultMemoLimit,
		explorerURL: DefaultExplorerURL,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Transfer moves amount from the sender to recipient. The outcome is always
// returned as a Transfer; a rejected or failed broadcast is recorded with
// its reason rather than raised.
func (g *Gateway) Transfer(ctx context.Context, from Account, to string, amount int64, memo string) models.Transfer {
	t := models.Transfer{
		From:      from.Name,
		To:        to,
		Amount:    amount,
		Memo:      TruncateMemo(memo, g.memoLimit),
		Timestamp: g.now(),
	}

	if amount <= 0 {
		t.Status = models.TransferFailed
		t.Error = fmt.Sprintf("amount must be positive, got %d", amount)
		return t
	}

	txID, err := g.broadcaster.Broadcast(ctx, TransferRequest{
		Sender:    from,
		Recipient: to,
		Amount:    amount,
		Memo:      t.Memo,
	})
	if err != nil {
		t.Status = models.TransferFailed
		t.Error = err.Error()
		g.logger.WarnContext(ctx, "ledger transfer failed",
			"from", from.Name, "to", to, "amount", amount, "error", err)
		return t
	}

	t.Status = models.TransferConfirmed
	t.TxID = txID
	t.ExplorerURL = g.ExplorerURL(txID)
	g.logger.InfoContext(ctx, "ledger transfer broadcast",
		"from", from.Name, "to", to, "amount", amount, "txid", txID)
	return t
}

// ExplorerURL returns the public explorer link for a transaction.
func (g *Gateway) ExplorerURL(txID string) string {
	return fmt.Sprintf(g.explorerURL, txID)
}

// TruncateMemo cuts memo to at most limit bytes without splitting a UTF-8
// sequence.
func TruncateMemo(memo string, limit int) string {
	if limit <= 0 || len(memo) <= limit {
		return memo
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(memo[cut]) {
		cut--
	}
	return memo[:cut]
}
