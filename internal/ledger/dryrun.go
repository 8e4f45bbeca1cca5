package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// DryRunPrefix marks transaction IDs that never reached a ledger.
const DryRunPrefix = "dry_run_"

// DryRun is a Broadcaster that confirms everything without contacting a
// ledger. It is used for local runs and simulations.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun creates a DryRun broadcaster. A nil logger uses slog.Default.
func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{logger: logger}
}

// Broadcast implements Broadcaster.
func (d *DryRun) Broadcast(ctx context.Context, req TransferRequest) (string, error) {
	id := DryRunPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	d.logger.DebugContext(ctx, "dry run transfer",
		"from", req.Sender.Name, "to", req.Recipient, "amount", req.Amount, "memo", req.Memo, "txid", id)
	return id, nil
}

// IsDryRun reports whether txID came from a DryRun broadcaster.
func IsDryRun(txID string) bool {
	return strings.HasPrefix(txID, DryRunPrefix)
}
