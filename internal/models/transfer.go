package models

import "time"

// TransferStatus is the outcome of a ledger transfer.
type TransferStatus string

const (
	TransferConfirmed TransferStatus = "confirmed"
	TransferFailed    TransferStatus = "failed"
)

// Transfer is a directed value movement and its outcome. Transfers are
// created by the payment gateway and never modified.
type Transfer struct {
	From        string         `json:"from"`
	To          string         `json:"to"`
	Amount      int64          `json:"amount"`
	Memo        string         `json:"memo"`
	Status      TransferStatus `json:"status"`
	TxID        string         `json:"txId,omitempty"`
	ExplorerURL string         `json:"explorerUrl,omitempty"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Confirmed reports whether the ledger accepted the transfer.
func (t *Transfer) Confirmed() bool {
	return t != nil && t.Status == TransferConfirmed
}

// TxIDPtr returns the transaction ID, or nil when the transfer did not
// confirm. It is used for JSON fields that must serialize as null.
func (t *Transfer) TxIDPtr() *string {
	if !t.Confirmed() {
		return nil
	}
	id := t.TxID
	return &id
}
