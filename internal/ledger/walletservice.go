package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RejectionError is returned when the ledger refuses a transfer. The
// message is the ledger's stated reason.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// WalletService broadcasts transfers through a remote signing service that
// holds the wallet keys. Requests are authenticated with a bearer token.
type WalletService struct {
	baseURL string
	token   string
	network string
	client  *http.Client
}

// NewWalletService creates a broadcaster for the signing service at baseURL.
// A nil client uses one with a 30s timeout.
func NewWalletService(baseURL, token, network string, client *http.Client) *WalletService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WalletService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		network: network,
		client:  client,
	}
}

type walletTransferBody struct {
	SenderIndex int    `json:"senderIndex"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo"`
	Network     string `json:"network"`
}

type walletTransferResult struct {
	TxID   string `json:"txid"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Broadcast implements Broadcaster.
func (w *WalletService) Broadcast(ctx context.Context, req TransferRequest) (string, error) {
	body, err := json.Marshal(walletTransferBody{
		SenderIndex: req.Sender.Index,
		Sender:      req.Sender.Address,
		Recipient:   req.Recipient,
		Amount:      strconv.FormatInt(req.Amount, 10),
		Memo:        req.Memo,
		Network:     w.network,
	})
	if err != nil {
		return "", fmt.Errorf("encoding transfer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("broadcasting transfer: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading transfer response: %w", err)
	}

	var result walletTransferResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil && resp.StatusCode < 300 {
			return "", fmt.Errorf("decoding transfer response: %w", err)
		}
	}

	if reason := firstNonEmpty(result.Reason, result.Error); reason != "" {
		return "", &RejectionError{Reason: reason}
	}
	if resp.StatusCode >= 300 {
		return "", &RejectionError{Reason: fmt.Sprintf("wallet service returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}
	if result.TxID == "" {
		return "", errors.New("wallet service returned no transaction id")
	}
	return result.TxID, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
