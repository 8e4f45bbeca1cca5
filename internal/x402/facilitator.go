package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrFacilitatorUnavailable means the facilitator could not be reached or
// returned something unreadable. It is distinct from a rejected payment.
var ErrFacilitatorUnavailable = errors.New("payment verification service unavailable")

// Verification is the facilitator's answer for one proof of payment.
type Verification struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	TxID    string `json:"txId,omitempty"`
	Payer   string `json:"payer,omitempty"`
}

// Verifier checks a proof of payment against the expected amount and payee.
type Verifier interface {
	Verify(ctx context.Context, proof string, amount int64, recipient string) (Verification, error)
}

// Facilitator is a Verifier backed by a remote facilitator service.
type Facilitator struct {
	url    string
	client *http.Client
}

// NewFacilitator creates a client for the facilitator at url.
func NewFacilitator(url string, client *http.Client) *Facilitator {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Facilitator{url: strings.TrimRight(url, "/"), client: client}
}

// URL returns the facilitator base URL advertised to payers.
func (f *Facilitator) URL() string {
	return f.url
}

type verifyBody struct {
	PaymentProof      string `json:"paymentProof"`
	ExpectedAmount    string `json:"expectedAmount"`
	ExpectedRecipient string `json:"expectedRecipient"`
}

// Verify implements Verifier. A non-2xx answer is a rejected verification;
// only transport and decoding faults return an error.
func (f *Facilitator) Verify(ctx context.Context, proof string, amount int64, recipient string) (Verification, error) {
	body, err := json.Marshal(verifyBody{
		PaymentProof:      proof,
		ExpectedAmount:    strconv.FormatInt(amount, 10),
		ExpectedRecipient: recipient,
	})
	if err != nil {
		return Verification{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url+"/verify", bytes.NewReader(body))
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Verification{
			Reason: fmt.Sprintf("Facilitator returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}, nil
	}

	var v Verification
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verification{}, fmt.Errorf("%w: decoding response: %v", ErrFacilitatorUnavailable, err)
	}
	return v, nil
}
