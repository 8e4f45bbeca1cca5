package x402

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spboyer/syndi/internal/ledger"
)

// ErrNoRequirements is returned when a 402 response carries no payment terms.
var ErrNoRequirements = errors.New("402 received but no payment requirements in response")

// Client performs HTTP requests and settles 402 responses by paying through
// a budget-guarded ledger account, then retrying once with the proof.
type Client struct {
	http   *http.Client
	budget *ledger.BudgetGuard
	logger *slog.Logger
}

// NewClient creates a paying client. A nil httpClient uses
// http.DefaultClient.
func NewClient(httpClient *http.Client, budget *ledger.BudgetGuard, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, budget: budget, logger: logger}
}

// Do sends req. When the server answers 402 the requirements are paid and
// the request is sent again with the transaction ID in PaymentHeader. A
// budget refusal returns an error matching ledger.ErrBudgetExceeded.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	resp, err := c.http.Do(withBody(req, body))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	var reqs Requirements
	err = json.NewDecoder(resp.Body).Decode(&reqs)
	resp.Body.Close()
	if err != nil || reqs.Accepts.Price == "" {
		return nil, ErrNoRequirements
	}

	price, err := reqs.PriceValue()
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", reqs.Accepts.Price, err)
	}

	account := c.budget.Account().Name
	c.logger.InfoContext(req.Context(), "x402 payment required",
		"agent", account, "price", price, "currency", reqs.Accepts.Currency, "payTo", reqs.Accepts.PayTo)

	t, err := c.budget.Transfer(req.Context(), reqs.Accepts.PayTo, price, "x402:"+account)
	if err != nil {
		return nil, err
	}
	if !t.Confirmed() {
		return nil, fmt.Errorf("[%s] transaction failed: %s", account, t.Error)
	}

	retry := withBody(req, body)
	retry.Header.Set(PaymentHeader, t.TxID)

	summary := c.budget.Summary()
	c.logger.InfoContext(req.Context(), "x402 payment sent",
		"agent", account, "txid", t.TxID, "spent", summary.Spent, "limit", summary.Limit)

	return c.http.Do(retry)
}

// Summary returns the spending summary of the paying account.
func (c *Client) Summary() ledger.BudgetSummary {
	return c.budget.Summary()
}

func withBody(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	}
	return clone
}
