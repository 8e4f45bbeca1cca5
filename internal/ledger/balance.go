package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultLedgerAPI is the public testnet API used for balance lookups.
const DefaultLedgerAPI = "https://api.testnet.hiro.so"

// MicroPerUnit converts micro-units to whole units for display.
const MicroPerUnit = 1_000_000

// Balance is an account balance in micro-units.
type Balance struct {
	Address   string `json:"address"`
	Available int64  `json:"balance"`
	Locked    int64  `json:"locked"`
}

// Units formats the available balance in whole units.
func (b Balance) Units() string {
	return strconv.FormatFloat(float64(b.Available)/MicroPerUnit, 'f', 6, 64)
}

// BalanceClient reads balances from the ledger's read API.
type BalanceClient struct {
	baseURL string
	client  *http.Client
}

// NewBalanceClient creates a client for the API at baseURL. An empty
// baseURL uses DefaultLedgerAPI.
func NewBalanceClient(baseURL string, client *http.Client) *BalanceClient {
	if baseURL == "" {
		baseURL = DefaultLedgerAPI
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &BalanceClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type balanceResponse struct {
	STX struct {
		Balance string `json:"balance"`
		Locked  string `json:"locked"`
	} `json:"stx"`
}

// Balance fetches the balance of address.
func (c *BalanceClient) Balance(ctx context.Context, address string) (Balance, error) {
	endpoint := fmt.Sprintf("%s/extended/v1/address/%s/balances", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Balance{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Balance{}, fmt.Errorf("balance check for %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Balance{}, fmt.Errorf("balance check failed for %s: %d %s", address, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Balance{}, fmt.Errorf("decoding balance for %s: %w", address, err)
	}

	b := Balance{Address: address}
	if b.Available, err = parseMicro(body.STX.Balance); err != nil {
		return Balance{}, fmt.Errorf("balance for %s: %w", address, err)
	}
	if b.Locked, err = parseMicro(body.STX.Locked); err != nil {
		return Balance{}, fmt.Errorf("locked balance for %s: %w", address, err)
	}
	return b, nil
}

func parseMicro(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
