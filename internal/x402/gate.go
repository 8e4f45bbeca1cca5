package x402

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/spboyer/syndi/internal/models"
)

const (
	SchemeExact = "exact"

	DefaultNetwork    = "stacks:testnet"
	DefaultMaxTimeout = 300

	maxPricedBody = 1 << 20
)

// Accepts describes the payment a gated action requires.
type Accepts struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Price             string `json:"price"`
	Currency          string `json:"currency"`
	PayTo             string `json:"payTo"`
	Description       string `json:"description,omitempty"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds,omitempty"`
}

// FacilitatorInfo tells the payer where proofs are verified.
type FacilitatorInfo struct {
	URL string `json:"url"`
}

// Requirements is the body of a 402 response.
type Requirements struct {
	Error       string           `json:"error,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Accepts     Accepts          `json:"accepts"`
	Facilitator *FacilitatorInfo `json:"facilitator,omitempty"`
}

// PriceValue parses the advertised price.
func (r *Requirements) PriceValue() (int64, error) {
	return strconv.ParseInt(r.Accepts.Price, 10, 64)
}

type unavailableBody struct {
	Error       string `json:"error"`
	Facilitator string `json:"facilitator"`
}

// TierFunc resolves a counterpart name to its caliber.
type TierFunc func(name string) (models.Caliber, bool)

// GateConfig configures a Gate.
type GateConfig struct {
	Table          Table
	Verifier       Verifier
	FacilitatorURL string
	PayTo          string
	Network        string
	Tier           TierFunc
	Log            *PaymentLog
	Logger         *slog.Logger
}

// Gate is HTTP middleware that answers priced actions with 402 until a
// verified proof of payment is attached.
type Gate struct {
	cfg GateConfig
	now func() time.Time
}

// NewGate creates a Gate. Missing network, log and logger get defaults. A
// missing verifier falls back to a Facilitator at FacilitatorURL; with
// neither, paid requests are answered 503.
func NewGate(cfg GateConfig) *Gate {
	if cfg.Verifier == nil && cfg.FacilitatorURL != "" {
		cfg.Verifier = NewFacilitator(cfg.FacilitatorURL, nil)
	}
	if cfg.Table == nil {
		cfg.Table = DefaultTable()
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.Log == nil {
		cfg.Log = &PaymentLog{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tier == nil {
		cfg.Tier = func(string) (models.Caliber, bool) { return models.CaliberLow, false }
	}
	return &Gate{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Log returns the gate's payment log.
func (g *Gate) Log() *PaymentLog {
	return g.cfg.Log
}

// Middleware wraps next. It satisfies mux.MiddlewareFunc.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := actionFor(r)
		rule := g.cfg.Table.Lookup(action)
		if rule == nil {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := g.subject(w, r)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		case err != nil:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		price := rule.Price(subject)
		accepts := Accepts{
			Scheme:            SchemeExact,
			Network:           g.cfg.Network,
			Price:             strconv.FormatInt(price, 10),
			Currency:          rule.currency(),
			PayTo:             g.cfg.PayTo,
			Description:       "Syndi API: " + action,
			MaxTimeoutSeconds: DefaultMaxTimeout,
		}
		facilitator := &FacilitatorInfo{URL: g.cfg.FacilitatorURL}

		proof := r.Header.Get(PaymentHeader)
		if proof == "" {
			writeJSON(w, http.StatusPaymentRequired, Requirements{Accepts: accepts, Facilitator: facilitator})
			return
		}

		if g.cfg.Verifier == nil {
			g.cfg.Logger.ErrorContext(r.Context(), "x402 gate has no verifier", "action", action)
			writeJSON(w, http.StatusServiceUnavailable, unavailableBody{
				Error:       "Payment verification service unavailable",
				Facilitator: g.cfg.FacilitatorURL,
			})
			return
		}
		v, err := g.cfg.Verifier.Verify(r.Context(), proof, price, g.cfg.PayTo)
		if err != nil {
			g.cfg.Logger.ErrorContext(r.Context(), "x402 verification error", "action", action, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, unavailableBody{
				Error:       "Payment verification service unavailable",
				Facilitator: g.cfg.FacilitatorURL,
			})
			return
		}
		if !v.Success {
			writeJSON(w, http.StatusPaymentRequired, Requirements{
				Error:       "Payment verification failed",
				Reason:      v.Reason,
				Accepts:     accepts,
				Facilitator: facilitator,
			})
			return
		}

		payment := Payment{
			Action:    action,
			Amount:    price,
			Currency:  accepts.Currency,
			TxID:      v.TxID,
			Payer:     v.Payer,
			Timestamp: g.now(),
		}
		g.cfg.Log.Record(payment)
		g.cfg.Logger.InfoContext(r.Context(), "x402 payment verified",
			"action", action, "amount", price, "txid", v.TxID, "payer", v.Payer)

		next.ServeHTTP(w, r.WithContext(WithPayment(r.Context(), payment)))
	})
}

type pricedBody struct {
	Counterpart  string            `json:"counterpart"`
	Participants []json.RawMessage `json:"participants"`
}

// subject reads the request body for pricing inputs and restores it for
// the downstream handler. Bodies over maxPricedBody fail with
// *http.MaxBytesError.
func (g *Gate) subject(w http.ResponseWriter, r *http.Request) (Subject, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return Subject{}, nil
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPricedBody))
	r.Body.Close()
	if err != nil {
		return Subject{}, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return Subject{}, nil
	}

	var body pricedBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Subject{}, errors.New("invalid JSON body")
	}

	var s Subject
	if body.Counterpart != "" {
		if tier, ok := g.cfg.Tier(body.Counterpart); ok {
			s.Tier = tier
		}
	}
	s.Units = len(body.Participants)
	return s, nil
}

func actionFor(r *http.Request) string {
	route := r.URL.Path
	if cur := mux.CurrentRoute(r); cur != nil {
		if tmpl, err := cur.GetPathTemplate(); err == nil {
			route = tmpl
		}
	}
	return Action(r.Method, route)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
