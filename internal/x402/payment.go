package x402

import (
	"context"
	"sync"
	"time"
)

// PaymentHeader carries the proof of payment on a retried request.
const PaymentHeader = "X-Payment"

// Payment is a verified payment attached to a gated request.
type Payment struct {
	Action    string    `json:"endpoint"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	TxID      string    `json:"txId,omitempty"`
	Payer     string    `json:"payer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type paymentKey struct{}

// WithPayment returns a context carrying p.
func WithPayment(ctx context.Context, p Payment) context.Context {
	return context.WithValue(ctx, paymentKey{}, p)
}

// PaymentFromContext returns the verified payment for the current request.
func PaymentFromContext(ctx context.Context) (Payment, bool) {
	p, ok := ctx.Value(paymentKey{}).(Payment)
	return p, ok
}

// PaymentLog is an in-memory, append-only list of verified payments. It is
// lost on restart.
type PaymentLog struct {
	mu       sync.Mutex
	payments []Payment
}

// Record appends p.
func (l *PaymentLog) Record(p Payment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments = append(l.payments, p)
}

// Entries returns a copy of the log in arrival order.
func (l *PaymentLog) Entries() []Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

// Total returns the sum of all recorded amounts.
func (l *PaymentLog) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, p := range l.payments {
		sum += p.Amount
	}
	return sum
}
