package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBalanceClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/extended/v1/address/ST1TREASURY/balances":
			_, _ = w.Write([]byte(`{"stx":{"balance":"2500000","locked":"100"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewBalanceClient(srv.URL, srv.Client())

	b, err := c.Balance(context.Background(), "ST1TREASURY")
	require.NoError(t, err)
	require.Equal(t, int64(2_500_000), b.Available)
	require.Equal(t, int64(100), b.Locked)
	require.Equal(t, "2.500000", b.Units())

	_, err = c.Balance(context.Background(), "ST9MISSING")
	require.ErrorContains(t, err, "balance check failed for ST9MISSING: 404")
}

func TestBalanceClientBadNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stx":{"balance":"lots"}}`))
	}))
	defer srv.Close()

	_, err := NewBalanceClient(srv.URL, nil).Balance(context.Background(), "ST1")
	require.Error(t, err)
}
