package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalletServiceBroadcast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transfers", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body walletTransferBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, walletTransferBody{
			SenderIndex: 1,
			Sender:      "ST1TREASURY",
			Recipient:   "ST2",
			Amount:      "500",
			Memo:        "x402:reward:score4",
			Network:     "testnet",
		}, body)

		_ = json.NewEncoder(w).Encode(map[string]string{"txid": "0xfeed"})
	}))
	defer srv.Close()

	ws := NewWalletService(srv.URL+"/", "secret", "testnet", srv.Client())
	txID, err := ws.Broadcast(context.Background(), TransferRequest{
		Sender: treasury, Recipient: "ST2", Amount: 500, Memo: "x402:reward:score4",
	})
	require.NoError(t, err)
	require.Equal(t, "0xfeed", txID)
}

func TestWalletServiceRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "transaction rejected", "reason": "NotEnoughFunds"})
	}))
	defer srv.Close()

	_, err := NewWalletService(srv.URL, "", "testnet", nil).Broadcast(context.Background(), TransferRequest{Amount: 1})

	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "NotEnoughFunds", rej.Reason)
}

func TestWalletServiceStatusWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWalletService(srv.URL, "", "testnet", nil).Broadcast(context.Background(), TransferRequest{Amount: 1})
	require.EqualError(t, err, "wallet service returned 502: Bad Gateway")
}

func TestWalletServiceMissingTxID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewWalletService(srv.URL, "", "testnet", nil).Broadcast(context.Background(), TransferRequest{Amount: 1})
	require.EqualError(t, err, "wallet service returned no transaction id")
}
