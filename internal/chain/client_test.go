package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "test-token", server.Client(), 10*time.Millisecond)
	return client, server
}

func TestAccountBalance(t *testing.T) {
	t.Run("returns amount", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v2/accounts/WALLET" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("X-Algo-API-Token") != "test-token" {
				t.Error("expected API token header")
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"amount": 500000})
		}))

		balance, err := client.AccountBalance(context.Background(), "WALLET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if balance != 500000 {
			t.Errorf("expected balance 500000, got %d", balance)
		}
	})

	t.Run("node error surfaces message", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "account not found"})
		}))

		if _, err := client.AccountBalance(context.Background(), "WALLET"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("returns tx id", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v2/transactions" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]string{"txId": "TX123"})
		}))

		txID, err := client.Submit(context.Background(), []byte("signed"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if txID != "TX123" {
			t.Errorf("expected TX123, got %s", txID)
		}
	})

	t.Run("rejection surfaces node message", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "malformed transaction"})
		}))

		_, err := client.Submit(context.Background(), []byte("bad"))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestWaitForConfirmation(t *testing.T) {
	t.Run("confirms after polling", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			resp := map[string]interface{}{"confirmed-round": 0}
			if n >= 3 {
				resp["confirmed-round"] = 41500123
			}
			json.NewEncoder(w).Encode(resp)
		}))

		conf, err := client.WaitForConfirmation(context.Background(), "TX123", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conf.Round != 41500123 {
			t.Errorf("expected round 41500123, got %d", conf.Round)
		}
		if conf.TxID != "TX123" {
			t.Errorf("expected TX123, got %s", conf.TxID)
		}
	})

	t.Run("timeout is a distinct outcome", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"confirmed-round": 0})
		}))

		_, err := client.WaitForConfirmation(context.Background(), "TX123", 30*time.Millisecond)
		if !errors.Is(err, ErrConfirmationTimeout) {
			t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
		}
	})

	t.Run("pool error is a rejection", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"pool-error": "overspend"})
		}))

		_, err := client.WaitForConfirmation(context.Background(), "TX123", time.Second)
		if err == nil || errors.Is(err, ErrConfirmationTimeout) {
			t.Fatalf("expected rejection error, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"confirmed-round": 0})
		}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.WaitForConfirmation(ctx, "TX123", time.Second)
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
	})
}

func TestSuggestedParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fee":          1000,
			"last-round":   41500000,
			"genesis-id":   "mainnet-v1.0",
			"genesis-hash": "wGHE2Pwdvd7S12BL5FaOP20EGYesN73ktiC1qzkkit8=",
		})
	}))

	params, err := client.SuggestedParams(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.FirstRound != 41500000 {
		t.Errorf("expected first round 41500000, got %d", params.FirstRound)
	}
	if params.LastRound != 41501000 {
		t.Errorf("expected last round 41501000, got %d", params.LastRound)
	}
}
