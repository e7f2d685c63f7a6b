// Package chain wraps a remote Algorand-style node behind a small HTTP
// client: account balance reads, suggested transaction parameters, raw
// submission, and confirmation polling. The client keeps no state of its
// own; retries after a broadcast are the caller's responsibility because
// resubmission without a fresh validity window is unsafe.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrConfirmationTimeout is returned by WaitForConfirmation when the
// timeout elapses without the node reporting an outcome. The transaction
// may still confirm later; callers must not treat this as failure.
var ErrConfirmationTimeout = errors.New("confirmation wait timed out")

// SuggestedParams are the node-suggested transaction parameters.
type SuggestedParams struct {
	Fee         uint64 `json:"fee"`
	FirstRound  uint64 `json:"last-round"`
	LastRound   uint64 `json:"-"`
	GenesisID   string `json:"genesis-id"`
	GenesisHash string `json:"genesis-hash"`
}

// Confirmation reports a confirmed transaction and the round it landed in.
type Confirmation struct {
	TxID  string `json:"tx_id"`
	Round uint64 `json:"confirmed_round"`
}

type accountResponse struct {
	Amount uint64 `json:"amount"`
}

type submitResponse struct {
	TxID string `json:"txId"`
}

type pendingResponse struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	PoolError      string `json:"pool-error"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client is a stateless proxy to a remote node's REST API.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClient creates a node client. pollInterval controls how often
// WaitForConfirmation re-checks the pending pool.
func NewClient(baseURL, token string, httpClient *http.Client, pollInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   httpClient,
		pollInterval: pollInterval,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("X-Algo-API-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var nodeErr errorResponse
		if json.Unmarshal(raw, &nodeErr) == nil && nodeErr.Message != "" {
			return fmt.Errorf("node returned %d: %s", resp.StatusCode, nodeErr.Message)
		}
		return fmt.Errorf("node returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode node response: %w", err)
		}
	}
	return nil
}

// AccountBalance returns the account's spendable balance in microAlgos.
func (c *Client) AccountBalance(ctx context.Context, address string) (uint64, error) {
	var account accountResponse
	if err := c.do(ctx, http.MethodGet, "/v2/accounts/"+address, nil, "", &account); err != nil {
		return 0, err
	}
	return account.Amount, nil
}

// SuggestedParams fetches the node's suggested transaction parameters.
// The validity window is the suggested first round plus 1000 rounds.
func (c *Client) SuggestedParams(ctx context.Context) (*SuggestedParams, error) {
	var params SuggestedParams
	if err := c.do(ctx, http.MethodGet, "/v2/transactions/params", nil, "", &params); err != nil {
		return nil, err
	}
	params.LastRound = params.FirstRound + 1000
	if params.Fee == 0 {
		params.Fee = 1000 // node min fee
	}
	return &params, nil
}

// Submit broadcasts a signed transaction. It is a single blocking call with
// no retry at this layer.
func (c *Client) Submit(ctx context.Context, signedTx []byte) (string, error) {
	var result submitResponse
	if err := c.do(ctx, http.MethodPost, "/v2/transactions", signedTx, "application/x-binary", &result); err != nil {
		return "", err
	}
	if result.TxID == "" {
		return "", errors.New("node accepted transaction but returned no id")
	}
	return result.TxID, nil
}

// WaitForConfirmation polls the pending pool at a fixed interval until the
// transaction confirms, the node reports an explicit rejection, or timeout
// elapses. A timeout returns ErrConfirmationTimeout, which is distinct from
// failure: the transaction may still confirm later.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, timeout time.Duration) (*Confirmation, error) {
	deadline := time.Now().Add(timeout)

	for {
		var pending pendingResponse
		if err := c.do(ctx, http.MethodGet, "/v2/transactions/pending/"+txID, nil, "", &pending); err != nil {
			return nil, err
		}
		if pending.PoolError != "" {
			return nil, fmt.Errorf("transaction rejected: %s", pending.PoolError)
		}
		if pending.ConfirmedRound > 0 {
			return &Confirmation{TxID: txID, Round: pending.ConfirmedRound}, nil
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return nil, ErrConfirmationTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}
