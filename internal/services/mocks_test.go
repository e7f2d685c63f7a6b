package services

import (
	"context"
	"errors"
	"time"

	"algoswarm/internal/chain"
)

// mockGateway is a ChainGateway with overridable behavior per test. Defaults
// model a healthy node with a well-funded account.
type mockGateway struct {
	AccountBalanceFn      func(ctx context.Context, address string) (uint64, error)
	SuggestedParamsFn     func(ctx context.Context) (*chain.SuggestedParams, error)
	SubmitFn              func(ctx context.Context, signedTx []byte) (string, error)
	WaitForConfirmationFn func(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error)

	submitCalls  int
	waitCalls    int
	balanceCalls int
}

func (m *mockGateway) AccountBalance(ctx context.Context, address string) (uint64, error) {
	m.balanceCalls++
	if m.AccountBalanceFn != nil {
		return m.AccountBalanceFn(ctx, address)
	}
	return 100000000, nil
}

func (m *mockGateway) SuggestedParams(ctx context.Context) (*chain.SuggestedParams, error) {
	if m.SuggestedParamsFn != nil {
		return m.SuggestedParamsFn(ctx)
	}
	return &chain.SuggestedParams{
		Fee:         1000,
		FirstRound:  41500000,
		LastRound:   41501000,
		GenesisID:   "mainnet-v1.0",
		GenesisHash: "wGHE2Pwdvd7S12BL5FaOP20EGYesN73ktiC1qzkkit8=",
	}, nil
}

func (m *mockGateway) Submit(ctx context.Context, signedTx []byte) (string, error) {
	m.submitCalls++
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, signedTx)
	}
	return "MOCKTX", nil
}

func (m *mockGateway) WaitForConfirmation(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error) {
	m.waitCalls++
	if m.WaitForConfirmationFn != nil {
		return m.WaitForConfirmationFn(ctx, txID, timeout)
	}
	return &chain.Confirmation{TxID: txID, Round: 41500100}, nil
}

var errNodeDown = errors.New("connection refused")
