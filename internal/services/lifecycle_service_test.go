package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"algoswarm/internal/chain"
	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
	"algoswarm/internal/testutil"
)

type lifecycleFixture struct {
	db        *gorm.DB
	gateway   *mockGateway
	ledger    LedgerServicer
	lifecycle LifecycleServicer
}

func newLifecycleFixture(t *testing.T, gateway *mockGateway) *lifecycleFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	registry := NewRegistryService(db)
	validator := NewValidatorService(registry, gateway)
	ledger := NewLedgerService(db)
	return &lifecycleFixture{
		db:        db,
		gateway:   gateway,
		ledger:    ledger,
		lifecycle: NewLifecycleService(registry, validator, ledger, gateway, time.Minute),
	}
}

func TestSubmitSigned(t *testing.T) {
	t.Run("returns the node's tx id", func(t *testing.T) {
		f := newLifecycleFixture(t, &mockGateway{})

		txID, err := f.lifecycle.Submit(context.Background(), []byte("signed"))
		testutil.AssertNoError(t, err)
		if txID != "MOCKTX" {
			t.Errorf("expected MOCKTX, got %s", txID)
		}
	})

	t.Run("no record on rejection", func(t *testing.T) {
		gateway := &mockGateway{
			SubmitFn: func(ctx context.Context, signedTx []byte) (string, error) {
				return "", errors.New("malformed transaction")
			},
		}
		f := newLifecycleFixture(t, gateway)

		_, err := f.lifecycle.Submit(context.Background(), []byte("bad"))
		testutil.AssertAppError(t, err, apperrors.ErrSubmissionFailed.Code)

		var count int64
		testutil.AssertNoError(t, f.db.Model(&models.TransactionRecord{}).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no records after submission failure, got %d", count)
		}
	})
}

func TestCompleteDeposit(t *testing.T) {
	wallet := testutil.TestWallet(t)

	t.Run("confirmed deposit opens an investment", func(t *testing.T) {
		f := newLifecycleFixture(t, &mockGateway{})

		result, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindDeposit, CompleteOptions{})
		testutil.AssertNoError(t, err)

		if result.Status != StatusConfirmed {
			t.Fatalf("expected confirmed, got %s", result.Status)
		}
		if result.ConfirmedRound != 41500100 {
			t.Errorf("expected round 41500100, got %d", result.ConfirmedRound)
		}
		if result.Record == nil || result.Record.Status != models.RecordStatusConfirmed {
			t.Fatal("expected a confirmed record")
		}
		if result.Investment == nil {
			t.Fatal("expected an investment")
		}
		if result.Investment.StakedAmount != 10000000 {
			t.Errorf("expected staked amount 10000000, got %d", result.Investment.StakedAmount)
		}
		// Delay comes from the protocol's configuration.
		if result.Investment.WithdrawalDelaySeconds != 86400 {
			t.Errorf("expected delay 86400, got %d", result.Investment.WithdrawalDelaySeconds)
		}
	})

	t.Run("validation failure writes no record", func(t *testing.T) {
		gateway := &mockGateway{
			AccountBalanceFn: func(ctx context.Context, address string) (uint64, error) {
				return 500000, nil
			},
		}
		f := newLifecycleFixture(t, gateway)

		_, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindDeposit, CompleteOptions{})
		testutil.AssertAppError(t, err, apperrors.ErrValidationFailed.Code)

		if f.gateway.submitCalls != 0 {
			t.Error("expected no broadcast after validation failure")
		}
		var count int64
		testutil.AssertNoError(t, f.db.Model(&models.TransactionRecord{}).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no records, got %d", count)
		}
	})

	t.Run("submission failure writes no record", func(t *testing.T) {
		gateway := &mockGateway{
			SubmitFn: func(ctx context.Context, signedTx []byte) (string, error) {
				return "", errors.New("overspend")
			},
		}
		f := newLifecycleFixture(t, gateway)

		_, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindDeposit, CompleteOptions{})
		testutil.AssertAppError(t, err, apperrors.ErrSubmissionFailed.Code)

		var count int64
		testutil.AssertNoError(t, f.db.Model(&models.TransactionRecord{}).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no records, got %d", count)
		}
	})

	t.Run("rejection after broadcast fails the record", func(t *testing.T) {
		gateway := &mockGateway{
			WaitForConfirmationFn: func(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error) {
				return nil, errors.New("transaction rejected: overspend")
			},
		}
		f := newLifecycleFixture(t, gateway)

		_, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindDeposit, CompleteOptions{})
		testutil.AssertAppError(t, err, apperrors.ErrSubmissionFailed.Code)

		record, err := f.ledger.GetRecordByTxID("MOCKTX")
		testutil.AssertNoError(t, err)
		if record.Status != models.RecordStatusFailed {
			t.Errorf("expected failed record, got %s", record.Status)
		}

		var count int64
		testutil.AssertNoError(t, f.db.Model(&models.Investment{}).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no investment after rejection, got %d", count)
		}
	})
}

// A confirmation timeout is not a failure: the record stays pending and a
// later Confirm call with the same tx id finishes the flow.
func TestCompleteTimeoutThenConfirm(t *testing.T) {
	wallet := testutil.TestWallet(t)
	gateway := &mockGateway{
		WaitForConfirmationFn: func(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error) {
			return nil, chain.ErrConfirmationTimeout
		},
	}
	f := newLifecycleFixture(t, gateway)

	result, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindDeposit, CompleteOptions{})
	testutil.AssertNoError(t, err)

	if result.Status != StatusPendingConfirmation {
		t.Fatalf("expected pending_confirmation, got %s", result.Status)
	}
	if result.Confirmed {
		t.Error("expected not confirmed")
	}

	record, err := f.ledger.GetRecordByTxID(result.TxID)
	testutil.AssertNoError(t, err)
	if record.Status != models.RecordStatusPending {
		t.Fatalf("expected pending record, got %s", record.Status)
	}

	// The node catches up; the caller polls with the same tx id.
	gateway.WaitForConfirmationFn = nil

	confirmed, err := f.lifecycle.Confirm(context.Background(), result.TxID, time.Minute)
	testutil.AssertNoError(t, err)
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.Investment == nil {
		t.Fatal("expected the deferred investment to be created")
	}
	if confirmed.Investment.WalletAddress != wallet {
		t.Errorf("expected investment for %s, got %s", wallet, confirmed.Investment.WalletAddress)
	}
}

func TestConfirm(t *testing.T) {
	t.Run("already confirmed is idempotent", func(t *testing.T) {
		f := newLifecycleFixture(t, &mockGateway{})
		wallet := testutil.TestWallet(t)

		_, err := f.ledger.CreateConfirmedRecord(wallet, models.RecordTypeProtocolDeposit, 10000000, "TXDONE", 41500050, nil)
		testutil.AssertNoError(t, err)

		result, err := f.lifecycle.Confirm(context.Background(), "TXDONE", time.Minute)
		testutil.AssertNoError(t, err)
		if result.Status != StatusConfirmed {
			t.Fatalf("expected confirmed, got %s", result.Status)
		}
		if result.ConfirmedRound != 41500050 {
			t.Errorf("expected stored round 41500050, got %d", result.ConfirmedRound)
		}
		if f.gateway.waitCalls != 0 {
			t.Error("expected no node poll for an already-confirmed record")
		}
	})

	t.Run("no record tolerated", func(t *testing.T) {
		f := newLifecycleFixture(t, &mockGateway{})

		result, err := f.lifecycle.Confirm(context.Background(), "TXOUTSIDE", time.Minute)
		testutil.AssertNoError(t, err)
		if result.Status != StatusConfirmed {
			t.Fatalf("expected confirmed, got %s", result.Status)
		}
		if result.Record != nil {
			t.Error("expected no record for an out-of-band transaction")
		}
	})

	t.Run("timeout stays pending", func(t *testing.T) {
		gateway := &mockGateway{
			WaitForConfirmationFn: func(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error) {
				return nil, chain.ErrConfirmationTimeout
			},
		}
		f := newLifecycleFixture(t, gateway)
		wallet := testutil.TestWallet(t)
		testutil.CreateTestPendingRecord(t, f.db, wallet, "TXSLOW", 1000000)

		result, err := f.lifecycle.Confirm(context.Background(), "TXSLOW", time.Minute)
		testutil.AssertNoError(t, err)
		if result.Status != StatusPendingConfirmation {
			t.Fatalf("expected pending_confirmation, got %s", result.Status)
		}

		record, err := f.ledger.GetRecordByTxID("TXSLOW")
		testutil.AssertNoError(t, err)
		if record.Status != models.RecordStatusPending {
			t.Errorf("expected record still pending, got %s", record.Status)
		}
	})
}

func TestCompleteWithdrawClosesInvestment(t *testing.T) {
	f := newLifecycleFixture(t, &mockGateway{})
	wallet := testutil.TestWallet(t)
	investment := testutil.CreateTestInvestmentAt(t, f.db, wallet, 10000000, time.Now().Add(-48*time.Hour), 86400)

	result, err := f.lifecycle.Complete(context.Background(), "tinyman", wallet, 10000000, []byte("signed"), KindWithdraw,
		CompleteOptions{InvestmentID: investment.ID})
	testutil.AssertNoError(t, err)

	if result.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", result.Status)
	}
	if result.Record.Type != models.RecordTypeProtocolWithdrawal {
		t.Errorf("expected protocol_withdrawal record, got %s", result.Record.Type)
	}
	if result.Investment == nil || result.Investment.StakeStatus != models.StakeStatusWithdrawn {
		t.Fatal("expected the investment to be closed")
	}
}
