package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
	"algoswarm/internal/pagination"
	"algoswarm/internal/testutil"
)

func TestRecordTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	ledger := NewLedgerService(db)
	wallet := testutil.TestWallet(t)

	t.Run("pending to confirmed", func(t *testing.T) {
		_, err := ledger.CreatePendingRecord(wallet, models.RecordTypeProtocolDeposit, 10000000, "TXCONFIRM", map[string]interface{}{"protocol": "tinyman"})
		testutil.AssertNoError(t, err)

		record, err := ledger.ConfirmRecord("TXCONFIRM", 41500100)
		testutil.AssertNoError(t, err)
		if record.Status != models.RecordStatusConfirmed {
			t.Errorf("expected confirmed, got %s", record.Status)
		}
		if record.ConfirmedRound != 41500100 {
			t.Errorf("expected round 41500100, got %d", record.ConfirmedRound)
		}
	})

	t.Run("confirming twice keeps the first round", func(t *testing.T) {
		record, err := ledger.ConfirmRecord("TXCONFIRM", 99999999)
		testutil.AssertNoError(t, err)
		if record.ConfirmedRound != 41500100 {
			t.Errorf("expected original round 41500100, got %d", record.ConfirmedRound)
		}
	})

	t.Run("confirmed records cannot be failed", func(t *testing.T) {
		record, err := ledger.FailRecord("TXCONFIRM", "late rejection")
		testutil.AssertNoError(t, err)
		if record.Status != models.RecordStatusConfirmed {
			t.Errorf("expected record to stay confirmed, got %s", record.Status)
		}
	})

	t.Run("pending to failed notes the reason", func(t *testing.T) {
		_, err := ledger.CreatePendingRecord(wallet, models.RecordTypeProtocolDeposit, 10000000, "TXFAIL", nil)
		testutil.AssertNoError(t, err)

		record, err := ledger.FailRecord("TXFAIL", "overspend")
		testutil.AssertNoError(t, err)
		if record.Status != models.RecordStatusFailed {
			t.Errorf("expected failed, got %s", record.Status)
		}

		var meta map[string]interface{}
		testutil.AssertNoError(t, json.Unmarshal(record.Metadata, &meta))
		if meta["failure_reason"] != "overspend" {
			t.Errorf("expected failure reason in metadata, got %v", meta)
		}
	})

	t.Run("unknown tx id", func(t *testing.T) {
		_, err := ledger.GetRecordByTxID("TXMISSING")
		testutil.AssertAppError(t, err, apperrors.ErrRecordNotFound.Code)
	})
}

func TestListRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	ledger := NewLedgerService(db)
	wallet := testutil.TestWallet(t)
	other := testutil.TestWallet(t)

	for i := 0; i < 5; i++ {
		testutil.CreateTestPendingRecord(t, db, wallet, fmt.Sprintf("TXLIST%d", i), 1000000)
	}
	testutil.CreateTestPendingRecord(t, db, other, "TXOTHER", 1000000)

	page, err := ledger.ListRecords(wallet, pagination.PageRequest{Page: 1, PageSize: 3})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 5 {
		t.Errorf("expected total 5, got %d", page.TotalItems)
	}
	if len(page.Data) != 3 {
		t.Errorf("expected 3 records on page 1, got %d", len(page.Data))
	}

	second, err := ledger.ListRecords(wallet, pagination.PageRequest{Page: 2, PageSize: 3})
	testutil.AssertNoError(t, err)
	if len(second.Data) != 2 {
		t.Errorf("expected 2 records on page 2, got %d", len(second.Data))
	}
}

func TestInvestmentLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	ledger := NewLedgerService(db)
	wallet := testutil.TestWallet(t)

	investment, err := ledger.CreateInvestment(wallet, "tinyman", 10000000, 86400, "TXDEP")
	testutil.AssertNoError(t, err)
	if investment.CurrentValue != 10000000 {
		t.Errorf("expected current value to start at stake, got %d", investment.CurrentValue)
	}
	if investment.StakeStatus != models.StakeStatusActive {
		t.Errorf("expected active, got %s", investment.StakeStatus)
	}

	t.Run("accrue value", func(t *testing.T) {
		testutil.AssertNoError(t, ledger.AccrueValue(investment.ID, 10500000))

		got, err := ledger.GetInvestment(wallet, investment.ID)
		testutil.AssertNoError(t, err)
		if got.CurrentValue != 10500000 {
			t.Errorf("expected accrued value 10500000, got %d", got.CurrentValue)
		}
	})

	t.Run("accrue rejects negative value", func(t *testing.T) {
		err := ledger.AccrueValue(investment.ID, -1)
		testutil.AssertAppError(t, err, apperrors.ErrInvalidInput.Code)
	})

	t.Run("list active scoped to wallet", func(t *testing.T) {
		investments, err := ledger.ListActiveInvestments(wallet)
		testutil.AssertNoError(t, err)
		if len(investments) != 1 {
			t.Fatalf("expected 1 active investment, got %d", len(investments))
		}

		none, err := ledger.ListActiveInvestments(testutil.TestWallet(t))
		testutil.AssertNoError(t, err)
		if len(none) != 0 {
			t.Errorf("expected no investments for another wallet, got %d", len(none))
		}
	})

	t.Run("close is a compare-and-swap", func(t *testing.T) {
		testutil.AssertNoError(t, ledger.CloseInvestment(investment.ID, "TXWD", time.Now()))

		// The second close observes zero affected rows and must not
		// double-debit the position.
		err := ledger.CloseInvestment(investment.ID, "TXWD2", time.Now())
		testutil.AssertAppError(t, err, apperrors.ErrInvestmentWithdrawn.Code)

		closed, err := ledger.GetInvestment(wallet, investment.ID)
		testutil.AssertNoError(t, err)
		if closed.WithdrawalTxID == nil || *closed.WithdrawalTxID != "TXWD" {
			t.Errorf("expected withdrawal tx TXWD, got %v", closed.WithdrawalTxID)
		}
	})

	t.Run("close unknown investment", func(t *testing.T) {
		err := ledger.CloseInvestment("00000000-0000-0000-0000-000000000000", "TX", time.Now())
		testutil.AssertAppError(t, err, apperrors.ErrInvestmentNotFound.Code)
	})

	t.Run("get scoped to wallet", func(t *testing.T) {
		_, err := ledger.GetInvestment(testutil.TestWallet(t), investment.ID)
		testutil.AssertAppError(t, err, apperrors.ErrInvestmentNotFound.Code)
	})
}

func TestCreateManualRecoveryRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	ledger := NewLedgerService(db)
	wallet := testutil.TestWallet(t)
	investment := testutil.CreateTestInvestment(t, db, wallet, 10000000)

	request, err := ledger.CreateManualRecoveryRequest(investment.ID, wallet, "tinyman", 10000000, "node unreachable")
	testutil.AssertNoError(t, err)
	if request.Status != models.RecoveryRequestPending {
		t.Errorf("expected pending, got %s", request.Status)
	}
	if request.Reason != "node unreachable" {
		t.Errorf("expected reason recorded, got %q", request.Reason)
	}
}
