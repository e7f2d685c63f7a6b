package testutil

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"algoswarm/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// TestWallet returns a unique, well-formed 58-character Algorand-style
// address for fixtures.
func TestWallet(t *testing.T) string {
	t.Helper()

	n := nextID()
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteByte(base32Alphabet[n%32])
		n /= 32
	}
	suffix := sb.String()
	return strings.Repeat("A", 58-len(suffix)) + suffix
}

// CreateTestInvestment creates an active investment staked now with a
// one-day withdrawal delay.
func CreateTestInvestment(t *testing.T, db *gorm.DB, wallet string, amount int64) *models.Investment {
	t.Helper()
	return CreateTestInvestmentAt(t, db, wallet, amount, time.Now(), 86400)
}

// CreateTestInvestmentAt creates an active investment with the given stake
// date and withdrawal delay.
func CreateTestInvestmentAt(t *testing.T, db *gorm.DB, wallet string, amount int64, stakeDate time.Time, delaySeconds int64) *models.Investment {
	t.Helper()

	investment := &models.Investment{
		WalletAddress:          wallet,
		ProtocolName:           "tinyman",
		StakedAmount:           amount,
		CurrentValue:           amount,
		StakeStatus:            models.StakeStatusActive,
		StakeDate:              stakeDate,
		WithdrawalDelaySeconds: delaySeconds,
	}
	if err := db.Create(investment).Error; err != nil {
		t.Fatalf("failed to create test investment: %v", err)
	}
	return investment
}

// CreateTestPendingRecord creates a pending transaction record for the
// given tx id.
func CreateTestPendingRecord(t *testing.T, db *gorm.DB, wallet, txID string, amount int64) *models.TransactionRecord {
	t.Helper()

	record := &models.TransactionRecord{
		WalletAddress: wallet,
		Type:          models.RecordTypeProtocolDeposit,
		Amount:        amount,
		AlgorandTxID:  txID,
		Status:        models.RecordStatusPending,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}
