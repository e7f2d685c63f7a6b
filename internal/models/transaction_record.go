package models

import "gorm.io/datatypes"

// RecordType represents the kind of on-chain action a record tracks.
type RecordType string

const (
	RecordTypeProtocolDeposit    RecordType = "protocol_deposit"
	RecordTypeProtocolWithdrawal RecordType = "protocol_withdrawal"
	RecordTypeStake              RecordType = "stake"
	RecordTypeWithdraw           RecordType = "withdraw"
	RecordTypeProfit             RecordType = "profit"
)

// RecordStatus represents the confirmation state of a transaction record.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusConfirmed RecordStatus = "confirmed"
	RecordStatusFailed    RecordStatus = "failed"
)

// TransactionRecord is an append-only audit log entry for every on-chain
// action attempted. Records are never deleted. Once Status is confirmed,
// AlgorandTxID and ConfirmedRound are immutable.
type TransactionRecord struct {
	Base
	WalletAddress  string         `gorm:"size:58;not null;index" json:"wallet_address"`
	Type           RecordType     `gorm:"size:32;not null" json:"transaction_type"`
	Amount         int64          `gorm:"type:bigint;not null" json:"amount"`
	AlgorandTxID   string         `gorm:"size:64;index" json:"algorand_tx_id,omitempty"`
	Status         RecordStatus   `gorm:"size:16;not null;default:'pending'" json:"status"`
	ConfirmedRound uint64         `gorm:"type:bigint" json:"confirmed_round,omitempty"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
}
