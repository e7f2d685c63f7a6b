package models

import "time"

// StakeStatus represents the lifecycle state of an investment position.
type StakeStatus string

const (
	StakeStatusActive    StakeStatus = "active"
	StakeStatusWithdrawn StakeStatus = "withdrawn"
)

// Investment represents one funded position in one DeFi protocol.
// Positions are never physically deleted; a completed withdrawal
// soft-closes the row via StakeStatus.
type Investment struct {
	Base
	WalletAddress          string      `gorm:"size:58;not null;index" json:"wallet_address"`
	ProtocolName           string      `gorm:"size:32;not null" json:"protocol_name"`
	StakedAmount           int64       `gorm:"type:bigint;not null" json:"staked_amount"`
	CurrentValue           int64       `gorm:"type:bigint;not null" json:"current_value"`
	StakeStatus            StakeStatus `gorm:"size:16;not null;default:'active'" json:"stake_status"`
	StakeDate              time.Time   `gorm:"not null" json:"stake_date"`
	WithdrawalDelaySeconds int64       `gorm:"type:bigint;not null" json:"withdrawal_delay_seconds"`
	WithdrawalDate         *time.Time  `json:"withdrawal_date,omitempty"`
	WithdrawalTxID         *string     `gorm:"size:64" json:"withdrawal_tx_id,omitempty"`
}

// UnlockAt returns the instant at which the position's time lock expires.
func (i *Investment) UnlockAt() time.Time {
	return i.StakeDate.Add(time.Duration(i.WithdrawalDelaySeconds) * time.Second)
}

// WithdrawalAvailable reports whether the time lock has elapsed at the given instant.
func (i *Investment) WithdrawalAvailable(now time.Time) bool {
	return !now.Before(i.UnlockAt())
}
