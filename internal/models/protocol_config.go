package models

// ProtocolConfig holds per-protocol identifiers and limits. Rows are seeded
// from the built-in protocol table and only change through the explicit
// administrative update path.
type ProtocolConfig struct {
	Base
	ProtocolName           string `gorm:"size:32;not null;uniqueIndex" json:"protocol_name"`
	AppID                  uint64 `gorm:"type:bigint;not null" json:"app_id"`
	DepositMethod          string `gorm:"size:32;not null" json:"deposit_method"`
	WithdrawMethod         string `gorm:"size:32;not null" json:"withdraw_method"`
	Fee                    int64  `gorm:"type:bigint;not null" json:"fee"`
	MinBalanceReserve      int64  `gorm:"type:bigint;not null" json:"min_balance_reserve"`
	MinDeposit             int64  `gorm:"type:bigint;not null" json:"min_deposit"`
	MaxDeposit             int64  `gorm:"type:bigint;not null" json:"max_deposit"`
	WithdrawalDelaySeconds int64  `gorm:"type:bigint;not null" json:"withdrawal_delay_seconds"`
	RiskTier               string `gorm:"size:16;not null" json:"risk_tier"`
}
