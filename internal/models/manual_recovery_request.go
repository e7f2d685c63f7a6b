package models

// RecoveryRequestStatus represents the state of a manual recovery escalation.
type RecoveryRequestStatus string

const (
	RecoveryRequestPending  RecoveryRequestStatus = "pending"
	RecoveryRequestResolved RecoveryRequestStatus = "resolved"
)

// ManualRecoveryRequest is an escalation record created when the automated
// recovery path fails. Resolution happens out-of-band through an operator
// tool; this service only ever creates pending rows.
type ManualRecoveryRequest struct {
	Base
	InvestmentID  string                `gorm:"type:uuid;not null;index" json:"investment_id"`
	WalletAddress string                `gorm:"size:58;not null" json:"wallet_address"`
	ProtocolName  string                `gorm:"size:32;not null" json:"protocol_name"`
	Amount        int64                 `gorm:"type:bigint;not null" json:"amount"`
	Status        RecoveryRequestStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	Reason        string                `gorm:"size:500" json:"reason"`
}
