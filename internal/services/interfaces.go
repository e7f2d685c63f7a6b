package services

import (
	"context"
	"time"

	"algoswarm/internal/chain"
	"algoswarm/internal/models"
	"algoswarm/internal/pagination"
)

// TxKind distinguishes deposit from withdrawal flows.
type TxKind string

const (
	KindDeposit  TxKind = "deposit"
	KindWithdraw TxKind = "withdraw"
)

// RecordType returns the ledger record type for this kind of transaction.
func (k TxKind) RecordType() models.RecordType {
	if k == KindWithdraw {
		return models.RecordTypeProtocolWithdrawal
	}
	return models.RecordTypeProtocolDeposit
}

// ChainGateway is the subset of the node client the services depend on.
type ChainGateway interface {
	AccountBalance(ctx context.Context, address string) (uint64, error)
	SuggestedParams(ctx context.Context) (*chain.SuggestedParams, error)
	Submit(ctx context.Context, signedTx []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txID string, timeout time.Duration) (*chain.Confirmation, error)
}

// ConfigUpdate carries the mutable fields of a protocol configuration for
// the administrative update path.
type ConfigUpdate struct {
	Fee                    *int64
	MinBalanceReserve      *int64
	MinDeposit             *int64
	MaxDeposit             *int64
	WithdrawalDelaySeconds *int64
	RiskTier               *string
}

// RegistryServicer defines the contract for protocol configuration lookups.
type RegistryServicer interface {
	GetConfig(protocolName string) (*models.ProtocolConfig, error)
	ListConfigs() ([]models.ProtocolConfig, error)
	UpdateConfig(protocolName string, update ConfigUpdate) (*models.ProtocolConfig, error)
	Seed() error
}

// ValidationResult is the outcome of a pre-flight transaction check.
type ValidationResult struct {
	Valid           bool   `json:"valid"`
	Reason          string `json:"reason,omitempty"`
	CurrentBalance  int64  `json:"current_balance,omitempty"`
	RequiredBalance int64  `json:"required_balance,omitempty"`
}

// ValidatorServicer defines the contract for pre-flight transaction checks.
// Validate is pure with respect to local state and must be re-run
// immediately before submission ("late validation"), since the on-chain
// balance may have changed since the caller last queried it.
type ValidatorServicer interface {
	Validate(ctx context.Context, protocolName, walletAddress string, amount int64, kind TxKind) (*ValidationResult, error)
}

// UnsignedTransaction is an opaque unsigned-transaction payload plus the
// metadata a wallet needs to present it for signing.
type UnsignedTransaction struct {
	Payload     string `json:"unsigned_transaction"` // base64
	Protocol    string `json:"protocol"`
	Method      string `json:"method"`
	AppID       uint64 `json:"app_id"`
	GrossAmount int64  `json:"gross_amount"`
	NetAmount   int64  `json:"net_amount"`
	FeeEstimate int64  `json:"fee_estimate"`
}

// BuilderServicer defines the contract for protocol-specific
// unsigned-transaction construction. Builders never sign or submit.
type BuilderServicer interface {
	BuildDeposit(ctx context.Context, protocolName, walletAddress string, amount int64) (*UnsignedTransaction, error)
	BuildWithdraw(ctx context.Context, protocolName, walletAddress string, amount int64) (*UnsignedTransaction, error)
}

// LedgerServicer owns Investment and TransactionRecord persistence.
type LedgerServicer interface {
	CreatePendingRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, metadata map[string]interface{}) (*models.TransactionRecord, error)
	CreateFailedRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, metadata map[string]interface{}) (*models.TransactionRecord, error)
	CreateConfirmedRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, round uint64, metadata map[string]interface{}) (*models.TransactionRecord, error)
	ConfirmRecord(txID string, round uint64) (*models.TransactionRecord, error)
	FailRecord(txID, reason string) (*models.TransactionRecord, error)
	GetRecordByTxID(txID string) (*models.TransactionRecord, error)
	ListRecords(walletAddress string, page pagination.PageRequest) (*pagination.PageResponse[models.TransactionRecord], error)

	CreateInvestment(walletAddress, protocolName string, amount, delaySeconds int64, txID string) (*models.Investment, error)
	GetInvestment(walletAddress, investmentID string) (*models.Investment, error)
	ListActiveInvestments(walletAddress string) ([]models.Investment, error)
	AccrueValue(investmentID string, currentValue int64) error
	CloseInvestment(investmentID, txID string, withdrawnAt time.Time) error

	CreateManualRecoveryRequest(investmentID, walletAddress, protocolName string, amount int64, reason string) (*models.ManualRecoveryRequest, error)
}

// LifecycleStatus is the caller-visible outcome of an orchestrated
// transaction or one of its stages.
type LifecycleStatus string

const (
	StatusSubmitted           LifecycleStatus = "submitted"
	StatusConfirmed           LifecycleStatus = "confirmed"
	StatusPendingConfirmation LifecycleStatus = "pending_confirmation"
	StatusFailed              LifecycleStatus = "failed"
)

// LifecycleResult is the outcome of an orchestrated transaction.
type LifecycleResult struct {
	Status         LifecycleStatus           `json:"status"`
	TxID           string                    `json:"transaction_id,omitempty"`
	Confirmed      bool                      `json:"confirmed"`
	ConfirmedRound uint64                    `json:"confirmation_round,omitempty"`
	Record         *models.TransactionRecord `json:"record,omitempty"`
	Investment     *models.Investment        `json:"investment,omitempty"`
}

// CompleteOptions carries the optional parameters of a Complete call.
type CompleteOptions struct {
	// InvestmentID ties a withdrawal to the position it closes.
	InvestmentID string
	// ConfirmationTimeout overrides the default wait; zero uses the
	// kind-specific default.
	ConfirmationTimeout time.Duration
	// Metadata is merged into the transaction record's metadata.
	Metadata map[string]interface{}
}

// LifecycleServicer drives the transaction state machine:
// Created -> Validated -> Submitted -> Confirmed | Failed | PendingConfirmation.
type LifecycleServicer interface {
	// Submit broadcasts a signed transaction without waiting for
	// confirmation. No ledger record is written on submission failure;
	// nothing was broadcast.
	Submit(ctx context.Context, signedTx []byte) (string, error)

	// Confirm waits for an already-submitted transaction. Calling it for a
	// tx id that is already confirmed is an idempotent no-op returning the
	// existing record.
	Confirm(ctx context.Context, txID string, timeout time.Duration) (*LifecycleResult, error)

	// Complete runs the full flow: late validation, submission, pending
	// record, confirmation wait, ledger update.
	Complete(ctx context.Context, protocolName, walletAddress string, amount int64, signedTx []byte, kind TxKind, opts CompleteOptions) (*LifecycleResult, error)
}

// InvestmentStatus is an investment decorated with its computed
// recoverability state.
type InvestmentStatus struct {
	models.Investment
	WithdrawalAvailable bool      `json:"withdrawal_available"`
	UnlockAt            time.Time `json:"unlock_at"`
}

// WithdrawalTicket is the result of preparing a standard withdrawal: the
// unsigned transaction for the wallet to sign plus its validation state.
type WithdrawalTicket struct {
	Investment *models.Investment   `json:"investment"`
	Unsigned   *UnsignedTransaction `json:"transaction"`
	Validation *ValidationResult    `json:"validation"`
	Amount     int64                `json:"amount"`
}

// RecoveryAttempt describes one method tried during emergency recovery.
type RecoveryAttempt struct {
	Method  string `json:"method"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecoveryReport is the outcome of an emergency recovery call.
type RecoveryReport struct {
	InvestmentID          string            `json:"investment_id"`
	Attempts              []RecoveryAttempt `json:"attempts"`
	ManualReviewRequested bool              `json:"manual_review_requested"`
	RequestID             string            `json:"manual_request_id,omitempty"`
	Ticket                *WithdrawalTicket `json:"ticket,omitempty"`
}

// RecoveryResult is the outcome of completing a recovery withdrawal.
type RecoveryResult struct {
	Status          string             `json:"status"`
	RecoveredAmount int64              `json:"recovered_amount,omitempty"`
	Investment      *models.Investment `json:"investment,omitempty"`
}

// RecoveryServicer computes withdrawal eligibility under time locks and
// drives the standard and emergency recovery paths.
type RecoveryServicer interface {
	ListInvestments(walletAddress string) ([]InvestmentStatus, error)
	StandardWithdraw(ctx context.Context, walletAddress, investmentID string) (*WithdrawalTicket, error)
	EmergencyRecovery(ctx context.Context, walletAddress, investmentID string, overrideTimeLock bool) (*RecoveryReport, error)
	CompleteRecovery(walletAddress, investmentID, txID string, confirmed bool, round uint64) (*RecoveryResult, error)
}
