package services

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
	"algoswarm/internal/pagination"
)

// ledgerService is the sole owner of Investment and TransactionRecord
// persistence. Records are append-only: rows move from pending to
// confirmed/failed but are never deleted, and a confirmed row's tx id and
// round are never rewritten.
type ledgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db}
}

func marshalMetadata(metadata map[string]interface{}) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return datatypes.JSON(raw), nil
}

func (s *ledgerService) createRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, status models.RecordStatus, round uint64, metadata map[string]interface{}) (*models.TransactionRecord, error) {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return nil, err
	}

	record := &models.TransactionRecord{
		WalletAddress:  walletAddress,
		Type:           recordType,
		Amount:         amount,
		AlgorandTxID:   txID,
		Status:         status,
		ConfirmedRound: round,
		Metadata:       meta,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return record, nil
}

// CreatePendingRecord writes the audit row for a just-broadcast
// transaction. This happens before confirmation is awaited so a crash
// mid-flow still leaves a recoverable pending record.
func (s *ledgerService) CreatePendingRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, metadata map[string]interface{}) (*models.TransactionRecord, error) {
	return s.createRecord(walletAddress, recordType, amount, txID, models.RecordStatusPending, 0, metadata)
}

// CreateFailedRecord writes a failed audit row directly.
func (s *ledgerService) CreateFailedRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, metadata map[string]interface{}) (*models.TransactionRecord, error) {
	return s.createRecord(walletAddress, recordType, amount, txID, models.RecordStatusFailed, 0, metadata)
}

// CreateConfirmedRecord writes a confirmed audit row directly, for flows
// where confirmation was observed out-of-band.
func (s *ledgerService) CreateConfirmedRecord(walletAddress string, recordType models.RecordType, amount int64, txID string, round uint64, metadata map[string]interface{}) (*models.TransactionRecord, error) {
	return s.createRecord(walletAddress, recordType, amount, txID, models.RecordStatusConfirmed, round, metadata)
}

// ConfirmRecord transitions a pending record to confirmed. Confirming an
// already-confirmed record is a no-op that returns the existing row; the
// stored round is never overwritten.
func (s *ledgerService) ConfirmRecord(txID string, round uint64) (*models.TransactionRecord, error) {
	record, err := s.GetRecordByTxID(txID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.RecordStatusConfirmed {
		return record, nil
	}

	updates := map[string]interface{}{
		"status":          models.RecordStatusConfirmed,
		"confirmed_round": round,
	}
	if err := s.db.Model(record).Where("status <> ?", models.RecordStatusConfirmed).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	record.Status = models.RecordStatusConfirmed
	record.ConfirmedRound = round
	return record, nil
}

// FailRecord marks a pending record as failed and notes the reason.
// Confirmed records are immutable and are returned unchanged.
func (s *ledgerService) FailRecord(txID, reason string) (*models.TransactionRecord, error) {
	record, err := s.GetRecordByTxID(txID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.RecordStatusConfirmed {
		return record, nil
	}

	meta := map[string]interface{}{}
	if len(record.Metadata) > 0 {
		_ = json.Unmarshal(record.Metadata, &meta)
	}
	meta["failure_reason"] = reason
	encoded, metaErr := marshalMetadata(meta)
	if metaErr != nil {
		return nil, metaErr
	}

	updates := map[string]interface{}{
		"status":   models.RecordStatusFailed,
		"metadata": encoded,
	}
	if err := s.db.Model(record).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	record.Status = models.RecordStatusFailed
	record.Metadata = encoded
	return record, nil
}

// GetRecordByTxID fetches the audit row for an on-chain transaction id.
func (s *ledgerService) GetRecordByTxID(txID string) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	if err := s.db.Where("algorand_tx_id = ?", txID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// ListRecords returns a wallet's transaction history, newest first.
func (s *ledgerService) ListRecords(walletAddress string, page pagination.PageRequest) (*pagination.PageResponse[models.TransactionRecord], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.TransactionRecord{}).Where("wallet_address = ?", walletAddress).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var records []models.TransactionRecord
	if err := s.db.Where("wallet_address = ?", walletAddress).
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(records, page.Page, page.PageSize, total)
	return &resp, nil
}

// CreateInvestment opens a new active position after a confirmed deposit.
func (s *ledgerService) CreateInvestment(walletAddress, protocolName string, amount, delaySeconds int64, txID string) (*models.Investment, error) {
	investment := &models.Investment{
		WalletAddress:          walletAddress,
		ProtocolName:           protocolName,
		StakedAmount:           amount,
		CurrentValue:           amount,
		StakeStatus:            models.StakeStatusActive,
		StakeDate:              time.Now(),
		WithdrawalDelaySeconds: delaySeconds,
	}
	if err := s.db.Create(investment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return investment, nil
}

// GetInvestment fetches one of the wallet's positions.
func (s *ledgerService) GetInvestment(walletAddress, investmentID string) (*models.Investment, error) {
	var investment models.Investment
	err := s.db.Where("id = ? AND wallet_address = ?", investmentID, walletAddress).First(&investment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investment, nil
}

// ListActiveInvestments returns the wallet's open positions, oldest first.
func (s *ledgerService) ListActiveInvestments(walletAddress string) ([]models.Investment, error) {
	var investments []models.Investment
	err := s.db.Where("wallet_address = ? AND stake_status = ?", walletAddress, models.StakeStatusActive).
		Order("stake_date ASC").
		Find(&investments).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return investments, nil
}

// AccrueValue updates a position's current value from reward accrual.
func (s *ledgerService) AccrueValue(investmentID string, currentValue int64) error {
	if currentValue < 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "current value cannot be negative")
	}
	result := s.db.Model(&models.Investment{}).
		Where("id = ? AND stake_status = ?", investmentID, models.StakeStatusActive).
		Update("current_value", currentValue)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrInvestmentNotFound
	}
	return nil
}

// CloseInvestment soft-closes a position after a confirmed withdrawal. The
// transition is a compare-and-swap on stake_status so two concurrent
// withdrawal attempts cannot both debit the position: the loser observes
// zero affected rows.
func (s *ledgerService) CloseInvestment(investmentID, txID string, withdrawnAt time.Time) error {
	result := s.db.Model(&models.Investment{}).
		Where("id = ? AND stake_status = ?", investmentID, models.StakeStatusActive).
		Updates(map[string]interface{}{
			"stake_status":     models.StakeStatusWithdrawn,
			"withdrawal_date":  withdrawnAt,
			"withdrawal_tx_id": txID,
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		var investment models.Investment
		if err := s.db.Where("id = ?", investmentID).First(&investment).Error; err != nil {
			return apperrors.ErrInvestmentNotFound
		}
		return apperrors.ErrInvestmentWithdrawn
	}
	return nil
}

// CreateManualRecoveryRequest files an escalation for operator review.
func (s *ledgerService) CreateManualRecoveryRequest(investmentID, walletAddress, protocolName string, amount int64, reason string) (*models.ManualRecoveryRequest, error) {
	request := &models.ManualRecoveryRequest{
		InvestmentID:  investmentID,
		WalletAddress: walletAddress,
		ProtocolName:  protocolName,
		Amount:        amount,
		Status:        models.RecoveryRequestPending,
		Reason:        reason,
	}
	if err := s.db.Create(request).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return request, nil
}
