package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"algoswarm/internal/chain"
	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/logger"
	"algoswarm/internal/models"
)

// lifecycleService drives a transaction through
// Created -> Validated -> Submitted -> Confirmed | Failed | PendingConfirmation.
//
// Ordering invariant: the pending ledger record for a broadcast transaction
// is written before confirmation is awaited, so a crash between submission
// and confirmation leaves an auditable pending row rather than an orphaned
// signed transaction. Once the chain has confirmed, ledger write failures
// are logged for reconciliation but never surfaced as request failures: the
// on-chain state is authoritative over the local record.
type lifecycleService struct {
	registry    RegistryServicer
	validator   ValidatorServicer
	ledger      LedgerServicer
	gateway     ChainGateway
	defaultWait time.Duration
}

// NewLifecycleService creates a new LifecycleServicer. defaultWait bounds
// confirmation waits when the caller does not override it.
func NewLifecycleService(registry RegistryServicer, validator ValidatorServicer, ledger LedgerServicer, gateway ChainGateway, defaultWait time.Duration) LifecycleServicer {
	if defaultWait <= 0 {
		defaultWait = 60 * time.Second
	}
	return &lifecycleService{
		registry:    registry,
		validator:   validator,
		ledger:      ledger,
		gateway:     gateway,
		defaultWait: defaultWait,
	}
}

// Submit broadcasts a signed transaction. A submission error means nothing
// was broadcast, so no ledger record is written and the gateway error is
// surfaced verbatim. Retrying a broadcast is unsafe without a fresh
// validity window, so there is no retry here.
func (s *lifecycleService) Submit(ctx context.Context, signedTx []byte) (string, error) {
	txID, err := s.gateway.Submit(ctx, signedTx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.WithMessage(apperrors.ErrSubmissionFailed, err.Error()), err)
	}
	return txID, nil
}

// Complete runs the full orchestration for one signed transaction.
func (s *lifecycleService) Complete(ctx context.Context, protocolName, walletAddress string, amount int64, signedTx []byte, kind TxKind, opts CompleteOptions) (*LifecycleResult, error) {
	// Created -> Validated. Late validation runs immediately before
	// submission; the balance may have moved since the caller's first
	// check. A pure validation failure writes no record.
	validation, err := s.validator.Validate(ctx, protocolName, walletAddress, amount, kind)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, validation.Reason)
	}

	// Validated -> Submitted.
	txID, err := s.Submit(ctx, signedTx)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{"protocol": protocolName}
	if opts.InvestmentID != "" {
		metadata["investment_id"] = opts.InvestmentID
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	// Pending record before the confirmation wait. The transaction is
	// already on the wire, so a write failure here is logged for
	// reconciliation instead of failing the request.
	record, recErr := s.ledger.CreatePendingRecord(walletAddress, kind.RecordType(), amount, txID, metadata)
	if recErr != nil {
		logger.Get().Errorw("pending record write failed after broadcast; reconciliation needed",
			"tx_id", txID,
			"wallet", walletAddress,
			"error", recErr.Error(),
		)
	}

	timeout := opts.ConfirmationTimeout
	if timeout <= 0 {
		timeout = s.defaultWait
	}

	// Submitted -> Confirmed | PendingConfirmation | Failed.
	confirmation, err := s.gateway.WaitForConfirmation(ctx, txID, timeout)
	if err != nil {
		if errors.Is(err, chain.ErrConfirmationTimeout) {
			// Deliberate non-failure: the transaction may still confirm.
			// The record stays pending and the caller polls with the same id.
			return &LifecycleResult{
				Status: StatusPendingConfirmation,
				TxID:   txID,
				Record: record,
			}, nil
		}
		if record != nil {
			if _, failErr := s.ledger.FailRecord(txID, err.Error()); failErr != nil {
				logger.Get().Warnw("failed to mark record failed", "tx_id", txID, "error", failErr.Error())
			}
		}
		return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrSubmissionFailed, err.Error()), err)
	}

	return s.finalize(walletAddress, protocolName, amount, kind, opts.InvestmentID, txID, confirmation.Round, metadata), nil
}

// Confirm waits for an already-submitted transaction and applies the
// ledger effects on success. Confirming an already-confirmed tx id is an
// idempotent no-op returning the existing record.
func (s *lifecycleService) Confirm(ctx context.Context, txID string, timeout time.Duration) (*LifecycleResult, error) {
	record, err := s.ledger.GetRecordByTxID(txID)
	if err != nil && !errors.Is(err, apperrors.ErrRecordNotFound) {
		return nil, err
	}

	if record != nil && record.Status == models.RecordStatusConfirmed {
		return &LifecycleResult{
			Status:         StatusConfirmed,
			TxID:           txID,
			Confirmed:      true,
			ConfirmedRound: record.ConfirmedRound,
			Record:         record,
		}, nil
	}

	if timeout <= 0 {
		timeout = s.defaultWait
	}
	confirmation, err := s.gateway.WaitForConfirmation(ctx, txID, timeout)
	if err != nil {
		if errors.Is(err, chain.ErrConfirmationTimeout) {
			return &LifecycleResult{
				Status: StatusPendingConfirmation,
				TxID:   txID,
				Record: record,
			}, nil
		}
		if record != nil {
			if _, failErr := s.ledger.FailRecord(txID, err.Error()); failErr != nil {
				logger.Get().Warnw("failed to mark record failed", "tx_id", txID, "error", failErr.Error())
			}
		}
		return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrSubmissionFailed, err.Error()), err)
	}

	if record == nil {
		// Submitted outside the orchestrated flow; nothing to update.
		logger.Get().Infow("confirmed transaction with no ledger record", "tx_id", txID, "round", confirmation.Round)
		return &LifecycleResult{
			Status:         StatusConfirmed,
			TxID:           txID,
			Confirmed:      true,
			ConfirmedRound: confirmation.Round,
		}, nil
	}

	var meta map[string]interface{}
	if len(record.Metadata) > 0 {
		_ = json.Unmarshal(record.Metadata, &meta)
	}
	protocolName, _ := meta["protocol"].(string)
	investmentID, _ := meta["investment_id"].(string)

	kind := KindDeposit
	if record.Type == models.RecordTypeProtocolWithdrawal || record.Type == models.RecordTypeWithdraw {
		kind = KindWithdraw
	}
	return s.finalize(record.WalletAddress, protocolName, record.Amount, kind, investmentID, txID, confirmation.Round, meta), nil
}

// finalize applies the post-confirmation ledger effects. Errors here are
// logged and reported for out-of-band reconciliation; they never revert
// the confirmed on-chain state.
func (s *lifecycleService) finalize(walletAddress, protocolName string, amount int64, kind TxKind, investmentID, txID string, round uint64, metadata map[string]interface{}) *LifecycleResult {
	log := logger.Get()

	record, err := s.ledger.ConfirmRecord(txID, round)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			record, err = s.ledger.CreateConfirmedRecord(walletAddress, kind.RecordType(), amount, txID, round, metadata)
		}
		if err != nil {
			log.Warnw("ledger record update failed after confirmation; reconciliation needed",
				"tx_id", txID, "round", round, "error", err.Error())
			record = nil
		}
	}

	result := &LifecycleResult{
		Status:         StatusConfirmed,
		TxID:           txID,
		Confirmed:      true,
		ConfirmedRound: round,
		Record:         record,
	}

	switch kind {
	case KindDeposit:
		if protocolName == "" {
			log.Warnw("confirmed deposit without protocol metadata; investment not created", "tx_id", txID)
			return result
		}
		cfg, cfgErr := s.registry.GetConfig(protocolName)
		if cfgErr != nil {
			log.Warnw("protocol lookup failed after confirmation; investment not created",
				"tx_id", txID, "protocol", protocolName, "error", cfgErr.Error())
			return result
		}
		investment, invErr := s.ledger.CreateInvestment(walletAddress, protocolName, amount, cfg.WithdrawalDelaySeconds, txID)
		if invErr != nil {
			log.Warnw("investment create failed after confirmed deposit; reconciliation needed",
				"tx_id", txID, "wallet", walletAddress, "error", invErr.Error())
			return result
		}
		result.Investment = investment

	case KindWithdraw:
		if investmentID == "" {
			return result
		}
		if closeErr := s.ledger.CloseInvestment(investmentID, txID, time.Now()); closeErr != nil {
			if errors.Is(closeErr, apperrors.ErrInvestmentWithdrawn) {
				log.Infow("investment already closed", "investment_id", investmentID, "tx_id", txID)
			} else {
				log.Warnw("investment close failed after confirmed withdrawal; reconciliation needed",
					"investment_id", investmentID, "tx_id", txID, "error", closeErr.Error())
			}
			return result
		}
		if investment, getErr := s.ledger.GetInvestment(walletAddress, investmentID); getErr == nil {
			result.Investment = investment
		}
	}

	return result
}
