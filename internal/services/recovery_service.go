package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/logger"
	"algoswarm/internal/models"
)

// recoveryService computes withdrawal eligibility under time locks and
// drives the standard and emergency fund-recovery paths. The clock is
// injected so time-lock behavior is testable.
type recoveryService struct {
	ledger    LedgerServicer
	validator ValidatorServicer
	builder   BuilderServicer
	now       func() time.Time
}

// NewRecoveryService creates a new RecoveryServicer.
func NewRecoveryService(ledger LedgerServicer, validator ValidatorServicer, builder BuilderServicer, now func() time.Time) RecoveryServicer {
	if now == nil {
		now = time.Now
	}
	return &recoveryService{
		ledger:    ledger,
		validator: validator,
		builder:   builder,
		now:       now,
	}
}

// ListInvestments returns the wallet's active positions decorated with
// their computed recoverability state.
func (s *recoveryService) ListInvestments(walletAddress string) ([]InvestmentStatus, error) {
	investments, err := s.ledger.ListActiveInvestments(walletAddress)
	if err != nil {
		return nil, err
	}

	now := s.now()
	statuses := make([]InvestmentStatus, len(investments))
	for i, investment := range investments {
		statuses[i] = InvestmentStatus{
			Investment:          investment,
			WithdrawalAvailable: investment.WithdrawalAvailable(now),
			UnlockAt:            investment.UnlockAt(),
		}
	}
	return statuses, nil
}

func timeLockError(unlockAt time.Time) *apperrors.AppError {
	return apperrors.WithMessage(apperrors.ErrTimeLocked,
		fmt.Sprintf("Withdrawal is time-locked until %s", unlockAt.UTC().Format(time.RFC3339)))
}

// StandardWithdraw prepares a withdrawal of the position's current value
// (accrued value included, not the original stake). The caller signs the
// returned transaction externally and drives it through the transaction
// lifecycle. Rejects with the exact unlock timestamp while time-locked.
func (s *recoveryService) StandardWithdraw(ctx context.Context, walletAddress, investmentID string) (*WithdrawalTicket, error) {
	investment, err := s.ledger.GetInvestment(walletAddress, investmentID)
	if err != nil {
		return nil, err
	}
	if investment.StakeStatus != models.StakeStatusActive {
		return nil, apperrors.ErrInvestmentWithdrawn
	}
	if !investment.WithdrawalAvailable(s.now()) {
		return nil, timeLockError(investment.UnlockAt())
	}

	return s.standardWithdrawUnlocked(ctx, walletAddress, investment)
}

// EmergencyRecovery attempts the standard withdrawal path and, when that
// fails, files exactly one pending ManualRecoveryRequest. Total failure
// degrades to a recorded escalation; this path never loses the request.
func (s *recoveryService) EmergencyRecovery(ctx context.Context, walletAddress, investmentID string, overrideTimeLock bool) (*RecoveryReport, error) {
	investment, err := s.ledger.GetInvestment(walletAddress, investmentID)
	if err != nil {
		return nil, err
	}
	if investment.StakeStatus != models.StakeStatusActive {
		return nil, apperrors.ErrInvestmentWithdrawn
	}
	if !investment.WithdrawalAvailable(s.now()) && !overrideTimeLock {
		return nil, timeLockError(investment.UnlockAt())
	}

	report := &RecoveryReport{InvestmentID: investmentID}

	ticket, withdrawErr := s.standardWithdrawUnlocked(ctx, walletAddress, investment)
	if withdrawErr == nil {
		report.Attempts = append(report.Attempts, RecoveryAttempt{Method: "standard_withdrawal", Success: true})
		report.Ticket = ticket
		return report, nil
	}
	report.Attempts = append(report.Attempts, RecoveryAttempt{
		Method:  "standard_withdrawal",
		Success: false,
		Error:   withdrawErr.Error(),
	})

	request, reqErr := s.ledger.CreateManualRecoveryRequest(
		investmentID, walletAddress, investment.ProtocolName, investment.CurrentValue, withdrawErr.Error())
	if reqErr != nil {
		// Even filing the escalation failed. Log loudly and still report
		// the escalation attempt; the caller must not see a raw error.
		logger.Get().Errorw("manual recovery request write failed",
			"investment_id", investmentID,
			"wallet", walletAddress,
			"error", reqErr.Error(),
		)
		report.Attempts = append(report.Attempts, RecoveryAttempt{
			Method:  "manual_review_request",
			Success: false,
			Error:   reqErr.Error(),
		})
		report.ManualReviewRequested = false
		return report, nil
	}

	report.Attempts = append(report.Attempts, RecoveryAttempt{Method: "manual_review_request", Success: true})
	report.ManualReviewRequested = true
	report.RequestID = request.ID
	return report, nil
}

// standardWithdrawUnlocked runs the standard path with the time lock
// already settled by the caller (either elapsed or explicitly overridden).
func (s *recoveryService) standardWithdrawUnlocked(ctx context.Context, walletAddress string, investment *models.Investment) (*WithdrawalTicket, error) {
	amount := investment.CurrentValue
	validation, err := s.validator.Validate(ctx, investment.ProtocolName, walletAddress, amount, KindWithdraw)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, validation.Reason)
	}

	unsigned, err := s.builder.BuildWithdraw(ctx, investment.ProtocolName, walletAddress, amount)
	if err != nil {
		return nil, err
	}
	return &WithdrawalTicket{
		Investment: investment,
		Unsigned:   unsigned,
		Validation: validation,
		Amount:     amount,
	}, nil
}

// CompleteRecovery records the outcome of a recovery withdrawal. A
// confirmed outcome soft-closes the position and writes the confirmed
// protocol_withdrawal record; an unconfirmed outcome records the failed
// attempt and leaves the position active for a future attempt.
func (s *recoveryService) CompleteRecovery(walletAddress, investmentID, txID string, confirmed bool, round uint64) (*RecoveryResult, error) {
	investment, err := s.ledger.GetInvestment(walletAddress, investmentID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"protocol":      investment.ProtocolName,
		"investment_id": investmentID,
		"recovery":      true,
	}

	if !confirmed {
		metadata["recovery_failed"] = true
		if _, recErr := s.ledger.CreateFailedRecord(walletAddress, models.RecordTypeProtocolWithdrawal, investment.CurrentValue, txID, metadata); recErr != nil {
			return nil, recErr
		}
		return &RecoveryResult{Status: "recovery_failed", Investment: investment}, nil
	}

	amount := investment.CurrentValue
	closeErr := s.ledger.CloseInvestment(investmentID, txID, s.now())
	if closeErr != nil {
		if errors.Is(closeErr, apperrors.ErrInvestmentWithdrawn) {
			// Idempotent completion: the same tx id closing the same
			// position twice returns the recorded outcome.
			if investment.WithdrawalTxID != nil && *investment.WithdrawalTxID == txID {
				return &RecoveryResult{Status: "confirmed", RecoveredAmount: amount, Investment: investment}, nil
			}
		}
		return nil, closeErr
	}

	record, recErr := s.ledger.GetRecordByTxID(txID)
	if recErr == nil && record.Status != models.RecordStatusConfirmed {
		_, recErr = s.ledger.ConfirmRecord(txID, round)
	} else if errors.Is(recErr, apperrors.ErrRecordNotFound) {
		_, recErr = s.ledger.CreateConfirmedRecord(walletAddress, models.RecordTypeProtocolWithdrawal, amount, txID, round, metadata)
	}
	if recErr != nil {
		logger.Get().Warnw("recovery record write failed after confirmed withdrawal; reconciliation needed",
			"investment_id", investmentID, "tx_id", txID, "error", recErr.Error())
	}

	closed, getErr := s.ledger.GetInvestment(walletAddress, investmentID)
	if getErr != nil {
		closed = investment
	}
	return &RecoveryResult{Status: "confirmed", RecoveredAmount: amount, Investment: closed}, nil
}
