package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/services"
)

// RecoveryHandler handles the fund-recovery endpoints.
type RecoveryHandler struct {
	recovery services.RecoveryServicer
}

// NewRecoveryHandler creates a new RecoveryHandler.
func NewRecoveryHandler(recovery services.RecoveryServicer) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

// WithdrawRequest represents the payload for a standard withdrawal.
type WithdrawRequest struct {
	InvestmentID string `json:"investment_id" binding:"required,uuid"`
	Wallet       string `json:"wallet" binding:"required,algorand_address"`
}

// EmergencyRequest represents the payload for an emergency recovery.
type EmergencyRequest struct {
	InvestmentID     string `json:"investment_id" binding:"required,uuid"`
	OverrideTimeLock bool   `json:"override_time_lock"`
	Wallet           string `json:"wallet" binding:"required,algorand_address"`
}

// ConfirmationResult carries the externally observed confirmation outcome.
type ConfirmationResult struct {
	Confirmed         bool   `json:"confirmed"`
	ConfirmationRound uint64 `json:"confirmation_round"`
}

// CompleteRecoveryRequest represents the payload for recording a recovery outcome.
type CompleteRecoveryRequest struct {
	InvestmentID       string             `json:"investment_id" binding:"required,uuid"`
	TxID               string             `json:"tx_id" binding:"required"`
	ConfirmationResult ConfirmationResult `json:"confirmation_result" binding:"required"`
	Wallet             string             `json:"wallet" binding:"required,algorand_address"`
}

// ListInvestments returns the wallet's active investments with their
// computed withdrawal availability.
func (h *RecoveryHandler) ListInvestments(c *gin.Context) {
	var query walletQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investments, err := h.recovery.ListInvestments(query.Wallet)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}

// Status returns a per-investment recoverability summary for a wallet.
func (h *RecoveryHandler) Status(c *gin.Context) {
	var query walletQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investments, err := h.recovery.ListInvestments(query.Wallet)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var totalValue int64
	recoverable := 0
	for _, investment := range investments {
		totalValue += investment.CurrentValue
		if investment.WithdrawalAvailable {
			recoverable++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"investments":     investments,
		"total_active":    len(investments),
		"total_value":     totalValue,
		"recoverable_now": recoverable,
	})
}

// Withdraw prepares a standard time-lock-checked withdrawal.
func (h *RecoveryHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ticket, err := h.recovery.StandardWithdraw(c.Request.Context(), req.Wallet, req.InvestmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Emergency runs the emergency recovery path, escalating to manual review
// when the automated path fails.
func (h *RecoveryHandler) Emergency(c *gin.Context) {
	var req EmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	report, err := h.recovery.EmergencyRecovery(c.Request.Context(), req.Wallet, req.InvestmentID, req.OverrideTimeLock)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Complete records the outcome of a recovery withdrawal.
func (h *RecoveryHandler) Complete(c *gin.Context) {
	var req CompleteRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.recovery.CompleteRecovery(
		req.Wallet,
		req.InvestmentID,
		req.TxID,
		req.ConfirmationResult.Confirmed,
		req.ConfirmationResult.ConfirmationRound,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
