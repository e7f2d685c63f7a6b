package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/pagination"
	"algoswarm/internal/services"
)

// DefiHandler handles the protocol-transaction endpoints.
type DefiHandler struct {
	validator services.ValidatorServicer
	builder   services.BuilderServicer
	lifecycle services.LifecycleServicer
	ledger    services.LedgerServicer
}

// NewDefiHandler creates a new DefiHandler.
func NewDefiHandler(validator services.ValidatorServicer, builder services.BuilderServicer, lifecycle services.LifecycleServicer, ledger services.LedgerServicer) *DefiHandler {
	return &DefiHandler{
		validator: validator,
		builder:   builder,
		lifecycle: lifecycle,
		ledger:    ledger,
	}
}

// CreateTransactionRequest represents the payload for building an unsigned
// deposit or withdrawal transaction.
type CreateTransactionRequest struct {
	ProtocolName    string `json:"protocol_name" binding:"required,protocol_name"`
	AmountMicroAlgo int64  `json:"amount_microalgo" binding:"required,gt=0"`
	Wallet          string `json:"wallet" binding:"required,algorand_address"`
}

// SubmitRequest represents the payload for broadcasting a signed transaction.
type SubmitRequest struct {
	SignedTransaction string `json:"signed_transaction" binding:"required"`
}

// ConfirmRequest represents the payload for polling a submitted transaction.
type ConfirmRequest struct {
	TxID           string `json:"tx_id" binding:"required"`
	TimeoutSeconds int    `json:"timeout_seconds" binding:"omitempty,min=1,max=300"`
}

// CompleteRequest represents the payload for running the full transaction
// lifecycle in a single call.
type CompleteRequest struct {
	ProtocolName      string `json:"protocol_name" binding:"required,protocol_name"`
	AmountMicroAlgo   int64  `json:"amount_microalgo" binding:"required,gt=0"`
	SignedTransaction string `json:"signed_transaction" binding:"required"`
	Wallet            string `json:"wallet" binding:"required,algorand_address"`
	Kind              string `json:"kind" binding:"omitempty,transaction_kind"`
	InvestmentID      string `json:"investment_id" binding:"omitempty,uuid"`
}

func (h *DefiHandler) create(c *gin.Context, kind services.TxKind) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	validation, err := h.validator.Validate(c.Request.Context(), req.ProtocolName, req.Wallet, req.AmountMicroAlgo, kind)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !validation.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"validation": validation,
			"status":     "rejected",
		})
		return
	}

	var unsigned *services.UnsignedTransaction
	if kind == services.KindWithdraw {
		unsigned, err = h.builder.BuildWithdraw(c.Request.Context(), req.ProtocolName, req.Wallet, req.AmountMicroAlgo)
	} else {
		unsigned, err = h.builder.BuildDeposit(c.Request.Context(), req.ProtocolName, req.Wallet, req.AmountMicroAlgo)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unsigned_transaction": unsigned,
		"validation":           validation,
		"status":               "created",
	})
}

// CreateDeposit builds an unsigned deposit transaction.
func (h *DefiHandler) CreateDeposit(c *gin.Context) {
	h.create(c, services.KindDeposit)
}

// CreateWithdraw builds an unsigned withdrawal transaction.
func (h *DefiHandler) CreateWithdraw(c *gin.Context) {
	h.create(c, services.KindWithdraw)
}

// Submit broadcasts a signed transaction without waiting for confirmation.
func (h *DefiHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	signedTx, err := base64.StdEncoding.DecodeString(req.SignedTransaction)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "signed_transaction must be base64"))
		return
	}

	txID, err := h.lifecycle.Submit(c.Request.Context(), signedTx)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": txID,
		"status":         services.StatusSubmitted,
	})
}

// Confirm polls a submitted transaction until it confirms or the timeout
// elapses. A timeout is reported as pending, not as an error.
func (h *DefiHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.lifecycle.Confirm(c.Request.Context(), req.TxID, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"confirmed":          result.Confirmed,
		"confirmation_round": result.ConfirmedRound,
		"status":             result.Status,
	})
}

// Complete runs the full lifecycle for a signed transaction in one call.
func (h *DefiHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	signedTx, err := base64.StdEncoding.DecodeString(req.SignedTransaction)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "signed_transaction must be base64"))
		return
	}

	kind := services.KindDeposit
	if req.Kind == string(services.KindWithdraw) {
		kind = services.KindWithdraw
	}

	result, err := h.lifecycle.Complete(
		c.Request.Context(),
		req.ProtocolName,
		req.Wallet,
		req.AmountMicroAlgo,
		signedTx,
		kind,
		services.CompleteOptions{InvestmentID: req.InvestmentID},
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":     result.TxID,
		"confirmed":          result.Confirmed,
		"confirmation_round": result.ConfirmedRound,
		"status":             result.Status,
		"investment":         result.Investment,
	})
}

// ListTransactions returns a wallet's transaction history.
func (h *DefiHandler) ListTransactions(c *gin.Context) {
	var query walletQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records, err := h.ledger.ListRecords(query.Wallet, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
