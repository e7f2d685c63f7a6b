package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/services"
)

// ProtocolHandler serves protocol configurations and the administrative
// update path.
type ProtocolHandler struct {
	registry services.RegistryServicer
}

// NewProtocolHandler creates a new ProtocolHandler.
func NewProtocolHandler(registry services.RegistryServicer) *ProtocolHandler {
	return &ProtocolHandler{registry: registry}
}

// UpdateProtocolRequest represents the administrative update payload. Only
// provided fields change.
type UpdateProtocolRequest struct {
	Fee                    *int64  `json:"fee" binding:"omitempty,gte=0"`
	MinBalanceReserve      *int64  `json:"min_balance_reserve" binding:"omitempty,gte=0"`
	MinDeposit             *int64  `json:"min_deposit" binding:"omitempty,gt=0"`
	MaxDeposit             *int64  `json:"max_deposit" binding:"omitempty,gt=0"`
	WithdrawalDelaySeconds *int64  `json:"withdrawal_delay_seconds" binding:"omitempty,gte=0"`
	RiskTier               *string `json:"risk_tier" binding:"omitempty,risk_tier"`
}

// List returns every supported protocol's effective configuration.
func (h *ProtocolHandler) List(c *gin.Context) {
	configs, err := h.registry.ListConfigs()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"protocols": configs})
}

// Get returns one protocol's effective configuration.
func (h *ProtocolHandler) Get(c *gin.Context) {
	cfg, err := h.registry.GetConfig(c.Param("name"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Update applies an administrative configuration change.
func (h *ProtocolHandler) Update(c *gin.Context) {
	var req UpdateProtocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cfg, err := h.registry.UpdateConfig(c.Param("name"), services.ConfigUpdate{
		Fee:                    req.Fee,
		MinBalanceReserve:      req.MinBalanceReserve,
		MinDeposit:             req.MinDeposit,
		MaxDeposit:             req.MaxDeposit,
		WithdrawalDelaySeconds: req.WithdrawalDelaySeconds,
		RiskTier:               req.RiskTier,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
