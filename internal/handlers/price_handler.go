package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"algoswarm/internal/pricing"
)

// PriceHandler serves cached dashboard price quotes.
type PriceHandler struct {
	cache *pricing.Cache
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(cache *pricing.Cache) *PriceHandler {
	return &PriceHandler{cache: cache}
}

// List returns every currently fresh quote.
func (h *PriceHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prices": h.cache.All()})
}

// Get returns the cached quote for one asset.
func (h *PriceHandler) Get(c *gin.Context) {
	asset := strings.ToUpper(c.Param("asset"))
	quote, err := h.cache.Get(asset)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
