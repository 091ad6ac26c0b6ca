package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/demandcast/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	orch *orchestrator.Orchestrator
}

func NewPricingHandler(orch *orchestrator.Orchestrator) *PricingHandler {
	return &PricingHandler{orch: orch}
}

func (h *PricingHandler) OptimizePrice(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	rec, err := h.orch.OptimizePrice(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

type bulkPricingRequest struct {
	ProductIDs []int64 `json:"product_ids" binding:"required"`
}

func (h *PricingHandler) BulkOptimizePrice(c *gin.Context) {
	var req bulkPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	items := h.orch.BulkOptimizePrice(c.Request.Context(), req.ProductIDs)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type applyPriceRequest struct {
	NewPrice float64 `json:"new_price" binding:"required"`
	Reason   string  `json:"reason"`
}

func (h *PricingHandler) ApplyPriceChange(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req applyPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	change, err := h.orch.ApplyPriceChange(c.Request.Context(), productID, req.NewPrice, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, change)
}
