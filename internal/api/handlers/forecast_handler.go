package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/andresuchdata/demandcast/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	orch *orchestrator.Orchestrator
}

func NewForecastHandler(orch *orchestrator.Orchestrator) *ForecastHandler {
	return &ForecastHandler{orch: orch}
}

func (h *ForecastHandler) ForecastDemand(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	horizon := h.orch.DefaultHorizon()
	if raw := c.Query("horizon_days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			horizon = parsed
		}
	}

	result, err := h.orch.ForecastDemand(c.Request.Context(), productID, horizon)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type bulkForecastRequest struct {
	ProductIDs  []int64 `json:"product_ids" binding:"required"`
	HorizonDays int     `json:"horizon_days"`
}

func (h *ForecastHandler) BulkForecast(c *gin.Context) {
	var req bulkForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = h.orch.DefaultHorizon()
	}

	items := h.orch.BulkForecast(c.Request.Context(), req.ProductIDs, horizon)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ForecastHandler) ListReorderAlerts(c *gin.Context) {
	alerts, err := h.orch.ListReorderAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCollaboratorUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
