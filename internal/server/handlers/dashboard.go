package handlers

import (
	"github.com/gin-gonic/gin"

	"aegis-system/internal/database/models"
	"aegis-system/internal/metrics"
)

type DashboardHandler struct {
	agg *metrics.Aggregator
}

func NewDashboardHandler(agg *metrics.Aggregator) *DashboardHandler {
	return &DashboardHandler{agg: agg}
}

func (h *DashboardHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	dash, err := h.agg.ComputeDashboard(c.Request.Context(), user, metrics.Filter{
		BaseID:   c.Query("base_id"),
		Category: models.AssetCategory(c.Query("category")),
		Start:    parseTimeQuery(c, "start"),
		End:      parseTimeQuery(c, "end"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dash)
}
