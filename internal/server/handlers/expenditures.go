package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"aegis-system/internal/logistics"
	"aegis-system/internal/metrics"
)

type ExpenditureHandler struct {
	svc     *logistics.Service
	metrics *metrics.Aggregator
}

func NewExpenditureHandler(svc *logistics.Service, agg *metrics.Aggregator) *ExpenditureHandler {
	return &ExpenditureHandler{svc: svc, metrics: agg}
}

type expenditureRequest struct {
	AssetID      string          `json:"asset_id" binding:"required"`
	QuantityUsed int             `json:"quantity_used" binding:"required"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Date         *time.Time      `json:"date"`
	Purpose      string          `json:"purpose"`
}

func (h *ExpenditureHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req expenditureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	in := logistics.ExpenditureInput{
		AssetID:      req.AssetID,
		QuantityUsed: req.QuantityUsed,
		CostPerUnit:  req.CostPerUnit,
		Purpose:      req.Purpose,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	expenditure, err := h.svc.CreateExpenditure(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	created(c, expenditure)
}

func (h *ExpenditureHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	expenditure, err := h.svc.GetExpenditure(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, expenditure)
}

func (h *ExpenditureHandler) List(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	expenditures, err := h.svc.ListExpenditures(c.Request.Context(), user, logistics.ExpenditureListFilter{
		BaseID:  c.Query("base_id"),
		AssetID: c.Query("asset_id"),
		Start:   parseTimeQuery(c, "start"),
		End:     parseTimeQuery(c, "end"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, expenditures)
}

func (h *ExpenditureHandler) Delete(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteExpenditure(c.Request.Context(), user, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, gin.H{"deleted": c.Param("id")})
}
