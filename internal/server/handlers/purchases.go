package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"aegis-system/internal/database/models"
	"aegis-system/internal/logistics"
	"aegis-system/internal/metrics"
)

type PurchaseHandler struct {
	svc     *logistics.Service
	metrics *metrics.Aggregator
}

func NewPurchaseHandler(svc *logistics.Service, agg *metrics.Aggregator) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, metrics: agg}
}

type newAssetRequest struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	UnitValue    decimal.Decimal `json:"unit_value"`
	ReorderLevel int             `json:"reorder_level"`
}

type purchaseRequest struct {
	AssetID  string           `json:"asset_id"`
	NewAsset *newAssetRequest `json:"new_asset"`
	BaseID   string           `json:"base_id"`
	Quantity int              `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal  `json:"unit_cost"`
	Vendor   string           `json:"vendor"`
	Date     *time.Time       `json:"date"`
	Priority string           `json:"priority"`
}

func (h *PurchaseHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	in := logistics.PurchaseInput{
		AssetID:  req.AssetID,
		BaseID:   req.BaseID,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
		Vendor:   req.Vendor,
		Priority: models.PurchasePriority(req.Priority),
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if req.NewAsset != nil {
		in.NewAsset = &logistics.NewAssetInput{
			Name:         req.NewAsset.Name,
			Category:     models.AssetCategory(req.NewAsset.Category),
			UnitValue:    req.NewAsset.UnitValue,
			ReorderLevel: req.NewAsset.ReorderLevel,
		}
	}

	purchase, err := h.svc.CreatePurchase(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	created(c, purchase)
}

func (h *PurchaseHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	purchase, err := h.svc.GetPurchase(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, purchase)
}

func (h *PurchaseHandler) List(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	purchases, err := h.svc.ListPurchases(c.Request.Context(), user, logistics.PurchaseListFilter{
		BaseID: c.Query("base_id"),
		Status: models.PurchaseStatus(c.Query("status")),
		Start:  parseTimeQuery(c, "start"),
		End:    parseTimeQuery(c, "end"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, purchases)
}

type purchasePatchRequest struct {
	Quantity *int             `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
	Vendor   *string          `json:"vendor"`
	Priority *string          `json:"priority"`
	Date     *time.Time       `json:"date"`
}

func (h *PurchaseHandler) Update(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req purchasePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := logistics.PurchasePatch{
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
		Vendor:   req.Vendor,
		Date:     req.Date,
	}
	if req.Priority != nil {
		p := models.PurchasePriority(*req.Priority)
		patch.Priority = &p
	}

	purchase, err := h.svc.UpdatePurchase(c.Request.Context(), user, c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, purchase)
}

type purchaseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *PurchaseHandler) UpdateStatus(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req purchaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	purchase, err := h.svc.AdvancePurchase(c.Request.Context(), user, c.Param("id"), models.PurchaseStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, purchase)
}

// Deploy is the shortcut for the transition that lands the stock.
func (h *PurchaseHandler) Deploy(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	purchase, err := h.svc.DeployPurchase(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, purchase)
}

func (h *PurchaseHandler) Delete(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.DeletePurchase(c.Request.Context(), user, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, gin.H{"deleted": c.Param("id")})
}
