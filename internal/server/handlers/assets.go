package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"aegis-system/internal/database/models"
	"aegis-system/internal/ledger"
	"aegis-system/internal/logistics"
	"aegis-system/internal/metrics"
)

type AssetHandler struct {
	svc     *logistics.Service
	ledger  *ledger.Ledger
	metrics *metrics.Aggregator
}

func NewAssetHandler(svc *logistics.Service, led *ledger.Ledger, agg *metrics.Aggregator) *AssetHandler {
	return &AssetHandler{svc: svc, ledger: led, metrics: agg}
}

type assetRequest struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	BaseID       string          `json:"base_id"`
	UnitValue    decimal.Decimal `json:"unit_value"`
	ReorderLevel int             `json:"reorder_level"`
}

func (h *AssetHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := h.svc.CreateAsset(c.Request.Context(), user, logistics.AssetInput{
		Name:         req.Name,
		Category:     models.AssetCategory(req.Category),
		BaseID:       req.BaseID,
		UnitValue:    req.UnitValue,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	created(c, asset)
}

func (h *AssetHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	asset, err := h.svc.GetAsset(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, asset)
}

func (h *AssetHandler) List(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	assets, err := h.svc.ListAssets(c.Request.Context(), user, logistics.AssetListFilter{
		BaseID:   c.Query("base_id"),
		Category: models.AssetCategory(c.Query("category")),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, assets)
}

type assetPatchRequest struct {
	Name             *string          `json:"name"`
	UnitValue        *decimal.Decimal `json:"unit_value"`
	UnderMaintenance *bool            `json:"under_maintenance"`
	ReorderLevel     *int             `json:"reorder_level"`
	IsActive         *bool            `json:"is_active"`
}

func (h *AssetHandler) Update(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req assetPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := h.svc.UpdateAsset(c.Request.Context(), user, c.Param("id"), logistics.AssetPatch{
		Name:             req.Name,
		UnitValue:        req.UnitValue,
		UnderMaintenance: req.UnderMaintenance,
		ReorderLevel:     req.ReorderLevel,
		IsActive:         req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, asset)
}

// History lists the applied ledger operations behind an asset's counters.
func (h *AssetHandler) History(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	// Reuse the read path for scope enforcement.
	asset, err := h.svc.GetAsset(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	entries, err := h.ledger.History(c.Request.Context(), asset.ID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, entries)
}

func (h *AssetHandler) Retire(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	asset, err := h.svc.RetireAsset(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, asset)
}
