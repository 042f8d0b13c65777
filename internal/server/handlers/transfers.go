package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aegis-system/internal/database/models"
	"aegis-system/internal/logistics"
	"aegis-system/internal/metrics"
)

type TransferHandler struct {
	svc     *logistics.Service
	metrics *metrics.Aggregator
}

func NewTransferHandler(svc *logistics.Service, agg *metrics.Aggregator) *TransferHandler {
	return &TransferHandler{svc: svc, metrics: agg}
}

type transferRequest struct {
	AssetID  string     `json:"asset_id" binding:"required"`
	ToBaseID string     `json:"to_base_id" binding:"required"`
	Quantity int        `json:"quantity" binding:"required"`
	Date     *time.Time `json:"date"`
}

func (h *TransferHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	in := logistics.TransferInput{
		AssetID:  req.AssetID,
		ToBaseID: req.ToBaseID,
		Quantity: req.Quantity,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	transfer, err := h.svc.CreateTransfer(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	created(c, transfer)
}

func (h *TransferHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	transfer, err := h.svc.GetTransfer(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, transfer)
}

func (h *TransferHandler) List(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	transfers, err := h.svc.ListTransfers(c.Request.Context(), user, logistics.TransferListFilter{
		BaseID: c.Query("base_id"),
		Status: models.TransferStatus(c.Query("status")),
		Start:  parseTimeQuery(c, "start"),
		End:    parseTimeQuery(c, "end"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, transfers)
}

type transferStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TransferHandler) UpdateStatus(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req transferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	transfer, err := h.svc.UpdateTransferStatus(c.Request.Context(), user, c.Param("id"), models.TransferStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, transfer)
}

func (h *TransferHandler) Complete(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	transfer, err := h.svc.CompleteTransfer(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, transfer)
}

func (h *TransferHandler) Reject(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	transfer, err := h.svc.RejectTransfer(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, transfer)
}

func (h *TransferHandler) Delete(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransfer(c.Request.Context(), user, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, gin.H{"deleted": c.Param("id")})
}
