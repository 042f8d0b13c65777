package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aegis-system/internal/assignment"
	"aegis-system/internal/database/models"
	"aegis-system/internal/metrics"
)

type AssignmentHandler struct {
	svc     *assignment.Service
	metrics *metrics.Aggregator
}

func NewAssignmentHandler(svc *assignment.Service, agg *metrics.Aggregator) *AssignmentHandler {
	return &AssignmentHandler{svc: svc, metrics: agg}
}

type assignmentRequest struct {
	AssetID            string     `json:"asset_id" binding:"required"`
	PersonnelName      string     `json:"personnel_name" binding:"required"`
	PersonnelRank      string     `json:"personnel_rank"`
	AssignmentDate     *time.Time `json:"assignment_date"`
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
	Purpose            string     `json:"purpose"`
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	in := assignment.CreateInput{
		AssetID:            req.AssetID,
		PersonnelName:      req.PersonnelName,
		PersonnelRank:      req.PersonnelRank,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Purpose:            req.Purpose,
	}
	if req.AssignmentDate != nil {
		in.AssignmentDate = *req.AssignmentDate
	}

	result, err := h.svc.Create(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	created(c, result)
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

func (h *AssignmentHandler) List(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	views, err := h.svc.List(c.Request.Context(), user, assignment.ListFilter{
		BaseID:  c.Query("base_id"),
		AssetID: c.Query("asset_id"),
		Status:  models.AssignmentStatus(c.Query("status")),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, views)
}

type returnRequest struct {
	ReturnDate *time.Time `json:"return_date"`
}

func (h *AssignmentHandler) Return(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req returnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			failMsg(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	returnDate := time.Now().UTC()
	if req.ReturnDate != nil {
		returnDate = *req.ReturnDate
	}

	result, err := h.svc.MarkReturned(c.Request.Context(), user, c.Param("id"), returnDate)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, result)
}

type assignmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req assignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), user, c.Param("id"), models.AssignmentStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, result)
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.metrics.Invalidate(c.Request.Context())
	success(c, gin.H{"deleted": c.Param("id")})
}
