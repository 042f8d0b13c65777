package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aegis-system/internal/database/models"
	"aegis-system/internal/logistics"
)

type BaseHandler struct {
	svc *logistics.Service
}

func NewBaseHandler(svc *logistics.Service) *BaseHandler {
	return &BaseHandler{svc: svc}
}

type baseRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

func (h *BaseHandler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req baseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	base, err := h.svc.CreateBase(c.Request.Context(), user, &models.Base{
		ID:       uuid.NewString(),
		Code:     req.Code,
		Name:     req.Name,
		Location: req.Location,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, base)
}

func (h *BaseHandler) Get(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	base, err := h.svc.GetBase(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, base)
}

func (h *BaseHandler) List(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	bases, err := h.svc.ListBases(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bases)
}
