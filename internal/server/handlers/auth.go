package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
	"aegis-system/internal/utils"
)

type AuthHandler struct {
	store     store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthHandler(st store.Store, secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{store: st, jwtSecret: secret, tokenTTL: ttl}
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Role      string `json:"role" binding:"required"`
	BaseID    string `json:"base_id"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}
	if !policy.ValidRole(req.Role) {
		fail(c, errs.Validationf("unknown role %q", req.Role))
		return
	}

	if _, err := h.store.Users().GetByUsername(c.Request.Context(), req.Username); err == nil {
		fail(c, errs.Validationf("username %s is taken", req.Username))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		failMsg(c, http.StatusInternalServerError, "could not hash password")
		return
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      req.Role,
		BaseID:    req.BaseID,
		IsActive:  true,
	}
	if err := h.store.Users().Create(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	created(c, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.Users().GetByUsername(c.Request.Context(), req.Username)
	if err != nil || !user.IsActive {
		failMsg(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		failMsg(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, exp, err := utils.GenerateToken(h.jwtSecret, user.ID, user.Username, user.Role, user.BaseID, h.tokenTTL)
	if err != nil {
		failMsg(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	_ = h.store.Users().Update(c.Request.Context(), user)

	success(c, gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       user,
	})
}
