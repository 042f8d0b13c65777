// Package handlers is the REST surface. Each handler translates HTTP to a
// service call and maps the service's error kind to a status code; no
// business rules live here.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/server/middleware"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func failMsg(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// statusOf maps the core's error kinds onto HTTP statuses. Anything
// unrecognized is a 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrInsufficientStock):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// identity fetches the authenticated caller or aborts with 401.
func identity(c *gin.Context) (policy.User, bool) {
	user, ok := middleware.Identity(c)
	if !ok {
		failMsg(c, http.StatusUnauthorized, "not authenticated")
	}
	return user, ok
}

func parseTimeQuery(c *gin.Context, param string) *time.Time {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return &t
		}
	}
	return nil
}
