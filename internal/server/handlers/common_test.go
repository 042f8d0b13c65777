package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"aegis-system/internal/errs"
)

func TestStatusOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{errs.Validationf("bad input"), http.StatusBadRequest},
		{errs.Forbiddenf("nope"), http.StatusForbidden},
		{errs.UnknownEntityf("asset x"), http.StatusNotFound},
		{errs.InvalidTransitionf("a -> b"), http.StatusConflict},
		{errs.InsufficientStockf("want 5 have 3"), http.StatusConflict},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	} {
		assert.Equal(t, tc.want, statusOf(tc.err), "for %v", tc.err)
	}
}

func TestStatusOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("creating transfer: %w", errs.InsufficientStockf("available 2, requested 5"))
	assert.Equal(t, http.StatusConflict, statusOf(wrapped))
}
