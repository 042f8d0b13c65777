package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis-system/internal/errs"
)

func TestParseRole(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"base_commander", RoleBaseCommander},
		{"logistics_officer", RoleLogisticsOfficer},
		{"viewer", RoleViewer},
	} {
		role, err := ParseRole(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, role)
		assert.Equal(t, tc.in, role.String())
	}

	_, err := ParseRole("general")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestCanView(t *testing.T) {
	admin := User{ID: "u1", Role: RoleAdmin}
	commander := User{ID: "u2", Role: RoleBaseCommander, BaseID: "base-a"}

	assert.True(t, CanView(admin, "base-a"))
	assert.True(t, CanView(admin, "base-b"))
	assert.True(t, CanView(commander, "base-a"))
	assert.False(t, CanView(commander, "base-b"))
}

func TestCanViewEither(t *testing.T) {
	officer := User{ID: "u3", Role: RoleLogisticsOfficer, BaseID: "base-a"}

	assert.True(t, CanViewEither(officer, "base-a", "base-b"))
	assert.True(t, CanViewEither(officer, "base-b", "base-a"))
	assert.False(t, CanViewEither(officer, "base-b", "base-c"))
}

func TestCanMutate(t *testing.T) {
	viewer := User{ID: "u4", Role: RoleViewer, BaseID: "base-a"}
	officer := User{ID: "u5", Role: RoleLogisticsOfficer, BaseID: "base-a"}

	for _, kind := range []RecordKind{KindAsset, KindPurchase, KindTransfer, KindAssignment, KindExpenditure} {
		for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			assert.False(t, CanMutate(viewer, kind, action))
			assert.True(t, CanMutate(officer, kind, action))
		}
	}
}

func TestScopeQuery(t *testing.T) {
	admin := User{ID: "u1", Role: RoleAdmin}
	commander := User{ID: "u2", Role: RoleBaseCommander, BaseID: "base-a"}

	// Admin queries pass through untouched.
	got, err := ScopeQuery(admin, "")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = ScopeQuery(admin, "base-b")
	require.NoError(t, err)
	assert.Equal(t, "base-b", got)

	// Non-admin with no filter is narrowed to the home base.
	got, err = ScopeQuery(commander, "")
	require.NoError(t, err)
	assert.Equal(t, "base-a", got)

	got, err = ScopeQuery(commander, "base-a")
	require.NoError(t, err)
	assert.Equal(t, "base-a", got)

	// Asking for a foreign base is rejected, not clamped.
	_, err = ScopeQuery(commander, "base-b")
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}
