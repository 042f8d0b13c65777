// Package policy decides which records a caller may see or change. It is
// pure: no store access, no side effects. A normal "not allowed" outcome is
// a boolean or ErrForbidden, never a panic.
package policy

import (
	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
)

// Role is the closed set of access levels. Role strings stored on users are
// parsed once at the boundary; everything past that works with the tagged
// values, not string comparisons.
type Role int

const (
	RoleViewer Role = iota
	RoleLogisticsOfficer
	RoleBaseCommander
	RoleAdmin
)

const (
	roleAdminStr     = "admin"
	roleCommanderStr = "base_commander"
	roleLogisticsStr = "logistics_officer"
	roleViewerStr    = "viewer"
)

func ParseRole(s string) (Role, error) {
	switch s {
	case roleAdminStr:
		return RoleAdmin, nil
	case roleCommanderStr:
		return RoleBaseCommander, nil
	case roleLogisticsStr:
		return RoleLogisticsOfficer, nil
	case roleViewerStr:
		return RoleViewer, nil
	}
	return RoleViewer, errs.Validationf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminStr
	case RoleBaseCommander:
		return roleCommanderStr
	case RoleLogisticsOfficer:
		return roleLogisticsStr
	}
	return roleViewerStr
}

func ValidRole(s string) bool {
	_, err := ParseRole(s)
	return err == nil
}

// User is the caller identity the policy works with: a role plus an
// optional home base.
type User struct {
	ID     string
	Role   Role
	BaseID string
}

func UserFromModel(u *models.User) (User, error) {
	if u == nil {
		return User{}, errs.Validationf("missing user")
	}
	role, err := ParseRole(u.Role)
	if err != nil {
		return User{}, err
	}
	return User{ID: u.ID, Role: role, BaseID: u.BaseID}, nil
}

type RecordKind int

const (
	KindAsset RecordKind = iota
	KindPurchase
	KindTransfer
	KindAssignment
	KindExpenditure
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
)

// CanView reports whether the user may see a record owned by baseID.
func CanView(u User, baseID string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return baseID == u.BaseID
}

// CanViewEither covers transfers, which are visible from both ends.
func CanViewEither(u User, fromBaseID, toBaseID string) bool {
	return CanView(u, fromBaseID) || CanView(u, toBaseID)
}

// CanMutate reports whether the role may perform the action on the record
// kind at all; base scoping is ScopeQuery's job and state-machine legality
// is the owning component's.
func CanMutate(u User, kind RecordKind, action Action) bool {
	switch u.Role {
	case RoleAdmin, RoleBaseCommander, RoleLogisticsOfficer:
		return true
	}
	// Viewer-level roles read but never mutate.
	_ = kind
	_ = action
	return false
}

// ScopeQuery intersects a caller-supplied base filter with what the user is
// allowed to see. A non-admin asking for a base other than their own is
// rejected, not clamped. The returned filter is "" for an unrestricted
// (admin, no filter) query.
func ScopeQuery(u User, requestedBaseID string) (string, error) {
	if u.Role == RoleAdmin {
		return requestedBaseID, nil
	}
	if requestedBaseID == "" {
		return u.BaseID, nil
	}
	if requestedBaseID != u.BaseID {
		return "", errs.Forbiddenf("base %s is outside your scope", requestedBaseID)
	}
	return u.BaseID, nil
}
