package assignment

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/ledger"
	"aegis-system/internal/policy"
	"aegis-system/internal/store/memory"
)

func testService(t *testing.T) (*Service, *memory.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := memory.New()
	return NewService(st, ledger.New(st, log), log), st
}

func seedAsset(t *testing.T, st *memory.Memory, onHand int) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		Name:           "AN/PRC-152",
		Category:       models.CategoryCommunication,
		BaseID:         "base-a",
		QuantityOnHand: onHand,
		UnitValue:      decimal.NewFromInt(6800),
		ReorderLevel:   5,
		IsActive:       true,
	}
	require.NoError(t, st.Assets().Create(context.Background(), asset))
	return asset
}

var officer = policy.User{ID: "officer-1", Role: policy.RoleLogisticsOfficer, BaseID: "base-a"}

func TestAssignmentRoundTrip(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 2)

	a, err := svc.Create(ctx, officer, CreateInput{
		AssetID:       asset.ID,
		PersonnelName: "Sgt. Reyes",
		PersonnelRank: "Sergeant",
		Purpose:       "Field exercise",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentActive, a.Status)

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuantityAssigned)
	assert.Equal(t, 1, got.Available())

	returned, err := svc.MarkReturned(ctx, officer, a.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)

	got, err = st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAssigned)
	assert.Equal(t, 2, got.Available())
}

func TestCreateWithoutStock(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 1)

	_, err := svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Pvt. Lee"})
	require.NoError(t, err)

	// Last unit is out; the next issue fails and changes nothing.
	_, err = svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Pvt. Kim"})
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))

	views, err := svc.List(ctx, officer, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestViewerCannotCreate(t *testing.T) {
	svc, st := testService(t)
	asset := seedAsset(t, st, 5)

	viewer := policy.User{ID: "viewer-1", Role: policy.RoleViewer, BaseID: "base-a"}
	_, err := svc.Create(context.Background(), viewer, CreateInput{AssetID: asset.ID, PersonnelName: "Pvt. Lee"})
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(models.AssignmentActive, models.AssignmentOnHold))
	assert.True(t, CanTransition(models.AssignmentActive, models.AssignmentExtended))
	assert.True(t, CanTransition(models.AssignmentActive, models.AssignmentReturned))
	assert.True(t, CanTransition(models.AssignmentExtended, models.AssignmentReturned))
	assert.True(t, CanTransition(models.AssignmentOnHold, models.AssignmentReturned))

	// Returned is terminal.
	assert.False(t, CanTransition(models.AssignmentReturned, models.AssignmentActive))
	assert.False(t, CanTransition(models.AssignmentReturned, models.AssignmentExtended))

	// Overdue is derived, never a transition target.
	assert.False(t, CanTransition(models.AssignmentActive, models.AssignmentOverdue))
}

func TestUpdateStatusRejectsOverdue(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 3)

	a, err := svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Cpl. Diaz"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, officer, a.ID, models.AssignmentOverdue)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
}

func TestReturnedIsTerminal(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 3)

	a, err := svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Cpl. Diaz"})
	require.NoError(t, err)
	_, err = svc.MarkReturned(ctx, officer, a.ID, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, officer, a.ID, models.AssignmentExtended)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))

	// Returning twice is rejected too; the unit only comes back once.
	_, err = svc.MarkReturned(ctx, officer, a.ID, time.Now().UTC())
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAssigned)
}

func TestEffectiveStatusDerivesOverdue(t *testing.T) {
	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)
	now := time.Now().UTC()

	a := &models.Assignment{Status: models.AssignmentActive, ExpectedReturnDate: &past}
	assert.Equal(t, models.AssignmentOverdue, EffectiveStatus(a, now))

	a.ExpectedReturnDate = &future
	assert.Equal(t, models.AssignmentActive, EffectiveStatus(a, now))

	a.ExpectedReturnDate = nil
	assert.Equal(t, models.AssignmentActive, EffectiveStatus(a, now))

	// A returned assignment never reads as overdue.
	returned := &models.Assignment{Status: models.AssignmentReturned, ExpectedReturnDate: &past}
	assert.Equal(t, models.AssignmentReturned, EffectiveStatus(returned, now))
}

func TestListOverdueFilter(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 5)

	past := time.Now().UTC().Add(-24 * time.Hour)
	late, err := svc.Create(ctx, officer, CreateInput{
		AssetID:            asset.ID,
		PersonnelName:      "Sgt. Okafor",
		ExpectedReturnDate: &past,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Pvt. Chen"})
	require.NoError(t, err)

	views, err := svc.List(ctx, officer, ListFilter{Status: models.AssignmentOverdue})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, late.ID, views[0].ID)
	assert.Equal(t, models.AssignmentOverdue, views[0].EffectiveStatus)
	// Stored status is untouched.
	assert.Equal(t, models.AssignmentActive, views[0].Status)
}

func TestDeleteActiveReleasesUnit(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 2)

	a, err := svc.Create(ctx, officer, CreateInput{AssetID: asset.ID, PersonnelName: "Pvt. Chen"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, officer, a.ID))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAssigned)

	_, err = svc.Get(ctx, officer, a.ID)
	assert.True(t, errors.Is(err, errs.ErrUnknownEntity))
}
