package ledger

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/store/memory"
)

func testLedger(t *testing.T) (*Ledger, *memory.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := memory.New()
	return New(st, log), st
}

func seedAsset(t *testing.T, st *memory.Memory, onHand, assigned, reserved int) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		Name:             "M4 Carbine",
		Category:         models.CategoryWeapons,
		BaseID:           "base-a",
		QuantityOnHand:   onHand,
		QuantityAssigned: assigned,
		QuantityReserved: reserved,
		UnitValue:        decimal.NewFromInt(1200),
		ReorderLevel:     10,
		IsActive:         true,
	}
	require.NoError(t, st.Assets().Create(context.Background(), asset))
	return asset
}

func TestApplyPurchaseDeployedIdempotent(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 10, 0, 0)

	require.NoError(t, led.ApplyPurchaseDeployed(ctx, "evt-1", asset.ID, 25))
	// Replaying the same event must not double-apply.
	require.NoError(t, led.ApplyPurchaseDeployed(ctx, "evt-1", asset.ID, 25))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, got.QuantityOnHand)

	entries, err := led.History(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReserveForTransferBoundary(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 10, 3, 2)

	// Available is exactly 5; reserving all of it succeeds.
	require.NoError(t, led.ReserveForTransfer(ctx, "evt-ok", asset.ID, 5))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available())

	// One more unit fails and leaves the counters untouched.
	err = led.ReserveForTransfer(ctx, "evt-over", asset.ID, 1)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))

	got, err = st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.QuantityReserved)
	assert.Equal(t, 10, got.QuantityOnHand)
}

func TestReleaseReservation(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 10, 0, 4)

	require.NoError(t, led.ReleaseReservation(ctx, "evt-rel", asset.ID, 4))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityReserved)
	assert.Equal(t, 10, got.Available())

	err = led.ReleaseReservation(ctx, "evt-rel-2", asset.ID, 1)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))
}

func TestApplyTransferCompletedMaterializesDestination(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 20, 0, 8)

	require.NoError(t, led.ApplyTransferCompleted(ctx, "evt-tr", asset.ID, "base-a", "base-b", 8))

	source, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, source.QuantityOnHand)
	assert.Equal(t, 0, source.QuantityReserved)

	dest, err := st.Assets().FindAtBase(ctx, "base-b", asset.Name, asset.Category)
	require.NoError(t, err)
	assert.Equal(t, 8, dest.QuantityOnHand)
	assert.True(t, dest.IsActive)

	// Replay converges without moving more stock.
	require.NoError(t, led.ApplyTransferCompleted(ctx, "evt-tr", asset.ID, "base-a", "base-b", 8))
	dest, err = st.Assets().FindAtBase(ctx, "base-b", asset.Name, asset.Category)
	require.NoError(t, err)
	assert.Equal(t, 8, dest.QuantityOnHand)
}

func TestApplyTransferCompletedWrongSourceBase(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 20, 0, 8)

	err := led.ApplyTransferCompleted(ctx, "evt-bad", asset.ID, "base-x", "base-b", 8)
	assert.True(t, errors.Is(err, errs.ErrUnknownEntity))
}

func TestApplyExpenditure(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 10, 2, 0)

	require.NoError(t, led.ApplyExpenditure(ctx, "evt-ex", asset.ID, 8))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityOnHand)
	assert.Equal(t, 0, got.Available())

	err = led.ApplyExpenditure(ctx, "evt-ex-2", asset.ID, 1)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))
}

func TestReverseExpenditure(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 10, 0, 0)

	require.NoError(t, led.ApplyExpenditure(ctx, "evt-ex", asset.ID, 6))
	require.NoError(t, led.ReverseExpenditure(ctx, "evt-ex", asset.ID, 6))
	// Replaying the reversal is a no-op.
	require.NoError(t, led.ReverseExpenditure(ctx, "evt-ex", asset.ID, 6))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.QuantityOnHand)

	entries, err := led.History(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIssueAndReturnUnit(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 1, 0, 0)

	require.NoError(t, led.IssueUnit(ctx, "assign-1", asset.ID))

	// Only unit is out; a second issue fails.
	err := led.IssueUnit(ctx, "assign-2", asset.ID)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))

	// Replay of the first issue is a no-op, not a second unit.
	require.NoError(t, led.IssueUnit(ctx, "assign-1", asset.ID))
	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuantityAssigned)

	require.NoError(t, led.ReturnUnit(ctx, "assign-1", asset.ID))
	got, err = st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAssigned)

	err = led.ReturnUnit(ctx, "assign-3", asset.ID)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))
}

func TestFailedOperationLeavesNoLedgerEntry(t *testing.T) {
	led, st := testLedger(t)
	ctx := context.Background()
	asset := seedAsset(t, st, 3, 0, 0)

	err := led.ReserveForTransfer(ctx, "evt-fail", asset.ID, 5)
	require.Error(t, err)

	entries, err := led.History(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The failed event id stays usable.
	require.NoError(t, led.ReserveForTransfer(ctx, "evt-fail", asset.ID, 2))
	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityReserved)
}
