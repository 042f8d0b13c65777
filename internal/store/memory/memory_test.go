package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/store"
)

func TestAtomicRollsBackOnError(t *testing.T) {
	st := New()
	ctx := context.Background()

	asset := &models.Asset{Name: "M4 Carbine", Category: models.CategoryWeapons, BaseID: "base-a", QuantityOnHand: 10, IsActive: true}
	require.NoError(t, st.Assets().Create(ctx, asset))

	boom := errors.New("boom")
	err := st.Atomic(ctx, func(tx store.Store) error {
		got, err := tx.Assets().Get(ctx, asset.ID)
		require.NoError(t, err)
		got.QuantityOnHand = 999
		require.NoError(t, tx.Assets().Update(ctx, got))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.QuantityOnHand)
}

func TestAtomicCommits(t *testing.T) {
	st := New()
	ctx := context.Background()

	asset := &models.Asset{Name: "M4 Carbine", Category: models.CategoryWeapons, BaseID: "base-a", QuantityOnHand: 10, IsActive: true}
	require.NoError(t, st.Assets().Create(ctx, asset))

	require.NoError(t, st.Atomic(ctx, func(tx store.Store) error {
		got, err := tx.Assets().Get(ctx, asset.ID)
		if err != nil {
			return err
		}
		got.QuantityOnHand = 25
		return tx.Assets().Update(ctx, got)
	}))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.QuantityOnHand)
}

func TestLedgerEventOpUniqueness(t *testing.T) {
	st := New()
	ctx := context.Background()

	entry := &models.LedgerEntry{EventID: "evt-1", Op: models.OpPurchaseDeployed, AssetID: "a1", Quantity: 5}
	require.NoError(t, st.Ledger().Create(ctx, entry))

	dup := &models.LedgerEntry{EventID: "evt-1", Op: models.OpPurchaseDeployed, AssetID: "a1", Quantity: 5}
	err := st.Ledger().Create(ctx, dup)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	// Same event under a different op is a distinct row.
	other := &models.LedgerEntry{EventID: "evt-1", Op: models.OpTransferReleased, AssetID: "a1", Quantity: 5}
	require.NoError(t, st.Ledger().Create(ctx, other))

	ok, err := st.Ledger().Exists(ctx, "evt-1", models.OpPurchaseDeployed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Ledger().Exists(ctx, "evt-2", models.OpPurchaseDeployed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransferFilterMatchesEitherEnd(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Transfers().Create(ctx, &models.Transfer{
		AssetID: "a1", FromBaseID: "base-a", ToBaseID: "base-b",
		Quantity: 1, Status: models.TransferPending, Date: time.Now().UTC(),
	}))
	require.NoError(t, st.Transfers().Create(ctx, &models.Transfer{
		AssetID: "a2", FromBaseID: "base-c", ToBaseID: "base-a",
		Quantity: 1, Status: models.TransferPending, Date: time.Now().UTC(),
	}))
	require.NoError(t, st.Transfers().Create(ctx, &models.Transfer{
		AssetID: "a3", FromBaseID: "base-b", ToBaseID: "base-c",
		Quantity: 1, Status: models.TransferPending, Date: time.Now().UTC(),
	}))

	got, err := st.Transfers().List(ctx, store.TransferFilter{BaseID: "base-a"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUserUniqueness(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Users().Create(ctx, &models.User{
		Username: "admin", Email: "admin@aegis.local", Password: "x", Role: "admin", IsActive: true,
	}))

	err := st.Users().Create(ctx, &models.User{
		Username: "admin", Email: "other@aegis.local", Password: "x", Role: "viewer",
	})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	got, err := st.Users().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@aegis.local", got.Email)
}

func TestGetReturnsCopy(t *testing.T) {
	st := New()
	ctx := context.Background()

	asset := &models.Asset{Name: "M4 Carbine", Category: models.CategoryWeapons, BaseID: "base-a", QuantityOnHand: 10, IsActive: true}
	require.NoError(t, st.Assets().Create(ctx, asset))

	got, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	got.QuantityOnHand = 777

	// Mutating the returned value must not change stored state.
	again, err := st.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, again.QuantityOnHand)
}

func TestPurchaseDeployedWindowFilter(t *testing.T) {
	st := New()
	ctx := context.Background()

	in := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: "a1", BaseID: "base-a", Quantity: 5,
		Status: models.PurchaseDeployed, DeployedAt: &in, Date: in,
	}))
	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: "a1", BaseID: "base-a", Quantity: 5,
		Status: models.PurchaseDeployed, DeployedAt: &out, Date: out,
	}))
	// Never deployed: excluded from any deploy-window query.
	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: "a1", BaseID: "base-a", Quantity: 5,
		Status: models.PurchasePending, Date: in,
	}))

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	got, err := st.Purchases().List(ctx, store.PurchaseFilter{DeployedStart: &start, DeployedEnd: &end})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
