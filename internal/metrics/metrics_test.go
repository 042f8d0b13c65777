package metrics

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
	"aegis-system/internal/policy"
	"aegis-system/internal/store/memory"
)

var admin = policy.User{ID: "admin-1", Role: policy.RoleAdmin}

func testAggregator(t *testing.T) (*Aggregator, *memory.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := memory.New()

	ctx := context.Background()
	require.NoError(t, st.Bases().Create(ctx, &models.Base{ID: "base-a", Code: "A", Name: "Base Alpha", IsActive: true}))
	require.NoError(t, st.Bases().Create(ctx, &models.Base{ID: "base-b", Code: "B", Name: "Base Bravo", IsActive: true}))
	require.NoError(t, st.Bases().Create(ctx, &models.Base{ID: "base-c", Code: "C", Name: "Base Charlie", IsActive: true}))

	return New(st, nil, log), st
}

func addAsset(t *testing.T, st *memory.Memory, baseID string, onHand int, opts func(*models.Asset)) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		Name:           "M4 Carbine",
		Category:       models.CategoryWeapons,
		BaseID:         baseID,
		QuantityOnHand: onHand,
		UnitValue:      decimal.NewFromInt(1200),
		ReorderLevel:   10,
		IsActive:       true,
	}
	if opts != nil {
		opts(asset)
	}
	require.NoError(t, st.Assets().Create(context.Background(), asset))
	return asset
}

func TestDashboardTotalsAndPartition(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	addAsset(t, st, "base-a", 100, func(a *models.Asset) {
		a.QuantityAssigned = 20
		a.QuantityReserved = 5
	})
	addAsset(t, st, "base-a", 30, func(a *models.Asset) {
		a.Name = "Field Radio"
		a.Category = models.CategoryCommunication
		a.UnderMaintenance = true
		a.UnitValue = decimal.NewFromInt(500)
	})
	// Inactive assets stay out of every figure.
	addAsset(t, st, "base-a", 999, func(a *models.Asset) {
		a.Name = "Retired Truck"
		a.IsActive = false
	})

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{})
	require.NoError(t, err)

	assert.Equal(t, 130, dash.TotalAssets)
	assert.Equal(t, 100, dash.OperationalAssets)
	assert.Equal(t, 30, dash.MaintenanceAssets)
	assert.Equal(t, 20, dash.AssignedAssets)
	assert.Equal(t, 105, dash.AvailableAssets)
	// 100*1200 + 30*500
	assert.True(t, dash.TotalValue.Equal(decimal.NewFromInt(135000)))
}

func TestAssetDistributionSumsToHundred(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	addAsset(t, st, "base-a", 842, nil)
	addAsset(t, st, "base-b", 721, nil)
	addAsset(t, st, "base-c", 589, nil)

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{})
	require.NoError(t, err)
	require.Len(t, dash.AssetDistribution, 3)

	assert.Equal(t, "base-a", dash.AssetDistribution[0].BaseID)
	assert.InDelta(t, 39.1, dash.AssetDistribution[0].Percent, 0.001)
	assert.InDelta(t, 33.5, dash.AssetDistribution[1].Percent, 0.001)
	assert.InDelta(t, 27.4, dash.AssetDistribution[2].Percent, 0.001)

	var sum float64
	for _, share := range dash.AssetDistribution {
		sum += share.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestAssetDistributionRoundingDrift(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	// Thirds: 33.3 * 3 = 99.9, so the largest slice absorbs the drift.
	addAsset(t, st, "base-a", 1, nil)
	addAsset(t, st, "base-b", 1, nil)
	addAsset(t, st, "base-c", 1, nil)

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{})
	require.NoError(t, err)

	var sum float64
	for _, share := range dash.AssetDistribution {
		sum += share.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestNetMovement(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()
	asset := addAsset(t, st, "base-a", 1000, nil)

	inWindow := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: asset.ID, BaseID: "base-a", Quantity: 400,
		Status: models.PurchaseDeployed, DeployedAt: &inWindow, Date: inWindow,
	}))
	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: asset.ID, BaseID: "base-a", Quantity: 999,
		Status: models.PurchaseDeployed, DeployedAt: &outside, Date: outside,
	}))
	// Pending orders never count.
	require.NoError(t, st.Purchases().Create(ctx, &models.Purchase{
		AssetID: asset.ID, BaseID: "base-a", Quantity: 777,
		Status: models.PurchasePending, Date: inWindow,
	}))
	require.NoError(t, st.Expenditures().Create(ctx, &models.Expenditure{
		AssetID: asset.ID, BaseID: "base-a", QuantityUsed: 150, Date: inWindow,
	}))
	require.NoError(t, st.Expenditures().Create(ctx, &models.Expenditure{
		AssetID: asset.ID, BaseID: "base-a", QuantityUsed: 888, Date: outside,
	}))

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	dash, err := agg.ComputeDashboard(ctx, admin, Filter{Start: &start, End: &end})
	require.NoError(t, err)

	assert.Equal(t, 400, dash.MonthlyAcquisitions)
	assert.Equal(t, 150, dash.MonthlyDisposals)
	assert.Equal(t, 250, dash.NetMovement)
}

func TestPendingTransfersCount(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()
	asset := addAsset(t, st, "base-a", 100, nil)

	for _, status := range []models.TransferStatus{
		models.TransferPending,
		models.TransferInTransit,
		models.TransferCompleted,
		models.TransferRejected,
	} {
		require.NoError(t, st.Transfers().Create(ctx, &models.Transfer{
			AssetID: asset.ID, FromBaseID: "base-a", ToBaseID: "base-b",
			Quantity: 1, Status: status, Date: time.Now().UTC(),
		}))
	}

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{})
	require.NoError(t, err)
	// Pending and In Transit only.
	assert.Equal(t, 2, dash.PendingTransfers)
	assert.Len(t, dash.RecentTransfers, 4)
}

func TestLowStockItems(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	addAsset(t, st, "base-a", 8, nil) // available 8 <= reorder 10
	addAsset(t, st, "base-a", 50, func(a *models.Asset) {
		a.Name = "Field Radio"
		a.QuantityAssigned = 45 // available 5 <= 10
	})
	addAsset(t, st, "base-a", 50, func(a *models.Asset) { a.Name = "Stretcher" })

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Len(t, dash.LowStockItems, 2)
}

func TestDashboardScope(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	addAsset(t, st, "base-a", 10, nil)
	addAsset(t, st, "base-b", 90, func(a *models.Asset) { a.Name = "Field Radio" })

	commander := policy.User{ID: "cmd-1", Role: policy.RoleBaseCommander, BaseID: "base-a"}

	dash, err := agg.ComputeDashboard(ctx, commander, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 10, dash.TotalAssets)

	// Another base's dashboard is forbidden, not empty.
	_, err = agg.ComputeDashboard(ctx, commander, Filter{BaseID: "base-b"})
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}

func TestCategoryFilter(t *testing.T) {
	agg, st := testAggregator(t)
	ctx := context.Background()

	addAsset(t, st, "base-a", 10, nil)
	addAsset(t, st, "base-a", 30, func(a *models.Asset) {
		a.Name = "Field Radio"
		a.Category = models.CategoryCommunication
	})

	dash, err := agg.ComputeDashboard(ctx, admin, Filter{Category: models.CategoryCommunication})
	require.NoError(t, err)
	assert.Equal(t, 30, dash.TotalAssets)
}
