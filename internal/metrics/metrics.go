// Package metrics computes the read-only dashboard over the record store.
// Results are cached in Redis for a short window; without Redis the
// aggregator just recomputes on every call.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aegis-system/internal/database/models"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

const (
	dashboardKeyPrefix = "aegis:dashboard:"
	dashboardTTL       = 60 * time.Second
	recentTransferMax  = 5
)

// Filter narrows the dashboard. BaseID goes through the access policy, so
// non-admins can only ever see their own base.
type Filter struct {
	BaseID   string
	Category models.AssetCategory
	Start    *time.Time
	End      *time.Time
}

// BaseShare is one slice of the asset distribution. Percent carries one
// decimal place and the slices always sum to 100.0 (within 0.1).
type BaseShare struct {
	BaseID   string  `json:"base_id"`
	BaseName string  `json:"base_name"`
	Quantity int     `json:"quantity"`
	Percent  float64 `json:"percent"`
}

type LowStockItem struct {
	AssetID      string               `json:"asset_id"`
	Name         string               `json:"name"`
	Category     models.AssetCategory `json:"category"`
	BaseID       string               `json:"base_id"`
	Available    int                  `json:"available"`
	ReorderLevel int                  `json:"reorder_level"`
}

type Dashboard struct {
	TotalAssets       int               `json:"total_assets"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	OperationalAssets int               `json:"operational_assets"`
	MaintenanceAssets int               `json:"maintenance_assets"`
	AssignedAssets    int               `json:"assigned_assets"`
	AvailableAssets   int               `json:"available_assets"`
	PendingTransfers  int               `json:"pending_transfers"`
	AssetDistribution []BaseShare       `json:"asset_distribution"`
	LowStockItems     []LowStockItem    `json:"low_stock_items"`
	RecentTransfers   []models.Transfer `json:"recent_transfers"`

	// Movement over the filter period (current month when unset).
	MonthlyAcquisitions int       `json:"monthly_acquisitions"`
	MonthlyDisposals    int       `json:"monthly_disposals"`
	NetMovement         int       `json:"net_movement"`
	PeriodStart         time.Time `json:"period_start"`
	PeriodEnd           time.Time `json:"period_end"`
	GeneratedAt         time.Time `json:"generated_at"`
}

type Aggregator struct {
	store store.Store
	cache *redis.Client
	log   *logrus.Logger
}

// New builds an aggregator. cache may be nil; the dashboard then skips
// caching entirely.
func New(st store.Store, cache *redis.Client, log *logrus.Logger) *Aggregator {
	return &Aggregator{store: st, cache: cache, log: log}
}

func cacheKey(baseID string, f Filter) string {
	start, end := "", ""
	if f.Start != nil {
		start = f.Start.UTC().Format("2006-01-02")
	}
	if f.End != nil {
		end = f.End.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s:%s:%s:%s", dashboardKeyPrefix, baseID, f.Category, start, end)
}

// ComputeDashboard builds the dashboard for the caller's scope. A non-admin
// asking for another base gets a forbidden error, never silently narrowed
// data.
func (a *Aggregator) ComputeDashboard(ctx context.Context, user policy.User, f Filter) (*Dashboard, error) {
	baseID, err := policy.ScopeQuery(user, f.BaseID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(baseID, f)
	if cached := a.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	dash, err := a.compute(ctx, baseID, f)
	if err != nil {
		return nil, err
	}
	a.toCache(ctx, key, dash)
	return dash, nil
}

func (a *Aggregator) compute(ctx context.Context, baseID string, f Filter) (*Dashboard, error) {
	start, end := period(f.Start, f.End)
	dash := &Dashboard{
		TotalValue:  decimal.Zero,
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedAt: time.Now().UTC(),
	}

	active := true
	assets, err := a.store.Assets().List(ctx, store.AssetFilter{
		BaseID:   baseID,
		Category: f.Category,
		IsActive: &active,
	})
	if err != nil {
		return nil, err
	}

	perBase := map[string]int{}
	for i := range assets {
		asset := &assets[i]
		dash.TotalAssets += asset.QuantityOnHand
		dash.TotalValue = dash.TotalValue.Add(
			asset.UnitValue.Mul(decimal.NewFromInt(int64(asset.QuantityOnHand))))
		if asset.UnderMaintenance {
			dash.MaintenanceAssets += asset.QuantityOnHand
		} else {
			dash.OperationalAssets += asset.QuantityOnHand
		}
		dash.AssignedAssets += asset.QuantityAssigned
		dash.AvailableAssets += asset.Available()
		perBase[asset.BaseID] += asset.QuantityOnHand

		if asset.Available() <= asset.ReorderLevel {
			dash.LowStockItems = append(dash.LowStockItems, LowStockItem{
				AssetID:      asset.ID,
				Name:         asset.Name,
				Category:     asset.Category,
				BaseID:       asset.BaseID,
				Available:    asset.Available(),
				ReorderLevel: asset.ReorderLevel,
			})
		}
	}
	dash.AssetDistribution, err = a.distribution(ctx, perBase, dash.TotalAssets)
	if err != nil {
		return nil, err
	}

	pending, err := a.store.Transfers().List(ctx, store.TransferFilter{
		BaseID:   baseID,
		Statuses: []models.TransferStatus{models.TransferPending, models.TransferInTransit},
	})
	if err != nil {
		return nil, err
	}
	dash.PendingTransfers = len(pending)

	recent, err := a.store.Transfers().List(ctx, store.TransferFilter{BaseID: baseID})
	if err != nil {
		return nil, err
	}
	if len(recent) > recentTransferMax {
		recent = recent[:recentTransferMax]
	}
	dash.RecentTransfers = recent

	// Acquisitions count deployed stock by its deploy time, not order date:
	// a purchase only moves the balance when it lands.
	deployed, err := a.store.Purchases().List(ctx, store.PurchaseFilter{
		BaseID:        baseID,
		AssetID:       "",
		Statuses:      []models.PurchaseStatus{models.PurchaseDeployed},
		DeployedStart: &start,
		DeployedEnd:   &end,
	})
	if err != nil {
		return nil, err
	}
	for i := range deployed {
		dash.MonthlyAcquisitions += deployed[i].Quantity
	}

	spent, err := a.store.Expenditures().List(ctx, store.ExpenditureFilter{
		BaseID: baseID,
		Start:  &start,
		End:    &end,
	})
	if err != nil {
		return nil, err
	}
	for i := range spent {
		dash.MonthlyDisposals += spent[i].QuantityUsed
	}
	dash.NetMovement = dash.MonthlyAcquisitions - dash.MonthlyDisposals

	return dash, nil
}

// distribution turns per-base quantities into percentage shares, one decimal
// place each. Rounding drift is folded into the largest share so the slices
// keep summing to 100.
func (a *Aggregator) distribution(ctx context.Context, perBase map[string]int, total int) ([]BaseShare, error) {
	if total == 0 || len(perBase) == 0 {
		return nil, nil
	}

	names := map[string]string{}
	bases, err := a.store.Bases().List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bases {
		names[bases[i].ID] = bases[i].Name
	}

	shares := make([]BaseShare, 0, len(perBase))
	for id, qty := range perBase {
		pct := float64(qty) / float64(total) * 100
		shares = append(shares, BaseShare{
			BaseID:   id,
			BaseName: names[id],
			Quantity: qty,
			Percent:  roundTenth(pct),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Quantity != shares[j].Quantity {
			return shares[i].Quantity > shares[j].Quantity
		}
		return shares[i].BaseID < shares[j].BaseID
	})

	var sum float64
	for i := range shares {
		sum += shares[i].Percent
	}
	shares[0].Percent = roundTenth(shares[0].Percent + (100 - sum))
	return shares, nil
}

func roundTenth(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(1)
	f, _ := d.Float64()
	return f
}

// period fills missing bounds with the current calendar month.
func period(start, end *time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	e := now
	if start != nil {
		s = start.UTC()
	}
	if end != nil {
		e = end.UTC()
	}
	return s, e
}

func (a *Aggregator) fromCache(ctx context.Context, key string) *Dashboard {
	if a.cache == nil {
		return nil
	}
	raw, err := a.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			a.log.WithError(err).Warn("dashboard cache read failed")
		}
		return nil
	}
	var dash Dashboard
	if err := json.Unmarshal([]byte(raw), &dash); err != nil {
		return nil
	}
	return &dash
}

func (a *Aggregator) toCache(ctx context.Context, key string, dash *Dashboard) {
	if a.cache == nil {
		return
	}
	raw, err := json.Marshal(dash)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, raw, dashboardTTL).Err(); err != nil {
		a.log.WithError(err).Warn("dashboard cache write failed")
	}
}

// Invalidate drops every cached dashboard. Called after any mutation that
// changes balances; cheap because the key space is tiny.
func (a *Aggregator) Invalidate(ctx context.Context) {
	if a.cache == nil {
		return
	}
	keys, err := a.cache.Keys(ctx, dashboardKeyPrefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := a.cache.Del(ctx, keys...).Err(); err != nil {
		a.log.WithError(err).Warn("dashboard cache invalidation failed")
	}
}
