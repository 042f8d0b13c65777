package logistics

import (
	"context"

	"github.com/shopspring/decimal"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

type AssetInput struct {
	Name         string
	Category     models.AssetCategory
	BaseID       string
	UnitValue    decimal.Decimal
	ReorderLevel int
}

func (s *Service) CreateAsset(ctx context.Context, user policy.User, in AssetInput) (*models.Asset, error) {
	if !policy.CanMutate(user, policy.KindAsset, policy.ActionCreate) {
		return nil, errs.Forbiddenf("role %s cannot create assets", user.Role)
	}
	if in.Name == "" {
		return nil, errs.Validationf("asset name is required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, errs.Validationf("unknown category %q", in.Category)
	}
	if in.UnitValue.IsNegative() {
		return nil, errs.Validationf("unit value cannot be negative")
	}

	baseID, err := policy.ScopeQuery(user, in.BaseID)
	if err != nil {
		return nil, err
	}
	if baseID == "" {
		return nil, errs.Validationf("base_id is required")
	}
	if _, err := s.store.Bases().Get(ctx, baseID); err != nil {
		return nil, err
	}

	if in.ReorderLevel <= 0 {
		in.ReorderLevel = 10
	}

	asset := &models.Asset{
		Name:         in.Name,
		Category:     in.Category,
		BaseID:       baseID,
		UnitValue:    in.UnitValue,
		ReorderLevel: in.ReorderLevel,
		IsActive:     true,
	}
	if err := s.store.Assets().Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *Service) GetAsset(ctx context.Context, user policy.User, id string) (*models.Asset, error) {
	asset, err := s.store.Assets().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(user, asset.BaseID) {
		return nil, errs.Forbiddenf("asset %s is outside your scope", id)
	}
	return asset, nil
}

type AssetListFilter struct {
	BaseID   string
	Category models.AssetCategory
}

func (s *Service) ListAssets(ctx context.Context, user policy.User, filter AssetListFilter) ([]models.Asset, error) {
	baseID, err := policy.ScopeQuery(user, filter.BaseID)
	if err != nil {
		return nil, err
	}
	if filter.Category != "" && !models.ValidCategory(filter.Category) {
		return nil, errs.Validationf("unknown category %q", filter.Category)
	}
	return s.store.Assets().List(ctx, store.AssetFilter{BaseID: baseID, Category: filter.Category})
}

// AssetPatch updates descriptive attributes only. Quantity counters are
// never edited directly; they change through ledger operations.
type AssetPatch struct {
	Name             *string
	UnitValue        *decimal.Decimal
	UnderMaintenance *bool
	ReorderLevel     *int
	IsActive         *bool
}

func (s *Service) UpdateAsset(ctx context.Context, user policy.User, id string, patch AssetPatch) (*models.Asset, error) {
	if !policy.CanMutate(user, policy.KindAsset, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update assets", user.Role)
	}

	asset, err := s.store.Assets().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, asset.BaseID); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		asset.Name = *patch.Name
	}
	if patch.UnitValue != nil {
		if patch.UnitValue.IsNegative() {
			return nil, errs.Validationf("unit value cannot be negative")
		}
		asset.UnitValue = *patch.UnitValue
	}
	if patch.UnderMaintenance != nil {
		asset.UnderMaintenance = *patch.UnderMaintenance
	}
	if patch.ReorderLevel != nil {
		asset.ReorderLevel = *patch.ReorderLevel
	}
	if patch.IsActive != nil {
		asset.IsActive = *patch.IsActive
	}

	if err := s.store.Assets().Update(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// RetireAsset soft-deletes: assets are never removed, to preserve the
// audit trail behind their ledger history.
func (s *Service) RetireAsset(ctx context.Context, user policy.User, id string) (*models.Asset, error) {
	inactive := false
	return s.UpdateAsset(ctx, user, id, AssetPatch{IsActive: &inactive})
}
