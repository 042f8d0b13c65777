package logistics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

// purchaseRank orders purchase statuses; a status may only move forward.
func purchaseRank(s models.PurchaseStatus) int {
	switch s {
	case models.PurchasePending:
		return 0
	case models.PurchaseProcessing:
		return 1
	case models.PurchaseDeployed:
		return 2
	}
	return -1
}

// NewAssetInput describes an asset a purchase creates when it does not
// reference an existing one. The asset is born empty; stock lands on
// deploy.
type NewAssetInput struct {
	Name         string
	Category     models.AssetCategory
	UnitValue    decimal.Decimal
	ReorderLevel int
}

type PurchaseInput struct {
	AssetID  string
	NewAsset *NewAssetInput
	BaseID   string
	Quantity int
	UnitCost decimal.Decimal
	Vendor   string
	Date     time.Time
	Priority models.PurchasePriority
}

func (s *Service) CreatePurchase(ctx context.Context, user policy.User, in PurchaseInput) (*models.Purchase, error) {
	if !policy.CanMutate(user, policy.KindPurchase, policy.ActionCreate) {
		return nil, errs.Forbiddenf("role %s cannot create purchases", user.Role)
	}
	if in.Quantity <= 0 {
		return nil, errs.Validationf("quantity must be greater than 0")
	}
	if in.UnitCost.IsNegative() {
		return nil, errs.Validationf("unit cost cannot be negative")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(in.Priority) {
		return nil, errs.Validationf("unknown priority %q", in.Priority)
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	var asset *models.Asset
	switch {
	case in.AssetID != "":
		var err error
		asset, err = s.store.Assets().Get(ctx, in.AssetID)
		if err != nil {
			return nil, err
		}
		if _, err := policy.ScopeQuery(user, asset.BaseID); err != nil {
			return nil, err
		}
	case in.NewAsset != nil:
		var err error
		asset, err = s.CreateAsset(ctx, user, AssetInput{
			Name:         in.NewAsset.Name,
			Category:     in.NewAsset.Category,
			BaseID:       in.BaseID,
			UnitValue:    in.NewAsset.UnitValue,
			ReorderLevel: in.NewAsset.ReorderLevel,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, errs.Validationf("asset_id or new_asset is required")
	}

	purchase := &models.Purchase{
		AssetID:   asset.ID,
		BaseID:    asset.BaseID,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		Vendor:    in.Vendor,
		Date:      in.Date,
		Priority:  in.Priority,
		Status:    models.PurchasePending,
		CreatedBy: user.ID,
	}
	if err := s.store.Purchases().Create(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *Service) GetPurchase(ctx context.Context, user policy.User, id string) (*models.Purchase, error) {
	purchase, err := s.store.Purchases().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(user, purchase.BaseID) {
		return nil, errs.Forbiddenf("purchase %s is outside your scope", id)
	}
	return purchase, nil
}

type PurchaseListFilter struct {
	BaseID string
	Status models.PurchaseStatus
	Start  *time.Time
	End    *time.Time
}

func (s *Service) ListPurchases(ctx context.Context, user policy.User, filter PurchaseListFilter) ([]models.Purchase, error) {
	baseID, err := policy.ScopeQuery(user, filter.BaseID)
	if err != nil {
		return nil, err
	}
	storeFilter := store.PurchaseFilter{BaseID: baseID, Start: filter.Start, End: filter.End}
	if filter.Status != "" {
		storeFilter.Statuses = []models.PurchaseStatus{filter.Status}
	}
	return s.store.Purchases().List(ctx, storeFilter)
}

// PurchasePatch edits order details. A Deployed purchase is immutable.
type PurchasePatch struct {
	Quantity *int
	UnitCost *decimal.Decimal
	Vendor   *string
	Priority *models.PurchasePriority
	Date     *time.Time
}

func (s *Service) UpdatePurchase(ctx context.Context, user policy.User, id string, patch PurchasePatch) (*models.Purchase, error) {
	if !policy.CanMutate(user, policy.KindPurchase, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update purchases", user.Role)
	}

	purchase, err := s.store.Purchases().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, purchase.BaseID); err != nil {
		return nil, err
	}
	if purchase.Status == models.PurchaseDeployed {
		return nil, errs.InvalidTransitionf("purchase %s is deployed and immutable", id)
	}

	if patch.Quantity != nil {
		if purchase.Status != models.PurchasePending {
			return nil, errs.InvalidTransitionf("quantity can only change while pending")
		}
		if *patch.Quantity <= 0 {
			return nil, errs.Validationf("quantity must be greater than 0")
		}
		purchase.Quantity = *patch.Quantity
	}
	if patch.UnitCost != nil {
		if patch.UnitCost.IsNegative() {
			return nil, errs.Validationf("unit cost cannot be negative")
		}
		purchase.UnitCost = *patch.UnitCost
	}
	if patch.Vendor != nil {
		purchase.Vendor = *patch.Vendor
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return nil, errs.Validationf("unknown priority %q", *patch.Priority)
		}
		purchase.Priority = *patch.Priority
	}
	if patch.Date != nil {
		purchase.Date = *patch.Date
	}

	if err := s.store.Purchases().Update(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// AdvancePurchase moves the status forward. The stock effect fires exactly
// once, at the transition into Deployed; the ledger's idempotency key (the
// purchase id) guards against replays.
func (s *Service) AdvancePurchase(ctx context.Context, user policy.User, id string, newStatus models.PurchaseStatus) (*models.Purchase, error) {
	if !policy.CanMutate(user, policy.KindPurchase, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update purchases", user.Role)
	}
	if purchaseRank(newStatus) < 0 {
		return nil, errs.Validationf("unknown purchase status %q", newStatus)
	}

	purchase, err := s.store.Purchases().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, purchase.BaseID); err != nil {
		return nil, err
	}
	if purchaseRank(newStatus) <= purchaseRank(purchase.Status) {
		return nil, errs.InvalidTransitionf("%s -> %s", purchase.Status, newStatus)
	}

	if newStatus == models.PurchaseDeployed {
		if err := s.ledger.ApplyPurchaseDeployed(ctx, purchase.ID, purchase.AssetID, purchase.Quantity); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		purchase.DeployedAt = &now
	}

	purchase.Status = newStatus
	if err := s.store.Purchases().Update(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// DeployPurchase is the lifecycle action the REST layer exposes.
func (s *Service) DeployPurchase(ctx context.Context, user policy.User, id string) (*models.Purchase, error) {
	return s.AdvancePurchase(ctx, user, id, models.PurchaseDeployed)
}

func (s *Service) DeletePurchase(ctx context.Context, user policy.User, id string) error {
	if !policy.CanMutate(user, policy.KindPurchase, policy.ActionDelete) {
		return errs.Forbiddenf("role %s cannot delete purchases", user.Role)
	}

	purchase, err := s.store.Purchases().Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := policy.ScopeQuery(user, purchase.BaseID); err != nil {
		return err
	}
	if purchase.Status == models.PurchaseDeployed {
		return errs.InvalidTransitionf("deployed purchases are part of the audit trail")
	}
	return s.store.Purchases().Delete(ctx, id)
}
