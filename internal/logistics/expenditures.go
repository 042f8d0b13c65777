package logistics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

type ExpenditureInput struct {
	AssetID      string
	QuantityUsed int
	CostPerUnit  decimal.Decimal
	Date         time.Time
	Purpose      string
}

// CreateExpenditure records irreversible consumption of asset quantity.
func (s *Service) CreateExpenditure(ctx context.Context, user policy.User, in ExpenditureInput) (*models.Expenditure, error) {
	if !policy.CanMutate(user, policy.KindExpenditure, policy.ActionCreate) {
		return nil, errs.Forbiddenf("role %s cannot create expenditures", user.Role)
	}
	if in.AssetID == "" {
		return nil, errs.Validationf("asset_id is required")
	}
	if in.QuantityUsed <= 0 {
		return nil, errs.Validationf("quantity_used must be greater than 0")
	}
	if in.CostPerUnit.IsNegative() {
		return nil, errs.Validationf("cost_per_unit cannot be negative")
	}

	asset, err := s.store.Assets().Get(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, asset.BaseID); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	id := uuid.NewString()
	if err := s.ledger.ApplyExpenditure(ctx, id, asset.ID, in.QuantityUsed); err != nil {
		return nil, err
	}

	expenditure := &models.Expenditure{
		ID:           id,
		AssetID:      asset.ID,
		BaseID:       asset.BaseID,
		QuantityUsed: in.QuantityUsed,
		CostPerUnit:  in.CostPerUnit,
		TotalCost:    in.CostPerUnit.Mul(decimal.NewFromInt(int64(in.QuantityUsed))),
		Date:         in.Date,
		Purpose:      in.Purpose,
		CreatedBy:    user.ID,
	}
	if err := s.store.Expenditures().Create(ctx, expenditure); err != nil {
		// Put the consumed quantity back; without a record the decrement
		// must not stand.
		_ = s.ledger.ReverseExpenditure(ctx, id, asset.ID, in.QuantityUsed)
		return nil, err
	}
	return expenditure, nil
}

func (s *Service) GetExpenditure(ctx context.Context, user policy.User, id string) (*models.Expenditure, error) {
	expenditure, err := s.store.Expenditures().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(user, expenditure.BaseID) {
		return nil, errs.Forbiddenf("expenditure %s is outside your scope", id)
	}
	return expenditure, nil
}

type ExpenditureListFilter struct {
	BaseID  string
	AssetID string
	Start   *time.Time
	End     *time.Time
}

func (s *Service) ListExpenditures(ctx context.Context, user policy.User, filter ExpenditureListFilter) ([]models.Expenditure, error) {
	baseID, err := policy.ScopeQuery(user, filter.BaseID)
	if err != nil {
		return nil, err
	}
	return s.store.Expenditures().List(ctx, store.ExpenditureFilter{
		BaseID:  baseID,
		AssetID: filter.AssetID,
		Start:   filter.Start,
		End:     filter.End,
	})
}

// DeleteExpenditure removes the record only. The consumed stock is not
// restored: an expenditure is irreversible by definition.
func (s *Service) DeleteExpenditure(ctx context.Context, user policy.User, id string) error {
	if !policy.CanMutate(user, policy.KindExpenditure, policy.ActionDelete) {
		return errs.Forbiddenf("role %s cannot delete expenditures", user.Role)
	}

	expenditure, err := s.store.Expenditures().Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := policy.ScopeQuery(user, expenditure.BaseID); err != nil {
		return err
	}
	return s.store.Expenditures().Delete(ctx, id)
}
