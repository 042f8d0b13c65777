package logistics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

// transferTransitions enumerates the legal status moves. Completed and
// Rejected are terminal.
var transferTransitions = map[models.TransferStatus][]models.TransferStatus{
	models.TransferPending:   {models.TransferInTransit, models.TransferCompleted, models.TransferRejected},
	models.TransferInTransit: {models.TransferCompleted, models.TransferRejected},
}

func canTransferTransition(from, to models.TransferStatus) bool {
	for _, next := range transferTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransferInput struct {
	AssetID  string
	ToBaseID string
	Quantity int
	Date     time.Time
}

// CreateTransfer reserves the quantity at the source base immediately; the
// destination only gains stock on completion.
func (s *Service) CreateTransfer(ctx context.Context, user policy.User, in TransferInput) (*models.Transfer, error) {
	if !policy.CanMutate(user, policy.KindTransfer, policy.ActionCreate) {
		return nil, errs.Forbiddenf("role %s cannot create transfers", user.Role)
	}
	if in.AssetID == "" || in.ToBaseID == "" {
		return nil, errs.Validationf("asset_id and to_base_id are required")
	}
	if in.Quantity <= 0 {
		return nil, errs.Validationf("quantity must be greater than 0")
	}

	asset, err := s.store.Assets().Get(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, asset.BaseID); err != nil {
		return nil, err
	}
	if asset.BaseID == in.ToBaseID {
		return nil, errs.Validationf("cannot transfer to the same base")
	}
	if _, err := s.store.Bases().Get(ctx, in.ToBaseID); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	id := uuid.NewString()
	if err := s.ledger.ReserveForTransfer(ctx, id, asset.ID, in.Quantity); err != nil {
		return nil, err
	}

	transfer := &models.Transfer{
		ID:         id,
		AssetID:    asset.ID,
		FromBaseID: asset.BaseID,
		ToBaseID:   in.ToBaseID,
		Quantity:   in.Quantity,
		Status:     models.TransferPending,
		Date:       in.Date,
		CreatedBy:  user.ID,
	}
	if err := s.store.Transfers().Create(ctx, transfer); err != nil {
		_ = s.ledger.ReleaseReservation(ctx, id, asset.ID, in.Quantity)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transfer_id": transfer.ID,
		"asset_id":    asset.ID,
		"from_base":   transfer.FromBaseID,
		"to_base":     transfer.ToBaseID,
		"quantity":    in.Quantity,
	}).Info("transfer created")
	return transfer, nil
}

func (s *Service) GetTransfer(ctx context.Context, user policy.User, id string) (*models.Transfer, error) {
	transfer, err := s.store.Transfers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewEither(user, transfer.FromBaseID, transfer.ToBaseID) {
		return nil, errs.Forbiddenf("transfer %s is outside your scope", id)
	}
	return transfer, nil
}

type TransferListFilter struct {
	BaseID string
	Status models.TransferStatus
	Start  *time.Time
	End    *time.Time
}

func (s *Service) ListTransfers(ctx context.Context, user policy.User, filter TransferListFilter) ([]models.Transfer, error) {
	baseID, err := policy.ScopeQuery(user, filter.BaseID)
	if err != nil {
		return nil, err
	}
	storeFilter := store.TransferFilter{BaseID: baseID, Start: filter.Start, End: filter.End}
	if filter.Status != "" {
		storeFilter.Statuses = []models.TransferStatus{filter.Status}
	}
	return s.store.Transfers().List(ctx, storeFilter)
}

// UpdateTransferStatus moves a transfer through its lifecycle. Completion
// applies the ledger move; rejection restores the source reservation.
func (s *Service) UpdateTransferStatus(ctx context.Context, user policy.User, id string, newStatus models.TransferStatus) (*models.Transfer, error) {
	if !policy.CanMutate(user, policy.KindTransfer, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update transfers", user.Role)
	}

	transfer, err := s.store.Transfers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewEither(user, transfer.FromBaseID, transfer.ToBaseID) {
		return nil, errs.Forbiddenf("transfer %s is outside your scope", id)
	}
	if !canTransferTransition(transfer.Status, newStatus) {
		return nil, errs.InvalidTransitionf("%s -> %s", transfer.Status, newStatus)
	}

	switch newStatus {
	case models.TransferCompleted:
		err = s.ledger.ApplyTransferCompleted(ctx, transfer.ID, transfer.AssetID,
			transfer.FromBaseID, transfer.ToBaseID, transfer.Quantity)
	case models.TransferRejected:
		err = s.ledger.ReleaseReservation(ctx, transfer.ID, transfer.AssetID, transfer.Quantity)
	}
	if err != nil {
		return nil, err
	}

	transfer.Status = newStatus
	if err := s.store.Transfers().Update(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

func (s *Service) CompleteTransfer(ctx context.Context, user policy.User, id string) (*models.Transfer, error) {
	return s.UpdateTransferStatus(ctx, user, id, models.TransferCompleted)
}

func (s *Service) RejectTransfer(ctx context.Context, user policy.User, id string) (*models.Transfer, error) {
	return s.UpdateTransferStatus(ctx, user, id, models.TransferRejected)
}

// DeleteTransfer removes the record; an in-flight transfer hands its
// reservation back first. Completed transfers stay for the audit trail.
func (s *Service) DeleteTransfer(ctx context.Context, user policy.User, id string) error {
	if !policy.CanMutate(user, policy.KindTransfer, policy.ActionDelete) {
		return errs.Forbiddenf("role %s cannot delete transfers", user.Role)
	}

	transfer, err := s.store.Transfers().Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanViewEither(user, transfer.FromBaseID, transfer.ToBaseID) {
		return errs.Forbiddenf("transfer %s is outside your scope", id)
	}
	if transfer.Status == models.TransferCompleted {
		return errs.InvalidTransitionf("completed transfers are part of the audit trail")
	}
	if transfer.Status == models.TransferPending || transfer.Status == models.TransferInTransit {
		if err := s.ledger.ReleaseReservation(ctx, transfer.ID, transfer.AssetID, transfer.Quantity); err != nil {
			return err
		}
	}
	return s.store.Transfers().Delete(ctx, id)
}
