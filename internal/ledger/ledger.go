// Package ledger owns asset quantity state. Every balance-changing
// operation is a single atomic adjustment to one asset's counters,
// validated before commit and recorded as a ledger entry keyed by the
// originating event id, so replaying an event never double-applies.
package ledger

import (
	"context"

	"github.com/sirupsen/logrus"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/store"
)

type Ledger struct {
	store store.Store
	log   *logrus.Logger
}

func New(st store.Store, log *logrus.Logger) *Ledger {
	return &Ledger{store: st, log: log}
}

// ApplyPurchaseDeployed adds purchased quantity to the asset's on-hand
// count. eventID is the purchase id; the effect fires exactly once per
// purchase.
func (l *Ledger) ApplyPurchaseDeployed(ctx context.Context, eventID, assetID string, quantity int) error {
	if quantity <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpPurchaseDeployed)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		asset.QuantityOnHand += quantity
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpPurchaseDeployed, asset, quantity)
	})
}

// ReserveForTransfer removes quantity from the source asset's available
// pool without changing on-hand, holding it until the transfer completes
// or is released.
func (l *Ledger) ReserveForTransfer(ctx context.Context, eventID, assetID string, quantity int) error {
	if quantity <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpTransferReserved)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		if asset.Available() < quantity {
			return errs.InsufficientStockf("available %d, requested %d", asset.Available(), quantity)
		}

		asset.QuantityReserved += quantity
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpTransferReserved, asset, quantity)
	})
}

// ReleaseReservation returns a reserved quantity to the source's available
// pool (a rejected transfer).
func (l *Ledger) ReleaseReservation(ctx context.Context, eventID, assetID string, quantity int) error {
	if quantity <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpTransferReleased)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		if asset.QuantityReserved < quantity {
			return errs.InsufficientStockf("reserved %d, requested release %d", asset.QuantityReserved, quantity)
		}

		asset.QuantityReserved -= quantity
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpTransferReleased, asset, quantity)
	})
}

// ApplyTransferCompleted consumes the reservation at the source base and
// adds the quantity to the matching asset at the destination, creating it
// there if absent.
func (l *Ledger) ApplyTransferCompleted(ctx context.Context, eventID, assetID, fromBaseID, toBaseID string, quantity int) error {
	if quantity <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpTransferCompleted)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		source, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}
		if source.BaseID != fromBaseID {
			return errs.UnknownEntityf("asset %s not held at base %s", assetID, fromBaseID)
		}

		if source.QuantityReserved < quantity {
			return errs.InsufficientStockf("reserved %d, transfer needs %d", source.QuantityReserved, quantity)
		}

		source.QuantityReserved -= quantity
		source.QuantityOnHand -= quantity
		if err := tx.Assets().Update(ctx, source); err != nil {
			return err
		}

		dest, err := tx.Assets().FindAtBase(ctx, toBaseID, source.Name, source.Category)
		if err != nil {
			dest = &models.Asset{
				Name:         source.Name,
				Category:     source.Category,
				BaseID:       toBaseID,
				UnitValue:    source.UnitValue,
				ReorderLevel: source.ReorderLevel,
				IsActive:     true,
			}
			if err := tx.Assets().Create(ctx, dest); err != nil {
				return err
			}
		}
		dest.QuantityOnHand += quantity
		if err := tx.Assets().Update(ctx, dest); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpTransferCompleted, source, quantity)
	})
}

// ApplyExpenditure irreversibly consumes quantity from the asset's
// available pool.
func (l *Ledger) ApplyExpenditure(ctx context.Context, eventID, assetID string, quantityUsed int) error {
	if quantityUsed <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpExpenditure)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		if asset.Available() < quantityUsed {
			return errs.InsufficientStockf("available %d, requested %d", asset.Available(), quantityUsed)
		}

		asset.QuantityOnHand -= quantityUsed
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpExpenditure, asset, quantityUsed)
	})
}

// ReverseExpenditure restores quantity consumed under eventID. Used when
// the expenditure record could not be persisted after the decrement.
func (l *Ledger) ReverseExpenditure(ctx context.Context, eventID, assetID string, quantity int) error {
	if quantity <= 0 {
		return errs.Validationf("quantity must be greater than 0")
	}

	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpExpenditureReversed)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		asset.QuantityOnHand += quantity
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpExpenditureReversed, asset, quantity)
	})
}

// IssueUnit marks one unit of the asset as assigned.
func (l *Ledger) IssueUnit(ctx context.Context, eventID, assetID string) error {
	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpAssignmentIssued)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		if asset.Available() < 1 {
			return errs.InsufficientStockf("no unassigned unit of asset %s", assetID)
		}

		asset.QuantityAssigned++
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpAssignmentIssued, asset, 1)
	})
}

// ReturnUnit releases one assigned unit, whether the assignment was
// returned or deleted while active.
func (l *Ledger) ReturnUnit(ctx context.Context, eventID, assetID string) error {
	return l.store.Atomic(ctx, func(tx store.Store) error {
		applied, err := tx.Ledger().Exists(ctx, eventID, models.OpAssignmentClosed)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return err
		}

		if asset.QuantityAssigned < 1 {
			return errs.InsufficientStockf("asset %s has no assigned units", assetID)
		}

		asset.QuantityAssigned--
		if err := tx.Assets().Update(ctx, asset); err != nil {
			return err
		}

		return l.record(ctx, tx, eventID, models.OpAssignmentClosed, asset, 1)
	})
}

func (l *Ledger) record(ctx context.Context, tx store.Store, eventID string, op models.LedgerOp, asset *models.Asset, quantity int) error {
	entry := &models.LedgerEntry{
		EventID:  eventID,
		Op:       op,
		AssetID:  asset.ID,
		BaseID:   asset.BaseID,
		Quantity: quantity,
	}
	if err := tx.Ledger().Create(ctx, entry); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{
		"event_id": eventID,
		"op":       op,
		"asset_id": asset.ID,
		"quantity": quantity,
	}).Info("ledger entry applied")
	return nil
}

// History lists the applied operations for one asset, newest first.
func (l *Ledger) History(ctx context.Context, assetID string) ([]models.LedgerEntry, error) {
	return l.store.Ledger().ListByAsset(ctx, assetID)
}
