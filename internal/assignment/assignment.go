// Package assignment governs the personnel-to-asset loan lifecycle. Stored
// status only ever changes through the operations here; the Overdue state
// is derived on read and never persisted.
package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/ledger"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

// transitions enumerates the legal stored-status moves. Returned is
// terminal; Overdue is absent because it is never stored.
var transitions = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentActive:   {models.AssignmentReturned, models.AssignmentOnHold, models.AssignmentExtended},
	models.AssignmentExtended: {models.AssignmentReturned},
	models.AssignmentOnHold:   {models.AssignmentReturned},
}

func CanTransition(from, to models.AssignmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EffectiveStatus derives the display status as of a date without touching
// stored state: an active-family assignment past its expected return date
// reads as Overdue.
func EffectiveStatus(a *models.Assignment, asOf time.Time) models.AssignmentStatus {
	switch a.Status {
	case models.AssignmentActive, models.AssignmentExtended, models.AssignmentOnHold:
		if a.ExpectedReturnDate != nil && asOf.After(*a.ExpectedReturnDate) {
			return models.AssignmentOverdue
		}
	}
	return a.Status
}

// View pairs an assignment with its derived display status.
type View struct {
	models.Assignment
	EffectiveStatus models.AssignmentStatus `json:"effective_status"`
}

type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	log    *logrus.Logger
}

func NewService(st store.Store, led *ledger.Ledger, log *logrus.Logger) *Service {
	return &Service{store: st, ledger: led, log: log}
}

type CreateInput struct {
	AssetID            string
	PersonnelName      string
	PersonnelRank      string
	AssignmentDate     time.Time
	ExpectedReturnDate *time.Time
	Purpose            string
}

// Create issues one unit of the asset to the named person. Fails with
// InsufficientStock when no unassigned unit exists.
func (s *Service) Create(ctx context.Context, user policy.User, in CreateInput) (*models.Assignment, error) {
	if !policy.CanMutate(user, policy.KindAssignment, policy.ActionCreate) {
		return nil, errs.Forbiddenf("role %s cannot create assignments", user.Role)
	}
	if in.AssetID == "" || in.PersonnelName == "" {
		return nil, errs.Validationf("asset_id and personnel_name are required")
	}

	asset, err := s.store.Assets().Get(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, asset.BaseID); err != nil {
		return nil, err
	}

	if in.AssignmentDate.IsZero() {
		in.AssignmentDate = time.Now().UTC()
	}

	id := uuid.NewString()
	if err := s.ledger.IssueUnit(ctx, id, asset.ID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ID:                 id,
		AssetID:            asset.ID,
		BaseID:             asset.BaseID,
		PersonnelName:      in.PersonnelName,
		PersonnelRank:      in.PersonnelRank,
		AssignmentDate:     in.AssignmentDate,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Purpose:            in.Purpose,
		Status:             models.AssignmentActive,
		CreatedBy:          user.ID,
	}
	if err := s.store.Assignments().Create(ctx, assignment); err != nil {
		// Hand the unit back so the counters stay consistent with the
		// (absent) record.
		_ = s.ledger.ReturnUnit(ctx, id, asset.ID)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"assignment_id": assignment.ID,
		"asset_id":      asset.ID,
		"personnel":     in.PersonnelName,
	}).Info("assignment created")
	return assignment, nil
}

// MarkReturned closes the loan: releases the unit, stamps the actual return
// date and moves the stored status to Returned.
func (s *Service) MarkReturned(ctx context.Context, user policy.User, id string, returnDate time.Time) (*models.Assignment, error) {
	if !policy.CanMutate(user, policy.KindAssignment, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update assignments", user.Role)
	}

	assignment, err := s.store.Assignments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, assignment.BaseID); err != nil {
		return nil, err
	}
	if !CanTransition(assignment.Status, models.AssignmentReturned) {
		return nil, errs.InvalidTransitionf("%s -> %s", assignment.Status, models.AssignmentReturned)
	}

	if returnDate.IsZero() {
		returnDate = time.Now().UTC()
	}

	if err := s.ledger.ReturnUnit(ctx, id, assignment.AssetID); err != nil {
		return nil, err
	}

	assignment.Status = models.AssignmentReturned
	assignment.ActualReturnDate = &returnDate
	if err := s.store.Assignments().Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// UpdateStatus applies a lateral transition (On Hold, Extended) or routes a
// Returned request through MarkReturned. Overdue is a derived state and is
// rejected here.
func (s *Service) UpdateStatus(ctx context.Context, user policy.User, id string, newStatus models.AssignmentStatus) (*models.Assignment, error) {
	if newStatus == models.AssignmentReturned {
		return s.MarkReturned(ctx, user, id, time.Now().UTC())
	}
	if !policy.CanMutate(user, policy.KindAssignment, policy.ActionUpdate) {
		return nil, errs.Forbiddenf("role %s cannot update assignments", user.Role)
	}

	assignment, err := s.store.Assignments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := policy.ScopeQuery(user, assignment.BaseID); err != nil {
		return nil, err
	}
	if !CanTransition(assignment.Status, newStatus) {
		return nil, errs.InvalidTransitionf("%s -> %s", assignment.Status, newStatus)
	}

	assignment.Status = newStatus
	if err := s.store.Assignments().Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Delete removes the record. An assignment still holding a unit releases it
// first, so the asset's assigned count stays equal to its live assignments.
func (s *Service) Delete(ctx context.Context, user policy.User, id string) error {
	if !policy.CanMutate(user, policy.KindAssignment, policy.ActionDelete) {
		return errs.Forbiddenf("role %s cannot delete assignments", user.Role)
	}

	assignment, err := s.store.Assignments().Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := policy.ScopeQuery(user, assignment.BaseID); err != nil {
		return err
	}

	if assignment.Status.ActiveFamily() {
		if err := s.ledger.ReturnUnit(ctx, id, assignment.AssetID); err != nil {
			return err
		}
	}
	return s.store.Assignments().Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, user policy.User, id string) (*View, error) {
	assignment, err := s.store.Assignments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(user, assignment.BaseID) {
		return nil, errs.Forbiddenf("assignment %s is outside your scope", id)
	}
	return &View{Assignment: *assignment, EffectiveStatus: EffectiveStatus(assignment, time.Now().UTC())}, nil
}

type ListFilter struct {
	BaseID  string
	AssetID string
	Status  models.AssignmentStatus
}

func (s *Service) List(ctx context.Context, user policy.User, filter ListFilter) ([]View, error) {
	baseID, err := policy.ScopeQuery(user, filter.BaseID)
	if err != nil {
		return nil, err
	}

	storeFilter := store.AssignmentFilter{BaseID: baseID, AssetID: filter.AssetID}
	if filter.Status != "" && filter.Status != models.AssignmentOverdue {
		storeFilter.Statuses = []models.AssignmentStatus{filter.Status}
	}

	assignments, err := s.store.Assignments().List(ctx, storeFilter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]View, 0, len(assignments))
	for i := range assignments {
		effective := EffectiveStatus(&assignments[i], now)
		// An Overdue filter matches on the derived status.
		if filter.Status == models.AssignmentOverdue && effective != models.AssignmentOverdue {
			continue
		}
		views = append(views, View{Assignment: assignments[i], EffectiveStatus: effective})
	}
	return views, nil
}
