// Package logistics holds the lifecycle services for assets, purchases,
// transfers and expenditures. Every mutation is authorized against the
// access policy and applies its balance effect through the ledger.
package logistics

import (
	"context"

	"github.com/sirupsen/logrus"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/ledger"
	"aegis-system/internal/policy"
	"aegis-system/internal/store"
)

type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	log    *logrus.Logger
}

func NewService(st store.Store, led *ledger.Ledger, log *logrus.Logger) *Service {
	return &Service{store: st, ledger: led, log: log}
}

// --- Bases ---

func (s *Service) CreateBase(ctx context.Context, user policy.User, base *models.Base) (*models.Base, error) {
	if user.Role != policy.RoleAdmin {
		return nil, errs.Forbiddenf("only admins can create bases")
	}
	if base.Code == "" || base.Name == "" {
		return nil, errs.Validationf("base code and name are required")
	}
	base.IsActive = true
	if err := s.store.Bases().Create(ctx, base); err != nil {
		return nil, err
	}
	return base, nil
}

func (s *Service) ListBases(ctx context.Context) ([]models.Base, error) {
	return s.store.Bases().List(ctx)
}

func (s *Service) GetBase(ctx context.Context, id string) (*models.Base, error) {
	return s.store.Bases().Get(ctx, id)
}
