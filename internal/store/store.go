// Package store defines the record-store contract the core operates over.
// Two implementations exist: gormstore (Postgres) and memory (the fallback
// used when no database is reachable, and by the package tests).
package store

import (
	"context"
	"time"

	"aegis-system/internal/database/models"
)

// Filters are conjunctive: every set field restricts the result further.
// Zero values mean "no restriction".

type AssetFilter struct {
	BaseID   string
	Category models.AssetCategory
	IsActive *bool
}

type PurchaseFilter struct {
	BaseID   string
	AssetID  string
	Statuses []models.PurchaseStatus
	// Date bounds on the purchase date.
	Start *time.Time
	End   *time.Time
	// Bounds on when the stock effect was applied.
	DeployedStart *time.Time
	DeployedEnd   *time.Time
}

type TransferFilter struct {
	// BaseID matches either end of the transfer.
	BaseID   string
	AssetID  string
	Statuses []models.TransferStatus
	Start    *time.Time
	End      *time.Time
}

type AssignmentFilter struct {
	BaseID   string
	AssetID  string
	Statuses []models.AssignmentStatus
	Start    *time.Time
	End      *time.Time
}

type ExpenditureFilter struct {
	BaseID  string
	AssetID string
	Start   *time.Time
	End     *time.Time
}

type AssetRepo interface {
	Create(ctx context.Context, asset *models.Asset) error
	Get(ctx context.Context, id string) (*models.Asset, error)
	// FindAtBase locates the asset of the same name and category at a base,
	// used when a transfer materializes stock at its destination.
	FindAtBase(ctx context.Context, baseID, name string, category models.AssetCategory) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) error
	List(ctx context.Context, filter AssetFilter) ([]models.Asset, error)
}

type PurchaseRepo interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	Get(ctx context.Context, id string) (*models.Purchase, error)
	Update(ctx context.Context, purchase *models.Purchase) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error)
}

type TransferRepo interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	Get(ctx context.Context, id string) (*models.Transfer, error)
	Update(ctx context.Context, transfer *models.Transfer) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TransferFilter) ([]models.Transfer, error)
}

type AssignmentRepo interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Get(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
}

type ExpenditureRepo interface {
	Create(ctx context.Context, expenditure *models.Expenditure) error
	Get(ctx context.Context, id string) (*models.Expenditure, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ExpenditureFilter) ([]models.Expenditure, error)
}

type BaseRepo interface {
	Create(ctx context.Context, base *models.Base) error
	Get(ctx context.Context, id string) (*models.Base, error)
	List(ctx context.Context) ([]models.Base, error)
}

type UserRepo interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type LedgerRepo interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Exists(ctx context.Context, eventID string, op models.LedgerOp) (bool, error)
	ListByAsset(ctx context.Context, assetID string) ([]models.LedgerEntry, error)
}

type Store interface {
	Assets() AssetRepo
	Purchases() PurchaseRepo
	Transfers() TransferRepo
	Assignments() AssignmentRepo
	Expenditures() ExpenditureRepo
	Bases() BaseRepo
	Users() UserRepo
	Ledger() LedgerRepo

	// Atomic runs fn with exclusive write access; either every change fn
	// makes is committed or none is. Ledger operations rely on this for
	// their read-modify-write on a single asset's counters.
	Atomic(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
}
