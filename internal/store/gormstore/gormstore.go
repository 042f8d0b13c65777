// Package gormstore is the Postgres-backed record store.
package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/store"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Assets() store.AssetRepo             { return assetRepo{s.db} }
func (s *Store) Purchases() store.PurchaseRepo       { return purchaseRepo{s.db} }
func (s *Store) Transfers() store.TransferRepo       { return transferRepo{s.db} }
func (s *Store) Assignments() store.AssignmentRepo   { return assignmentRepo{s.db} }
func (s *Store) Expenditures() store.ExpenditureRepo { return expenditureRepo{s.db} }
func (s *Store) Bases() store.BaseRepo               { return baseRepo{s.db} }
func (s *Store) Users() store.UserRepo               { return userRepo{s.db} }
func (s *Store) Ledger() store.LedgerRepo            { return ledgerRepo{s.db} }

// Atomic wraps fn in a database transaction. Asset reads inside the
// transaction take a row lock, which gives the one-asset compare-and-set
// the ledger needs.
func (s *Store) Atomic(ctx context.Context, fn func(store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{Store{db: tx}})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// txStore marks a store already inside a transaction; asset lookups lock
// the row and nested Atomic reuses the open transaction.
type txStore struct {
	Store
}

func (s *txStore) Assets() store.AssetRepo {
	return assetRepo{s.db.Clauses(clause.Locking{Strength: "UPDATE"})}
}

func (s *txStore) Atomic(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func notFound(err error, wrapped error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapped
	}
	return err
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// --- Assets ---

type assetRepo struct{ db *gorm.DB }

func (r assetRepo) Create(ctx context.Context, asset *models.Asset) error {
	ensureID(&asset.ID)
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r assetRepo) Get(ctx context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("asset %s", id))
	}
	return &asset, nil
}

func (r assetRepo) FindAtBase(ctx context.Context, baseID, name string, category models.AssetCategory) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Where("base_id = ? AND name = ? AND category = ?", baseID, name, category).
		First(&asset).Error
	if err != nil {
		return nil, notFound(err, errs.UnknownEntityf("asset %q at base %s", name, baseID))
	}
	return &asset, nil
}

func (r assetRepo) Update(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

func (r assetRepo) List(ctx context.Context, filter store.AssetFilter) ([]models.Asset, error) {
	query := r.db.WithContext(ctx).Model(&models.Asset{})
	if filter.BaseID != "" {
		query = query.Where("base_id = ?", filter.BaseID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	var assets []models.Asset
	if err := query.Order("name, id").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// --- Purchases ---

type purchaseRepo struct{ db *gorm.DB }

func (r purchaseRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	ensureID(&purchase.ID)
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r purchaseRepo) Get(ctx context.Context, id string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("purchase %s", id))
	}
	return &purchase, nil
}

func (r purchaseRepo) Update(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Save(purchase).Error
}

func (r purchaseRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Purchase{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.UnknownEntityf("purchase %s", id)
	}
	return nil
}

func (r purchaseRepo) List(ctx context.Context, filter store.PurchaseFilter) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).Model(&models.Purchase{})
	if filter.BaseID != "" {
		query = query.Where("base_id = ?", filter.BaseID)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Start != nil {
		query = query.Where("date >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("date <= ?", *filter.End)
	}
	if filter.DeployedStart != nil {
		query = query.Where("deployed_at >= ?", *filter.DeployedStart)
	}
	if filter.DeployedEnd != nil {
		query = query.Where("deployed_at <= ?", *filter.DeployedEnd)
	}
	if filter.DeployedStart != nil || filter.DeployedEnd != nil {
		query = query.Where("deployed_at IS NOT NULL")
	}
	var purchases []models.Purchase
	if err := query.Order("created_at DESC, id").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// --- Transfers ---

type transferRepo struct{ db *gorm.DB }

func (r transferRepo) Create(ctx context.Context, transfer *models.Transfer) error {
	ensureID(&transfer.ID)
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r transferRepo) Get(ctx context.Context, id string) (*models.Transfer, error) {
	var transfer models.Transfer
	if err := r.db.WithContext(ctx).First(&transfer, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("transfer %s", id))
	}
	return &transfer, nil
}

func (r transferRepo) Update(ctx context.Context, transfer *models.Transfer) error {
	return r.db.WithContext(ctx).Save(transfer).Error
}

func (r transferRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Transfer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.UnknownEntityf("transfer %s", id)
	}
	return nil
}

func (r transferRepo) List(ctx context.Context, filter store.TransferFilter) ([]models.Transfer, error) {
	query := r.db.WithContext(ctx).Model(&models.Transfer{})
	if filter.BaseID != "" {
		query = query.Where("from_base_id = ? OR to_base_id = ?", filter.BaseID, filter.BaseID)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Start != nil {
		query = query.Where("date >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("date <= ?", *filter.End)
	}
	var transfers []models.Transfer
	if err := query.Order("created_at DESC, id").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// --- Assignments ---

type assignmentRepo struct{ db *gorm.DB }

func (r assignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	ensureID(&assignment.ID)
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r assignmentRepo) Get(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("assignment %s", id))
	}
	return &assignment, nil
}

func (r assignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r assignmentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.UnknownEntityf("assignment %s", id)
	}
	return nil
}

func (r assignmentRepo) List(ctx context.Context, filter store.AssignmentFilter) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.BaseID != "" {
		query = query.Where("base_id = ?", filter.BaseID)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Start != nil {
		query = query.Where("assignment_date >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("assignment_date <= ?", *filter.End)
	}
	var assignments []models.Assignment
	if err := query.Order("created_at DESC, id").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// --- Expenditures ---

type expenditureRepo struct{ db *gorm.DB }

func (r expenditureRepo) Create(ctx context.Context, expenditure *models.Expenditure) error {
	ensureID(&expenditure.ID)
	return r.db.WithContext(ctx).Create(expenditure).Error
}

func (r expenditureRepo) Get(ctx context.Context, id string) (*models.Expenditure, error) {
	var expenditure models.Expenditure
	if err := r.db.WithContext(ctx).First(&expenditure, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("expenditure %s", id))
	}
	return &expenditure, nil
}

func (r expenditureRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Expenditure{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.UnknownEntityf("expenditure %s", id)
	}
	return nil
}

func (r expenditureRepo) List(ctx context.Context, filter store.ExpenditureFilter) ([]models.Expenditure, error) {
	query := r.db.WithContext(ctx).Model(&models.Expenditure{})
	if filter.BaseID != "" {
		query = query.Where("base_id = ?", filter.BaseID)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if filter.Start != nil {
		query = query.Where("date >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("date <= ?", *filter.End)
	}
	var expenditures []models.Expenditure
	if err := query.Order("created_at DESC, id").Find(&expenditures).Error; err != nil {
		return nil, err
	}
	return expenditures, nil
}

// --- Bases ---

type baseRepo struct{ db *gorm.DB }

func (r baseRepo) Create(ctx context.Context, base *models.Base) error {
	ensureID(&base.ID)
	return r.db.WithContext(ctx).Create(base).Error
}

func (r baseRepo) Get(ctx context.Context, id string) (*models.Base, error) {
	var base models.Base
	if err := r.db.WithContext(ctx).First(&base, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("base %s", id))
	}
	return &base, nil
}

func (r baseRepo) List(ctx context.Context) ([]models.Base, error) {
	var bases []models.Base
	if err := r.db.WithContext(ctx).Order("name").Find(&bases).Error; err != nil {
		return nil, err
	}
	return bases, nil
}

// --- Users ---

type userRepo struct{ db *gorm.DB }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return errs.Validationf("username or email already exists")
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("user %s", id))
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err, errs.UnknownEntityf("user %q", username))
	}
	return &user, nil
}

func (r userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// --- Ledger ---

type ledgerRepo struct{ db *gorm.DB }

func (r ledgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	ensureID(&entry.ID)
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r ledgerRepo) Exists(ctx context.Context, eventID string, op models.LedgerOp) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("event_id = ? AND op = ?", eventID, op).
		Count(&count).Error
	return count > 0, err
}

func (r ledgerRepo) ListByAsset(ctx context.Context, assetID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
