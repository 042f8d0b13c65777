// Package memory is the fallback record store used when no database is
// reachable. A single mutex guards the dataset, which also gives Atomic its
// exclusive read-modify-write semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis-system/internal/database/models"
	"aegis-system/internal/errs"
	"aegis-system/internal/store"
)

type dataset struct {
	assets       map[string]models.Asset
	purchases    map[string]models.Purchase
	transfers    map[string]models.Transfer
	assignments  map[string]models.Assignment
	expenditures map[string]models.Expenditure
	bases        map[string]models.Base
	users        map[string]models.User
	ledger       map[string]models.LedgerEntry
	ledgerIdx    map[string]string // eventID+"|"+op -> entry id
}

func newDataset() *dataset {
	return &dataset{
		assets:       map[string]models.Asset{},
		purchases:    map[string]models.Purchase{},
		transfers:    map[string]models.Transfer{},
		assignments:  map[string]models.Assignment{},
		expenditures: map[string]models.Expenditure{},
		bases:        map[string]models.Base{},
		users:        map[string]models.User{},
		ledger:       map[string]models.LedgerEntry{},
		ledgerIdx:    map[string]string{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.assets {
		c.assets[k] = v
	}
	for k, v := range d.purchases {
		c.purchases[k] = v
	}
	for k, v := range d.transfers {
		c.transfers[k] = v
	}
	for k, v := range d.assignments {
		c.assignments[k] = v
	}
	for k, v := range d.expenditures {
		c.expenditures[k] = v
	}
	for k, v := range d.bases {
		c.bases[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.ledger {
		c.ledger[k] = v
	}
	for k, v := range d.ledgerIdx {
		c.ledgerIdx[k] = v
	}
	return c
}

// session abstracts locking so the same repo code serves both the outer
// store (locks per call) and the transactional view (lock already held).
type session interface {
	data() *dataset
	begin() func()
}

type Memory struct {
	mu sync.Mutex
	db *dataset
}

func New() *Memory {
	return &Memory{db: newDataset()}
}

func (m *Memory) data() *dataset { return m.db }

func (m *Memory) begin() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) Assets() store.AssetRepo             { return assetRepo{m} }
func (m *Memory) Purchases() store.PurchaseRepo       { return purchaseRepo{m} }
func (m *Memory) Transfers() store.TransferRepo       { return transferRepo{m} }
func (m *Memory) Assignments() store.AssignmentRepo   { return assignmentRepo{m} }
func (m *Memory) Expenditures() store.ExpenditureRepo { return expenditureRepo{m} }
func (m *Memory) Bases() store.BaseRepo               { return baseRepo{m} }
func (m *Memory) Users() store.UserRepo               { return userRepo{m} }
func (m *Memory) Ledger() store.LedgerRepo            { return ledgerRepo{m} }

// Atomic holds the store lock for the whole of fn and rolls the dataset
// back if fn fails, so a failed operation leaves no partial mutation.
func (m *Memory) Atomic(ctx context.Context, fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.db.clone()
	if err := fn(&txView{db: m.db}); err != nil {
		m.db = snapshot
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// txView shares the dataset of the Memory store that created it; the outer
// Atomic already holds the lock.
type txView struct {
	db *dataset
}

func (t *txView) data() *dataset { return t.db }
func (t *txView) begin() func()  { return func() {} }

func (t *txView) Assets() store.AssetRepo             { return assetRepo{t} }
func (t *txView) Purchases() store.PurchaseRepo       { return purchaseRepo{t} }
func (t *txView) Transfers() store.TransferRepo       { return transferRepo{t} }
func (t *txView) Assignments() store.AssignmentRepo   { return assignmentRepo{t} }
func (t *txView) Expenditures() store.ExpenditureRepo { return expenditureRepo{t} }
func (t *txView) Bases() store.BaseRepo               { return baseRepo{t} }
func (t *txView) Users() store.UserRepo               { return userRepo{t} }
func (t *txView) Ledger() store.LedgerRepo            { return ledgerRepo{t} }

func (t *txView) Atomic(ctx context.Context, fn func(store.Store) error) error {
	return fn(t)
}

func (t *txView) Ping(ctx context.Context) error { return nil }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

// --- Assets ---

type assetRepo struct{ s session }

func (r assetRepo) Create(ctx context.Context, asset *models.Asset) error {
	defer r.s.begin()()
	asset.ID = newID(asset.ID)
	stamp(&asset.CreatedAt, &asset.UpdatedAt)
	r.s.data().assets[asset.ID] = *asset
	return nil
}

func (r assetRepo) Get(ctx context.Context, id string) (*models.Asset, error) {
	defer r.s.begin()()
	asset, ok := r.s.data().assets[id]
	if !ok {
		return nil, errs.UnknownEntityf("asset %s", id)
	}
	return &asset, nil
}

func (r assetRepo) FindAtBase(ctx context.Context, baseID, name string, category models.AssetCategory) (*models.Asset, error) {
	defer r.s.begin()()
	for _, asset := range r.s.data().assets {
		if asset.BaseID == baseID && asset.Name == name && asset.Category == category {
			a := asset
			return &a, nil
		}
	}
	return nil, errs.UnknownEntityf("asset %q at base %s", name, baseID)
}

func (r assetRepo) Update(ctx context.Context, asset *models.Asset) error {
	defer r.s.begin()()
	if _, ok := r.s.data().assets[asset.ID]; !ok {
		return errs.UnknownEntityf("asset %s", asset.ID)
	}
	asset.UpdatedAt = time.Now().UTC()
	r.s.data().assets[asset.ID] = *asset
	return nil
}

func (r assetRepo) List(ctx context.Context, filter store.AssetFilter) ([]models.Asset, error) {
	defer r.s.begin()()
	var out []models.Asset
	for _, asset := range r.s.data().assets {
		if filter.BaseID != "" && asset.BaseID != filter.BaseID {
			continue
		}
		if filter.Category != "" && asset.Category != filter.Category {
			continue
		}
		if filter.IsActive != nil && asset.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- Purchases ---

type purchaseRepo struct{ s session }

func (r purchaseRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	defer r.s.begin()()
	purchase.ID = newID(purchase.ID)
	stamp(&purchase.CreatedAt, &purchase.UpdatedAt)
	r.s.data().purchases[purchase.ID] = *purchase
	return nil
}

func (r purchaseRepo) Get(ctx context.Context, id string) (*models.Purchase, error) {
	defer r.s.begin()()
	purchase, ok := r.s.data().purchases[id]
	if !ok {
		return nil, errs.UnknownEntityf("purchase %s", id)
	}
	return &purchase, nil
}

func (r purchaseRepo) Update(ctx context.Context, purchase *models.Purchase) error {
	defer r.s.begin()()
	if _, ok := r.s.data().purchases[purchase.ID]; !ok {
		return errs.UnknownEntityf("purchase %s", purchase.ID)
	}
	purchase.UpdatedAt = time.Now().UTC()
	r.s.data().purchases[purchase.ID] = *purchase
	return nil
}

func (r purchaseRepo) Delete(ctx context.Context, id string) error {
	defer r.s.begin()()
	if _, ok := r.s.data().purchases[id]; !ok {
		return errs.UnknownEntityf("purchase %s", id)
	}
	delete(r.s.data().purchases, id)
	return nil
}

func (r purchaseRepo) List(ctx context.Context, filter store.PurchaseFilter) ([]models.Purchase, error) {
	defer r.s.begin()()
	var out []models.Purchase
	for _, purchase := range r.s.data().purchases {
		if filter.BaseID != "" && purchase.BaseID != filter.BaseID {
			continue
		}
		if filter.AssetID != "" && purchase.AssetID != filter.AssetID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsPurchaseStatus(filter.Statuses, purchase.Status) {
			continue
		}
		if !inRange(purchase.Date, filter.Start, filter.End) {
			continue
		}
		if filter.DeployedStart != nil || filter.DeployedEnd != nil {
			if purchase.DeployedAt == nil || !inRange(*purchase.DeployedAt, filter.DeployedStart, filter.DeployedEnd) {
				continue
			}
		}
		out = append(out, purchase)
	}
	sortNewest(out, func(p models.Purchase) (time.Time, string) { return p.CreatedAt, p.ID })
	return out, nil
}

// --- Transfers ---

type transferRepo struct{ s session }

func (r transferRepo) Create(ctx context.Context, transfer *models.Transfer) error {
	defer r.s.begin()()
	transfer.ID = newID(transfer.ID)
	stamp(&transfer.CreatedAt, &transfer.UpdatedAt)
	r.s.data().transfers[transfer.ID] = *transfer
	return nil
}

func (r transferRepo) Get(ctx context.Context, id string) (*models.Transfer, error) {
	defer r.s.begin()()
	transfer, ok := r.s.data().transfers[id]
	if !ok {
		return nil, errs.UnknownEntityf("transfer %s", id)
	}
	return &transfer, nil
}

func (r transferRepo) Update(ctx context.Context, transfer *models.Transfer) error {
	defer r.s.begin()()
	if _, ok := r.s.data().transfers[transfer.ID]; !ok {
		return errs.UnknownEntityf("transfer %s", transfer.ID)
	}
	transfer.UpdatedAt = time.Now().UTC()
	r.s.data().transfers[transfer.ID] = *transfer
	return nil
}

func (r transferRepo) Delete(ctx context.Context, id string) error {
	defer r.s.begin()()
	if _, ok := r.s.data().transfers[id]; !ok {
		return errs.UnknownEntityf("transfer %s", id)
	}
	delete(r.s.data().transfers, id)
	return nil
}

func (r transferRepo) List(ctx context.Context, filter store.TransferFilter) ([]models.Transfer, error) {
	defer r.s.begin()()
	var out []models.Transfer
	for _, transfer := range r.s.data().transfers {
		if filter.BaseID != "" && transfer.FromBaseID != filter.BaseID && transfer.ToBaseID != filter.BaseID {
			continue
		}
		if filter.AssetID != "" && transfer.AssetID != filter.AssetID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsTransferStatus(filter.Statuses, transfer.Status) {
			continue
		}
		if !inRange(transfer.Date, filter.Start, filter.End) {
			continue
		}
		out = append(out, transfer)
	}
	sortNewest(out, func(t models.Transfer) (time.Time, string) { return t.CreatedAt, t.ID })
	return out, nil
}

// --- Assignments ---

type assignmentRepo struct{ s session }

func (r assignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	defer r.s.begin()()
	assignment.ID = newID(assignment.ID)
	stamp(&assignment.CreatedAt, &assignment.UpdatedAt)
	r.s.data().assignments[assignment.ID] = *assignment
	return nil
}

func (r assignmentRepo) Get(ctx context.Context, id string) (*models.Assignment, error) {
	defer r.s.begin()()
	assignment, ok := r.s.data().assignments[id]
	if !ok {
		return nil, errs.UnknownEntityf("assignment %s", id)
	}
	return &assignment, nil
}

func (r assignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	defer r.s.begin()()
	if _, ok := r.s.data().assignments[assignment.ID]; !ok {
		return errs.UnknownEntityf("assignment %s", assignment.ID)
	}
	assignment.UpdatedAt = time.Now().UTC()
	r.s.data().assignments[assignment.ID] = *assignment
	return nil
}

func (r assignmentRepo) Delete(ctx context.Context, id string) error {
	defer r.s.begin()()
	if _, ok := r.s.data().assignments[id]; !ok {
		return errs.UnknownEntityf("assignment %s", id)
	}
	delete(r.s.data().assignments, id)
	return nil
}

func (r assignmentRepo) List(ctx context.Context, filter store.AssignmentFilter) ([]models.Assignment, error) {
	defer r.s.begin()()
	var out []models.Assignment
	for _, assignment := range r.s.data().assignments {
		if filter.BaseID != "" && assignment.BaseID != filter.BaseID {
			continue
		}
		if filter.AssetID != "" && assignment.AssetID != filter.AssetID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsAssignmentStatus(filter.Statuses, assignment.Status) {
			continue
		}
		if !inRange(assignment.AssignmentDate, filter.Start, filter.End) {
			continue
		}
		out = append(out, assignment)
	}
	sortNewest(out, func(a models.Assignment) (time.Time, string) { return a.CreatedAt, a.ID })
	return out, nil
}

// --- Expenditures ---

type expenditureRepo struct{ s session }

func (r expenditureRepo) Create(ctx context.Context, expenditure *models.Expenditure) error {
	defer r.s.begin()()
	expenditure.ID = newID(expenditure.ID)
	stamp(&expenditure.CreatedAt, nil)
	r.s.data().expenditures[expenditure.ID] = *expenditure
	return nil
}

func (r expenditureRepo) Get(ctx context.Context, id string) (*models.Expenditure, error) {
	defer r.s.begin()()
	expenditure, ok := r.s.data().expenditures[id]
	if !ok {
		return nil, errs.UnknownEntityf("expenditure %s", id)
	}
	return &expenditure, nil
}

func (r expenditureRepo) Delete(ctx context.Context, id string) error {
	defer r.s.begin()()
	if _, ok := r.s.data().expenditures[id]; !ok {
		return errs.UnknownEntityf("expenditure %s", id)
	}
	delete(r.s.data().expenditures, id)
	return nil
}

func (r expenditureRepo) List(ctx context.Context, filter store.ExpenditureFilter) ([]models.Expenditure, error) {
	defer r.s.begin()()
	var out []models.Expenditure
	for _, expenditure := range r.s.data().expenditures {
		if filter.BaseID != "" && expenditure.BaseID != filter.BaseID {
			continue
		}
		if filter.AssetID != "" && expenditure.AssetID != filter.AssetID {
			continue
		}
		if !inRange(expenditure.Date, filter.Start, filter.End) {
			continue
		}
		out = append(out, expenditure)
	}
	sortNewest(out, func(e models.Expenditure) (time.Time, string) { return e.CreatedAt, e.ID })
	return out, nil
}

// --- Bases ---

type baseRepo struct{ s session }

func (r baseRepo) Create(ctx context.Context, base *models.Base) error {
	defer r.s.begin()()
	base.ID = newID(base.ID)
	stamp(&base.CreatedAt, &base.UpdatedAt)
	r.s.data().bases[base.ID] = *base
	return nil
}

func (r baseRepo) Get(ctx context.Context, id string) (*models.Base, error) {
	defer r.s.begin()()
	base, ok := r.s.data().bases[id]
	if !ok {
		return nil, errs.UnknownEntityf("base %s", id)
	}
	return &base, nil
}

func (r baseRepo) List(ctx context.Context) ([]models.Base, error) {
	defer r.s.begin()()
	var out []models.Base
	for _, base := range r.s.data().bases {
		out = append(out, base)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Users ---

type userRepo struct{ s session }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	defer r.s.begin()()
	for _, existing := range r.s.data().users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return errs.Validationf("username or email already exists")
		}
	}
	user.ID = newID(user.ID)
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.data().users[user.ID] = *user
	return nil
}

func (r userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	defer r.s.begin()()
	user, ok := r.s.data().users[id]
	if !ok {
		return nil, errs.UnknownEntityf("user %s", id)
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.s.begin()()
	for _, user := range r.s.data().users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, errs.UnknownEntityf("user %q", username)
}

func (r userRepo) Update(ctx context.Context, user *models.User) error {
	defer r.s.begin()()
	if _, ok := r.s.data().users[user.ID]; !ok {
		return errs.UnknownEntityf("user %s", user.ID)
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.data().users[user.ID] = *user
	return nil
}

// --- Ledger ---

type ledgerRepo struct{ s session }

func ledgerKey(eventID string, op models.LedgerOp) string {
	return eventID + "|" + string(op)
}

func (r ledgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	defer r.s.begin()()
	key := ledgerKey(entry.EventID, entry.Op)
	if _, ok := r.s.data().ledgerIdx[key]; ok {
		return errs.Validationf("duplicate ledger event %s/%s", entry.EventID, entry.Op)
	}
	entry.ID = newID(entry.ID)
	stamp(&entry.CreatedAt, nil)
	r.s.data().ledger[entry.ID] = *entry
	r.s.data().ledgerIdx[key] = entry.ID
	return nil
}

func (r ledgerRepo) Exists(ctx context.Context, eventID string, op models.LedgerOp) (bool, error) {
	defer r.s.begin()()
	_, ok := r.s.data().ledgerIdx[ledgerKey(eventID, op)]
	return ok, nil
}

func (r ledgerRepo) ListByAsset(ctx context.Context, assetID string) ([]models.LedgerEntry, error) {
	defer r.s.begin()()
	var out []models.LedgerEntry
	for _, entry := range r.s.data().ledger {
		if entry.AssetID == assetID {
			out = append(out, entry)
		}
	}
	sortNewest(out, func(e models.LedgerEntry) (time.Time, string) { return e.CreatedAt, e.ID })
	return out, nil
}

// --- helpers ---

func sortNewest[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi < idj
	})
}

func containsPurchaseStatus(list []models.PurchaseStatus, s models.PurchaseStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsTransferStatus(list []models.TransferStatus, s models.TransferStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAssignmentStatus(list []models.AssignmentStatus, s models.AssignmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
