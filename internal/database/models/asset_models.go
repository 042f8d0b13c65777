package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetCategory string

const (
	CategoryWeapons       AssetCategory = "Weapons"
	CategoryVehicles      AssetCategory = "Vehicles"
	CategoryAmmunition    AssetCategory = "Ammunition"
	CategoryCommunication AssetCategory = "Communication"
	CategoryMedical       AssetCategory = "Medical"
	CategoryEquipment     AssetCategory = "Equipment"
)

func ValidCategory(c AssetCategory) bool {
	switch c {
	case CategoryWeapons, CategoryVehicles, CategoryAmmunition,
		CategoryCommunication, CategoryMedical, CategoryEquipment:
		return true
	}
	return false
}

type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Code      string    `gorm:"size:50;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:255" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset is one equipment type held at a base. Counters obey
// 0 <= QuantityAssigned and QuantityAssigned+QuantityReserved <= QuantityOnHand.
type Asset struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	Name             string          `gorm:"size:255" json:"name"`
	Category         AssetCategory   `gorm:"size:50" json:"category"`
	BaseID           string          `gorm:"size:36;index" json:"base_id"`
	QuantityOnHand   int             `json:"quantity_on_hand"`
	QuantityAssigned int             `json:"quantity_assigned"`
	QuantityReserved int             `json:"quantity_reserved"`
	UnitValue        decimal.Decimal `gorm:"type:numeric(14,2)" json:"unit_value"`
	UnderMaintenance bool            `json:"under_maintenance"`
	ReorderLevel     int             `gorm:"default:10" json:"reorder_level"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Available is the quantity free for new assignments, expenditures or
// transfer reservations.
func (a *Asset) Available() int {
	return a.QuantityOnHand - a.QuantityAssigned - a.QuantityReserved
}

type PurchaseStatus string

const (
	PurchasePending    PurchaseStatus = "Pending"
	PurchaseProcessing PurchaseStatus = "Processing"
	PurchaseDeployed   PurchaseStatus = "Deployed"
)

type PurchasePriority string

const (
	PriorityLow      PurchasePriority = "Low"
	PriorityMedium   PurchasePriority = "Medium"
	PriorityHigh     PurchasePriority = "High"
	PriorityCritical PurchasePriority = "Critical"
)

func ValidPriority(p PurchasePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Purchase struct {
	ID       string           `gorm:"primaryKey;size:36" json:"id"`
	AssetID  string           `gorm:"size:36;index" json:"asset_id"`
	BaseID   string           `gorm:"size:36;index" json:"base_id"`
	Quantity int              `json:"quantity"`
	UnitCost decimal.Decimal  `gorm:"type:numeric(14,2)" json:"unit_cost"`
	Vendor   string           `gorm:"size:255" json:"vendor"`
	Date     time.Time        `json:"date"`
	Priority PurchasePriority `gorm:"size:20" json:"priority"`
	Status   PurchaseStatus   `gorm:"size:20;index" json:"status"`
	// DeployedAt is set once, when the stock effect is applied.
	DeployedAt *time.Time `json:"deployed_at,omitempty"`
	CreatedBy  string     `gorm:"size:36" json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferInTransit TransferStatus = "In Transit"
	TransferCompleted TransferStatus = "Completed"
	TransferRejected  TransferStatus = "Rejected"
)

type Transfer struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	AssetID    string         `gorm:"size:36;index" json:"asset_id"`
	FromBaseID string         `gorm:"size:36;index" json:"from_base_id"`
	ToBaseID   string         `gorm:"size:36;index" json:"to_base_id"`
	Quantity   int            `json:"quantity"`
	Status     TransferStatus `gorm:"size:20;index" json:"status"`
	Date       time.Time      `json:"date"`
	CreatedBy  string         `gorm:"size:36" json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "Active"
	AssignmentReturned AssignmentStatus = "Returned"
	AssignmentOverdue  AssignmentStatus = "Overdue"
	AssignmentOnHold   AssignmentStatus = "On Hold"
	AssignmentExtended AssignmentStatus = "Extended"
)

// ActiveFamily reports whether the status still holds a unit of the asset.
// Overdue counts: it is a display state derived from an active assignment.
func (s AssignmentStatus) ActiveFamily() bool {
	switch s {
	case AssignmentActive, AssignmentExtended, AssignmentOnHold, AssignmentOverdue:
		return true
	}
	return false
}

type Assignment struct {
	ID                 string           `gorm:"primaryKey;size:36" json:"id"`
	AssetID            string           `gorm:"size:36;index" json:"asset_id"`
	BaseID             string           `gorm:"size:36;index" json:"base_id"`
	PersonnelName      string           `gorm:"size:255" json:"personnel_name"`
	PersonnelRank      string           `gorm:"size:50" json:"personnel_rank"`
	AssignmentDate     time.Time        `json:"assignment_date"`
	ExpectedReturnDate *time.Time       `json:"expected_return_date,omitempty"`
	ActualReturnDate   *time.Time       `json:"actual_return_date,omitempty"`
	Purpose            string           `gorm:"size:255" json:"purpose"`
	Status             AssignmentStatus `gorm:"size:20;index" json:"status"`
	CreatedBy          string           `gorm:"size:36" json:"created_by"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type Expenditure struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	AssetID      string          `gorm:"size:36;index" json:"asset_id"`
	BaseID       string          `gorm:"size:36;index" json:"base_id"`
	QuantityUsed int             `json:"quantity_used"`
	CostPerUnit  decimal.Decimal `gorm:"type:numeric(14,2)" json:"cost_per_unit"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_cost"`
	Date         time.Time       `json:"date"`
	Purpose      string          `gorm:"size:255" json:"purpose"`
	CreatedBy    string          `gorm:"size:36" json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

type LedgerOp string

const (
	OpPurchaseDeployed    LedgerOp = "purchase_deployed"
	OpTransferReserved    LedgerOp = "transfer_reserved"
	OpTransferReleased    LedgerOp = "transfer_released"
	OpTransferCompleted   LedgerOp = "transfer_completed"
	OpExpenditure         LedgerOp = "expenditure"
	OpExpenditureReversed LedgerOp = "expenditure_reversed"
	OpAssignmentIssued    LedgerOp = "assignment_issued"
	OpAssignmentClosed    LedgerOp = "assignment_closed"
)

// LedgerEntry records one applied balance operation. The (EventID, Op) pair
// is unique so replaying an event cannot apply its effect twice.
type LedgerEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex:idx_event_op" json:"event_id"`
	Op        LedgerOp  `gorm:"size:30;uniqueIndex:idx_event_op" json:"op"`
	AssetID   string    `gorm:"size:36;index" json:"asset_id"`
	BaseID    string    `gorm:"size:36" json:"base_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
