package partner

import (
	"strings"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// WarehouseStatus represents the status of a warehouse
type WarehouseStatus string

const (
	WarehouseStatusActive   WarehouseStatus = "ACTIVE"
	WarehouseStatusInactive WarehouseStatus = "INACTIVE"
)

// Warehouse represents a physical fulfillment location
// It is the aggregate root for warehouse-related operations
type Warehouse struct {
	shared.OrgAggregateRoot
	Code   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_warehouse_org_code,priority:2"`
	Name   string          `gorm:"type:varchar(200);not null"`
	Status WarehouseStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse with required fields
func NewWarehouse(organizationID uuid.UUID, code, name string) (*Warehouse, error) {
	if err := validateWarehouseCode(code); err != nil {
		return nil, err
	}
	if err := validateWarehouseName(name); err != nil {
		return nil, err
	}

	warehouse := &Warehouse{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		Code:             strings.ToUpper(code),
		Name:             name,
		Status:           WarehouseStatusActive,
	}

	warehouse.AddDomainEvent(NewWarehouseCreatedEvent(warehouse))

	return warehouse, nil
}

// Update updates the warehouse's basic information
func (w *Warehouse) Update(name string) error {
	if err := validateWarehouseName(name); err != nil {
		return err
	}

	w.Name = name
	w.UpdatedAt = time.Now()
	w.IncrementVersion()

	return nil
}

// Activate marks the warehouse as active
func (w *Warehouse) Activate() {
	if w.Status == WarehouseStatusActive {
		return
	}
	w.Status = WarehouseStatusActive
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseStatusChangedEvent(w))
}

// Deactivate marks the warehouse as inactive. Inactive warehouses
// are rejected by operations that create new stock commitments.
func (w *Warehouse) Deactivate() {
	if w.Status == WarehouseStatusInactive {
		return
	}
	w.Status = WarehouseStatusInactive
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	w.AddDomainEvent(NewWarehouseStatusChangedEvent(w))
}

// IsActive reports whether the warehouse can participate in new operations
func (w *Warehouse) IsActive() bool {
	return w.Status == WarehouseStatusActive
}

func validateWarehouseCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return shared.NewValidationError("MISSING_WAREHOUSE_CODE", "Warehouse code is required")
	}
	if len(code) > 50 {
		return shared.NewValidationError("INVALID_WAREHOUSE_CODE", "Warehouse code cannot exceed 50 characters")
	}
	return nil
}

func validateWarehouseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("MISSING_WAREHOUSE_NAME", "Warehouse name is required")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_WAREHOUSE_NAME", "Warehouse name cannot exceed 200 characters")
	}
	return nil
}
