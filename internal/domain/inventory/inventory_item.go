package inventory

import (
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxQuantity is the upper bound for any stock quantity.
const MaxQuantity int64 = 10_000_000

// InventoryItem tracks stock for a SKU at a specific warehouse.
// It is the aggregate root for quantity-affecting operations.
// The composite identifier is OrganizationID + WarehouseID + SKU.
// Rows are never physically deleted.
type InventoryItem struct {
	shared.OrgAggregateRoot
	WarehouseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_item_org_wh_sku,priority:2"`
	SKU              string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_inventory_item_org_wh_sku,priority:3"`
	Quantity         int64     `gorm:"not null;default:0"`
	ReservedQuantity int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item for a warehouse-SKU combination
func NewInventoryItem(organizationID, warehouseID uuid.UUID, sku string) (*InventoryItem, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewValidationError("MISSING_SKU", "SKU is required")
	}

	return &InventoryItem{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		WarehouseID:      warehouseID,
		SKU:              sku,
	}, nil
}

// Available returns the quantity not held by reservations
func (i *InventoryItem) Available() int64 {
	return i.Quantity - i.ReservedQuantity
}

// CanFulfill reports whether the available quantity covers the requested quantity
func (i *InventoryItem) CanFulfill(quantity int64) bool {
	return i.Available() >= quantity
}

// Reserve places a soft hold on available stock. The caller must hold
// the row lock on this item for the duration of the surrounding
// transaction.
func (i *InventoryItem) Reserve(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if i.Available() < quantity {
		return shared.NewConflictError("INSUFFICIENT_STOCK", "Insufficient available stock to reserve")
	}

	i.ReservedQuantity += quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInventoryUpdatedEvent(i))

	return nil
}

// ReleaseReserved returns a held quantity to available stock.
// The result is floored at zero so that repairing inconsistent data
// never drives reservedQuantity negative.
func (i *InventoryItem) ReleaseReserved(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Release quantity must be positive")
	}

	i.ReservedQuantity -= quantity
	if i.ReservedQuantity < 0 {
		i.ReservedQuantity = 0
	}
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInventoryUpdatedEvent(i))

	return nil
}

// ApplyDelta applies a signed physical stock change. It fails closed:
// the resulting quantity must stay within [reservedQuantity, MaxQuantity].
func (i *InventoryItem) ApplyDelta(delta int64) error {
	if delta == 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Delta cannot be zero")
	}

	result := i.Quantity + delta
	if result < 0 {
		return shared.NewConflictError("INSUFFICIENT_STOCK", "Resulting quantity would be negative")
	}
	if result < i.ReservedQuantity {
		return shared.NewConflictError("RESERVED_FLOOR_VIOLATION", "Resulting quantity would fall below reserved quantity")
	}
	if result > MaxQuantity {
		return shared.NewConflictError("QUANTITY_OVERFLOW", "Resulting quantity would exceed the maximum")
	}

	i.Quantity = result
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInventoryUpdatedEvent(i))

	return nil
}

// SetQuantity sets the absolute quantity, used when reconciling to a
// physical count. The same floors as ApplyDelta apply.
func (i *InventoryItem) SetQuantity(quantity int64) error {
	if quantity < 0 || quantity > MaxQuantity {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity out of range")
	}
	if quantity < i.ReservedQuantity {
		return shared.NewConflictError("RESERVED_FLOOR_VIOLATION", "Quantity would fall below reserved quantity")
	}

	i.Quantity = quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInventoryUpdatedEvent(i))

	return nil
}

// ConsumeReserved fulfills a reservation: both quantity and
// reservedQuantity drop by the consumed amount.
func (i *InventoryItem) ConsumeReserved(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Consume quantity must be positive")
	}
	if quantity > i.ReservedQuantity {
		return shared.NewConflictError("INSUFFICIENT_RESERVED", "Consume quantity exceeds reserved quantity")
	}

	i.Quantity -= quantity
	i.ReservedQuantity -= quantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewInventoryUpdatedEvent(i))

	return nil
}
