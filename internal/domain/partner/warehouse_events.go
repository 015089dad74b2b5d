package partner

import (
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for Warehouse
const AggregateTypeWarehouse = "Warehouse"

// Event type constants for Warehouse
const (
	EventTypeWarehouseCreated       = "WarehouseCreated"
	EventTypeWarehouseStatusChanged = "WarehouseStatusChanged"
)

// WarehouseCreatedEvent is published when a new warehouse is created
type WarehouseCreatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
}

// NewWarehouseCreatedEvent creates a new WarehouseCreatedEvent
func NewWarehouseCreatedEvent(warehouse *Warehouse) *WarehouseCreatedEvent {
	return &WarehouseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseCreated, AggregateTypeWarehouse, warehouse.ID, warehouse.OrganizationID),
		WarehouseID:     warehouse.ID,
		Code:            warehouse.Code,
		Name:            warehouse.Name,
	}
}

// WarehouseStatusChangedEvent is published when a warehouse is activated or deactivated
type WarehouseStatusChangedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Code        string          `json:"code"`
	Status      WarehouseStatus `json:"status"`
}

// NewWarehouseStatusChangedEvent creates a new WarehouseStatusChangedEvent
func NewWarehouseStatusChangedEvent(warehouse *Warehouse) *WarehouseStatusChangedEvent {
	return &WarehouseStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseStatusChanged, AggregateTypeWarehouse, warehouse.ID, warehouse.OrganizationID),
		WarehouseID:     warehouse.ID,
		Code:            warehouse.Code,
		Status:          warehouse.Status,
	}
}
