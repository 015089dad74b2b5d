package inventory

import (
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeInventoryItem = "InventoryItem"
	AggregateTypeReservation   = "Reservation"
	AggregateTypeStockMovement = "StockMovement"
)

// Event type constants
const (
	EventTypeInventoryUpdated         = "inventory.updated"
	EventTypeReservationCreated       = "reservation.created"
	EventTypeReservationReleased      = "reservation.released"
	EventTypeReservationForceReleased = "reservation.force_released"
	EventTypeMovementCreated          = "movement.created"
	EventTypeMovementCompleted        = "movement.completed"
	EventTypeMovementFailed           = "movement.failed"
	EventTypeMovementCancelled        = "movement.cancelled"
	EventTypeTransferCreated          = "movement.transfer_created"
)

// InventoryUpdatedEvent is published after any quantity or reservation change
type InventoryUpdatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID      uuid.UUID `json:"warehouse_id"`
	SKU              string    `json:"sku"`
	Quantity         int64     `json:"quantity"`
	ReservedQuantity int64     `json:"reserved_quantity"`
	Available        int64     `json:"available"`
}

// NewInventoryUpdatedEvent creates a new InventoryUpdatedEvent
func NewInventoryUpdatedEvent(item *InventoryItem) *InventoryUpdatedEvent {
	return &InventoryUpdatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeInventoryUpdated, AggregateTypeInventoryItem, item.ID, item.OrganizationID),
		WarehouseID:      item.WarehouseID,
		SKU:              item.SKU,
		Quantity:         item.Quantity,
		ReservedQuantity: item.ReservedQuantity,
		Available:        item.Available(),
	}
}

// ReservationCreatedEvent is published when a soft hold is placed
type ReservationCreatedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	OrderID       uuid.UUID `json:"order_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	SKU           string    `json:"sku"`
	Quantity      int64     `json:"quantity"`
}

// NewReservationCreatedEvent creates a new ReservationCreatedEvent
func NewReservationCreatedEvent(reservation *Reservation) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationCreated, AggregateTypeReservation, reservation.ID, reservation.OrganizationID),
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		WarehouseID:     reservation.WarehouseID,
		SKU:             reservation.SKU,
		Quantity:        reservation.QuantityReserved,
	}
}

// ReservationReleasedEvent is published on a normal release
type ReservationReleasedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	OrderID       uuid.UUID `json:"order_id"`
	SKU           string    `json:"sku"`
	Quantity      int64     `json:"quantity"`
	Reason        string    `json:"reason,omitempty"`
}

// NewReservationReleasedEvent creates a new ReservationReleasedEvent
func NewReservationReleasedEvent(reservation *Reservation) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationReleased, AggregateTypeReservation, reservation.ID, reservation.OrganizationID),
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		SKU:             reservation.SKU,
		Quantity:        reservation.QuantityReserved,
		Reason:          reservation.ReleaseReason,
	}
}

// ReservationForceReleasedEvent is published on an administrative override
type ReservationForceReleasedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID         `json:"reservation_id"`
	OrderID       uuid.UUID         `json:"order_id"`
	SKU           string            `json:"sku"`
	Quantity      int64             `json:"quantity"`
	Reason        string            `json:"reason"`
	ReasonCode    ReleaseReasonCode `json:"reason_code"`
	ReleasedBy    uuid.UUID         `json:"released_by"`
}

// NewReservationForceReleasedEvent creates a new ReservationForceReleasedEvent
func NewReservationForceReleasedEvent(reservation *Reservation) *ReservationForceReleasedEvent {
	event := &ReservationForceReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationForceReleased, AggregateTypeReservation, reservation.ID, reservation.OrganizationID),
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		SKU:             reservation.SKU,
		Quantity:        reservation.QuantityReserved,
		Reason:          reservation.ReleaseReason,
		ReasonCode:      reservation.ReasonCode,
	}
	if reservation.ReleasedBy != nil {
		event.ReleasedBy = *reservation.ReleasedBy
	}
	return event
}

// MovementCreatedEvent is published when a movement is persisted as PENDING
type MovementCreatedEvent struct {
	shared.BaseDomainEvent
	MovementID  uuid.UUID    `json:"movement_id"`
	WarehouseID uuid.UUID    `json:"warehouse_id"`
	SKU         string       `json:"sku"`
	Quantity    int64        `json:"quantity"`
	Type        MovementType `json:"type"`
}

// NewMovementCreatedEvent creates a new MovementCreatedEvent
func NewMovementCreatedEvent(movement *StockMovement) *MovementCreatedEvent {
	return &MovementCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementCreated, AggregateTypeStockMovement, movement.ID, movement.OrganizationID),
		MovementID:      movement.ID,
		WarehouseID:     movement.WarehouseID,
		SKU:             movement.SKU,
		Quantity:        movement.Quantity,
		Type:            movement.Type,
	}
}

// MovementCompletedEvent is published after a movement's stock change commits
type MovementCompletedEvent struct {
	shared.BaseDomainEvent
	MovementID  uuid.UUID    `json:"movement_id"`
	WarehouseID uuid.UUID    `json:"warehouse_id"`
	SKU         string       `json:"sku"`
	Quantity    int64        `json:"quantity"`
	Type        MovementType `json:"type"`
}

// NewMovementCompletedEvent creates a new MovementCompletedEvent
func NewMovementCompletedEvent(movement *StockMovement) *MovementCompletedEvent {
	return &MovementCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementCompleted, AggregateTypeStockMovement, movement.ID, movement.OrganizationID),
		MovementID:      movement.ID,
		WarehouseID:     movement.WarehouseID,
		SKU:             movement.SKU,
		Quantity:        movement.Quantity,
		Type:            movement.Type,
	}
}

// MovementFailedEvent is published when an execution attempt rolls back
type MovementFailedEvent struct {
	shared.BaseDomainEvent
	MovementID uuid.UUID `json:"movement_id"`
	SKU        string    `json:"sku"`
	Reason     string    `json:"reason"`
}

// NewMovementFailedEvent creates a new MovementFailedEvent
func NewMovementFailedEvent(movement *StockMovement) *MovementFailedEvent {
	return &MovementFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementFailed, AggregateTypeStockMovement, movement.ID, movement.OrganizationID),
		MovementID:      movement.ID,
		SKU:             movement.SKU,
		Reason:          movement.FailureReason,
	}
}

// MovementCancelledEvent is published when a pending movement is cancelled
type MovementCancelledEvent struct {
	shared.BaseDomainEvent
	MovementID uuid.UUID `json:"movement_id"`
	SKU        string    `json:"sku"`
	Reason     string    `json:"reason"`
}

// NewMovementCancelledEvent creates a new MovementCancelledEvent
func NewMovementCancelledEvent(movement *StockMovement) *MovementCancelledEvent {
	return &MovementCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementCancelled, AggregateTypeStockMovement, movement.ID, movement.OrganizationID),
		MovementID:      movement.ID,
		SKU:             movement.SKU,
		Reason:          movement.Reason,
	}
}

// TransferCreatedEvent is published when a linked transfer pair is created
type TransferCreatedEvent struct {
	shared.BaseDomainEvent
	OutMovementID     uuid.UUID `json:"out_movement_id"`
	InMovementID      uuid.UUID `json:"in_movement_id"`
	SourceWarehouseID uuid.UUID `json:"source_warehouse_id"`
	TargetWarehouseID uuid.UUID `json:"target_warehouse_id"`
	SKU               string    `json:"sku"`
	Quantity          int64     `json:"quantity"`
}

// NewTransferCreatedEvent creates a new TransferCreatedEvent
func NewTransferCreatedEvent(out, in *StockMovement) *TransferCreatedEvent {
	return &TransferCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeTransferCreated, AggregateTypeStockMovement, out.ID, out.OrganizationID),
		OutMovementID:     out.ID,
		InMovementID:      in.ID,
		SourceWarehouseID: out.WarehouseID,
		TargetWarehouseID: in.WarehouseID,
		SKU:               out.SKU,
		Quantity:          out.Quantity,
	}
}
