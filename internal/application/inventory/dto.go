package inventory

import (
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// LineItem is one order line in a reservation request
type LineItem struct {
	WarehouseID uuid.UUID `json:"warehouseId"`
	SKU         string    `json:"sku"`
	Quantity    int64     `json:"quantity"`
}

// ReservationDTO is the outward projection of a reservation
type ReservationDTO struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          uuid.UUID  `json:"orderId"`
	WarehouseID      uuid.UUID  `json:"warehouseId"`
	SKU              string     `json:"sku"`
	QuantityReserved int64      `json:"quantityReserved"`
	Status           string     `json:"status"`
	ReleasedAt       *time.Time `json:"releasedAt,omitempty"`
	ReleaseReason    string     `json:"releaseReason,omitempty"`
	ReasonCode       string     `json:"reasonCode,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ToReservationDTO maps a domain reservation to its DTO
func ToReservationDTO(r *inventory.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:               r.ID,
		OrderID:          r.OrderID,
		WarehouseID:      r.WarehouseID,
		SKU:              r.SKU,
		QuantityReserved: r.QuantityReserved,
		Status:           r.Status.String(),
		ReleasedAt:       r.ReleasedAt,
		ReleaseReason:    r.ReleaseReason,
		ReasonCode:       string(r.ReasonCode),
		CreatedAt:        r.CreatedAt,
	}
}

// ReserveResult reports the outcome of an order reservation
type ReserveResult struct {
	OrderID      uuid.UUID        `json:"orderId"`
	Reservations []ReservationDTO `json:"reservations"`
	// AlreadyReserved is true when the order had active reservations
	// and they were returned unchanged
	AlreadyReserved bool `json:"alreadyReserved"`
}

// MovementDTO is the outward projection of a stock movement
type MovementDTO struct {
	ID               uuid.UUID  `json:"id"`
	WarehouseID      uuid.UUID  `json:"warehouseId"`
	SKU              string     `json:"sku"`
	Quantity         int64      `json:"quantity"`
	Type             string     `json:"type"`
	Direction        string     `json:"direction"`
	Status           string     `json:"status"`
	LinkedMovementID *uuid.UUID `json:"linkedMovementId,omitempty"`
	ReferenceID      string     `json:"referenceId,omitempty"`
	ReferenceType    string     `json:"referenceType,omitempty"`
	FailureReason    string     `json:"failureReason,omitempty"`
	ExecutedAt       *time.Time `json:"executedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ToMovementDTO maps a domain movement to its DTO
func ToMovementDTO(m *inventory.StockMovement) MovementDTO {
	direction, _ := m.Type.Direction()
	return MovementDTO{
		ID:               m.ID,
		WarehouseID:      m.WarehouseID,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		Type:             m.Type.String(),
		Direction:        string(direction),
		Status:           m.Status.String(),
		LinkedMovementID: m.LinkedMovementID,
		ReferenceID:      m.ReferenceID,
		ReferenceType:    m.ReferenceType,
		FailureReason:    m.FailureReason,
		ExecutedAt:       m.ExecutedAt,
		CreatedAt:        m.CreatedAt,
	}
}

// CreateMovementInput is the request to create a single movement
type CreateMovementInput struct {
	WarehouseID   uuid.UUID              `json:"warehouseId"`
	SKU           string                 `json:"sku"`
	Quantity      int64                  `json:"quantity"`
	Type          inventory.MovementType `json:"type"`
	ReferenceID   string                 `json:"referenceId,omitempty"`
	ReferenceType string                 `json:"referenceType,omitempty"`
}

// CreateTransferInput is the request to create a linked transfer pair
type CreateTransferInput struct {
	SourceWarehouseID uuid.UUID `json:"sourceWarehouseId"`
	TargetWarehouseID uuid.UUID `json:"targetWarehouseId"`
	SKU               string    `json:"sku"`
	Quantity          int64     `json:"quantity"`
}

// TransferResult carries both legs of a created transfer
type TransferResult struct {
	Outbound MovementDTO `json:"outbound"`
	Inbound  MovementDTO `json:"inbound"`
}

// CreateSessionInput is the request to open a counting session
type CreateSessionInput struct {
	WarehouseID uuid.UUID                `json:"warehouseId"`
	Type        inventory.CycleCountType `json:"type"`
	SKUs        []string                 `json:"skus,omitempty"`
	IsBlind     bool                     `json:"isBlind"`
}

// SessionDTO is the outward projection of a counting session
type SessionDTO struct {
	ID          uuid.UUID  `json:"id"`
	WarehouseID uuid.UUID  `json:"warehouseId"`
	Type        string     `json:"type"`
	IsBlind     bool       `json:"isBlind"`
	Status      string     `json:"status"`
	TotalItems  int        `json:"totalItems"`
	CountedItems int       `json:"countedItems"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ToSessionDTO maps a domain session to its DTO
func ToSessionDTO(s *inventory.CycleCountSession) SessionDTO {
	return SessionDTO{
		ID:           s.ID,
		WarehouseID:  s.WarehouseID,
		Type:         string(s.Type),
		IsBlind:      s.IsBlind,
		Status:       s.Status.String(),
		TotalItems:   len(s.Items),
		CountedItems: s.CountedItems(),
		CompletedAt:  s.CompletedAt,
		CreatedAt:    s.CreatedAt,
	}
}

// SessionItemView is the projection of a counting line item. For blind
// sessions ExpectedQuantity is nil: the field is omitted entirely, not
// zeroed, so counters cannot distinguish empty from unknown.
type SessionItemView struct {
	SKU              string `json:"sku"`
	ExpectedQuantity *int64 `json:"expectedQuantity,omitempty"`
	CountedQuantity  *int64 `json:"countedQuantity,omitempty"`
	IsCounted        bool   `json:"isCounted"`
}

// CountInput is one recorded count in a submission
type CountInput struct {
	SKU             string `json:"sku"`
	CountedQuantity int64  `json:"countedQuantity"`
}

// BatchReleaseResult reports a batch force-release sweep for reconciliation
type BatchReleaseResult struct {
	SKU        string   `json:"sku"`
	TotalFound int      `json:"totalFound"`
	Processed  int      `json:"processed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// InventoryItemDTO is the outward projection of an inventory item
type InventoryItemDTO struct {
	WarehouseID      uuid.UUID `json:"warehouseId"`
	SKU              string    `json:"sku"`
	Quantity         int64     `json:"quantity"`
	ReservedQuantity int64     `json:"reservedQuantity"`
	Available        int64     `json:"available"`
	Version          int       `json:"version"`
}

// ToInventoryItemDTO maps a domain inventory item to its DTO
func ToInventoryItemDTO(item *inventory.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		WarehouseID:      item.WarehouseID,
		SKU:              item.SKU,
		Quantity:         item.Quantity,
		ReservedQuantity: item.ReservedQuantity,
		Available:        item.Available(),
		Version:          item.Version,
	}
}
