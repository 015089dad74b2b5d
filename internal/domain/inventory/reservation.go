package inventory

import (
	"strings"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReservationStatus represents the lifecycle status of a reservation
type ReservationStatus string

const (
	ReservationStatusActive        ReservationStatus = "ACTIVE"
	ReservationStatusReleased      ReservationStatus = "RELEASED"
	ReservationStatusFulfilled     ReservationStatus = "FULFILLED"
	ReservationStatusForceReleased ReservationStatus = "FORCE_RELEASED"
)

// IsValid checks if the status is a known ReservationStatus
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusReleased,
		ReservationStatusFulfilled, ReservationStatusForceReleased:
		return true
	}
	return false
}

// String returns the string representation of ReservationStatus
func (s ReservationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusActive
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	if s != ReservationStatusActive {
		return false
	}
	switch target {
	case ReservationStatusReleased, ReservationStatusFulfilled, ReservationStatusForceReleased:
		return true
	}
	return false
}

// ReleaseReasonCode classifies an administrative force release
type ReleaseReasonCode string

const (
	ReasonCodeStuckOrder     ReleaseReasonCode = "STUCK_ORDER"
	ReasonCodeOrderCancelled ReleaseReasonCode = "ORDER_CANCELLED"
	ReasonCodeExpired        ReleaseReasonCode = "EXPIRED"
	ReasonCodeDuplicate      ReleaseReasonCode = "DUPLICATE"
	ReasonCodeAdminOverride  ReleaseReasonCode = "ADMIN_OVERRIDE"
	ReasonCodeSystemRecovery ReleaseReasonCode = "SYSTEM_RECOVERY"
)

// IsValid checks if the reason code is one of the allowed values
func (c ReleaseReasonCode) IsValid() bool {
	switch c {
	case ReasonCodeStuckOrder, ReasonCodeOrderCancelled, ReasonCodeExpired,
		ReasonCodeDuplicate, ReasonCodeAdminOverride, ReasonCodeSystemRecovery:
		return true
	}
	return false
}

// Reservation is a soft hold on available stock tied to an order.
// It is an aggregate root with a monotonic lifecycle: once a terminal
// status is reached the record is immutable.
type Reservation struct {
	shared.OrgAggregateRoot
	OrderID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_org_order"`
	WarehouseID      uuid.UUID         `gorm:"type:uuid;not null"`
	SKU              string            `gorm:"type:varchar(100);not null;index:idx_reservation_org_sku"`
	QuantityReserved int64             `gorm:"not null"`
	Status           ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ReleasedAt       *time.Time        `gorm:""`
	ReleasedBy       *uuid.UUID        `gorm:"type:uuid"`
	ReleaseReason    string            `gorm:"type:text"`
	ReasonCode       ReleaseReasonCode `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "reservations"
}

// NewReservation creates an ACTIVE reservation for an order line
func NewReservation(organizationID, orderID, warehouseID uuid.UUID, sku string, quantity int64) (*Reservation, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewValidationError("MISSING_SKU", "SKU is required")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}

	reservation := &Reservation{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		OrderID:          orderID,
		WarehouseID:      warehouseID,
		SKU:              sku,
		QuantityReserved: quantity,
		Status:           ReservationStatusActive,
	}

	reservation.AddDomainEvent(NewReservationCreatedEvent(reservation))

	return reservation, nil
}

// IsActive reports whether the reservation still holds stock
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// Release transitions ACTIVE to RELEASED as part of the normal order
// lifecycle. Releasing an already-terminal reservation is not an error
// at the service layer; this method enforces the transition itself.
func (r *Reservation) Release(by uuid.UUID, reason string) error {
	if !r.Status.CanTransitionTo(ReservationStatusReleased) {
		return shared.NewConflictError("RESERVATION_NOT_ACTIVE", "Reservation is not active")
	}

	now := time.Now()
	r.Status = ReservationStatusReleased
	r.ReleasedAt = &now
	r.ReleasedBy = &by
	r.ReleaseReason = reason
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationReleasedEvent(r))

	return nil
}

// MarkFulfilled transitions ACTIVE to FULFILLED when the held stock
// physically ships.
func (r *Reservation) MarkFulfilled(by uuid.UUID) error {
	if !r.Status.CanTransitionTo(ReservationStatusFulfilled) {
		return shared.NewConflictError("RESERVATION_NOT_ACTIVE", "Reservation is not active")
	}

	now := time.Now()
	r.Status = ReservationStatusFulfilled
	r.ReleasedAt = &now
	r.ReleasedBy = &by
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// ForceRelease transitions ACTIVE to FORCE_RELEASED via the privileged
// administrative path. The reason must be non-empty after trimming and
// the code must be one of the allowed values.
func (r *Reservation) ForceRelease(by uuid.UUID, reason string, code ReleaseReasonCode) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("MISSING_REASON", "Force release reason is required")
	}
	if !code.IsValid() {
		return shared.NewValidationError("INVALID_REASON_CODE", "Unknown force release reason code")
	}
	if !r.Status.CanTransitionTo(ReservationStatusForceReleased) {
		return shared.NewConflictError("RESERVATION_NOT_ACTIVE", "Reservation is not active")
	}

	now := time.Now()
	r.Status = ReservationStatusForceReleased
	r.ReleasedAt = &now
	r.ReleasedBy = &by
	r.ReleaseReason = reason
	r.ReasonCode = code
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationForceReleasedEvent(r))

	return nil
}

// IsOlderThan reports whether the reservation was created before the cutoff
func (r *Reservation) IsOlderThan(cutoff time.Time) bool {
	return r.CreatedAt.Before(cutoff)
}
