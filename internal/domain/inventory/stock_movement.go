package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementType classifies a physical stock change
type MovementType string

const (
	MovementTypeReceive          MovementType = "RECEIVE"
	MovementTypeShip             MovementType = "SHIP"
	MovementTypeReturn           MovementType = "RETURN"
	MovementTypeTransferOut      MovementType = "TRANSFER_OUT"
	MovementTypeTransferIn       MovementType = "TRANSFER_IN"
	MovementTypeAdjustmentAdd    MovementType = "ADJUSTMENT_ADD"
	MovementTypeAdjustmentRemove MovementType = "ADJUSTMENT_REMOVE"
	MovementTypeDamage           MovementType = "DAMAGE"
	MovementTypeInternalMove     MovementType = "INTERNAL_MOVE"
)

// IsValid checks if the type is a known MovementType
func (t MovementType) IsValid() bool {
	_, err := t.Direction()
	return err == nil
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// MovementDirection is the sign a movement applies to stock
type MovementDirection string

const (
	DirectionInbound  MovementDirection = "INBOUND"
	DirectionOutbound MovementDirection = "OUTBOUND"
	DirectionInternal MovementDirection = "INTERNAL"
)

// Direction derives the movement direction from the type. The switch
// is exhaustive over all movement types and is the sole source of
// truth for the mutation sign: adding a movement type without a case
// here makes it unusable.
func (t MovementType) Direction() (MovementDirection, error) {
	switch t {
	case MovementTypeReceive, MovementTypeReturn, MovementTypeTransferIn, MovementTypeAdjustmentAdd:
		return DirectionInbound, nil
	case MovementTypeShip, MovementTypeTransferOut, MovementTypeAdjustmentRemove, MovementTypeDamage:
		return DirectionOutbound, nil
	case MovementTypeInternalMove:
		return DirectionInternal, nil
	}
	return "", shared.NewValidationError("INVALID_MOVEMENT_TYPE", fmt.Sprintf("Unknown movement type: %s", t))
}

// MovementStatus represents the lifecycle status of a stock movement
type MovementStatus string

const (
	MovementStatusPending    MovementStatus = "PENDING"
	MovementStatusApproved   MovementStatus = "APPROVED"
	MovementStatusInProgress MovementStatus = "IN_PROGRESS"
	MovementStatusCompleted  MovementStatus = "COMPLETED"
	MovementStatusCancelled  MovementStatus = "CANCELLED"
	MovementStatusFailed     MovementStatus = "FAILED"
)

// IsValid checks if the status is a known MovementStatus
func (s MovementStatus) IsValid() bool {
	switch s {
	case MovementStatusPending, MovementStatusApproved, MovementStatusInProgress,
		MovementStatusCompleted, MovementStatusCancelled, MovementStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of MovementStatus
func (s MovementStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions
func (s MovementStatus) IsTerminal() bool {
	switch s {
	case MovementStatusCompleted, MovementStatusCancelled, MovementStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s MovementStatus) CanTransitionTo(target MovementStatus) bool {
	switch s {
	case MovementStatusPending:
		return target == MovementStatusApproved || target == MovementStatusInProgress || target == MovementStatusCancelled
	case MovementStatusApproved:
		return target == MovementStatusInProgress || target == MovementStatusCancelled
	case MovementStatusInProgress:
		return target == MovementStatusCompleted || target == MovementStatusFailed
	}
	return false
}

// StockMovement records a planned or executed physical stock change.
// It is an aggregate root with its own lifecycle, independent of
// reservations. Movements represent discrete physical events:
// repeating or reviving a terminal movement is always rejected.
type StockMovement struct {
	shared.OrgAggregateRoot
	WarehouseID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_movement_org_warehouse"`
	SKU              string         `gorm:"type:varchar(100);not null;index:idx_movement_org_sku"`
	Quantity         int64          `gorm:"not null"`
	Type             MovementType   `gorm:"type:varchar(30);not null"`
	Status           MovementStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	LinkedMovementID *uuid.UUID     `gorm:"type:uuid"`
	ReferenceID      string         `gorm:"type:varchar(100)"`
	ReferenceType    string         `gorm:"type:varchar(50)"`
	Reason           string         `gorm:"type:text"`
	FailureReason    string         `gorm:"type:text"`
	CreatedBy        uuid.UUID      `gorm:"type:uuid;not null"`
	ExecutedAt       *time.Time     `gorm:""`
	CancelledAt      *time.Time     `gorm:""`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a PENDING stock movement
func NewStockMovement(organizationID, warehouseID uuid.UUID, sku string, quantity int64, movementType MovementType, createdBy uuid.UUID) (*StockMovement, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewValidationError("MISSING_SKU", "SKU is required")
	}
	if quantity <= 0 || quantity > MaxQuantity {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Movement quantity must be in range")
	}
	if _, err := movementType.Direction(); err != nil {
		return nil, err
	}

	movement := &StockMovement{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		WarehouseID:      warehouseID,
		SKU:              sku,
		Quantity:         quantity,
		Type:             movementType,
		Status:           MovementStatusPending,
		CreatedBy:        createdBy,
	}

	movement.AddDomainEvent(NewMovementCreatedEvent(movement))

	return movement, nil
}

// NewTransferPair creates the linked TRANSFER_OUT/TRANSFER_IN movements
// for moving stock between two warehouses. Both legs share the same
// quantity and carry each other's ID; they execute independently.
func NewTransferPair(organizationID, sourceWarehouseID, targetWarehouseID uuid.UUID, sku string, quantity int64, createdBy uuid.UUID) (*StockMovement, *StockMovement, error) {
	if sourceWarehouseID == targetWarehouseID {
		return nil, nil, shared.NewValidationError("SAME_WAREHOUSE", "Source and target warehouses must differ")
	}

	out, err := NewStockMovement(organizationID, sourceWarehouseID, sku, quantity, MovementTypeTransferOut, createdBy)
	if err != nil {
		return nil, nil, err
	}
	in, err := NewStockMovement(organizationID, targetWarehouseID, sku, quantity, MovementTypeTransferIn, createdBy)
	if err != nil {
		return nil, nil, err
	}

	out.LinkedMovementID = &in.ID
	in.LinkedMovementID = &out.ID

	out.AddDomainEvent(NewTransferCreatedEvent(out, in))

	return out, in, nil
}

// SignedDelta returns the quantity change this movement applies when
// executed: positive for INBOUND, negative for OUTBOUND, zero for
// INTERNAL.
func (m *StockMovement) SignedDelta() (int64, error) {
	direction, err := m.Type.Direction()
	if err != nil {
		return 0, err
	}
	switch direction {
	case DirectionInbound:
		return m.Quantity, nil
	case DirectionOutbound:
		return -m.Quantity, nil
	}
	return 0, nil
}

// IsOutbound reports whether executing the movement removes stock
func (m *StockMovement) IsOutbound() bool {
	direction, err := m.Type.Direction()
	return err == nil && direction == DirectionOutbound
}

// SetReference attaches an external reference (order, shipment, etc.)
func (m *StockMovement) SetReference(referenceType, referenceID string) {
	m.ReferenceType = referenceType
	m.ReferenceID = referenceID
	m.UpdatedAt = time.Now()
}

// Approve transitions PENDING to APPROVED
func (m *StockMovement) Approve() error {
	if !m.Status.CanTransitionTo(MovementStatusApproved) {
		return shared.NewConflictError("INVALID_MOVEMENT_STATUS", fmt.Sprintf("Cannot approve movement in status %s", m.Status))
	}

	m.Status = MovementStatusApproved
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// Start transitions PENDING or APPROVED to IN_PROGRESS
func (m *StockMovement) Start() error {
	if !m.Status.CanTransitionTo(MovementStatusInProgress) {
		return shared.NewConflictError("INVALID_MOVEMENT_STATUS", fmt.Sprintf("Cannot execute movement in status %s", m.Status))
	}

	m.Status = MovementStatusInProgress
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// Complete transitions IN_PROGRESS to COMPLETED
func (m *StockMovement) Complete() error {
	if !m.Status.CanTransitionTo(MovementStatusCompleted) {
		return shared.NewConflictError("INVALID_MOVEMENT_STATUS", fmt.Sprintf("Cannot complete movement in status %s", m.Status))
	}

	now := time.Now()
	m.Status = MovementStatusCompleted
	m.ExecutedAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewMovementCompletedEvent(m))

	return nil
}

// Fail transitions IN_PROGRESS to FAILED after a rolled-back execution
func (m *StockMovement) Fail(reason string) error {
	if !m.Status.CanTransitionTo(MovementStatusFailed) {
		return shared.NewConflictError("INVALID_MOVEMENT_STATUS", fmt.Sprintf("Cannot fail movement in status %s", m.Status))
	}

	m.Status = MovementStatusFailed
	m.FailureReason = reason
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMovementFailedEvent(m))

	return nil
}

// Cancel transitions PENDING or APPROVED to CANCELLED. Completed or
// already-cancelled movements are rejected.
func (m *StockMovement) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("MISSING_REASON", "Cancellation reason is required")
	}
	if !m.Status.CanTransitionTo(MovementStatusCancelled) {
		return shared.NewConflictError("INVALID_MOVEMENT_STATUS", fmt.Sprintf("Cannot cancel movement in status %s", m.Status))
	}

	now := time.Now()
	m.Status = MovementStatusCancelled
	m.Reason = reason
	m.CancelledAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewMovementCancelledEvent(m))

	return nil
}
