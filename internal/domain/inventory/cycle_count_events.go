package inventory

import (
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for CycleCountSession
const AggregateTypeCycleCountSession = "CycleCountSession"

// Event type constants for cycle counting
const (
	EventTypeCycleCountSessionCreated   = "cycle_count.session_created"
	EventTypeCycleCountPendingApproval  = "cycle_count.pending_approval"
	EventTypeCycleCountSessionCompleted = "cycle_count.session_completed"
)

// CycleCountSessionCreatedEvent is published when a counting session starts
type CycleCountSessionCreatedEvent struct {
	shared.BaseDomainEvent
	SessionID   uuid.UUID      `json:"session_id"`
	WarehouseID uuid.UUID      `json:"warehouse_id"`
	Type        CycleCountType `json:"type"`
	IsBlind     bool           `json:"is_blind"`
	TotalItems  int            `json:"total_items"`
}

// NewCycleCountSessionCreatedEvent creates a new CycleCountSessionCreatedEvent
func NewCycleCountSessionCreatedEvent(session *CycleCountSession) *CycleCountSessionCreatedEvent {
	return &CycleCountSessionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCycleCountSessionCreated, AggregateTypeCycleCountSession, session.ID, session.OrganizationID),
		SessionID:       session.ID,
		WarehouseID:     session.WarehouseID,
		Type:            session.Type,
		IsBlind:         session.IsBlind,
		TotalItems:      len(session.Items),
	}
}

// CycleCountPendingApprovalEvent is published when variances exceed the auto-approve threshold
type CycleCountPendingApprovalEvent struct {
	shared.BaseDomainEvent
	SessionID   uuid.UUID `json:"session_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewCycleCountPendingApprovalEvent creates a new CycleCountPendingApprovalEvent
func NewCycleCountPendingApprovalEvent(session *CycleCountSession) *CycleCountPendingApprovalEvent {
	return &CycleCountPendingApprovalEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCycleCountPendingApproval, AggregateTypeCycleCountSession, session.ID, session.OrganizationID),
		SessionID:       session.ID,
		WarehouseID:     session.WarehouseID,
	}
}

// CycleCountSessionCompletedEvent is published when a session is completed
type CycleCountSessionCompletedEvent struct {
	shared.BaseDomainEvent
	SessionID   uuid.UUID `json:"session_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	TotalItems  int       `json:"total_items"`
}

// NewCycleCountSessionCompletedEvent creates a new CycleCountSessionCompletedEvent
func NewCycleCountSessionCompletedEvent(session *CycleCountSession) *CycleCountSessionCompletedEvent {
	return &CycleCountSessionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCycleCountSessionCompleted, AggregateTypeCycleCountSession, session.ID, session.OrganizationID),
		SessionID:       session.ID,
		WarehouseID:     session.WarehouseID,
		TotalItems:      len(session.Items),
	}
}
