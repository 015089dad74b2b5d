package inventory

import (
	"encoding/json"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditAction identifies the operation that produced an audit entry
type AuditAction string

const (
	AuditActionReserve           AuditAction = "RESERVE"
	AuditActionRelease           AuditAction = "RELEASE"
	AuditActionForceRelease      AuditAction = "FORCE_RELEASE"
	AuditActionMovementExecuted  AuditAction = "MOVEMENT_EXECUTED"
	AuditActionCycleCountAdjust  AuditAction = "CYCLE_COUNT_ADJUSTMENT"
	AuditActionImportCreate      AuditAction = "IMPORT_CREATE"
	AuditActionImportUpdate      AuditAction = "IMPORT_UPDATE"
	AuditActionExpiredSweep      AuditAction = "EXPIRED_SWEEP_RELEASE"
	AuditActionBatchForceRelease AuditAction = "BATCH_FORCE_RELEASE"
)

// AuditLogEntry is one write-once row in the append-only quantity
// ledger. Every committed quantity or reservation mutation produces
// exactly one entry in the same transaction; entries are never updated
// or deleted.
type AuditLogEntry struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrganizationID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_org_sku"`
	WarehouseID      uuid.UUID   `gorm:"type:uuid;not null"`
	UserID           uuid.UUID   `gorm:"type:uuid;not null"`
	SKU              string      `gorm:"type:varchar(100);not null;index:idx_audit_org_sku"`
	Action           AuditAction `gorm:"type:varchar(40);not null"`
	PreviousQuantity int64       `gorm:"not null"`
	NewQuantity      int64       `gorm:"not null"`
	PreviousReserved int64       `gorm:"not null"`
	NewReserved      int64       `gorm:"not null"`
	Variance         int64       `gorm:"not null"`
	ReasonCode       string      `gorm:"type:varchar(30)"`
	Notes            string      `gorm:"type:text"`
	Metadata         string      `gorm:"type:jsonb;default:'{}'"`
	CreatedAt        time.Time   `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogEntry) TableName() string {
	return "audit_log_entries"
}

// AuditSnapshot captures an item's quantities at a point in time
type AuditSnapshot struct {
	Quantity int64
	Reserved int64
}

// SnapshotOf captures the current quantities of an inventory item
func SnapshotOf(item *InventoryItem) AuditSnapshot {
	return AuditSnapshot{Quantity: item.Quantity, Reserved: item.ReservedQuantity}
}

// NewAuditLogEntry creates an audit entry recording a quantity change
// from before to after. Variance is the signed quantity delta.
func NewAuditLogEntry(organizationID, warehouseID, userID uuid.UUID, sku string, action AuditAction, before, after AuditSnapshot) (*AuditLogEntry, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_USER", "User ID is required")
	}
	if sku == "" {
		return nil, shared.NewValidationError("MISSING_SKU", "SKU is required")
	}

	return &AuditLogEntry{
		ID:               uuid.New(),
		OrganizationID:   organizationID,
		WarehouseID:      warehouseID,
		UserID:           userID,
		SKU:              sku,
		Action:           action,
		PreviousQuantity: before.Quantity,
		NewQuantity:      after.Quantity,
		PreviousReserved: before.Reserved,
		NewReserved:      after.Reserved,
		Variance:         after.Quantity - before.Quantity,
		Metadata:         "{}",
		CreatedAt:        time.Now(),
	}, nil
}

// WithReason attaches a reason code and free-form notes
func (e *AuditLogEntry) WithReason(reasonCode, notes string) *AuditLogEntry {
	e.ReasonCode = reasonCode
	e.Notes = notes
	return e
}

// WithMetadata attaches structured metadata. Marshal failures leave
// the default empty object in place.
func (e *AuditLogEntry) WithMetadata(metadata map[string]interface{}) *AuditLogEntry {
	if len(metadata) == 0 {
		return e
	}
	if raw, err := json.Marshal(metadata); err == nil {
		e.Metadata = string(raw)
	}
	return e
}
