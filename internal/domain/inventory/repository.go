package inventory

import (
	"context"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InventoryItemRepository defines the interface for inventory item persistence
type InventoryItemRepository interface {
	// FindByID finds an inventory item by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*InventoryItem, error)

	// FindBySKU finds inventory for a warehouse-SKU combination
	FindBySKU(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*InventoryItem, error)

	// FindBySKUForUpdate finds inventory for a warehouse-SKU combination
	// holding an exclusive row lock. Must be called inside a transaction;
	// the lock is held until the transaction ends.
	FindBySKUForUpdate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*InventoryItem, error)

	// FindByWarehouse finds all inventory items in a warehouse
	FindByWarehouse(ctx context.Context, organizationID, warehouseID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)

	// FindBySKUs finds inventory items for multiple SKUs in a warehouse
	FindBySKUs(ctx context.Context, organizationID, warehouseID uuid.UUID, skus []string) ([]InventoryItem, error)

	// GetOrCreate returns the existing item for a warehouse-SKU
	// combination or creates a zero-quantity row
	GetOrCreate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*InventoryItem, error)

	// Save creates or updates an inventory item
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock saves with optimistic locking: the update applies
	// only if the stored version matches, returning a conflict error
	// otherwise
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	// ExistsBySKU checks if inventory exists for a warehouse-SKU combination
	ExistsBySKU(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (bool, error)

	// Count counts inventory items in a warehouse
	Count(ctx context.Context, organizationID, warehouseID uuid.UUID) (int64, error)
}

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	// FindByID finds a reservation by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*Reservation, error)

	// FindActiveByOrder finds all ACTIVE reservations for an order
	FindActiveByOrder(ctx context.Context, organizationID, orderID uuid.UUID) ([]Reservation, error)

	// FindActiveBySKU finds ACTIVE reservations for a SKU created
	// before the cutoff, oldest first, capped at limit. A zero cutoff
	// matches all ages.
	FindActiveBySKU(ctx context.Context, organizationID uuid.UUID, sku string, olderThan time.Time, limit int) ([]Reservation, error)

	// FindExpired finds ACTIVE reservations created before the cutoff
	// across all SKUs, oldest first, capped at limit
	FindExpired(ctx context.Context, organizationID uuid.UUID, olderThan time.Time, limit int) ([]Reservation, error)

	// ListOrganizationsWithActive returns the organizations that
	// currently hold at least one ACTIVE reservation
	ListOrganizationsWithActive(ctx context.Context) ([]uuid.UUID, error)

	// Save creates or updates a reservation
	Save(ctx context.Context, reservation *Reservation) error

	// SaveBatch creates or updates multiple reservations
	SaveBatch(ctx context.Context, reservations []*Reservation) error

	// CountActiveBySKU counts ACTIVE reservations for a SKU
	CountActiveBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (int64, error)
}

// StockMovementRepository defines the interface for stock movement persistence
type StockMovementRepository interface {
	// FindByID finds a movement by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*StockMovement, error)

	// FindBySKU finds movements for a SKU, newest first
	FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string, filter shared.Filter) ([]StockMovement, error)

	// FindByStatus finds movements in a given status
	FindByStatus(ctx context.Context, organizationID uuid.UUID, status MovementStatus, filter shared.Filter) ([]StockMovement, error)

	// Save creates or updates a movement
	Save(ctx context.Context, movement *StockMovement) error

	// SaveBatch creates or updates multiple movements
	SaveBatch(ctx context.Context, movements []*StockMovement) error
}

// CycleCountRepository defines the interface for counting session persistence
type CycleCountRepository interface {
	// FindByID finds a session with its items by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*CycleCountSession, error)

	// FindByWarehouse finds sessions for a warehouse, newest first
	FindByWarehouse(ctx context.Context, organizationID, warehouseID uuid.UUID, filter shared.Filter) ([]CycleCountSession, error)

	// FindByStatus finds sessions in a given status
	FindByStatus(ctx context.Context, organizationID uuid.UUID, status CycleCountStatus, filter shared.Filter) ([]CycleCountSession, error)

	// Save creates or updates a session and its items
	Save(ctx context.Context, session *CycleCountSession) error

	// SaveWithLock saves with optimistic locking on the session version
	SaveWithLock(ctx context.Context, session *CycleCountSession) error
}

// AuditLogRepository defines the interface for the append-only audit ledger.
// Entries are write-once: there are no update or delete operations.
type AuditLogRepository interface {
	// Append writes a single audit entry
	Append(ctx context.Context, entry *AuditLogEntry) error

	// AppendBatch writes multiple audit entries
	AppendBatch(ctx context.Context, entries []*AuditLogEntry) error

	// FindBySKU finds audit entries for a SKU, newest first
	FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string, filter shared.Filter) ([]AuditLogEntry, error)

	// FindByTimeRange finds audit entries in a time window, newest first
	FindByTimeRange(ctx context.Context, organizationID uuid.UUID, from, to time.Time, filter shared.Filter) ([]AuditLogEntry, error)
}
