package partner

import (
	"context"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	// FindByID finds a warehouse by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*Warehouse, error)

	// FindByCode finds a warehouse by its code within an organization
	FindByCode(ctx context.Context, organizationID uuid.UUID, code string) (*Warehouse, error)

	// FindAll finds all warehouses for an organization matching the filter
	FindAll(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]Warehouse, error)

	// ExistsByID checks if a warehouse with the given ID exists in the organization
	ExistsByID(ctx context.Context, organizationID, id uuid.UUID) (bool, error)

	// Save creates or updates a warehouse
	Save(ctx context.Context, warehouse *Warehouse) error

	// Count counts warehouses for an organization
	Count(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (int64, error)
}
