package catalog

import (
	"context"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by ID within an organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by its SKU within an organization
	FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (*Product, error)

	// FindBySKUs finds multiple products by their SKUs within an organization
	FindBySKUs(ctx context.Context, organizationID uuid.UUID, skus []string) ([]Product, error)

	// FindAll finds all products for an organization matching the filter
	FindAll(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]Product, error)

	// ExistsBySKU checks if a product with the given SKU exists in the organization
	ExistsBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (bool, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Count counts products for an organization
	Count(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (int64, error)
}
