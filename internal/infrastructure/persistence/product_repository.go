package persistence

import (
	"context"
	"errors"

	"github.com/fulfillment/backend/internal/domain/catalog"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by ID within an organization
func (r *GormProductRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU finds a product by its SKU within an organization
func (r *GormProductRepository) FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND sku = ?", organizationID, sku).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKUs finds multiple products by their SKUs within an organization
func (r *GormProductRepository) FindBySKUs(ctx context.Context, organizationID uuid.UUID, skus []string) ([]catalog.Product, error) {
	if len(skus) == 0 {
		return []catalog.Product{}, nil
	}

	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND sku IN ?", organizationID, skus).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll finds all products for an organization matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	var products []catalog.Product
	query := applyFilter(r.baseQuery(ctx, organizationID, filter), filter, ProductSortFields, "sku")

	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ExistsBySKU checks if a product with the given SKU exists in the organization
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("organization_id = ? AND sku = ?", organizationID, sku).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Count counts products for an organization
func (r *GormProductRepository) Count(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.baseQuery(ctx, organizationID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormProductRepository) baseQuery(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("organization_id = ?", organizationID)
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ?", search, search)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return query
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
