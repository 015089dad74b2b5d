package persistence

import (
	"context"
	"errors"

	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by ID within an organization
func (r *GormWarehouseRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*partner.Warehouse, error) {
	var warehouse partner.Warehouse
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
		}
		return nil, err
	}
	return &warehouse, nil
}

// FindByCode finds a warehouse by its code within an organization
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, organizationID uuid.UUID, code string) (*partner.Warehouse, error) {
	var warehouse partner.Warehouse
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND code = ?", organizationID, code).
		First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
		}
		return nil, err
	}
	return &warehouse, nil
}

// FindAll finds all warehouses for an organization matching the filter
func (r *GormWarehouseRepository) FindAll(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) ([]partner.Warehouse, error) {
	var warehouses []partner.Warehouse
	query := applyFilter(r.baseQuery(ctx, organizationID, filter), filter, WarehouseSortFields, "code")

	if err := query.Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// ExistsByID checks if a warehouse with the given ID exists in the organization
func (r *GormWarehouseRepository) ExistsByID(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Warehouse{}).
		Where("organization_id = ? AND id = ?", organizationID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *partner.Warehouse) error {
	return r.db.WithContext(ctx).Save(warehouse).Error
}

// Count counts warehouses for an organization
func (r *GormWarehouseRepository) Count(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.baseQuery(ctx, organizationID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormWarehouseRepository) baseQuery(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&partner.Warehouse{}).
		Where("organization_id = ?", organizationID)
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", search, search)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return query
}

// Ensure GormWarehouseRepository implements WarehouseRepository
var _ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
