package persistence

import (
	"context"
	"errors"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by ID within an organization
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// FindBySKU finds inventory for a warehouse-SKU combination
func (r *GormInventoryItemRepository) FindBySKU(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND warehouse_id = ? AND sku = ?", organizationID, warehouseID, sku).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// FindBySKUForUpdate finds inventory for a warehouse-SKU combination
// holding an exclusive row lock. Must run inside a transaction; the
// lock is held until the transaction ends.
func (r *GormInventoryItemRepository) FindBySKUForUpdate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND warehouse_id = ? AND sku = ?", organizationID, warehouseID, sku).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// FindByWarehouse finds all inventory items in a warehouse
func (r *GormInventoryItemRepository) FindByWarehouse(ctx context.Context, organizationID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
		Where("organization_id = ? AND warehouse_id = ?", organizationID, warehouseID)
	if filter.Search != "" {
		query = query.Where("sku ILIKE ?", "%"+filter.Search+"%")
	}
	query = applyFilter(query, filter, InventoryItemSortFields, "sku")

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBySKUs finds inventory items for multiple SKUs in a warehouse
func (r *GormInventoryItemRepository) FindBySKUs(ctx context.Context, organizationID, warehouseID uuid.UUID, skus []string) ([]inventory.InventoryItem, error) {
	if len(skus) == 0 {
		return []inventory.InventoryItem{}, nil
	}

	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND warehouse_id = ? AND sku IN ?", organizationID, warehouseID, skus).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetOrCreate returns the existing item for a warehouse-SKU combination
// or creates a zero-quantity row
func (r *GormInventoryItemRepository) GetOrCreate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	item, err := r.FindBySKU(ctx, organizationID, warehouseID, sku)
	if err == nil {
		return item, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	item, err = inventory.NewInventoryItem(organizationID, warehouseID, sku)
	if err != nil {
		return nil, err
	}

	// ON CONFLICT DO NOTHING absorbs the race with a concurrent creator.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "warehouse_id"}, {Name: "sku"}},
			DoNothing: true,
		}).
		Create(item)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return r.FindBySKU(ctx, organizationID, warehouseID, sku)
	}
	return item, nil
}

// Save creates or updates an inventory item
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveWithLock saves with optimistic locking: the update applies only
// if the stored version matches the one the aggregate was loaded at
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"quantity":          item.Quantity,
			"reserved_quantity": item.ReservedQuantity,
			"version":           item.Version,
			"updated_at":        item.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("CONCURRENCY_CONFLICT", "Inventory item was modified by another transaction")
	}
	return nil
}

// ExistsBySKU checks if inventory exists for a warehouse-SKU combination
func (r *GormInventoryItemRepository) ExistsBySKU(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("organization_id = ? AND warehouse_id = ? AND sku = ?", organizationID, warehouseID, sku).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts inventory items in a warehouse
func (r *GormInventoryItemRepository) Count(ctx context.Context, organizationID, warehouseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("organization_id = ? AND warehouse_id = ?", organizationID, warehouseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
