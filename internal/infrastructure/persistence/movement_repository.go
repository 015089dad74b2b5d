package persistence

import (
	"context"
	"errors"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// FindByID finds a movement by ID within an organization
func (r *GormStockMovementRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("MOVEMENT_NOT_FOUND", "Stock movement not found")
		}
		return nil, err
	}
	return &movement, nil
}

// FindBySKU finds movements for a SKU, newest first
func (r *GormStockMovementRepository) FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string, filter shared.Filter) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.StockMovement{}).
			Where("organization_id = ? AND sku = ?", organizationID, sku),
		filter, MovementSortFields, "created_at",
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByStatus finds movements in a given status
func (r *GormStockMovementRepository) FindByStatus(ctx context.Context, organizationID uuid.UUID, status inventory.MovementStatus, filter shared.Filter) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.StockMovement{}).
			Where("organization_id = ? AND status = ?", organizationID, status),
		filter, MovementSortFields, "created_at",
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Save creates or updates a movement
func (r *GormStockMovementRepository) Save(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Save(movement).Error
}

// SaveBatch creates or updates multiple movements
func (r *GormStockMovementRepository) SaveBatch(ctx context.Context, movements []*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(movements).Error
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
