package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by ID within an organization
func (r *GormReservationRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("RESERVATION_NOT_FOUND", "Reservation not found")
		}
		return nil, err
	}
	return &reservation, nil
}

// FindActiveByOrder finds all ACTIVE reservations for an order
func (r *GormReservationRepository) FindActiveByOrder(ctx context.Context, organizationID, orderID uuid.UUID) ([]inventory.Reservation, error) {
	var reservations []inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND order_id = ? AND status = ?", organizationID, orderID, inventory.ReservationStatusActive).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindActiveBySKU finds ACTIVE reservations for a SKU created before the
// cutoff, oldest first. A zero cutoff matches all ages.
func (r *GormReservationRepository) FindActiveBySKU(ctx context.Context, organizationID uuid.UUID, sku string, olderThan time.Time, limit int) ([]inventory.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND sku = ? AND status = ?", organizationID, sku, inventory.ReservationStatusActive)
	if !olderThan.IsZero() {
		query = query.Where("created_at < ?", olderThan)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reservations []inventory.Reservation
	if err := query.Order("created_at ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpired finds ACTIVE reservations created before the cutoff across
// all SKUs, oldest first
func (r *GormReservationRepository) FindExpired(ctx context.Context, organizationID uuid.UUID, olderThan time.Time, limit int) ([]inventory.Reservation, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ? AND created_at < ?", organizationID, inventory.ReservationStatusActive, olderThan)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reservations []inventory.Reservation
	if err := query.Order("created_at ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListOrganizationsWithActive returns the organizations holding at
// least one ACTIVE reservation
func (r *GormReservationRepository) ListOrganizationsWithActive(ctx context.Context) ([]uuid.UUID, error) {
	var organizationIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("status = ?", inventory.ReservationStatusActive).
		Distinct("organization_id").
		Pluck("organization_id", &organizationIDs).Error
	if err != nil {
		return nil, err
	}
	return organizationIDs, nil
}

// Save creates or updates a reservation. A unique violation on the
// active-hold index means another request already reserved the same
// order line, which surfaces as a conflict rather than a raw DB error.
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	if err := r.db.WithContext(ctx).Save(reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("ALREADY_EXISTS", "An active reservation already exists for this order line")
		}
		return err
	}
	return nil
}

// SaveBatch creates or updates multiple reservations
func (r *GormReservationRepository) SaveBatch(ctx context.Context, reservations []*inventory.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(reservations).Error
}

// CountActiveBySKU counts ACTIVE reservations for a SKU
func (r *GormReservationRepository) CountActiveBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("organization_id = ? AND sku = ? AND status = ?", organizationID, sku, inventory.ReservationStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormReservationRepository implements ReservationRepository
var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
