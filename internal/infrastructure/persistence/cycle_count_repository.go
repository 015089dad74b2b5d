package persistence

import (
	"context"
	"errors"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCycleCountRepository implements CycleCountRepository using GORM
type GormCycleCountRepository struct {
	db *gorm.DB
}

// NewGormCycleCountRepository creates a new GormCycleCountRepository
func NewGormCycleCountRepository(db *gorm.DB) *GormCycleCountRepository {
	return &GormCycleCountRepository{db: db}
}

// FindByID finds a session with its items by ID within an organization
func (r *GormCycleCountRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*inventory.CycleCountSession, error) {
	var session inventory.CycleCountSession
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("SESSION_NOT_FOUND", "Counting session not found")
		}
		return nil, err
	}
	return &session, nil
}

// FindByWarehouse finds sessions for a warehouse, newest first
func (r *GormCycleCountRepository) FindByWarehouse(ctx context.Context, organizationID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.CycleCountSession, error) {
	var sessions []inventory.CycleCountSession
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.CycleCountSession{}).
			Where("organization_id = ? AND warehouse_id = ?", organizationID, warehouseID),
		filter, CycleCountSortFields, "created_at",
	)

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindByStatus finds sessions in a given status
func (r *GormCycleCountRepository) FindByStatus(ctx context.Context, organizationID uuid.UUID, status inventory.CycleCountStatus, filter shared.Filter) ([]inventory.CycleCountSession, error) {
	var sessions []inventory.CycleCountSession
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.CycleCountSession{}).
			Where("organization_id = ? AND status = ?", organizationID, status),
		filter, CycleCountSortFields, "created_at",
	)

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save creates or updates a session and its items
func (r *GormCycleCountRepository) Save(ctx context.Context, session *inventory.CycleCountSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(session).Error; err != nil {
			return err
		}
		return saveSessionItems(tx, session)
	})
}

// SaveWithLock saves with optimistic locking on the session version.
// Items are written only when the version check passes.
func (r *GormCycleCountRepository) SaveWithLock(ctx context.Context, session *inventory.CycleCountSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(session).
			Where("id = ? AND version = ?", session.ID, session.Version-1).
			Updates(map[string]interface{}{
				"status":        session.Status,
				"completed_at":  session.CompletedAt,
				"approved_by":   session.ApprovedBy,
				"approved_at":   session.ApprovedAt,
				"approval_note": session.ApprovalNote,
				"version":       session.Version,
				"updated_at":    session.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewConflictError("CONCURRENCY_CONFLICT", "Counting session was modified by another transaction")
		}
		return saveSessionItems(tx, session)
	})
}

func saveSessionItems(tx *gorm.DB, session *inventory.CycleCountSession) error {
	for i := range session.Items {
		session.Items[i].SessionID = session.ID
		if err := tx.Save(&session.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormCycleCountRepository implements CycleCountRepository
var _ inventory.CycleCountRepository = (*GormCycleCountRepository)(nil)
