package persistence

import (
	"context"
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements AuditLogRepository using GORM.
// The ledger is append-only: no update or delete paths exist.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append writes a single audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *inventory.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// AppendBatch writes multiple audit entries
func (r *GormAuditLogRepository) AppendBatch(ctx context.Context, entries []*inventory.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// FindBySKU finds audit entries for a SKU, newest first
func (r *GormAuditLogRepository) FindBySKU(ctx context.Context, organizationID uuid.UUID, sku string, filter shared.Filter) ([]inventory.AuditLogEntry, error) {
	var entries []inventory.AuditLogEntry
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.AuditLogEntry{}).
			Where("organization_id = ? AND sku = ?", organizationID, sku),
		filter, AuditLogSortFields, "created_at",
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByTimeRange finds audit entries in a time window, newest first
func (r *GormAuditLogRepository) FindByTimeRange(ctx context.Context, organizationID uuid.UUID, from, to time.Time, filter shared.Filter) ([]inventory.AuditLogEntry, error) {
	var entries []inventory.AuditLogEntry
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.AuditLogEntry{}).
			Where("organization_id = ? AND created_at >= ? AND created_at <= ?", organizationID, from, to),
		filter, AuditLogSortFields, "created_at",
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormAuditLogRepository implements AuditLogRepository
var _ inventory.AuditLogRepository = (*GormAuditLogRepository)(nil)
