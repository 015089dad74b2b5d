package inventory

import (
	"context"
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
)

// AuditQueryService is the read side of the audit ledger. The ledger
// itself is append-only; retention and archival live outside this
// service.
type AuditQueryService struct {
	auditRepo inventory.AuditLogRepository
}

// NewAuditQueryService creates a new AuditQueryService
func NewAuditQueryService(auditRepo inventory.AuditLogRepository) *AuditQueryService {
	return &AuditQueryService{auditRepo: auditRepo}
}

// ListBySKU returns the audit entries for one SKU, newest first
func (s *AuditQueryService) ListBySKU(ctx context.Context, opCtx shared.OperationContext, sku string, filter shared.Filter) ([]inventory.AuditLogEntry, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	return s.auditRepo.FindBySKU(ctx, opCtx.OrganizationID, sku, filter)
}

// ListByTimeRange returns the audit entries in a time window, newest first
func (s *AuditQueryService) ListByTimeRange(ctx context.Context, opCtx shared.OperationContext, from, to time.Time, filter shared.Filter) ([]inventory.AuditLogEntry, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if !to.IsZero() && to.Before(from) {
		return nil, shared.NewValidationError("INVALID_TIME_RANGE", "Range end must not precede range start")
	}
	return s.auditRepo.FindByTimeRange(ctx, opCtx.OrganizationID, from, to, filter)
}
