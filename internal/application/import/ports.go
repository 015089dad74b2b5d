package bulkimport

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRegistry keeps finished import results retrievable for a
// bounded time. Results are scoped per organization; lookups across
// organizations report not found.
type SessionRegistry interface {
	StoreResult(ctx context.Context, organizationID uuid.UUID, result *Result, ttl time.Duration) error
	GetResult(ctx context.Context, organizationID, importID uuid.UUID) (*Result, error)
}
