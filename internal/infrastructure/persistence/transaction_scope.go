package persistence

import (
	"context"
	"time"

	appinv "github.com/fulfillment/backend/internal/application/inventory"
	"github.com/fulfillment/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. A
// non-zero timeout bounds every transaction it runs.
func NewGormTransactionScope(db *gorm.DB, timeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, timeout: timeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed. The
// configured timeout applies to the whole transaction, rolling it back
// when exceeded so row locks cannot be held indefinitely.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// InventoryRepo returns the inventory item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryRepo() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// ReservationRepo returns the reservation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReservationRepo() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// MovementRepo returns the stock movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// CycleCountRepo returns the cycle count repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CycleCountRepo() inventory.CycleCountRepository {
	return NewGormCycleCountRepository(r.tx)
}

// AuditRepo returns the audit log repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AuditRepo() inventory.AuditLogRepository {
	return NewGormAuditLogRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
