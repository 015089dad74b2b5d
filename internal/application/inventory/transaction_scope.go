package inventory

import (
	"context"

	"github.com/fulfillment/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Row locks taken inside the scope are held until it ends.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all inventory repositories
// within a transaction. All repositories returned share the same underlying
// database transaction, which is what makes the quantity-mutation plus
// audit-write pairing atomic.
type TransactionalRepositories interface {
	// InventoryRepo returns the inventory item repository scoped to the current transaction
	InventoryRepo() inventory.InventoryItemRepository
	// ReservationRepo returns the reservation repository scoped to the current transaction
	ReservationRepo() inventory.ReservationRepository
	// MovementRepo returns the stock movement repository scoped to the current transaction
	MovementRepo() inventory.StockMovementRepository
	// CycleCountRepo returns the cycle count repository scoped to the current transaction
	CycleCountRepo() inventory.CycleCountRepository
	// AuditRepo returns the audit log repository scoped to the current transaction
	AuditRepo() inventory.AuditLogRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	inventoryRepo   inventory.InventoryItemRepository
	reservationRepo inventory.ReservationRepository
	movementRepo    inventory.StockMovementRepository
	cycleCountRepo  inventory.CycleCountRepository
	auditRepo       inventory.AuditLogRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	inventoryRepo inventory.InventoryItemRepository,
	reservationRepo inventory.ReservationRepository,
	movementRepo inventory.StockMovementRepository,
	cycleCountRepo inventory.CycleCountRepository,
	auditRepo inventory.AuditLogRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		inventoryRepo:   inventoryRepo,
		reservationRepo: reservationRepo,
		movementRepo:    movementRepo,
		cycleCountRepo:  cycleCountRepo,
		auditRepo:       auditRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InventoryRepo returns the inventory item repository.
func (s *NoOpTransactionScope) InventoryRepo() inventory.InventoryItemRepository {
	return s.inventoryRepo
}

// ReservationRepo returns the reservation repository.
func (s *NoOpTransactionScope) ReservationRepo() inventory.ReservationRepository {
	return s.reservationRepo
}

// MovementRepo returns the stock movement repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.StockMovementRepository {
	return s.movementRepo
}

// CycleCountRepo returns the cycle count repository.
func (s *NoOpTransactionScope) CycleCountRepo() inventory.CycleCountRepository {
	return s.cycleCountRepo
}

// AuditRepo returns the audit log repository.
func (s *NoOpTransactionScope) AuditRepo() inventory.AuditLogRepository {
	return s.auditRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
