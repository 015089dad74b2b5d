package inventory

import (
	"context"
	"fmt"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CycleCountConfig carries the variance thresholds, in percent
type CycleCountConfig struct {
	// AutoApproveThreshold is the absolute variance percent at or
	// above which a session needs explicit approval before committing
	AutoApproveThreshold decimal.Decimal
	// WarningThreshold and ErrorThreshold classify report rows
	WarningThreshold decimal.Decimal
	ErrorThreshold   decimal.Decimal
}

// DefaultCycleCountConfig returns the standard thresholds
func DefaultCycleCountConfig() CycleCountConfig {
	return CycleCountConfig{
		AutoApproveThreshold: decimal.NewFromInt(10),
		WarningThreshold:     decimal.NewFromInt(5),
		ErrorThreshold:       decimal.NewFromInt(20),
	}
}

// CycleCountService coordinates physical counting sessions: creation,
// count submission, approval gating, and the stock reconciliation that
// closes a session.
type CycleCountService struct {
	scope          TransactionScope
	cycleCountRepo inventory.CycleCountRepository
	inventoryRepo  inventory.InventoryItemRepository
	validation     *ValidationService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	config         CycleCountConfig
}

// NewCycleCountService creates a new CycleCountService
func NewCycleCountService(
	scope TransactionScope,
	cycleCountRepo inventory.CycleCountRepository,
	inventoryRepo inventory.InventoryItemRepository,
	validation *ValidationService,
	logger *zap.Logger,
	config CycleCountConfig,
) *CycleCountService {
	return &CycleCountService{
		scope:          scope,
		cycleCountRepo: cycleCountRepo,
		inventoryRepo:  inventoryRepo,
		validation:     validation,
		logger:         logger,
		config:         config,
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *CycleCountService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateSession opens a counting session. FULL sessions snapshot every
// item in the warehouse; PARTIAL sessions require an explicit SKU list
// and snapshot those SKUs, treating missing rows as expected zero.
func (s *CycleCountService) CreateSession(ctx context.Context, opCtx shared.OperationContext, input CreateSessionInput) (*SessionDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	warehouseResult, err := s.validation.ValidateWarehouse(ctx, opCtx.OrganizationID, input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !warehouseResult.Valid {
		issue := warehouseResult.Errors[0]
		return nil, shared.NewValidationError(issue.Code, issue.Message)
	}

	snapshot := make(map[string]int64)
	switch input.Type {
	case inventory.CycleCountTypeFull:
		items, err := s.inventoryRepo.FindByWarehouse(ctx, opCtx.OrganizationID, input.WarehouseID, shared.Filter{})
		if err != nil {
			return nil, err
		}
		for idx := range items {
			snapshot[items[idx].SKU] = items[idx].Quantity
		}
	case inventory.CycleCountTypePartial:
		if len(input.SKUs) == 0 {
			return nil, shared.NewValidationError("MISSING_SKUS", "Partial cycle count requires at least one SKU")
		}
		items, err := s.inventoryRepo.FindBySKUs(ctx, opCtx.OrganizationID, input.WarehouseID, input.SKUs)
		if err != nil {
			return nil, err
		}
		for _, sku := range input.SKUs {
			snapshot[sku] = 0
		}
		for idx := range items {
			snapshot[items[idx].SKU] = items[idx].Quantity
		}
	default:
		return nil, shared.NewValidationError("INVALID_COUNT_TYPE", fmt.Sprintf("Unknown cycle count type: %s", input.Type))
	}

	session, err := inventory.NewCycleCountSession(opCtx.OrganizationID, input.WarehouseID, input.Type, input.IsBlind, opCtx.UserID, snapshot)
	if err != nil {
		return nil, err
	}
	if err := s.cycleCountRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, session.GetDomainEvents())
	session.ClearDomainEvents()

	dto := ToSessionDTO(session)
	return &dto, nil
}

// GetSessionItems returns the counting sheet for a session. Blind
// sessions omit expected quantities from the projection entirely.
func (s *CycleCountService) GetSessionItems(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID) ([]SessionItemView, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]SessionItemView, 0, len(session.Items))
	for idx := range session.Items {
		item := &session.Items[idx]
		view := SessionItemView{
			SKU:             item.SKU,
			CountedQuantity: item.CountedQuantity,
			IsCounted:       item.IsCounted(),
		}
		if !session.IsBlind {
			expected := item.ExpectedQuantity
			view.ExpectedQuantity = &expected
		}
		views = append(views, view)
	}
	return views, nil
}

// SubmitCounts records physical counts against a session. Counting is
// a low-contention path, so persistence uses the session's version
// counter with a single bounded retry instead of a row lock.
func (s *CycleCountService) SubmitCounts(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID, counts []CountInput) (*SessionDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, shared.NewValidationError("EMPTY_COUNTS", "At least one count is required")
	}

	session, err := s.applyCounts(ctx, opCtx, sessionID, counts)
	if err != nil {
		if !shared.IsConflict(err) || shared.CodeOf(err) != "CONCURRENCY_CONFLICT" {
			return nil, err
		}
		// One bounded retry on a concurrent submit.
		session, err = s.applyCounts(ctx, opCtx, sessionID, counts)
		if err != nil {
			return nil, err
		}
	}

	dto := ToSessionDTO(session)
	return &dto, nil
}

func (s *CycleCountService) applyCounts(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID, counts []CountInput) (*inventory.CycleCountSession, error) {
	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}
	for _, count := range counts {
		if err := session.RecordCount(count.SKU, count.CountedQuantity, opCtx.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.cycleCountRepo.SaveWithLock(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CompleteSession closes a fully counted session. Sessions whose worst
// variance reaches the auto-approve threshold park in PENDING_APPROVAL
// without touching stock; below the threshold the reconciliation
// commits immediately.
func (s *CycleCountService) CompleteSession(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID) (*SessionDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != inventory.CycleCountStatusInProgress {
		return nil, shared.NewConflictError("INVALID_SESSION_STATUS", fmt.Sprintf("Cannot complete session in status %s", session.Status))
	}
	if !session.AllCounted() {
		return nil, shared.NewConflictError("UNCOUNTED_ITEMS", "All items must be counted before completing the session")
	}

	if session.RequiresApproval(s.config.AutoApproveThreshold) {
		if err := session.SubmitForApproval(); err != nil {
			return nil, err
		}
		if err := s.cycleCountRepo.SaveWithLock(ctx, session); err != nil {
			return nil, err
		}
		s.publish(ctx, session.GetDomainEvents())
		session.ClearDomainEvents()

		dto := ToSessionDTO(session)
		return &dto, nil
	}

	return s.commitSession(ctx, opCtx, session)
}

// ApproveSession commits a session that was parked for approval.
// Requires an ADMIN or INVENTORY_MANAGER role, checked before any
// data access.
func (s *CycleCountService) ApproveSession(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID) (*SessionDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if !opCtx.HasAnyRole(shared.RoleAdmin, shared.RoleInventoryManager) {
		return nil, shared.NewPermissionError("APPROVAL_FORBIDDEN", "Session approval requires an admin or inventory manager role")
	}

	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != inventory.CycleCountStatusPendingApproval {
		return nil, shared.NewConflictError("INVALID_SESSION_STATUS", fmt.Sprintf("Cannot approve session in status %s", session.Status))
	}

	return s.commitSession(ctx, opCtx, session)
}

// RejectSession discards a parked session's counts without touching stock
func (s *CycleCountService) RejectSession(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID, note string) (*SessionDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if !opCtx.HasAnyRole(shared.RoleAdmin, shared.RoleInventoryManager) {
		return nil, shared.NewPermissionError("APPROVAL_FORBIDDEN", "Session rejection requires an admin or inventory manager role")
	}

	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Reject(opCtx.UserID, note); err != nil {
		return nil, err
	}
	if err := s.cycleCountRepo.SaveWithLock(ctx, session); err != nil {
		return nil, err
	}

	dto := ToSessionDTO(session)
	return &dto, nil
}

// GenerateVarianceReport computes the variance report for a session.
// Nil thresholds fall back to the configured defaults.
func (s *CycleCountService) GenerateVarianceReport(ctx context.Context, opCtx shared.OperationContext, sessionID uuid.UUID, warningThreshold, errorThreshold *decimal.Decimal) (*inventory.VarianceReport, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	session, err := s.cycleCountRepo.FindByID(ctx, opCtx.OrganizationID, sessionID)
	if err != nil {
		return nil, err
	}

	warning := s.config.WarningThreshold
	if warningThreshold != nil {
		warning = *warningThreshold
	}
	threshold := s.config.ErrorThreshold
	if errorThreshold != nil {
		threshold = *errorThreshold
	}

	return inventory.BuildVarianceReport(session, warning, threshold), nil
}

// commitSession reconciles system stock to the counted values inside
// one transaction: per varied item it creates and executes an
// adjustment movement, sets the absolute quantity under the row lock,
// and writes the audit entry, then marks the session COMPLETED.
func (s *CycleCountService) commitSession(ctx context.Context, opCtx shared.OperationContext, session *inventory.CycleCountSession) (*SessionDTO, error) {
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for idx := range session.Items {
			countItem := &session.Items[idx]
			if countItem.Variance() == 0 {
				continue
			}

			item, err := s.lockOrCreateItem(ctx, repos, opCtx, session.WarehouseID, countItem.SKU)
			if err != nil {
				return err
			}

			before := inventory.SnapshotOf(item)
			counted := *countItem.CountedQuantity
			if err := item.SetQuantity(counted); err != nil {
				return err
			}

			movementType := inventory.MovementTypeAdjustmentAdd
			adjustment := item.Quantity - before.Quantity
			if adjustment < 0 {
				movementType = inventory.MovementTypeAdjustmentRemove
				adjustment = -adjustment
			}

			movement, err := inventory.NewStockMovement(opCtx.OrganizationID, session.WarehouseID, countItem.SKU, adjustment, movementType, opCtx.UserID)
			if err != nil {
				return err
			}
			movement.SetReference("cycle_count_session", session.ID.String())
			if err := movement.Start(); err != nil {
				return err
			}
			if err := movement.Complete(); err != nil {
				return err
			}

			if err := repos.InventoryRepo().Save(ctx, item); err != nil {
				return err
			}
			if err := repos.MovementRepo().Save(ctx, movement); err != nil {
				return err
			}

			entry, err := inventory.NewAuditLogEntry(opCtx.OrganizationID, session.WarehouseID, opCtx.UserID, countItem.SKU, inventory.AuditActionCycleCountAdjust, before, inventory.SnapshotOf(item))
			if err == nil {
				entry.WithReason("", "cycle count reconciliation").WithMetadata(map[string]interface{}{
					"sessionId":  session.ID.String(),
					"movementId": movement.ID.String(),
				})
				err = repos.AuditRepo().Append(ctx, entry)
			}
			if err != nil {
				s.logger.Error("audit write failed, audit trail has a gap",
					zap.String("sku", countItem.SKU), zap.Error(err))
			}

			events = append(events, item.GetDomainEvents()...)
			events = append(events, movement.GetDomainEvents()...)
			item.ClearDomainEvents()
			movement.ClearDomainEvents()
		}

		if err := session.Complete(opCtx.UserID); err != nil {
			return err
		}
		return repos.CycleCountRepo().SaveWithLock(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	events = append(events, session.GetDomainEvents()...)
	session.ClearDomainEvents()
	s.publish(ctx, events)

	dto := ToSessionDTO(session)
	return &dto, nil
}

func (s *CycleCountService) lockOrCreateItem(ctx context.Context, repos TransactionalRepositories, opCtx shared.OperationContext, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, warehouseID, sku)
	if err == nil {
		return item, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	if _, err := repos.InventoryRepo().GetOrCreate(ctx, opCtx.OrganizationID, warehouseID, sku); err != nil {
		return nil, err
	}
	return repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, warehouseID, sku)
}

func (s *CycleCountService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}
