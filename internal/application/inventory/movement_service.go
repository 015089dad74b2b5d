package inventory

import (
	"context"
	"fmt"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MovementService drives physical stock changes through the movement
// state machine. Creation is an advisory step; the inventory mutation
// happens at execution time under a row lock.
type MovementService struct {
	scope          TransactionScope
	movementRepo   inventory.StockMovementRepository
	inventoryRepo  inventory.InventoryItemRepository
	validation     *ValidationService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewMovementService creates a new MovementService
func NewMovementService(
	scope TransactionScope,
	movementRepo inventory.StockMovementRepository,
	inventoryRepo inventory.InventoryItemRepository,
	validation *ValidationService,
	logger *zap.Logger,
) *MovementService {
	return &MovementService{
		scope:         scope,
		movementRepo:  movementRepo,
		inventoryRepo: inventoryRepo,
		validation:    validation,
		logger:        logger,
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *MovementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create validates and persists a PENDING movement. For OUTBOUND types
// an advisory available-stock check runs here; the authoritative
// re-check happens under the row lock at execution time.
func (s *MovementService) Create(ctx context.Context, opCtx shared.OperationContext, input CreateMovementInput) (*MovementDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	record := InventoryRecord{WarehouseID: input.WarehouseID, SKU: input.SKU, Quantity: input.Quantity}
	result, err := s.validation.ValidateRecord(ctx, opCtx.OrganizationID, record)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		issue := result.Errors[0]
		return nil, shared.NewValidationError(issue.Code, issue.Message)
	}

	movement, err := inventory.NewStockMovement(opCtx.OrganizationID, input.WarehouseID, input.SKU, input.Quantity, input.Type, opCtx.UserID)
	if err != nil {
		return nil, err
	}
	if input.ReferenceID != "" || input.ReferenceType != "" {
		movement.SetReference(input.ReferenceType, input.ReferenceID)
	}

	if movement.IsOutbound() {
		if err := s.advisoryAvailableCheck(ctx, opCtx.OrganizationID, input.WarehouseID, input.SKU, input.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.movementRepo.Save(ctx, movement); err != nil {
		return nil, err
	}

	s.publish(ctx, movement.GetDomainEvents())
	movement.ClearDomainEvents()

	dto := ToMovementDTO(movement)
	return &dto, nil
}

// Execute applies a movement's stock change. Inside one transaction it
// re-verifies the status, takes the row lock, re-checks availability
// for OUTBOUND types since state may have changed since creation,
// mutates the quantity (creating the item row on first INBOUND),
// writes the audit entry, and marks the movement COMPLETED. If the
// transaction rolls back, the movement is separately marked FAILED.
func (s *MovementService) Execute(ctx context.Context, opCtx shared.OperationContext, movementID uuid.UUID) (*MovementDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	movement, err := s.movementRepo.FindByID(ctx, opCtx.OrganizationID, movementID)
	if err != nil {
		return nil, err
	}

	var events []shared.DomainEvent

	execErr := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		// Reload inside the transaction: the status may have moved
		// since the pre-check read.
		current, err := repos.MovementRepo().FindByID(ctx, opCtx.OrganizationID, movementID)
		if err != nil {
			return err
		}
		movement = current

		if err := movement.Start(); err != nil {
			return err
		}

		item, err := s.lockItemForMovement(ctx, repos, opCtx, movement)
		if err != nil {
			return err
		}

		before := inventory.SnapshotOf(item)
		delta, err := movement.SignedDelta()
		if err != nil {
			return err
		}
		if delta != 0 {
			if err := item.ApplyDelta(delta); err != nil {
				return err
			}
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

		entry, err := inventory.NewAuditLogEntry(opCtx.OrganizationID, movement.WarehouseID, opCtx.UserID, movement.SKU, inventory.AuditActionMovementExecuted, before, inventory.SnapshotOf(item))
		if err == nil {
			entry.WithReason("", fmt.Sprintf("movement %s executed", movement.Type)).WithMetadata(map[string]interface{}{
				"movementId":   movement.ID.String(),
				"movementType": string(movement.Type),
			})
			err = repos.AuditRepo().Append(ctx, entry)
		}
		if err != nil {
			s.logger.Error("audit write failed, audit trail has a gap",
				zap.String("movement_id", movement.ID.String()), zap.Error(err))
		}

		events = append(events, item.GetDomainEvents()...)
		events = append(events, movement.GetDomainEvents()...)
		item.ClearDomainEvents()
		movement.ClearDomainEvents()

		return nil
	})
	if execErr != nil {
		s.markFailed(ctx, opCtx, movementID, execErr)
		return nil, execErr
	}

	s.publish(ctx, events)

	dto := ToMovementDTO(movement)
	return &dto, nil
}

// Approve moves a PENDING movement to APPROVED. Execution accepts
// both statuses; approval exists for flows where a supervisor signs
// off before the floor executes.
func (s *MovementService) Approve(ctx context.Context, opCtx shared.OperationContext, movementID uuid.UUID) (*MovementDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	movement, err := s.movementRepo.FindByID(ctx, opCtx.OrganizationID, movementID)
	if err != nil {
		return nil, err
	}
	if err := movement.Approve(); err != nil {
		return nil, err
	}
	if err := s.movementRepo.Save(ctx, movement); err != nil {
		return nil, err
	}

	dto := ToMovementDTO(movement)
	return &dto, nil
}

// Cancel aborts a movement that has not executed yet. Completed,
// failed, and already-cancelled movements are rejected.
func (s *MovementService) Cancel(ctx context.Context, opCtx shared.OperationContext, movementID uuid.UUID, reason string) (*MovementDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	movement, err := s.movementRepo.FindByID(ctx, opCtx.OrganizationID, movementID)
	if err != nil {
		return nil, err
	}
	if err := movement.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.movementRepo.Save(ctx, movement); err != nil {
		return nil, err
	}

	s.publish(ctx, movement.GetDomainEvents())
	movement.ClearDomainEvents()

	dto := ToMovementDTO(movement)
	return &dto, nil
}

// CreateTransfer atomically creates the linked TRANSFER_OUT and
// TRANSFER_IN movements for moving stock between warehouses. Each leg
// then executes independently, modelling real dispatch and receipt
// timing.
func (s *MovementService) CreateTransfer(ctx context.Context, opCtx shared.OperationContext, input CreateTransferInput) (*TransferResult, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	for _, warehouseID := range []uuid.UUID{input.SourceWarehouseID, input.TargetWarehouseID} {
		result, err := s.validation.ValidateWarehouse(ctx, opCtx.OrganizationID, warehouseID)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			issue := result.Errors[0]
			return nil, shared.NewValidationError(issue.Code, issue.Message)
		}
	}

	record := InventoryRecord{WarehouseID: input.SourceWarehouseID, SKU: input.SKU, Quantity: input.Quantity}
	formatResult := s.validation.ValidateFormat(record)
	if !formatResult.Valid {
		issue := formatResult.Errors[0]
		return nil, shared.NewValidationError(issue.Code, issue.Message)
	}
	productResult, err := s.validation.ValidateProduct(ctx, opCtx.OrganizationID, input.SKU)
	if err != nil {
		return nil, err
	}
	if !productResult.Valid {
		issue := productResult.Errors[0]
		return nil, shared.NewValidationError(issue.Code, issue.Message)
	}

	if err := s.advisoryAvailableCheck(ctx, opCtx.OrganizationID, input.SourceWarehouseID, input.SKU, input.Quantity); err != nil {
		return nil, err
	}

	out, in, err := inventory.NewTransferPair(opCtx.OrganizationID, input.SourceWarehouseID, input.TargetWarehouseID, input.SKU, input.Quantity, opCtx.UserID)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.MovementRepo().SaveBatch(ctx, []*inventory.StockMovement{out, in})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, out.GetDomainEvents())
	s.publish(ctx, in.GetDomainEvents())
	out.ClearDomainEvents()
	in.ClearDomainEvents()

	return &TransferResult{Outbound: ToMovementDTO(out), Inbound: ToMovementDTO(in)}, nil
}

// GetMovement returns a movement scoped to the caller's organization
func (s *MovementService) GetMovement(ctx context.Context, opCtx shared.OperationContext, movementID uuid.UUID) (*MovementDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	movement, err := s.movementRepo.FindByID(ctx, opCtx.OrganizationID, movementID)
	if err != nil {
		return nil, err
	}

	dto := ToMovementDTO(movement)
	return &dto, nil
}

// lockItemForMovement takes the exclusive row lock on the movement's
// inventory item. INBOUND movements create the row on first receipt;
// OUTBOUND movements against a missing row fail as insufficient stock.
func (s *MovementService) lockItemForMovement(ctx context.Context, repos TransactionalRepositories, opCtx shared.OperationContext, movement *inventory.StockMovement) (*inventory.InventoryItem, error) {
	item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, movement.WarehouseID, movement.SKU)
	if err == nil {
		return item, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	if movement.IsOutbound() {
		return nil, shared.NewConflictError("INSUFFICIENT_STOCK", fmt.Sprintf("No stock for SKU %s in warehouse", movement.SKU))
	}

	if _, err := repos.InventoryRepo().GetOrCreate(ctx, opCtx.OrganizationID, movement.WarehouseID, movement.SKU); err != nil {
		return nil, err
	}
	return repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, movement.WarehouseID, movement.SKU)
}

// advisoryAvailableCheck verifies available stock without taking a
// lock. It rejects obviously doomed requests early; the authoritative
// check still happens at execution time.
func (s *MovementService) advisoryAvailableCheck(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string, quantity int64) error {
	item, err := s.inventoryRepo.FindBySKU(ctx, organizationID, warehouseID, sku)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.NewConflictError("INSUFFICIENT_STOCK", fmt.Sprintf("No stock for SKU %s in warehouse", sku))
		}
		return err
	}
	if !item.CanFulfill(quantity) {
		return shared.NewConflictError("INSUFFICIENT_STOCK", fmt.Sprintf("Available stock %d is less than requested %d", item.Available(), quantity))
	}
	return nil
}

// markFailed records a failed execution attempt after the transaction
// rolled back. Best-effort: a movement that cannot be marked stays
// PENDING and simply fails again on the next attempt.
func (s *MovementService) markFailed(ctx context.Context, opCtx shared.OperationContext, movementID uuid.UUID, cause error) {
	movement, err := s.movementRepo.FindByID(ctx, opCtx.OrganizationID, movementID)
	if err != nil {
		s.logger.Error("could not load movement to mark failed",
			zap.String("movement_id", movementID.String()), zap.Error(err))
		return
	}
	if movement.Status.IsTerminal() {
		return
	}
	if err := movement.Start(); err != nil {
		s.logger.Warn("movement not in an executable status, skipping failure mark",
			zap.String("movement_id", movementID.String()), zap.Error(err))
		return
	}
	if err := movement.Fail(cause.Error()); err != nil {
		s.logger.Error("could not mark movement failed",
			zap.String("movement_id", movementID.String()), zap.Error(err))
		return
	}
	if err := s.movementRepo.Save(ctx, movement); err != nil {
		s.logger.Error("could not persist failed movement status",
			zap.String("movement_id", movementID.String()), zap.Error(err))
		return
	}

	s.publish(ctx, movement.GetDomainEvents())
	movement.ClearDomainEvents()
}

func (s *MovementService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}
