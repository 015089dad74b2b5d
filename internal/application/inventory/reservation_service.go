package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxBatchSize caps how many reservations a single batch
// operation touches, bounding transaction size and lock duration.
const DefaultMaxBatchSize = 500

// ReservationService manages the reservation lifecycle: soft holds
// against available stock, normal releases, and the privileged
// force-release paths.
type ReservationService struct {
	scope           TransactionScope
	reservationRepo inventory.ReservationRepository
	validation      *ValidationService
	eventPublisher  shared.EventPublisher
	notifier        Notifier
	logger          *zap.Logger
	maxBatchSize    int
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	scope TransactionScope,
	reservationRepo inventory.ReservationRepository,
	validation *ValidationService,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		scope:           scope,
		reservationRepo: reservationRepo,
		validation:      validation,
		logger:          logger,
		maxBatchSize:    DefaultMaxBatchSize,
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetNotifier sets the best-effort notification sink
func (s *ReservationService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// SetMaxBatchSize overrides the batch cap for sweep operations
func (s *ReservationService) SetMaxBatchSize(size int) {
	if size > 0 {
		s.maxBatchSize = size
	}
}

// Reserve places soft holds for every line of an order, all or
// nothing. Each line's available check and reservedQuantity increment
// happen under an exclusive row lock, so concurrent reservations on
// the same SKU cannot oversell. Reserving an order that already has
// active reservations returns them unchanged.
func (s *ReservationService) Reserve(ctx context.Context, opCtx shared.OperationContext, orderID uuid.UUID, lines []LineItem) (*ReserveResult, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_ORDER", "At least one line item is required")
	}

	// Existence and activity checks run before the mutating transaction.
	for _, line := range lines {
		record := InventoryRecord{WarehouseID: line.WarehouseID, SKU: line.SKU, Quantity: line.Quantity}
		result, err := s.validation.ValidateRecord(ctx, opCtx.OrganizationID, record)
		if err != nil {
			return nil, err
		}
		if line.Quantity <= 0 {
			result.Add("quantity", "INVALID_QUANTITY", "Reservation quantity must be positive")
		}
		if !result.Valid {
			issue := result.Errors[0]
			return nil, shared.NewValidationError(issue.Code, fmt.Sprintf("Line %s: %s", line.SKU, issue.Message))
		}
	}

	existing, err := s.reservationRepo.FindActiveByOrder(ctx, opCtx.OrganizationID, orderID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		result := &ReserveResult{OrderID: orderID, AlreadyReserved: true}
		for idx := range existing {
			result.Reservations = append(result.Reservations, ToReservationDTO(&existing[idx]))
		}
		return result, nil
	}

	var created []*inventory.Reservation
	var raced []inventory.Reservation
	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for idx, line := range lines {
			item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, line.WarehouseID, line.SKU)
			if err != nil {
				if shared.IsNotFound(err) {
					return shared.NewConflictError("INSUFFICIENT_STOCK", fmt.Sprintf("No stock for SKU %s in warehouse", line.SKU))
				}
				return err
			}

			// The pre-transaction idempotency check can race. With the
			// first row lock held, a concurrent reserve for this order
			// has either committed or is queued behind us, so this
			// re-read is authoritative.
			if idx == 0 {
				held, err := repos.ReservationRepo().FindActiveByOrder(ctx, opCtx.OrganizationID, orderID)
				if err != nil {
					return err
				}
				if len(held) > 0 {
					raced = held
					return nil
				}
			}

			before := inventory.SnapshotOf(item)
			if err := item.Reserve(line.Quantity); err != nil {
				return err
			}

			reservation, err := inventory.NewReservation(opCtx.OrganizationID, orderID, line.WarehouseID, line.SKU, line.Quantity)
			if err != nil {
				return err
			}

			if err := repos.InventoryRepo().Save(ctx, item); err != nil {
				return err
			}
			if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
				return err
			}

			s.writeAudit(ctx, repos, opCtx, item, inventory.AuditActionReserve, before, "", map[string]interface{}{
				"orderId":       orderID.String(),
				"reservationId": reservation.ID.String(),
			})

			events = append(events, item.GetDomainEvents()...)
			events = append(events, reservation.GetDomainEvents()...)
			item.ClearDomainEvents()
			reservation.ClearDomainEvents()
			created = append(created, reservation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(raced) > 0 {
		result := &ReserveResult{OrderID: orderID, AlreadyReserved: true}
		for idx := range raced {
			result.Reservations = append(result.Reservations, ToReservationDTO(&raced[idx]))
		}
		return result, nil
	}

	s.publish(ctx, events)

	result := &ReserveResult{OrderID: orderID}
	for _, reservation := range created {
		result.Reservations = append(result.Reservations, ToReservationDTO(reservation))
	}
	return result, nil
}

// Release transitions a reservation to RELEASED and returns its held
// quantity to available stock. Releasing an already-terminal
// reservation is a no-op success, which makes retries safe.
func (s *ReservationService) Release(ctx context.Context, opCtx shared.OperationContext, reservationID uuid.UUID, reason string) (*ReservationDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	reservation, err := s.reservationRepo.FindByID(ctx, opCtx.OrganizationID, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status.IsTerminal() {
		dto := ToReservationDTO(reservation)
		return &dto, nil
	}

	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		// Losing the race to another release is a no-op success too.
		_, err := s.releaseInTx(ctx, repos, opCtx, reservation, func(r *inventory.Reservation) error {
			return r.Release(opCtx.UserID, reason)
		}, inventory.AuditActionRelease, &events)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	dto := ToReservationDTO(reservation)
	return &dto, nil
}

// ForceRelease administratively releases a reservation outside its
// normal order-driven lifecycle. Requires an ADMIN or
// INVENTORY_MANAGER role; all argument checks run before any data
// access. Cross-organization and non-active reservations both resolve
// to NotFound so existence never leaks.
func (s *ReservationService) ForceRelease(ctx context.Context, opCtx shared.OperationContext, reservationID uuid.UUID, reason string, code inventory.ReleaseReasonCode) (*ReservationDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if !opCtx.HasAnyRole(shared.RoleAdmin, shared.RoleInventoryManager) {
		return nil, shared.NewPermissionError("FORCE_RELEASE_FORBIDDEN", "Force release requires an admin or inventory manager role")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("MISSING_REASON", "Force release reason is required")
	}
	if !code.IsValid() {
		return nil, shared.NewValidationError("INVALID_REASON_CODE", fmt.Sprintf("Unknown force release reason code: %s", code))
	}

	reservation, err := s.reservationRepo.FindByID(ctx, opCtx.OrganizationID, reservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.IsActive() {
		return nil, shared.NewNotFoundError("RESERVATION_NOT_FOUND", "Active reservation not found")
	}

	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		released, err := s.releaseInTx(ctx, repos, opCtx, reservation, func(r *inventory.Reservation) error {
			return r.ForceRelease(opCtx.UserID, reason, code)
		}, inventory.AuditActionForceRelease, &events)
		if err != nil {
			return err
		}
		if !released {
			return shared.NewNotFoundError("RESERVATION_NOT_FOUND", "Active reservation not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.notifyForceRelease(ctx, reservation, reason)

	dto := ToReservationDTO(reservation)
	return &dto, nil
}

// BatchForceReleaseBySku force-releases up to the batch cap of ACTIVE
// reservations for one SKU in a single transaction, writing one audit
// entry per reservation. olderThanMinutes of zero matches all ages.
func (s *ReservationService) BatchForceReleaseBySku(ctx context.Context, opCtx shared.OperationContext, sku string, olderThanMinutes int, reason string, code inventory.ReleaseReasonCode) (*BatchReleaseResult, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if !opCtx.HasAnyRole(shared.RoleAdmin, shared.RoleInventoryManager) {
		return nil, shared.NewPermissionError("FORCE_RELEASE_FORBIDDEN", "Batch force release requires an admin or inventory manager role")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("MISSING_REASON", "Force release reason is required")
	}
	if !code.IsValid() {
		return nil, shared.NewValidationError("INVALID_REASON_CODE", fmt.Sprintf("Unknown force release reason code: %s", code))
	}

	var cutoff time.Time
	if olderThanMinutes > 0 {
		cutoff = time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	}

	reservations, err := s.reservationRepo.FindActiveBySKU(ctx, opCtx.OrganizationID, sku, cutoff, s.maxBatchSize)
	if err != nil {
		return nil, err
	}

	result := &BatchReleaseResult{SKU: sku, TotalFound: len(reservations)}
	if len(reservations) == 0 {
		return result, nil
	}

	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for idx := range reservations {
			reservation := &reservations[idx]
			released, err := s.releaseInTx(ctx, repos, opCtx, reservation, func(r *inventory.Reservation) error {
				return r.ForceRelease(opCtx.UserID, reason, code)
			}, inventory.AuditActionBatchForceRelease, &events)
			if err != nil {
				if shared.KindOf(err) == shared.KindInfrastructure {
					return err
				}
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", reservation.ID, err.Error()))
				continue
			}
			if !released {
				result.Skipped++
				continue
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	return result, nil
}

// GetReservation returns a reservation scoped to the caller's organization
func (s *ReservationService) GetReservation(ctx context.Context, opCtx shared.OperationContext, reservationID uuid.UUID) (*ReservationDTO, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	reservation, err := s.reservationRepo.FindByID(ctx, opCtx.OrganizationID, reservationID)
	if err != nil {
		return nil, err
	}

	dto := ToReservationDTO(reservation)
	return &dto, nil
}

// releaseInTx performs the locked release of one reservation: it takes
// the row lock on the inventory item, re-reads the reservation under
// that lock, applies the status transition, returns the held quantity,
// and writes the audit entry, all within the caller's transaction.
// Returns false without mutating anything when the reservation already
// reached a terminal status, so a concurrent release that committed
// first cannot be decremented twice.
func (s *ReservationService) releaseInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	opCtx shared.OperationContext,
	reservation *inventory.Reservation,
	transition func(*inventory.Reservation) error,
	action inventory.AuditAction,
	events *[]shared.DomainEvent,
) (bool, error) {
	item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, reservation.WarehouseID, reservation.SKU)
	if err != nil {
		return false, err
	}

	// The caller loaded the reservation before the transaction began.
	// Only the copy read under the row lock is current.
	current, err := repos.ReservationRepo().FindByID(ctx, opCtx.OrganizationID, reservation.ID)
	if err != nil {
		return false, err
	}
	*reservation = *current
	if reservation.Status.IsTerminal() {
		return false, nil
	}

	before := inventory.SnapshotOf(item)
	if err := transition(reservation); err != nil {
		return false, err
	}
	if err := item.ReleaseReserved(reservation.QuantityReserved); err != nil {
		return false, err
	}

	if err := repos.InventoryRepo().Save(ctx, item); err != nil {
		return false, err
	}
	if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
		return false, err
	}

	s.writeAudit(ctx, repos, opCtx, item, action, before, string(reservation.ReasonCode), map[string]interface{}{
		"orderId":       reservation.OrderID.String(),
		"reservationId": reservation.ID.String(),
	})

	*events = append(*events, item.GetDomainEvents()...)
	*events = append(*events, reservation.GetDomainEvents()...)
	item.ClearDomainEvents()
	reservation.ClearDomainEvents()

	return true, nil
}

// writeAudit appends the audit entry for a committed-to-be mutation.
// Failures are logged and swallowed so an otherwise-successful
// mutation never reports failure, but the gap stays observable.
func (s *ReservationService) writeAudit(
	ctx context.Context,
	repos TransactionalRepositories,
	opCtx shared.OperationContext,
	item *inventory.InventoryItem,
	action inventory.AuditAction,
	before inventory.AuditSnapshot,
	reasonCode string,
	metadata map[string]interface{},
) {
	entry, err := inventory.NewAuditLogEntry(opCtx.OrganizationID, item.WarehouseID, opCtx.UserID, item.SKU, action, before, inventory.SnapshotOf(item))
	if err != nil {
		s.logger.Error("audit entry construction failed, audit trail has a gap",
			zap.String("sku", item.SKU), zap.String("action", string(action)), zap.Error(err))
		return
	}
	entry.WithReason(reasonCode, "").WithMetadata(metadata)

	if err := repos.AuditRepo().Append(ctx, entry); err != nil {
		s.logger.Error("audit write failed, audit trail has a gap",
			zap.String("sku", item.SKU), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *ReservationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}

func (s *ReservationService) notifyForceRelease(ctx context.Context, reservation *inventory.Reservation, reason string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifyReservationForceReleased(ctx, reservation.OrganizationID, reservation.OrderID, reservation.ID, reason)
	if err != nil {
		s.logger.Warn("force release notification failed",
			zap.String("reservation_id", reservation.ID.String()), zap.Error(err))
	}
}
