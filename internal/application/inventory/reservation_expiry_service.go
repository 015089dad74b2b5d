package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultExpiryMinutes is how long a reservation may stay ACTIVE
// before the sweep considers it abandoned.
const DefaultExpiryMinutes = 30

// ExpirySweepOptions tunes one expiry sweep invocation
type ExpirySweepOptions struct {
	// ExpiryMinutes is the minimum age of reservations to release
	ExpiryMinutes int `json:"expiryMinutes"`
	// MaxToRelease caps the reservations touched in one sweep
	MaxToRelease int `json:"maxToRelease"`
	// DryRun reports what would be released without mutating anything
	DryRun bool `json:"dryRun"`
	// SkipActiveOrders keeps reservations whose linked order is still
	// being processed
	SkipActiveOrders bool `json:"skipActiveOrders"`
}

// ExpirySweepResult reports a sweep for reconciliation
type ExpirySweepResult struct {
	TotalFound int       `json:"totalFound"`
	Released   int       `json:"released"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors,omitempty"`
	DryRun     bool      `json:"dryRun"`
	SweptAt    time.Time `json:"sweptAt"`
}

// ReservationExpiryService sweeps abandoned ACTIVE reservations back
// into available stock. It runs with a SYSTEM identity from a
// scheduler; the order-status check is the only external dependency.
type ReservationExpiryService struct {
	scope           TransactionScope
	reservationRepo inventory.ReservationRepository
	orderStatus     OrderStatusChecker
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
	maxBatchSize    int
}

// NewReservationExpiryService creates a new ReservationExpiryService
func NewReservationExpiryService(
	scope TransactionScope,
	reservationRepo inventory.ReservationRepository,
	logger *zap.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		scope:           scope,
		reservationRepo: reservationRepo,
		logger:          logger,
		maxBatchSize:    DefaultMaxBatchSize,
	}
}

// SetOrderStatusChecker wires the external order status lookup
func (s *ReservationExpiryService) SetOrderStatusChecker(checker OrderStatusChecker) {
	s.orderStatus = checker
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *ReservationExpiryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ReleaseExpired finds ACTIVE reservations older than the expiry
// window and force-releases them with the EXPIRED reason code. A dry
// run performs zero mutations. Order-status checks happen before the
// mutating transaction so no lock is held across a network call.
func (s *ReservationExpiryService) ReleaseExpired(ctx context.Context, opCtx shared.OperationContext, opts ExpirySweepOptions) (*ExpirySweepResult, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	if opts.ExpiryMinutes <= 0 {
		opts.ExpiryMinutes = DefaultExpiryMinutes
	}
	if opts.MaxToRelease <= 0 || opts.MaxToRelease > s.maxBatchSize {
		opts.MaxToRelease = s.maxBatchSize
	}

	result := &ExpirySweepResult{DryRun: opts.DryRun, SweptAt: time.Now()}
	cutoff := time.Now().Add(-time.Duration(opts.ExpiryMinutes) * time.Minute)

	expired, err := s.reservationRepo.FindExpired(ctx, opCtx.OrganizationID, cutoff, opts.MaxToRelease)
	if err != nil {
		return nil, err
	}
	result.TotalFound = len(expired)
	if len(expired) == 0 {
		return result, nil
	}

	toRelease := make([]*inventory.Reservation, 0, len(expired))
	for idx := range expired {
		reservation := &expired[idx]
		if opts.SkipActiveOrders && s.orderInProgress(ctx, opCtx.OrganizationID, reservation.OrderID) {
			result.Skipped++
			continue
		}
		toRelease = append(toRelease, reservation)
	}

	if opts.DryRun {
		result.Released = len(toRelease)
		return result, nil
	}

	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, reservation := range toRelease {
			released, err := s.releaseOne(ctx, repos, opCtx, reservation, &events)
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
			result.Released++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish expiry sweep events", zap.Error(err))
		}
	}

	s.logger.Info("expired reservation sweep finished",
		zap.Int("total_found", result.TotalFound),
		zap.Int("released", result.Released),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

func (s *ReservationExpiryService) orderInProgress(ctx context.Context, organizationID, orderID uuid.UUID) bool {
	if s.orderStatus == nil {
		return false
	}
	status, err := s.orderStatus.OrderStatus(ctx, organizationID, orderID)
	if err != nil {
		// An unreachable order system keeps the reservation; the next
		// sweep retries it.
		s.logger.Warn("order status lookup failed, keeping reservation for next sweep",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return true
	}
	return status == OrderStatusProcessing
}

// releaseOne releases a single expired reservation under the item row
// lock. The candidate list was read before the transaction, so the
// reservation is re-read under the lock and skipped when a concurrent
// release already made it terminal.
func (s *ReservationExpiryService) releaseOne(
	ctx context.Context,
	repos TransactionalRepositories,
	opCtx shared.OperationContext,
	reservation *inventory.Reservation,
	events *[]shared.DomainEvent,
) (bool, error) {
	item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, reservation.WarehouseID, reservation.SKU)
	if err != nil {
		return false, err
	}

	current, err := repos.ReservationRepo().FindByID(ctx, opCtx.OrganizationID, reservation.ID)
	if err != nil {
		return false, err
	}
	*reservation = *current
	if reservation.Status.IsTerminal() {
		return false, nil
	}

	before := inventory.SnapshotOf(item)
	if err := reservation.ForceRelease(opCtx.UserID, "reservation expired", inventory.ReasonCodeExpired); err != nil {
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

	entry, err := inventory.NewAuditLogEntry(opCtx.OrganizationID, item.WarehouseID, opCtx.UserID, item.SKU, inventory.AuditActionExpiredSweep, before, inventory.SnapshotOf(item))
	if err == nil {
		entry.WithReason(string(inventory.ReasonCodeExpired), "").WithMetadata(map[string]interface{}{
			"orderId":       reservation.OrderID.String(),
			"reservationId": reservation.ID.String(),
		})
		err = repos.AuditRepo().Append(ctx, entry)
	}
	if err != nil {
		s.logger.Error("audit write failed, audit trail has a gap",
			zap.String("sku", item.SKU), zap.Error(err))
	}

	*events = append(*events, item.GetDomainEvents()...)
	*events = append(*events, reservation.GetDomainEvents()...)
	item.ClearDomainEvents()
	reservation.ClearDomainEvents()

	return true, nil
}
