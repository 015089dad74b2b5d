package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Notifier delivers fire-and-forget notifications to interested
// parties. Delivery is best-effort: a failed notification never rolls
// back the committed change that triggered it.
type Notifier interface {
	// NotifyReservationForceReleased informs the order owner that a
	// reservation on their order was administratively released
	NotifyReservationForceReleased(ctx context.Context, organizationID, orderID, reservationID uuid.UUID, reason string) error
}

// OrderStatusChecker resolves the current status of an order in the
// external order system. Used by the expiry sweep to avoid releasing
// holds for orders still being processed.
type OrderStatusChecker interface {
	// OrderStatus returns the order's status string, e.g. "PROCESSING"
	OrderStatus(ctx context.Context, organizationID, orderID uuid.UUID) (string, error)
}

// OrderStatusProcessing is the status that keeps an expired
// reservation alive when skipActiveOrders is set.
const OrderStatusProcessing = "PROCESSING"
