package notification

import (
	"context"

	appinv "github.com/fulfillment/backend/internal/application/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogNotifier is a Notifier that writes notifications to the log. It is
// the default sink when no external channel is configured; delivery is
// best-effort and never fails.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyReservationForceReleased logs the force release for the order owner
func (n *LogNotifier) NotifyReservationForceReleased(ctx context.Context, organizationID, orderID, reservationID uuid.UUID, reason string) error {
	n.logger.Info("reservation force released",
		zap.String("organization_id", organizationID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("reservation_id", reservationID.String()),
		zap.String("reason", reason),
	)
	return nil
}

// Ensure LogNotifier implements Notifier
var _ appinv.Notifier = (*LogNotifier)(nil)
