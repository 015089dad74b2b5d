package event

import (
	"context"

	"github.com/fulfillment/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LoggingEventHandler writes every published domain event to the log.
// It subscribes as a wildcard handler and serves as the default sink
// when no external consumer is wired.
type LoggingEventHandler struct {
	logger *zap.Logger
}

// NewLoggingEventHandler creates a new logging event handler
func NewLoggingEventHandler(logger *zap.Logger) *LoggingEventHandler {
	return &LoggingEventHandler{logger: logger.Named("events")}
}

// EventTypes returns nil so the handler receives all events
func (h *LoggingEventHandler) EventTypes() []string {
	return nil
}

// Handle logs the event at Info level
func (h *LoggingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("organization_id", event.OrganizationID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*LoggingEventHandler)(nil)
