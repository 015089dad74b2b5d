package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

// Context keys for the identity fields the logger injects into entries.
const (
	LoggerKey         contextKey = "logger"
	RequestIDKey      contextKey = "request_id"
	OrganizationIDKey contextKey = "organization_id"
	UserIDKey         contextKey = "user_id"
)

// WithContext attaches a logger to the context.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the attached logger, or a no-op logger when the
// context carries none.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context and returns a
// logger carrying it as a field.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithOrganizationID stores the organization ID in the context and
// returns a logger carrying it as a field.
func WithOrganizationID(ctx context.Context, logger *zap.Logger, organizationID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OrganizationIDKey, organizationID)
	enriched := logger.With(zap.String("organization_id", organizationID))
	return WithContext(ctx, enriched), enriched
}

// WithUserID stores the user ID in the context and returns a logger
// carrying it as a field.
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	enriched := logger.With(zap.String("user_id", userID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request ID stored in the context, if any.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetOrganizationID returns the organization ID stored in the context,
// if any.
func GetOrganizationID(ctx context.Context) string {
	if organizationID, ok := ctx.Value(OrganizationIDKey).(string); ok {
		return organizationID
	}
	return ""
}

// GetUserID returns the user ID stored in the context, if any.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// ContextLogger logs with the identity fields from its context
// injected into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L builds a ContextLogger from the context. Entries automatically
// carry request_id, organization_id and user_id when the context holds
// them.
//
//	logger.L(ctx).Info("reservation released", zap.String("sku", sku))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		ctx:    ctx,
		logger: FromContext(ctx),
	}
}

// WithLogger pairs a pre-configured logger with the context instead of
// extracting one from it.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{
		ctx:    ctx,
		logger: logger,
	}
}

func (cl *ContextLogger) enrichedLogger() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}

	if requestID := GetRequestID(cl.ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if organizationID := GetOrganizationID(cl.ctx); organizationID != "" {
		l = l.With(zap.String("organization_id", organizationID))
	}
	if userID := GetUserID(cl.ctx); userID != "" {
		l = l.With(zap.String("user_id", userID))
	}

	return l
}

// With returns a child ContextLogger carrying extra fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{
		ctx:    cl.ctx,
		logger: cl.logger.With(fields...),
	}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Error(msg, fields...)
}

// Fatal logs and then exits the process.
func (cl *ContextLogger) Fatal(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Fatal(msg, fields...)
}

// Zap returns the enriched zap.Logger for callers that need it raw.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrichedLogger()
}

// Sugar returns the enriched logger in sugared form.
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.enrichedLogger().Sugar()
}
