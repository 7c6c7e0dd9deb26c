package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
)

// Correlation identifies who caused a log line and what it was about.
// Request handling fills it in step by step: the request ID first, then the
// authenticated actor, then the application the route addresses.
type Correlation struct {
	RequestID     string
	UserID        string
	DepartmentID  string
	RoleTier      string
	ApplicationID string
}

// Fields returns the non-empty correlation values as zap fields
func (c Correlation) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if c.RequestID != "" {
		fields = append(fields, zap.String("request_id", c.RequestID))
	}
	if c.UserID != "" {
		fields = append(fields, zap.String("user_id", c.UserID))
	}
	if c.DepartmentID != "" {
		fields = append(fields, zap.String("department_id", c.DepartmentID))
	}
	if c.RoleTier != "" {
		fields = append(fields, zap.String("role_tier", c.RoleTier))
	}
	if c.ApplicationID != "" {
		fields = append(fields, zap.String("application_id", c.ApplicationID))
	}
	return fields
}

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

// CorrelationFrom returns the correlation values recorded in ctx
func CorrelationFrom(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey).(Correlation)
	return c
}

// WithRequestID records the request ID and returns a context whose logger
// carries it
func WithRequestID(ctx context.Context, requestID string) context.Context {
	c := CorrelationFrom(ctx)
	c.RequestID = requestID
	ctx = context.WithValue(ctx, correlationKey, c)
	return WithContext(ctx, FromContext(ctx).With(zap.String("request_id", requestID)))
}

// WithActor records the acting user, the department they act in and their
// role tier. Empty values are skipped; a department admin acting across
// departments has no department.
func WithActor(ctx context.Context, userID, departmentID, roleTier string) context.Context {
	c := CorrelationFrom(ctx)
	added := Correlation{UserID: userID, DepartmentID: departmentID, RoleTier: roleTier}
	if userID != "" {
		c.UserID = userID
	}
	if departmentID != "" {
		c.DepartmentID = departmentID
	}
	if roleTier != "" {
		c.RoleTier = roleTier
	}
	ctx = context.WithValue(ctx, correlationKey, c)
	return WithContext(ctx, FromContext(ctx).With(added.Fields()...))
}

// WithApplication records the application a request operates on
func WithApplication(ctx context.Context, applicationID string) context.Context {
	c := CorrelationFrom(ctx)
	c.ApplicationID = applicationID
	ctx = context.WithValue(ctx, correlationKey, c)
	return WithContext(ctx, FromContext(ctx).With(zap.String("application_id", applicationID)))
}

// GetRequestID returns the request ID recorded in ctx
func GetRequestID(ctx context.Context) string {
	return CorrelationFrom(ctx).RequestID
}

// TraceFields returns trace_id and span_id of the active span, if any
func TraceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

// L returns the context logger with the active span attached.
//
//	logger.L(ctx).Info("Application approved", zap.String("application_id", id))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(TraceFields(ctx)...)
}
