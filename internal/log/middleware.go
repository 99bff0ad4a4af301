package log

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware puts logger in the request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware enriches the context logger with the request id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger emits the domain events of the dashboard with a fixed
// field layout, so they can be filtered by message.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogQueryCompleted records a dashboard query that produced a view.
func (sl *StructuredLogger) LogQueryCompleted(ctx context.Context, username, cuit string, periods, entities int, mode string) {
	fields := NewFields().
		WithUser(username, "").
		WithQuery(cuit, periods, entities).
		WithOperation(OpQuery).
		WithComponent(ComponentDashboard).
		ToSlice()
	fields = append(fields, FieldChartMode, mode)

	sl.logger.InfoContext(ctx, "Registry query completed", fields...)
}

// LogPeriodsSkipped reports period keys that could not be placed on the
// calendar and were left out of the pivot and the timeline.
func (sl *StructuredLogger) LogPeriodsSkipped(ctx context.Context, cuit string, keys []string) {
	if len(keys) == 0 {
		return
	}
	sl.logger.WarnContext(ctx, "Malformed periods skipped",
		FieldComponent, ComponentAnalytics,
		FieldCUIT, cuit,
		FieldSkipped, strings.Join(keys, ","),
	)
}

func (sl *StructuredLogger) LogLogin(ctx context.Context, username string, success bool, clientIP string) {
	fields := NewFields().
		WithUser(username, "").
		WithClientIP(clientIP).
		WithOperation(OpLogin).
		WithComponent(ComponentAuth).
		ToSlice()
	fields = append(fields, FieldSuccess, success)

	if success {
		sl.logger.InfoContext(ctx, "Login succeeded", fields...)
		return
	}
	sl.logger.WarnContext(ctx, "Login failed", fields...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
