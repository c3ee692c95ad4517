package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger: JSON with ISO8601 timestamps, or a
// colorized console encoder at debug level. Every entry carries the
// service name.
func NewLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": "modcar-console-bfa"}

	if level == "debug" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

// ============================================================
// Access log
// ============================================================

type callerKey struct{}

// caller is filled in by the session middleware, which runs deeper in the
// chain than the access log and cannot hand its context back.
type caller struct {
	mu     sync.Mutex
	userID string
	role   string
}

// AnnotateCaller records who made the request so the access log can show
// it. A context without an access log is left alone.
func AnnotateCaller(ctx context.Context, userID, role string) {
	c, ok := ctx.Value(callerKey{}).(*caller)
	if !ok {
		return
	}
	c.mu.Lock()
	c.userID, c.role = userID, role
	c.mu.Unlock()
}

// ZapLoggerMiddleware writes one access-log entry per request: Warn for
// 4xx, Error for 5xx, Info otherwise. Entries carry the chi route pattern,
// the trace id when one is active and the caller once authenticated.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			who := &caller{}
			ctx := context.WithValue(r.Context(), callerKey{}, who)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(ctx)),
					zap.String("remote_addr", r.RemoteAddr),
				}
				if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
					fields = append(fields, zap.String("route", rctx.RoutePattern()))
				}
				if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
					fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
				}
				who.mu.Lock()
				if who.userID != "" {
					fields = append(fields, zap.String("user_id", who.userID), zap.String("role", who.role))
				}
				who.mu.Unlock()

				switch {
				case status >= 500:
					logger.Error("http request", fields...)
				case status >= 400:
					logger.Warn("http request", fields...)
				default:
					logger.Info("http request", fields...)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
