package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// TraceMiddleware adds a trace ID and a request-scoped logger carrying it to
// the request context, and logs each request on completion. It should run
// before every handler that logs.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			log := base.With(slog.String("trace_id", shared.GetTraceID(ctx)))
			ctx = logger.WithLogger(ctx, log)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Debug("request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
