package webhook

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cisnemotors/leadbot/core/logger"
)

// requestLogger emits one structured line per request with status and timing.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Info(r.Context(), "http", "request",
			slog.String("status", "ok"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", ww.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// recoverer converts handler panics into a 500 instead of killing the
// connection. Per-message panics are already contained in dispatch; this
// guards everything else.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "http", "request.panic",
					slog.String("status", "fail"),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("err", rec),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
