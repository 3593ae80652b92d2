package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verity/pkg/platform/middleware/auth"
	"verity/pkg/requestcontext"
)

// NewRouter wires all endpoints. Read-only routes are open to the internal
// network; the apply route requires an admin bearer token.
func NewRouter(h *Handler, validator auth.Validator) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", h.HandleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/schema/report", h.HandleSchemaReport)
	r.Get("/migrations", h.HandleMigrationStatus)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(validator, h.logger))
		r.Post("/migrations/apply", h.HandleMigrationApply)
	})

	return r
}

// requestIDMiddleware honors an inbound X-Request-ID, minting one otherwise,
// and echoes it back for correlation. It also pins the request time so every
// audit event from one request carries the same timestamp.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
