package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"verity/internal/inspect"
	"verity/internal/migrate"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/httputil"
	"verity/pkg/platform/middleware/auth"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// MigrationService runs and reports on registered migrations.
type MigrationService interface {
	Run(ctx context.Context) (*migrate.Result, error)
	Status(ctx context.Context) ([]migrate.StatusEntry, error)
}

// SchemaService produces schema readiness reports.
type SchemaService interface {
	Report(ctx context.Context) (*inspect.Report, error)
}

// Pinger reports database liveness. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports liveness of an optional dependency, e.g. the Redis
// client backing the distributed migration lock.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	migrations MigrationService
	schema     SchemaService
	db         Pinger
	redis      HealthChecker
	logger     *slog.Logger
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithRedisHealth includes the Redis connection in health checks.
func WithRedisHealth(hc HealthChecker) HandlerOption {
	return func(h *Handler) {
		h.redis = hc
	}
}

// NewHandler constructs the handler with its dependencies.
func NewHandler(migrations MigrationService, schema SchemaService, db Pinger, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		migrations: migrations,
		schema:     schema,
		db:         db,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// HandleHealthz reports process and dependency liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "database unreachable"))
		return
	}
	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed", "error", err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "redis unreachable"))
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSchemaReport handles GET /schema/report.
func (h *Handler) HandleSchemaReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	report, err := h.schema.Report(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "schema report failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "schema report generated",
		"request_id", requestID,
		"did_ready", report.DIDReady(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, reportResponse{
		Report:   report,
		DIDReady: report.DIDReady(),
	})
}

// HandleMigrationStatus handles GET /migrations.
func (h *Handler) HandleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.migrations.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "migration status failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Migrations: entries})
}

// HandleMigrationApply handles POST /migrations/apply.
func (h *Handler) HandleMigrationApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.migrations.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "migration apply failed",
			"request_id", requestID,
			"subject", auth.Subject(ctx),
			"error", err,
		)
		httputil.WriteError(w, translateRunError(err))
		return
	}

	h.logger.InfoContext(ctx, "migrations applied",
		"request_id", requestID,
		"subject", auth.Subject(ctx),
		"run_id", result.RunID,
		"applied", result.Applied,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, applyResponse{
		RunID:   result.RunID.String(),
		Applied: result.Applied,
		Skipped: result.Skipped,
	})
}

// translateRunError maps infrastructure facts onto domain error codes so the
// transport never leaks raw store errors.
func translateRunError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "another migration run is in progress")
	case errors.Is(err, sentinel.ErrChecksumMismatch):
		return dErrors.Wrap(err, dErrors.CodeConflict, "journaled migration differs from registry")
	default:
		return err
	}
}
