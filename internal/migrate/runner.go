package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verity/internal/migrate/metrics"
	"verity/pkg/platform/sentinel"
)

// Auditor receives a notification for every applied migration and for the
// first-time creation of the journal table. Implementations must persist the
// event before returning; a failed audit fails the run.
type Auditor interface {
	MigrationApplied(ctx context.Context, m Migration, runID uuid.UUID) error
	JournalInitialized(ctx context.Context, runID uuid.UUID) error
}

// Lock is an optional second guard against concurrent runners, used in
// addition to the store's own advisory lock when configured (e.g. Redis).
type Lock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// Runner applies pending migrations from the registry against a Store.
type Runner struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor Auditor
	lock    Lock
	tracer  trace.Tracer
}

// Option configures the Runner.
type Option func(*Runner)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithAuditor sets the audit sink for applied migrations.
func WithAuditor(a Auditor) Option {
	return func(r *Runner) {
		r.auditor = a
	}
}

// WithLock adds a distributed lock taken before the store's advisory lock.
func WithLock(l Lock) Option {
	return func(r *Runner) {
		r.lock = l
	}
}

// NewRunner constructs a migration runner.
func NewRunner(store Store, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("verity/migrate"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Pending returns the migrations not yet journaled, in version order. A
// journaled migration whose checksum no longer matches the registry yields
// sentinel.ErrChecksumMismatch: history was edited and the run must not
// proceed.
func Pending(migrations []Migration, applied map[int]Applied) ([]Migration, error) {
	var pending []Migration
	for _, m := range migrations {
		a, ok := applied[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != m.Checksum() {
			return nil, fmt.Errorf("migration %d %q: %w", m.Version, m.Description, sentinel.ErrChecksumMismatch)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })
	return pending, nil
}

// Run applies every pending migration. Safe to invoke repeatedly: a second
// run observes a fully journaled registry and applies nothing.
func (r *Runner) Run(ctx context.Context, migrations []Migration) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "migrate.Run")
	defer span.End()

	start := time.Now()
	runID := uuid.New()
	span.SetAttributes(attribute.String("migration.run_id", runID.String()))

	result, err := r.run(ctx, migrations, runID)
	duration := time.Since(start)
	r.metrics.ObserveRun(len(resultApplied(result)), duration, err != nil)
	if err != nil {
		r.logger.ErrorContext(ctx, "migration run failed",
			"run_id", runID,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return nil, err
	}

	result.Duration = duration
	r.logger.InfoContext(ctx, "migration run complete",
		"run_id", runID,
		"applied", result.Applied,
		"skipped", result.Skipped,
		"duration_ms", duration.Milliseconds(),
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, migrations []Migration, runID uuid.UUID) (*Result, error) {
	if err := Validate(migrations); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	if r.lock != nil {
		if err := r.lock.Acquire(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := r.lock.Release(ctx); err != nil {
				r.logger.WarnContext(ctx, "release distributed lock failed", "error", err)
			}
		}()
	}

	if err := r.store.AcquireLock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := r.store.ReleaseLock(ctx); err != nil {
			r.logger.WarnContext(ctx, "release advisory lock failed", "error", err)
		}
	}()

	created, err := r.store.EnsureJournal(ctx)
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.InfoContext(ctx, "migration journal created", "run_id", runID)
		if r.auditor != nil {
			if err := r.auditor.JournalInitialized(ctx, runID); err != nil {
				return nil, fmt.Errorf("audit journal init: %w", err)
			}
		}
	}

	applied, err := r.store.Applied(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := Pending(migrations, applied)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			result.Skipped = append(result.Skipped, m.Version)
		}
	}

	for _, m := range pending {
		if err := r.apply(ctx, m, runID); err != nil {
			return nil, err
		}
		result.Applied = append(result.Applied, m.Version)
	}

	return result, nil
}

func (r *Runner) apply(ctx context.Context, m Migration, runID uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "migrate.Apply", trace.WithAttributes(
		attribute.Int("migration.version", m.Version),
		attribute.String("migration.description", m.Description),
	))
	defer span.End()

	start := time.Now()
	if err := r.store.Apply(ctx, m, runID); err != nil {
		return err
	}

	if r.auditor != nil {
		if err := r.auditor.MigrationApplied(ctx, m, runID); err != nil {
			return fmt.Errorf("audit migration %d: %w", m.Version, err)
		}
	}

	r.logger.InfoContext(ctx, "migration applied",
		"run_id", runID,
		"version", m.Version,
		"description", m.Description,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Status reports every registered migration with its journal state.
func (r *Runner) Status(ctx context.Context, migrations []Migration) ([]StatusEntry, error) {
	if _, err := r.store.EnsureJournal(ctx); err != nil {
		return nil, err
	}
	applied, err := r.store.Applied(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(migrations))
	for _, m := range migrations {
		e := StatusEntry{Version: m.Version, Description: m.Description}
		if a, ok := applied[m.Version]; ok {
			e.Applied = true
			e.AppliedAt = a.AppliedAt
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func resultApplied(r *Result) []int {
	if r == nil {
		return nil
	}
	return r.Applied
}
