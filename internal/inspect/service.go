package inspect

import (
	"context"
	"log/slog"

	"verity/internal/inspect/metrics"
)

// Auditor records that a readiness report was produced. Fail-open: report
// generation is read-only, so a failed audit write degrades to a warning.
type Auditor interface {
	SchemaReport(ctx context.Context, notes string) error
}

// Reporter produces readiness snapshots. *Inspector satisfies it.
type Reporter interface {
	Report(ctx context.Context) (*Report, error)
}

// Service wraps a Reporter with audit and metrics emission for the transport
// layer.
type Service struct {
	inspector Reporter
	auditor   Auditor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService constructs a Service. auditor may be nil.
func NewService(inspector Reporter, auditor Auditor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{inspector: inspector, auditor: auditor, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Report produces the readiness snapshot and records the access.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	report, err := s.inspector.Report(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReport()

	if s.auditor != nil {
		if err := s.auditor.SchemaReport(ctx, ""); err != nil {
			s.logger.WarnContext(ctx, "audit schema report failed", "error", err)
		}
	}
	return report, nil
}
