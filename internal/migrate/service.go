package migrate

import (
	"context"
)

// Service binds the runner to the canonical registry so transport code never
// handles raw migration lists.
type Service struct {
	runner     *Runner
	migrations []Migration
}

// NewService constructs a Service over the given runner and the registry.
func NewService(runner *Runner) *Service {
	return &Service{runner: runner, migrations: Registry()}
}

// Run applies all pending registered migrations.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	return s.runner.Run(ctx, s.migrations)
}

// Status reports journal state for every registered migration.
func (s *Service) Status(ctx context.Context) ([]StatusEntry, error) {
	return s.runner.Status(ctx, s.migrations)
}
