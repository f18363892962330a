/*
Package report turns the stored timesheet into payroll reports.

PURPOSE:
  Service.Generate is the read side of the system: one bulk read of the
  timesheet, then payroll.Aggregate. Results are cached until the next
  accepted ingestion calls Invalidate.

CACHING:
  The cache is advisory. A cache error is logged and the report is
  computed from storage as if the cache were absent.

SEE ALSO:
  - payroll/report.go: Aggregation
  - cache.go: Redis and no-op caches
  - export.go: CSV and XLSX rendering
*/
package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/payroll-engine/payroll"
)

// Service generates payroll reports from a store.
type Service struct {
	store  payroll.Store
	calc   *payroll.PayCalculator
	cache  Cache
	logger *zap.Logger
}

// NewService wires a report service. A nil cache disables caching and a nil
// logger discards output.
func NewService(store payroll.Store, calc *payroll.PayCalculator, cache Cache, logger *zap.Logger) *Service {
	if calc == nil {
		calc = payroll.NewPayCalculator()
	}
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, calc: calc, cache: cache, logger: logger}
}

// Generate returns the report for everything ingested so far.
// An empty timesheet yields payroll.ErrEmptyReportSource.
func (s *Service) Generate(ctx context.Context) ([]payroll.PayrollReport, error) {
	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("report cache read failed", zap.Error(err))
	} else if ok {
		s.logger.Debug("report served from cache", zap.Int("reports", len(cached)))
		return cached, nil
	}

	return s.Refresh(ctx)
}

// Refresh recomputes the report from storage, ignoring any cached copy, and
// stores the result unless an invalidation happened meanwhile.
func (s *Service) Refresh(ctx context.Context) ([]payroll.PayrollReport, error) {
	// Read the version before the rows so a concurrent Invalidate wins.
	version, versionErr := s.cache.Version(ctx)
	if versionErr != nil {
		s.logger.Warn("report cache version read failed", zap.Error(versionErr))
	}

	rows, err := s.store.LoadTimesheet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load timesheet: %w", err)
	}

	reports, err := payroll.Aggregate(rows, s.calc)
	if err != nil {
		return nil, err
	}

	if versionErr == nil {
		if err := s.cache.Put(ctx, version, reports); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}

	s.logger.Info("report generated",
		zap.Int("rows", len(rows)),
		zap.Int("reports", len(reports)),
	)
	return reports, nil
}

// Invalidate drops any cached report.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}
