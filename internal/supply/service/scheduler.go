package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/metrics"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// TenantLister lists the tenants a background job has to visit.
type TenantLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type tenantScanner interface {
	Scan(ctx context.Context) (int, error)
}

// AlertScheduler runs the alert scanner periodically for every active tenant.
type AlertScheduler struct {
	scanner  tenantScanner
	tenants  TenantLister
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAlertScheduler creates a new alert scheduler
func NewAlertScheduler(scanner *AlertScanner, tenants TenantLister, interval time.Duration, m *metrics.Metrics, log *logger.Logger) *AlertScheduler {
	return &AlertScheduler{
		scanner:  scanner,
		tenants:  tenants,
		interval: interval,
		metrics:  m,
		logger:   log,
	}
}

// Start runs one scan cycle immediately and then one per interval, in a
// background goroutine.
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		s.runScanCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.runScanCycle(ctx)
			}
		}
	}()
}

// Stop cancels the scheduler and waits for a running cycle to finish.
func (s *AlertScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *AlertScheduler) runScanCycle(ctx context.Context) {
	start := time.Now()

	tenantIDs, err := s.tenants.ListActiveIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query active tenants")
		return
	}

	announced := 0
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		n, err := s.scanner.Scan(tenant.WithTenantID(ctx, tenantID))
		if err != nil {
			s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("alert scan failed for tenant")
			continue
		}
		announced += n
	}

	took := time.Since(start)
	s.metrics.ObserveScan(len(tenantIDs), took)
	s.logger.Info().
		Dur("duration", took).
		Int("tenant_count", len(tenantIDs)).
		Int("announced", announced).
		Msg("alert scan cycle completed")
}
