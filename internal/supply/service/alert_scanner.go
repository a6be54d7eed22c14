package service

import (
	"context"
	"fmt"

	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/metrics"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// AlertStore records which lot states were already announced.
type AlertStore interface {
	Exists(ctx context.Context, lotID, state string) (bool, error)
	Create(ctx context.Context, alert *repository.LotAlert) (created bool, err error)
}

// LotAlertPublisher announces newly recorded lot alerts.
type LotAlertPublisher interface {
	PublishLotAlert(ctx context.Context, alert *repository.LotAlert, a expiry.Alert)
}

// AlertScanner announces lots that reached their return deadline or expired.
// Each lot is announced at most once per state.
type AlertScanner struct {
	lots      *LotService
	alerts    AlertStore
	publisher LotAlertPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewAlertScanner creates a new alert scanner
func NewAlertScanner(lots *LotService, alerts AlertStore, publisher LotAlertPublisher, m *metrics.Metrics, log *logger.Logger) *AlertScanner {
	return &AlertScanner{
		lots:      lots,
		alerts:    alerts,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

// Scan classifies the lots of the tenant in ctx and announces every new
// critical or expired state. It returns how many alerts were announced.
// Failures on single lots are logged and skipped.
func (s *AlertScanner) Scan(ctx context.Context) (int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	feed, err := s.lots.Alerts(ctx, s.lots.Now())
	if err != nil {
		return 0, fmt.Errorf("scan lots: %w", err)
	}

	log := s.logger.WithTenant(tenantID)
	announced := 0
	for _, a := range feed.Alerts {
		if a.State == expiry.StateUpcoming {
			continue
		}
		state := string(a.State)

		exists, err := s.alerts.Exists(ctx, a.Lot.ID, state)
		if err != nil {
			log.WithError(err).Error().Str("lot_id", a.Lot.ID).Msg("failed to check existing lot alert")
			continue
		}
		if exists {
			continue
		}

		alert := &repository.LotAlert{
			LotID:          a.Lot.ID,
			State:          state,
			ExpirationDate: a.ExpirationDate,
			ReturnDeadline: a.ReturnDeadline,
		}
		created, err := s.alerts.Create(ctx, alert)
		if err != nil {
			log.WithError(err).Error().Str("lot_id", a.Lot.ID).Msg("failed to create lot alert")
			continue
		}
		if !created {
			continue
		}

		s.publisher.PublishLotAlert(ctx, alert, a)
		s.metrics.LotAlert(state)
		announced++

		log.Info().
			Str("lot_id", a.Lot.ID).
			Str("state", state).
			Time("return_deadline", a.ReturnDeadline).
			Msg("lot alert announced")
	}

	return announced, nil
}
