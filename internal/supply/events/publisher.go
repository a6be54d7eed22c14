package events

import (
	"context"

	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/messaging"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// EventPublisher is implemented by *messaging.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// SupplyEventPublisher publishes supply events. A nil publisher drops events,
// which keeps the service usable without a broker.
type SupplyEventPublisher struct {
	publisher EventPublisher
	logger    *logger.Logger
}

// NewSupplyEventPublisher declares the supply exchange and creates a publisher on it.
func NewSupplyEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*SupplyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeSupplyEvents, config.ServiceName, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher.
func NewWithPublisher(publisher EventPublisher, log *logger.Logger) *SupplyEventPublisher {
	return &SupplyEventPublisher{publisher: publisher, logger: log}
}

// PublishLotAlert publishes a lot alert event. Failures are logged; the
// alert stays recorded either way.
func (p *SupplyEventPublisher) PublishLotAlert(ctx context.Context, alert *repository.LotAlert, a expiry.Alert) {
	if p == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	lotCode := ""
	if a.Lot.LotCode != nil {
		lotCode = *a.Lot.LotCode
	}

	data := messaging.LotAlertEvent{
		AlertID:             alert.ID,
		TenantID:            tenantID,
		LotID:               alert.LotID,
		ItemCode:            a.Lot.ItemCode,
		LotCode:             lotCode,
		State:               alert.State,
		ExpirationDate:      alert.ExpirationDate,
		ReturnDeadline:      alert.ReturnDeadline,
		DaysUntilExpiration: a.DaysUntilExpiration,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotAlert, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Str("lot_id", alert.LotID).Msg("failed to publish lot alert event")
	}
}
