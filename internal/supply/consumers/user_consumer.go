package consumers

import (
	"context"

	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/messaging"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// ScopeWriter stores the line restriction of users.
type ScopeWriter interface {
	Set(ctx context.Context, userID string, categories []int) error
	Delete(ctx context.Context, userID string) error
}

// UserEventConsumer keeps the user scope cache in sync with user events
type UserEventConsumer struct {
	consumer *messaging.Consumer
	scopes   ScopeWriter
	logger   *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, scopes ScopeWriter, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, config.ServiceName+".user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := &UserEventConsumer{
		consumer: consumer,
		scopes:   scopes,
		logger:   log,
	}
	c.register(consumer)

	return c, nil
}

func (c *UserEventConsumer) register(consumer *messaging.Consumer) {
	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// tenantContext scopes ctx to the event's tenant. Events without a tenant
// cannot be stored under RLS and are dropped.
func (c *UserEventConsumer) tenantContext(ctx context.Context, eventType, userID, tenantID string) (context.Context, bool) {
	if tenantID == "" {
		c.logger.Warn().Str("event_type", eventType).Str("user_id", userID).Msg("user event without tenant ignored")
		return ctx, false
	}
	return tenant.WithTenantID(ctx, tenantID), true
}

func (c *UserEventConsumer) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	ctx, ok := c.tenantContext(ctx, event.Type, data.UserID, data.TenantID)
	if !ok {
		return nil
	}

	c.logger.WithUserID(data.UserID).Info().
		Ints("line_categories", data.LineCategories).
		Msg("received user created event")

	return c.scopes.Set(ctx, data.UserID, data.LineCategories)
}

func (c *UserEventConsumer) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	// Updates that leave the restriction alone carry no categories.
	if data.LineCategories == nil {
		return nil
	}

	ctx, ok := c.tenantContext(ctx, event.Type, data.UserID, data.TenantID)
	if !ok {
		return nil
	}

	c.logger.WithUserID(data.UserID).Info().
		Ints("line_categories", *data.LineCategories).
		Msg("received user updated event")

	return c.scopes.Set(ctx, data.UserID, *data.LineCategories)
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	ctx, ok := c.tenantContext(ctx, event.Type, data.UserID, data.TenantID)
	if !ok {
		return nil
	}

	c.logger.WithUserID(data.UserID).Info().
		Msg("received user deleted event")

	return c.scopes.Delete(ctx, data.UserID)
}
