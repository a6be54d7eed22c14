package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/medflow/medflow-supply/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []recordedPublish
	err       error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, recordedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

type fakeAck struct {
	acked, nacked, rejected, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}
func (f *fakeAck) Reject(requeue bool) error {
	f.rejected, f.requeued = true, requeue
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, ExchangeSupplyEvents, "supply-service", logger.Nop())

	ctx := WithCorrelationID(context.Background(), "corr-1")
	err := p.Publish(ctx, EventLotAlert, LotAlertEvent{LotID: "lot-1", State: "critical"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, ExchangeSupplyEvents, got.exchange)
	assert.Equal(t, EventLotAlert, got.key)
	assert.Equal(t, "corr-1", got.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var event Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &event))
	assert.Equal(t, got.msg.MessageId, event.ID)
	assert.Equal(t, "supply-service", event.Source)

	var data LotAlertEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "lot-1", data.LotID)
}

func TestPublisher_PublishError(t *testing.T) {
	p := newPublisher(&fakeChannel{err: errors.New("closed")}, ExchangeSupplyEvents, "supply-service", logger.Nop())

	err := p.Publish(context.Background(), EventLotAlert, LotAlertEvent{})
	assert.ErrorContains(t, err, "failed to publish event")
}

func eventBody(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	event, err := NewEvent(eventType, "user-service", "corr-9", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestConsumer_Dispatch(t *testing.T) {
	newConsumer := func(handler MessageHandler) *Consumer {
		c := &Consumer{queueName: "q", handlers: map[string]MessageHandler{}, logger: logger.Nop()}
		c.RegisterHandler(EventUserDeleted, handler)
		return c
	}

	t.Run("handled", func(t *testing.T) {
		var gotCorrelation string
		var gotUser string
		c := newConsumer(func(ctx context.Context, e *Event) error {
			gotCorrelation = CorrelationID(ctx)
			var data UserDeletedEvent
			require.NoError(t, e.UnmarshalData(&data))
			gotUser = data.UserID
			return nil
		})

		ack := &fakeAck{}
		c.dispatch(context.Background(), eventBody(t, EventUserDeleted, UserDeletedEvent{UserID: "u-1"}), nil, ack)

		assert.True(t, ack.acked)
		assert.Equal(t, "corr-9", gotCorrelation)
		assert.Equal(t, "u-1", gotUser)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		ack := &fakeAck{}
		newConsumer(nil).dispatch(context.Background(), []byte("{"), nil, ack)

		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
	})

	t.Run("unknown type is acked", func(t *testing.T) {
		ack := &fakeAck{}
		newConsumer(nil).dispatch(context.Background(), eventBody(t, "user.renamed", struct{}{}), nil, ack)

		assert.True(t, ack.acked)
	})

	t.Run("failure is requeued", func(t *testing.T) {
		ack := &fakeAck{}
		c := newConsumer(func(context.Context, *Event) error { return errors.New("db down") })
		c.dispatch(context.Background(), eventBody(t, EventUserDeleted, UserDeletedEvent{}), nil, ack)

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
	})

	t.Run("failure after retries is dead-lettered", func(t *testing.T) {
		ack := &fakeAck{}
		headers := amqp.Table{"x-death": []any{amqp.Table{"count": int64(3)}}}
		c := newConsumer(func(context.Context, *Event) error { return errors.New("db down") })
		c.dispatch(context.Background(), eventBody(t, EventUserDeleted, UserDeletedEvent{}), headers, ack)

		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
	})
}

func TestDeathCount(t *testing.T) {
	assert.Equal(t, 0, deathCount(nil))
	assert.Equal(t, 0, deathCount(amqp.Table{"x-death": "bogus"}))
	assert.Equal(t, 3, deathCount(amqp.Table{"x-death": []any{
		amqp.Table{"count": int64(1)},
		amqp.Table{"count": int64(2)},
	}}))
}

func TestUserUpdatedEvent_LineCategoriesPresence(t *testing.T) {
	var without UserUpdatedEvent
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"u"}`), &without))
	assert.Nil(t, without.LineCategories)

	var cleared UserUpdatedEvent
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"u","line_categories":[]}`), &cleared))
	require.NotNil(t, cleared.LineCategories)
	assert.Empty(t, *cleared.LineCategories)
}
