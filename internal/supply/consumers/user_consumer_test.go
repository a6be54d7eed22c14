package consumers

import (
	"context"
	"errors"
	"testing"

	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/messaging"
	"github.com/medflow/medflow-supply/pkg/tenant"
	"github.com/medflow/medflow-supply/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scopeCall struct {
	op         string
	tenantID   string
	userID     string
	categories []int
}

type fakeScopes struct {
	calls []scopeCall
	err   error
}

func (f *fakeScopes) Set(ctx context.Context, userID string, categories []int) error {
	id, _ := tenant.TenantID(ctx)
	f.calls = append(f.calls, scopeCall{op: "set", tenantID: id, userID: userID, categories: categories})
	return f.err
}

func (f *fakeScopes) Delete(ctx context.Context, userID string) error {
	id, _ := tenant.TenantID(ctx)
	f.calls = append(f.calls, scopeCall{op: "delete", tenantID: id, userID: userID})
	return f.err
}

func newConsumer(scopes *fakeScopes) *UserEventConsumer {
	return &UserEventConsumer{scopes: scopes, logger: logger.Nop()}
}

func event(t *testing.T, eventType string, data any) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "user-service", "corr-1", data)
	require.NoError(t, err)
	return e
}

func TestHandleUserCreated(t *testing.T) {
	scopes := &fakeScopes{}
	c := newConsumer(scopes)

	err := c.handleUserCreated(context.Background(), event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:         testutil.TestUserID,
		TenantID:       testutil.TestTenantID,
		LineCategories: []int{3, 5},
	}))
	require.NoError(t, err)

	assert.Equal(t, []scopeCall{{op: "set", tenantID: testutil.TestTenantID, userID: testutil.TestUserID, categories: []int{3, 5}}}, scopes.calls)
}

func TestHandleUserCreated_Unrestricted(t *testing.T) {
	scopes := &fakeScopes{}
	c := newConsumer(scopes)

	err := c.handleUserCreated(context.Background(), event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:   testutil.TestUserID,
		TenantID: testutil.TestTenantID,
	}))
	require.NoError(t, err)
	require.Len(t, scopes.calls, 1)
	assert.Nil(t, scopes.calls[0].categories)
}

func TestHandleUserUpdated(t *testing.T) {
	t.Run("restriction changed", func(t *testing.T) {
		scopes := &fakeScopes{}
		cats := []int{7}
		err := newConsumer(scopes).handleUserUpdated(context.Background(), event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
			UserID:         testutil.TestUserID,
			TenantID:       testutil.TestTenantID,
			LineCategories: &cats,
		}))
		require.NoError(t, err)
		require.Len(t, scopes.calls, 1)
		assert.Equal(t, []int{7}, scopes.calls[0].categories)
	})

	t.Run("restriction untouched", func(t *testing.T) {
		scopes := &fakeScopes{}
		err := newConsumer(scopes).handleUserUpdated(context.Background(), event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
			UserID:   testutil.TestUserID,
			TenantID: testutil.TestTenantID,
			Fields:   map[string]any{"email": "new@example.org"},
		}))
		require.NoError(t, err)
		assert.Empty(t, scopes.calls)
	})
}

func TestHandleUserDeleted(t *testing.T) {
	scopes := &fakeScopes{}
	err := newConsumer(scopes).handleUserDeleted(context.Background(), event(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{
		UserID:   testutil.TestUserID,
		TenantID: testutil.TestTenantID,
	}))
	require.NoError(t, err)
	assert.Equal(t, []scopeCall{{op: "delete", tenantID: testutil.TestTenantID, userID: testutil.TestUserID}}, scopes.calls)
}

func TestHandlers_WithoutTenantAreDropped(t *testing.T) {
	scopes := &fakeScopes{}
	c := newConsumer(scopes)

	err := c.handleUserDeleted(context.Background(), event(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: testutil.TestUserID}))
	require.NoError(t, err)
	assert.Empty(t, scopes.calls)
}

func TestHandlers_StoreErrorsAreReturned(t *testing.T) {
	scopes := &fakeScopes{err: errors.New("db down")}
	c := newConsumer(scopes)

	err := c.handleUserCreated(context.Background(), event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:   testutil.TestUserID,
		TenantID: testutil.TestTenantID,
	}))
	assert.Error(t, err)
}

func TestHandlers_MalformedData(t *testing.T) {
	c := newConsumer(&fakeScopes{})
	e := &messaging.Event{Type: messaging.EventUserCreated, Data: []byte(`{"user_id": 12`)}
	assert.Error(t, c.handleUserCreated(context.Background(), e))
}
