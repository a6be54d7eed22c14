package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/events"
	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/messaging"
	"github.com/medflow/medflow-supply/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lotAlert() (*repository.LotAlert, expiry.Alert) {
	expires := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	deadline := expires.AddDate(0, -6, 0)
	code := "L-0001"
	alert := &repository.LotAlert{ID: "alert-1", LotID: "lot-1", State: "critical", ExpirationDate: expires, ReturnDeadline: deadline}
	a := expiry.Alert{
		Lot:                 domain.Lot{ID: "lot-1", ItemCode: 4711, LotCode: &code, ExpirationDate: &expires},
		ExpirationDate:      expires,
		ReturnDeadline:      deadline,
		DaysUntilExpiration: 121,
		State:               expiry.StateCritical,
	}
	return alert, a
}

func TestPublishLotAlert(t *testing.T) {
	mock := testutil.NewMockPublisher()
	pub := events.NewWithPublisher(mock, logger.Nop())
	alert, a := lotAlert()

	pub.PublishLotAlert(testutil.TenantContext(), alert, a)

	mock.AssertEventPublished(t, messaging.EventLotAlert)
	published := mock.Events()
	require.Len(t, published, 1)

	data, ok := published[0].Payload.(messaging.LotAlertEvent)
	require.True(t, ok)
	assert.Equal(t, messaging.LotAlertEvent{
		AlertID:             "alert-1",
		TenantID:            testutil.TestTenantID,
		LotID:               "lot-1",
		ItemCode:            4711,
		LotCode:             "L-0001",
		State:               "critical",
		ExpirationDate:      alert.ExpirationDate,
		ReturnDeadline:      alert.ReturnDeadline,
		DaysUntilExpiration: 121,
	}, data)
}

func TestPublishLotAlert_ErrorIsLogged(t *testing.T) {
	mock := testutil.NewMockPublisher()
	mock.Err = errors.New("channel closed")
	pub := events.NewWithPublisher(mock, logger.Nop())
	alert, a := lotAlert()

	assert.NotPanics(t, func() { pub.PublishLotAlert(context.Background(), alert, a) })
	mock.AssertNoEventsPublished(t)
}

func TestPublishLotAlert_NilPublisher(t *testing.T) {
	var pub *events.SupplyEventPublisher
	alert, a := lotAlert()
	assert.NotPanics(t, func() { pub.PublishLotAlert(context.Background(), alert, a) })
}
