package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	EventLotAlert = "supply.lot.alert"
)

// Exchange names
const (
	ExchangeUserEvents   = "user.events"
	ExchangeSupplyEvents = "supply.events"
)

// Event is the envelope shared by every medflow event
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// UserCreatedEvent is published by the user service when a user is created.
// LineCategories is absent for users without a supply line restriction.
type UserCreatedEvent struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	RoleName       string `json:"role_name"`
	TenantID       string `json:"tenant_id"`
	LineCategories []int  `json:"line_categories,omitempty"`
}

// UserUpdatedEvent is published when a user is updated. LineCategories is
// nil when the update did not touch the restriction.
type UserUpdatedEvent struct {
	UserID         string         `json:"user_id"`
	Fields         map[string]any `json:"fields"`
	TenantID       string         `json:"tenant_id"`
	LineCategories *[]int         `json:"line_categories,omitempty"`
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// LotAlertEvent announces a lot that reached its return deadline or expired.
type LotAlertEvent struct {
	AlertID             string    `json:"alert_id"`
	TenantID            string    `json:"tenant_id"`
	LotID               string    `json:"lot_id"`
	ItemCode            int       `json:"item_code"`
	LotCode             string    `json:"lot_code,omitempty"`
	State               string    `json:"state"`
	ExpirationDate      time.Time `json:"expiration_date"`
	ReturnDeadline      time.Time `json:"return_deadline"`
	DaysUntilExpiration int       `json:"days_until_expiration"`
}
