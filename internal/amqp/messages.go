package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hostel/internal/core"
)

// EventType names a change to one record collection.
type EventType string

const (
	RoomCreated    EventType = "room.created"
	RoomUpdated    EventType = "room.updated"
	RoomDeleted    EventType = "room.deleted"
	TenantCreated  EventType = "tenant.created"
	TenantUpdated  EventType = "tenant.updated"
	TenantDeleted  EventType = "tenant.deleted"
	PaymentCreated EventType = "payment.created"
	PaymentUpdated EventType = "payment.updated"
	PaymentDeleted EventType = "payment.deleted"
)

// IsPayment reports whether the event concerns a payment record.
func (t EventType) IsPayment() bool {
	return strings.HasPrefix(string(t), "payment.")
}

// Event is a lightweight change notification. Consumers load the current
// record from the database by EntityID.
type Event struct {
	Type      EventType     `json:"type"`
	EntityID  string        `json:"entity_id"`
	Month     core.MonthKey `json:"month,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(t EventType, entityID string) *Event {
	return &Event{
		Type:      t,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// NewPaymentEvent carries the payment's month so consumers can route by it.
func NewPaymentEvent(t EventType, p core.Payment) *Event {
	e := NewEvent(t, p.ID)
	e.Month = p.Month
	return e
}

// ToJSON encodes the event for publishing.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects ones without type or entity.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.EntityID == "" {
		return nil, fmt.Errorf("incomplete event: type=%q entity_id=%q", e.Type, e.EntityID)
	}
	return &e, nil
}
