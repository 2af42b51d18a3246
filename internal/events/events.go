// Package events provides in-process pub/sub for booking and room change
// notifications. The orchestrator publishes after commit; transports
// (telegram, cache invalidation) subscribe without the core knowing them.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by the booking orchestrator.
const (
	TypeBookingChanged = "booking_changed"
	TypeRoomChanged    = "room_changed"
)

// RoomChangedPayload carries the room affected by a room_changed event.
type RoomChangedPayload struct {
	RoomID int64 `json:"room_id"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously;
// the caller decides the concurrency model.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		handler(event)
	}
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}

// BusNotifier adapts the bus to the orchestrator's notifier interface.
type BusNotifier struct {
	bus *EventBus
}

// NewBusNotifier wraps bus for the orchestrator.
func NewBusNotifier(bus *EventBus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// BookingChanged publishes a booking_changed event.
func (n *BusNotifier) BookingChanged() {
	n.bus.Publish(Event{Type: TypeBookingChanged})
}

// RoomChanged publishes a room_changed event for one room.
func (n *BusNotifier) RoomChanged(roomID int64) {
	_ = n.bus.PublishJSON(TypeRoomChanged, RoomChangedPayload{RoomID: roomID})
}
