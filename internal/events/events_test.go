package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(TypeBookingChanged, func(e Event) { got = append(got, e) })

	bus.Publish(Event{Type: TypeBookingChanged})
	bus.Publish(Event{Type: TypeRoomChanged}) // no subscriber, dropped

	require.Len(t, got, 1)
	assert.Equal(t, TypeBookingChanged, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(TypeRoomChanged, func(Event) { calls++ })
	bus.Subscribe(TypeRoomChanged, func(Event) { calls++ })

	bus.Publish(Event{Type: TypeRoomChanged})
	assert.Equal(t, 2, calls)
}

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var payload []byte
	bus.Subscribe(TypeRoomChanged, func(e Event) { payload = e.Payload })

	require.NoError(t, bus.PublishJSON(TypeRoomChanged, RoomChangedPayload{RoomID: 42}))

	var decoded RoomChangedPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, int64(42), decoded.RoomID)
}

func TestBusNotifier(t *testing.T) {
	bus := NewEventBus()

	var bookingEvents, roomEvents int
	var lastPayload []byte
	bus.Subscribe(TypeBookingChanged, func(Event) { bookingEvents++ })
	bus.Subscribe(TypeRoomChanged, func(e Event) {
		roomEvents++
		lastPayload = e.Payload
	})

	n := NewBusNotifier(bus)
	n.BookingChanged()
	n.RoomChanged(7)

	assert.Equal(t, 1, bookingEvents)
	assert.Equal(t, 1, roomEvents)
	assert.JSONEq(t, `{"room_id":7}`, string(lastPayload))
}
