package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecurringType(t *testing.T) {
	assert.True(t, RecurringNone.Valid())
	assert.True(t, RecurringDaily.Valid())
	assert.True(t, RecurringWeekly.Valid())
	assert.True(t, RecurringMonthly.Valid())
	assert.False(t, RecurringType("yearly").Valid())

	assert.False(t, RecurringNone.Recurs())
	assert.True(t, RecurringDaily.Recurs())
	assert.False(t, RecurringType("yearly").Recurs())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusConfirmed.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("PENDING").Valid())
}

func TestBookingRedacted(t *testing.T) {
	b := Booking{
		ID:        1,
		UserID:    7,
		Topic:     "Quarterly review",
		IsPrivate: true,
		PinCode:   "4821",
	}

	t.Run("HiddenFromOthers", func(t *testing.T) {
		r := b.Redacted(9, false)
		assert.Equal(t, "Private", r.Topic)
		assert.Empty(t, r.PinCode)
	})

	t.Run("VisibleToOwner", func(t *testing.T) {
		r := b.Redacted(7, false)
		assert.Equal(t, "Quarterly review", r.Topic)
		assert.Equal(t, "4821", r.PinCode)
	})

	t.Run("VisibleToAdmin", func(t *testing.T) {
		r := b.Redacted(9, true)
		assert.Equal(t, "Quarterly review", r.Topic)
		assert.Equal(t, "4821", r.PinCode)
	})

	t.Run("PublicUntouched", func(t *testing.T) {
		pub := b
		pub.IsPrivate = false
		r := pub.Redacted(9, false)
		assert.Equal(t, "Quarterly review", r.Topic)
	})
}

func TestBookingIsCancelled(t *testing.T) {
	b := Booking{Status: StatusConfirmed}
	assert.False(t, b.IsCancelled())
	b.Status = StatusCancelled
	assert.True(t, b.IsCancelled())
}
