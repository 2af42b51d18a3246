package models

import "time"

// Status is the lifecycle state of a booking. CANCELLED is terminal.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// RecurringType describes how a booking repeats.
type RecurringType string

const (
	RecurringNone    RecurringType = "none"
	RecurringDaily   RecurringType = "daily"
	RecurringWeekly  RecurringType = "weekly"
	RecurringMonthly RecurringType = "monthly"
)

// Valid reports whether t is a known recurrence value.
func (t RecurringType) Valid() bool {
	switch t {
	case RecurringNone, RecurringDaily, RecurringWeekly, RecurringMonthly:
		return true
	}
	return false
}

// Recurs reports whether t produces more than the anchor occurrence.
func (t RecurringType) Recurs() bool {
	return t.Valid() && t != RecurringNone
}

// Booking is a reservation of a room for a time range.
// Bookings sharing a GroupID are occurrences of one recurring series.
type Booking struct {
	ID               int64         `json:"id"`
	RoomID           int64         `json:"roomId"`
	UserID           int64         `json:"userId"`
	StartTime        time.Time     `json:"startTime"`
	EndTime          time.Time     `json:"endTime"`
	Topic            string        `json:"topic"`
	IsPrivate        bool          `json:"isPrivate"`
	Status           Status        `json:"status"`
	RecurringType    RecurringType `json:"recurringType"`
	RecurringEndDate *time.Time    `json:"recurringEndDate,omitempty"`
	GroupID          *string       `json:"groupId,omitempty"`
	PinCode          string        `json:"pinCode,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Interval returns the booking's [StartTime, EndTime) range.
func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// IsCancelled reports whether the booking has been soft-deleted.
func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// Redacted returns a copy safe to show to viewerID. Private bookings hide
// the topic and pin code from everyone except the owner and admins.
func (b Booking) Redacted(viewerID int64, admin bool) Booking {
	if !b.IsPrivate || admin || b.UserID == viewerID {
		return b
	}
	b.Topic = "Private"
	b.PinCode = ""
	return b
}
