package service

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the recoverable outcome categories. Callers branch on
// these (or on the typed errors below) via errors.Is / errors.As; anything
// else is treated as a storage failure.
var (
	// ErrNotFound is returned when a booking, series or room does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned when the actor is neither the owner nor
	// an admin.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPastBooking is returned when an operation targets a booking whose
	// start is before today. Past bookings are immutable.
	ErrPastBooking = errors.New("cannot modify past bookings")

	// ErrNoAvailableSlots is returned by Create when every expanded
	// occurrence conflicts with an existing booking.
	ErrNoAvailableSlots = errors.New("no available time slots, all dates have conflicts")
)

// ValidationError reports a malformed request (bad interval, too short).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError reports that a room is already booked for a candidate slot.
// At carries the start of the conflicting occurrence so update failures can
// name the exact date and time.
type ConflictError struct {
	RoomID int64
	At     time.Time
}

func (e *ConflictError) Error() string {
	if e.At.IsZero() {
		return "room is already booked for this time slot"
	}
	return fmt.Sprintf("conflict on %s at %s",
		e.At.Format("02/01/2006"), e.At.Format("15:04"))
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a booking conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) || errors.Is(err, ErrNoAvailableSlots)
}

// IsNotFound reports whether err means the target does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthorization reports whether err is an authorization failure. Past
// booking immutability is reported in this category, as the original
// behavior surfaced it as forbidden.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrPastBooking)
}
