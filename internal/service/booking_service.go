// Package service implements the booking orchestrator: recurrence expansion,
// conflict checking and the create/update/cancel state machine, executed
// against the store one transaction per operation.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"roomly/internal/database"
	"roomly/internal/metrics"
	"roomly/internal/models"
	"roomly/internal/recurrence"
)

// MinDuration is the shortest bookable interval.
const MinDuration = 15 * time.Minute

// Notifier receives change events after a committed state change.
// Implementations must not block the caller for long; failures are the
// sink's problem, never the booking's.
type Notifier interface {
	BookingChanged()
	RoomChanged(roomID int64)
}

// Auditor records booking mutations for the audit trail.
type Auditor interface {
	Record(ctx context.Context, action string, bookingID, userID int64, details string)
}

// Actor identifies the caller of an operation. Authentication happens
// upstream; the orchestrator only enforces ownership rules.
type Actor struct {
	UserID int64
	Admin  bool
}

// CreateRequest describes a booking creation, possibly recurring.
type CreateRequest struct {
	RoomID           int64
	UserID           int64
	StartTime        time.Time
	EndTime          time.Time
	Topic            string
	IsPrivate        bool
	RecurringType    models.RecurringType
	RecurringEndDate *time.Time
	DryRun           bool
}

// CreateResult reports the outcome of a create: the primary booking, the
// occurrences that were skipped over conflicts and the totals.
type CreateResult struct {
	Booking      *models.Booking
	Preview      bool
	TotalSlots   int
	TotalBooked  int
	TotalSkipped int
	SkippedDates []string
}

// UpdateRequest describes an update to one booking or a whole series.
// RoomID nil keeps the current room.
type UpdateRequest struct {
	StartTime        time.Time
	EndTime          time.Time
	Topic            string
	IsPrivate        bool
	RoomID           *int64
	RecurringType    models.RecurringType
	RecurringEndDate *time.Time
}

// SeriesUpdateResult reports the outcome of a series update.
type SeriesUpdateResult struct {
	Updated   int
	Cancelled int64
	Detached  bool
}

// BookingService orchestrates booking operations. It holds no mutable state
// and is safe for concurrent use.
type BookingService struct {
	db       *database.DB
	notifier Notifier
	audit    Auditor
	clock    Clock
	ids      IDGenerator
	logger   *zerolog.Logger
}

// NewBookingService wires the orchestrator. notifier and audit may be nil;
// clock and ids default to the system clock and uuid generation.
func NewBookingService(db *database.DB, notifier Notifier, audit Auditor, clock Clock, ids IDGenerator, logger *zerolog.Logger) *BookingService {
	if clock == nil {
		clock = SystemClock()
	}
	if ids == nil {
		ids = UUIDGenerator()
	}
	return &BookingService{
		db:       db,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Create books the requested interval, expanding recurrences into one booking
// per occurrence. Occurrences that conflict with existing bookings are
// skipped, not fatal; the whole operation fails only when nothing is left.
// With DryRun set the partitioning is computed but nothing is written and no
// events fire.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.RecurringType == "" {
		req.RecurringType = models.RecurringNone
	}
	if err := validateInterval(req.StartTime, req.EndTime, req.RecurringType); err != nil {
		return nil, err
	}

	anchor := models.Interval{Start: req.StartTime, End: req.EndTime}
	slots := recurrence.Expand(anchor, req.RecurringType, req.RecurringEndDate)

	var groupID *string
	if req.RecurringType.Recurs() {
		g := s.ids.NewGroupID()
		groupID = &g
	}

	res := &CreateResult{TotalSlots: len(slots)}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var available []models.Interval
		for _, slot := range slots {
			conflict, err := database.FindConflict(ctx, tx, req.RoomID, slot, 0)
			if err != nil {
				return err
			}
			// An occurrence longer than the recurrence step also collides
			// with its own batch; those skip like any other conflict, or the
			// expansion would commit overlapping confirmed rows.
			if conflict != nil || overlapsAny(slot, available) {
				res.SkippedDates = append(res.SkippedDates, slot.Start.Format("02/01/2006"))
				continue
			}
			available = append(available, slot)
		}

		if len(available) == 0 {
			return ErrNoAvailableSlots
		}

		res.TotalBooked = len(available)
		res.TotalSkipped = len(res.SkippedDates)

		if req.DryRun {
			res.Preview = true
			return nil
		}

		for _, slot := range available {
			b := &models.Booking{
				RoomID:           req.RoomID,
				UserID:           req.UserID,
				StartTime:        slot.Start,
				EndTime:          slot.End,
				Topic:            req.Topic,
				IsPrivate:        req.IsPrivate,
				Status:           models.StatusConfirmed,
				RecurringType:    req.RecurringType,
				RecurringEndDate: req.RecurringEndDate,
				GroupID:          groupID,
				PinCode:          newPinCode(),
			}
			if err := database.InsertBooking(ctx, tx, b); err != nil {
				return err
			}
			if res.Booking == nil {
				res.Booking = b
			}
		}
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	if res.Preview {
		return res, nil
	}

	s.notifyChanged(req.RoomID)
	s.record(ctx, "create", res.Booking.ID, req.UserID, res.Booking.Topic)
	metrics.IncBookingCreated(string(req.RecurringType))
	s.logger.Info().
		Int64("room_id", req.RoomID).
		Int64("user_id", req.UserID).
		Int("booked", res.TotalBooked).
		Int("skipped", res.TotalSkipped).
		Msg("booking created")
	return res, nil
}

// UpdateSingle edits one booking occurrence. Changing the recurrence affects
// group membership:
//
//   - not recurring -> recurring: a fresh group is allocated and the future
//     occurrences are generated, each conflict-checked; the first conflict
//     aborts the whole update.
//   - recurring -> not recurring: the booking leaves its series and every
//     other future member of the old series is cancelled.
func (s *BookingService) UpdateSingle(ctx context.Context, actor Actor, bookingID int64, req UpdateRequest) (*models.Booking, error) {
	if req.RecurringType == "" {
		req.RecurringType = models.RecurringNone
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(actor, booking); err != nil {
		return nil, err
	}
	if err := validateInterval(req.StartTime, req.EndTime, req.RecurringType); err != nil {
		return nil, err
	}

	targetRoom := booking.RoomID
	if req.RoomID != nil {
		targetRoom = *req.RoomID
	}

	// Group membership transition. A recurrence type change on an existing
	// series keeps the group; only entering or leaving recurrence changes it.
	oldGroup := booking.GroupID
	newGroup := oldGroup
	if req.RecurringType.Recurs() && oldGroup == nil {
		g := s.ids.NewGroupID()
		newGroup = &g
	} else if !req.RecurringType.Recurs() && oldGroup != nil {
		newGroup = nil
	}
	leavesOldGroup := oldGroup != nil && newGroup == nil

	newIv := models.Interval{Start: req.StartTime, End: req.EndTime}
	now := s.clock.Now()

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		conflict, err := database.FindConflict(ctx, tx, targetRoom, newIv, booking.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{RoomID: targetRoom}
		}

		booking.RoomID = targetRoom
		booking.StartTime = req.StartTime
		booking.EndTime = req.EndTime
		booking.Topic = req.Topic
		booking.IsPrivate = req.IsPrivate
		booking.RecurringType = req.RecurringType
		booking.RecurringEndDate = req.RecurringEndDate
		booking.GroupID = newGroup
		if err := database.UpdateBooking(ctx, tx, booking); err != nil {
			return err
		}

		// Editing breaks the series forward: the rest of the old series is
		// terminated, not kept.
		if leavesOldGroup {
			if _, err := database.CancelGroupFuture(ctx, tx, *oldGroup, booking.ID, now); err != nil {
				return err
			}
		}

		// Regenerate the series tail from the new anchor. The anchor slot is
		// covered by the update above, so expansion starts one step later.
		// Unlike Create, any conflicting occurrence aborts the whole update.
		for _, slot := range recurrence.ExpandFuture(newIv, req.RecurringType, req.RecurringEndDate) {
			conflict, err := database.FindConflict(ctx, tx, targetRoom, slot, 0)
			if err != nil {
				return err
			}
			if conflict != nil {
				return &ConflictError{RoomID: targetRoom, At: slot.Start}
			}
			occ := &models.Booking{
				RoomID:           targetRoom,
				UserID:           booking.UserID,
				StartTime:        slot.Start,
				EndTime:          slot.End,
				Topic:            req.Topic,
				IsPrivate:        req.IsPrivate,
				Status:           models.StatusConfirmed,
				RecurringType:    req.RecurringType,
				RecurringEndDate: req.RecurringEndDate,
				GroupID:          newGroup,
				PinCode:          newPinCode(),
			}
			if err := database.InsertBooking(ctx, tx, occ); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	s.notifyChanged(targetRoom)
	s.record(ctx, "update", booking.ID, actor.UserID, booking.Topic)
	s.logger.Info().Int64("booking_id", booking.ID).Int64("room_id", targetRoom).Msg("booking updated")
	return booking, nil
}

// UpdateSeries edits every selected member of the booking's series: the
// target itself plus all members starting at or after now. Past occurrences
// are left untouched. The update is all-or-nothing: the first conflicting
// member aborts the whole operation.
//
// A RecurringType of none means detach-and-terminate: the target is updated
// and stripped of its group, every other future member is cancelled.
//
// For a booking with no series this degrades to UpdateSingle.
func (s *BookingService) UpdateSeries(ctx context.Context, actor Actor, bookingID int64, req UpdateRequest) (*SeriesUpdateResult, error) {
	if req.RecurringType == "" {
		req.RecurringType = models.RecurringNone
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GroupID == nil {
		if _, err := s.UpdateSingle(ctx, actor, bookingID, req); err != nil {
			return nil, err
		}
		return &SeriesUpdateResult{Updated: 1}, nil
	}
	if err := s.authorizeMutation(actor, booking); err != nil {
		return nil, err
	}
	if err := validateInterval(req.StartTime, req.EndTime, req.RecurringType); err != nil {
		return nil, err
	}

	targetRoom := booking.RoomID
	if req.RoomID != nil {
		targetRoom = *req.RoomID
	}
	groupID := *booking.GroupID
	now := s.clock.Now()

	if !req.RecurringType.Recurs() {
		return s.detachAndTerminate(ctx, actor, booking, req, targetRoom, groupID, now)
	}

	res := &SeriesUpdateResult{}
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		members, err := database.ListGroupMembers(ctx, tx, groupID, booking.ID, now)
		if err != nil {
			return err
		}

		for i := range members {
			m := &members[i]

			// Each member keeps its own calendar date; only the time of day
			// moves. An end that no longer follows the start rolls to the
			// next day.
			newStart := withTimeOfDay(m.StartTime, req.StartTime)
			newEnd := withTimeOfDay(m.EndTime, req.EndTime)
			if !newEnd.After(newStart) {
				newEnd = newEnd.AddDate(0, 0, 1)
			}

			iv := models.Interval{Start: newStart, End: newEnd}
			conflict, err := database.FindConflict(ctx, tx, targetRoom, iv, m.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return &ConflictError{RoomID: targetRoom, At: newStart}
			}

			m.RoomID = targetRoom
			m.StartTime = newStart
			m.EndTime = newEnd
			m.Topic = req.Topic
			m.IsPrivate = req.IsPrivate
			m.RecurringType = req.RecurringType
			m.RecurringEndDate = req.RecurringEndDate
			if err := database.UpdateBooking(ctx, tx, m); err != nil {
				return err
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	s.notifyChanged(targetRoom)
	s.record(ctx, "update_series", booking.ID, actor.UserID, groupID)
	s.logger.Info().Str("group_id", groupID).Int("updated", res.Updated).Msg("series updated")
	return res, nil
}

// detachAndTerminate handles the series-mode recurrence removal: the target
// keeps living as a standalone booking at the new time, the rest of the
// future series is cancelled. Cancellation happens before the conflict check
// so the departing booking may take over a slot its own siblings held.
func (s *BookingService) detachAndTerminate(ctx context.Context, actor Actor, booking *models.Booking, req UpdateRequest, targetRoom int64, groupID string, now time.Time) (*SeriesUpdateResult, error) {
	res := &SeriesUpdateResult{Detached: true}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cancelled, err := database.CancelGroupFuture(ctx, tx, groupID, booking.ID, now)
		if err != nil {
			return err
		}
		res.Cancelled = cancelled

		iv := models.Interval{Start: req.StartTime, End: req.EndTime}
		conflict, err := database.FindConflict(ctx, tx, targetRoom, iv, booking.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{RoomID: targetRoom}
		}

		booking.RoomID = targetRoom
		booking.StartTime = req.StartTime
		booking.EndTime = req.EndTime
		booking.Topic = req.Topic
		booking.IsPrivate = req.IsPrivate
		booking.RecurringType = models.RecurringNone
		booking.RecurringEndDate = nil
		booking.GroupID = nil
		if err := database.UpdateBooking(ctx, tx, booking); err != nil {
			return err
		}
		res.Updated = 1
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	s.notifyChanged(targetRoom)
	s.record(ctx, "detach_series", booking.ID, actor.UserID, groupID)
	s.logger.Info().Str("group_id", groupID).Int64("cancelled", res.Cancelled).Msg("series detached")
	return res, nil
}

// Cancel soft-deletes one booking. Cancelling an already-cancelled booking is
// a no-op: it neither un-cancels nor errors, and emits no events.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, bookingID int64) error {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(actor, booking.UserID); err != nil {
		return err
	}
	if booking.IsCancelled() {
		return nil
	}
	if booking.StartTime.Before(startOfDay(s.clock.Now())) {
		return ErrPastBooking
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return database.CancelBooking(ctx, tx, bookingID)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(booking.RoomID)
	s.record(ctx, "cancel", booking.ID, actor.UserID, booking.Topic)
	metrics.IncBookingCancelled()
	s.logger.Info().Int64("booking_id", booking.ID).Msg("booking cancelled")
	return nil
}

// CancelSeries cancels every future non-cancelled member of a series. The
// actor must own at least one member or be an admin. Past and already
// cancelled members are left alone. Returns the count cancelled.
func (s *BookingService) CancelSeries(ctx context.Context, actor Actor, groupID string) (int64, error) {
	members, err := database.ListGroupActive(ctx, s.db, groupID)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, ErrNotFound
	}

	if !actor.Admin {
		owns := false
		for _, m := range members {
			if m.UserID == actor.UserID {
				owns = true
				break
			}
		}
		if !owns {
			return 0, ErrNotAuthorized
		}
	}

	now := s.clock.Now()
	var cancelled int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cancelled, err = database.CancelGroupFuture(ctx, tx, groupID, 0, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	if cancelled > 0 {
		if s.notifier != nil {
			s.notifier.BookingChanged()
		}
		metrics.IncBookingCancelled()
	}
	s.record(ctx, "cancel_series", 0, actor.UserID, groupID)
	s.logger.Info().Str("group_id", groupID).Int64("cancelled", cancelled).Msg("series cancelled")
	return cancelled, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := database.GetBooking(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// authorizeMutation enforces ownership and past-booking immutability for
// update operations.
func (s *BookingService) authorizeMutation(actor Actor, booking *models.Booking) error {
	if err := requireOwnerOrAdmin(actor, booking.UserID); err != nil {
		return err
	}
	if booking.StartTime.Before(startOfDay(s.clock.Now())) {
		return ErrPastBooking
	}
	return nil
}

func (s *BookingService) notifyChanged(roomID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.BookingChanged()
	s.notifier.RoomChanged(roomID)
}

func (s *BookingService) record(ctx context.Context, action string, bookingID, userID int64, details string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, action, bookingID, userID, details)
}

func requireOwnerOrAdmin(actor Actor, ownerID int64) error {
	if actor.Admin || actor.UserID == ownerID {
		return nil
	}
	return ErrNotAuthorized
}

func validateInterval(start, end time.Time, typ models.RecurringType) error {
	if typ != "" && !typ.Valid() {
		return &ValidationError{Reason: "unknown recurrence type"}
	}
	if !start.Before(end) {
		return &ValidationError{Reason: "end time must be after start time"}
	}
	if end.Sub(start) < MinDuration {
		return &ValidationError{Reason: "booking must be at least 15 minutes"}
	}
	return nil
}

func overlapsAny(iv models.Interval, accepted []models.Interval) bool {
	for _, a := range accepted {
		if iv.Overlaps(a) {
			return true
		}
	}
	return false
}

// withTimeOfDay keeps the calendar date of base and takes the hour and
// minute from clock.
func withTimeOfDay(base, clock time.Time) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(),
		clock.Hour(), clock.Minute(), 0, 0, base.Location())
}
