package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roomly/internal/models"
)

const bookingColumns = `id, room_id, user_id, start_time, end_time, topic, is_private,
	status, recurring_type, recurring_end_date, group_id, pin_code, created_at, updated_at`

// Times are stored in UTC: sqlite compares DATETIME strings
// lexicographically, so mixed offsets would break the overlap predicates.
func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// InsertBooking persists a new booking and fills in its generated ID.
func InsertBooking(ctx context.Context, q Querier, b *models.Booking) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	res, err := q.ExecContext(ctx, `
		INSERT INTO bookings (
			room_id, user_id, start_time, end_time, topic, is_private,
			status, recurring_type, recurring_end_date, group_id, pin_code,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RoomID, b.UserID, utc(b.StartTime), utc(b.EndTime), b.Topic, b.IsPrivate,
		string(b.Status), recurringOrNull(b.RecurringType), utcPtr(b.RecurringEndDate), b.GroupID, b.PinCode,
		utc(b.CreatedAt), utc(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	b.ID = id
	return nil
}

// GetBooking loads one booking by id. Returns sql.ErrNoRows when absent.
func GetBooking(ctx context.Context, q Querier, id int64) (*models.Booking, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// FindConflict returns a confirmed booking of the room whose interval
// overlaps iv (half-open semantics), or nil when the slot is free.
// excludeID skips one booking, used when re-checking a booking against
// itself during update; pass 0 to exclude nothing.
//
// Run this on the transaction handle that will also perform the write:
// with immediate transactions the read and the write are then atomic
// relative to other bookings on the same room.
func FindConflict(ctx context.Context, q Querier, roomID int64, iv models.Interval, excludeID int64) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = ?
		AND id != ?
		AND status != 'CANCELLED'
		AND start_time < ? AND end_time > ?
		LIMIT 1`,
		roomID, excludeID, utc(iv.End), utc(iv.Start),
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conflict: %w", err)
	}
	return b, nil
}

// UpdateBooking rewrites the mutable fields of an existing booking.
func UpdateBooking(ctx context.Context, q Querier, b *models.Booking) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE bookings SET
			room_id = ?, start_time = ?, end_time = ?, topic = ?, is_private = ?,
			status = ?, recurring_type = ?, recurring_end_date = ?, group_id = ?,
			updated_at = ?
		WHERE id = ?`,
		b.RoomID, utc(b.StartTime), utc(b.EndTime), b.Topic, b.IsPrivate,
		string(b.Status), recurringOrNull(b.RecurringType), utcPtr(b.RecurringEndDate), b.GroupID,
		utc(b.UpdatedAt), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	return nil
}

// CancelBooking soft-deletes one booking.
func CancelBooking(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return nil
}

// CancelGroupFuture cancels every non-cancelled member of a series whose
// start is at or after from, excluding one booking id (pass 0 to cancel the
// whole future tail). Returns the number of rows cancelled.
func CancelGroupFuture(ctx context.Context, q Querier, groupID string, excludeID int64, from time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE bookings SET status = 'CANCELLED', updated_at = ?
		WHERE group_id = ?
		AND id != ?
		AND status != 'CANCELLED'
		AND start_time >= ?`,
		time.Now().UTC(), groupID, excludeID, utc(from),
	)
	if err != nil {
		return 0, fmt.Errorf("cancel series %s: %w", groupID, err)
	}
	return res.RowsAffected()
}

// ListGroupMembers returns the non-cancelled members of a series that are
// either the booking itself or start at/after from, ordered by start time.
// This is the selection a series update operates on: past siblings are left
// untouched.
func ListGroupMembers(ctx context.Context, q Querier, groupID string, selfID int64, from time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE group_id = ?
		AND status != 'CANCELLED'
		AND (id = ? OR start_time >= ?)
		ORDER BY start_time`,
		groupID, selfID, utc(from),
	)
	if err != nil {
		return nil, fmt.Errorf("list series %s: %w", groupID, err)
	}
	return collectBookings(rows)
}

// ListGroupActive returns every non-cancelled member of a series.
func ListGroupActive(ctx context.Context, q Querier, groupID string) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE group_id = ? AND status != 'CANCELLED'
		ORDER BY start_time`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list series %s: %w", groupID, err)
	}
	return collectBookings(rows)
}

// ListUserBookings returns a user's non-cancelled bookings ascending by
// start, capped at limit.
func ListUserBookings(ctx context.Context, q Querier, userID int64, limit int) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = ? AND status != 'CANCELLED'
		ORDER BY start_time ASC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListRoomBookings returns the non-cancelled bookings of one room.
func ListRoomBookings(ctx context.Context, q Querier, roomID int64) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = ? AND status != 'CANCELLED'
		ORDER BY start_time`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListBookingsInRange returns confirmed bookings starting within [from, to].
func ListBookingsInRange(ctx context.Context, q Querier, from, to time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status != 'CANCELLED'
		AND start_time >= ? AND start_time <= ?
		ORDER BY start_time`,
		utc(from), utc(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings in range: %w", err)
	}
	return collectBookings(rows)
}

// RoomOccupiedAt reports whether the room has a confirmed booking covering t.
func RoomOccupiedAt(ctx context.Context, q Querier, roomID int64, t time.Time) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE room_id = ?
		AND status = 'CONFIRMED'
		AND start_time <= ? AND end_time > ?`,
		roomID, utc(t), utc(t),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("room occupancy: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var status, recurringType sql.NullString
	var recurringEnd sql.NullTime
	var groupID sql.NullString

	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.StartTime, &b.EndTime, &b.Topic, &b.IsPrivate,
		&status, &recurringType, &recurringEnd, &groupID, &b.PinCode, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = models.Status(status.String)
	b.RecurringType = models.RecurringNone
	if recurringType.Valid && recurringType.String != "" {
		b.RecurringType = models.RecurringType(recurringType.String)
	}
	if recurringEnd.Valid {
		t := recurringEnd.Time
		b.RecurringEndDate = &t
	}
	if groupID.Valid && groupID.String != "" {
		g := groupID.String
		b.GroupID = &g
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// recurringOrNull maps RecurringNone to NULL so non-recurring rows match the
// original storage shape.
func recurringOrNull(t models.RecurringType) any {
	if !t.Recurs() {
		return nil
	}
	return string(t)
}
