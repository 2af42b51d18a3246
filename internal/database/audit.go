package database

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry is one recorded booking mutation.
type AuditEntry struct {
	ID        int64
	Action    string
	BookingID int64
	UserID    int64
	Details   string
	CreatedAt time.Time
}

// InsertAudit records a booking mutation in the audit trail.
func InsertAudit(ctx context.Context, q Querier, e *AuditEntry) error {
	e.CreatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (action, booking_id, user_id, details, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Action, e.BookingID, e.UserID, e.Details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// ListAuditSince returns audit entries created at or after since, oldest first.
func ListAuditSince(ctx context.Context, q Querier, since time.Time) ([]AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, action, booking_id, user_id, details, created_at
		FROM audit_log
		WHERE created_at >= ?
		ORDER BY created_at`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.BookingID, &e.UserID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteAuditBefore removes audit entries older than cutoff. Returns the
// number of rows deleted.
func DeleteAuditBefore(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete audit: %w", err)
	}
	return res.RowsAffected()
}
