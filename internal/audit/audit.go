// Package audit keeps a trail of booking mutations for operational
// traceability: who did what to which booking and when.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"roomly/internal/database"
)

// Recorder writes audit entries. Failures are logged and swallowed: the
// audit trail must never fail a booking operation.
type Recorder struct {
	db     *database.DB
	logger *zerolog.Logger
}

// NewRecorder creates a recorder backed by the main database.
func NewRecorder(db *database.DB, logger *zerolog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record stores one audit entry.
func (r *Recorder) Record(ctx context.Context, action string, bookingID, userID int64, details string) {
	e := &database.AuditEntry{
		Action:    action,
		BookingID: bookingID,
		UserID:    userID,
		Details:   details,
	}
	if err := database.InsertAudit(ctx, r.db, e); err != nil {
		r.logger.Error().Err(err).Str("action", action).Msg("audit record failed")
	}
}

// Cleanup deletes audit entries older than retention. Returns the number of
// rows removed.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return database.DeleteAuditBefore(ctx, r.db, time.Now().Add(-retention))
}

// RunExportAndCleanup archives the retained audit window as an xlsx workbook
// under dir, then prunes entries older than retention. Returns the number of
// rows removed.
func (r *Recorder) RunExportAndCleanup(ctx context.Context, dir string, retention time.Duration) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export directory: %w", err)
	}
	since := time.Now().Add(-retention)

	path := filepath.Join(dir, "audit-"+time.Now().Format("2006-01-02")+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	if err := r.ExportXLSX(ctx, f, since); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close export file: %w", err)
	}
	r.logger.Info().Str("path", path).Msg("audit export written")

	return database.DeleteAuditBefore(ctx, r.db, since)
}
