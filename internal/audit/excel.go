package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"roomly/internal/database"
)

var exportColumns = []string{"ID", "Action", "Booking", "User", "Details", "Timestamp"}

// ExportXLSX writes the audit entries since the given time as an Excel
// workbook to w.
func (r *Recorder) ExportXLSX(ctx context.Context, w io.Writer, since time.Time) error {
	entries, err := database.ListAuditSince(ctx, r.db, since)
	if err != nil {
		return fmt.Errorf("load audit entries: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Audit"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	for row, e := range entries {
		values := []any{e.ID, e.Action, e.BookingID, e.UserID, e.Details, e.CreatedAt.Format(time.RFC3339)}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
