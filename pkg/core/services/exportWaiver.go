package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// RowAppender appends rows to a spreadsheet tab
type RowAppender interface {
	AppendRows(ctx context.Context, spreadsheetID, sheetName string, values [][]interface{}) error
}

// ExportWaiver appends one row for waiver to the waiver spreadsheet
func ExportWaiver(
	ctx context.Context,
	appender RowAppender,
	cfg config.SheetsConfig,
	logger *zap.Logger,
	waiver *db.Waiver,
) error {
	if waiver == nil {
		logger.Info("New waiver is empty, not exporting")
		return nil
	}

	row := WaiverRow(waiver)
	if err := appender.AppendRows(ctx, cfg.WaiverSpreadsheetID, cfg.WaiverSheetName, [][]interface{}{row}); err != nil {
		return fmt.Errorf("failed to export waiver %s: %w", waiver.ID, err)
	}

	logger.Info("Waiver written to sheet",
		zap.String("waiverId", waiver.ID),
		zap.String("userName", waiver.UserName))

	return nil
}

// WaiverRow lays a waiver out in the spreadsheet's column order
func WaiverRow(w *db.Waiver) []interface{} {
	first, last := SplitName(w.UserName)
	return []interface{}{
		w.Timestamp,
		w.UserEmail,
		last,
		first,
		w.SchoolID,
		w.WaiverReason,
		w.IsFirstRequest,
		w.AckFuture.YesNo(),
		w.AckCare.YesNo(),
	}
}

// SplitName treats the last whitespace-separated word as the last name and everything
// before it as the first name. A single word is a first name with an empty last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
