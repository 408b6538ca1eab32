package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		full      string
		wantFirst string
		wantLast  string
	}{
		{"Ann Lee", "Ann", "Lee"},
		{"Mary Ann Lee", "Mary Ann", "Lee"},
		{"Cher", "Cher", ""},
		{"  Ann   Lee  ", "Ann", "Lee"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			first, last := SplitName(tt.full)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestExportWaiver_RowOrder(t *testing.T) {
	appender := &mockAppender{}
	cfg := config.SheetsConfig{WaiverSpreadsheetID: "sheet-1", WaiverSheetName: "Form Responses 1"}

	err := ExportWaiver(context.Background(), appender, cfg, zap.NewNop(), &db.Waiver{
		Timestamp:      "3/14/2025, 9:15:00 AM",
		UserName:       "Mary Ann Lee",
		UserEmail:      "mlee@district.org",
		SchoolID:       "1001",
		WaiverReason:   "Cracked screen",
		IsFirstRequest: "Yes",
		AckFuture:      true,
		AckCare:        false,
	})
	require.NoError(t, err)

	assert.Equal(t, "sheet-1", appender.spreadsheetID)
	assert.Equal(t, "Form Responses 1", appender.sheetName)
	require.Len(t, appender.rows, 1)
	assert.Equal(t, []interface{}{
		"3/14/2025, 9:15:00 AM",
		"mlee@district.org",
		"Lee",
		"Mary Ann",
		"1001",
		"Cracked screen",
		"Yes",
		"Yes",
		"No",
	}, appender.rows[0])
}

func TestExportWaiver_Failure(t *testing.T) {
	appender := &mockAppender{err: errors.New("403")}

	err := ExportWaiver(context.Background(), appender, config.SheetsConfig{}, zap.NewNop(), &db.Waiver{UserName: "Ann"})
	assert.Error(t, err)
}
