package services

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

// KioskTimestampLayout is how waiver timestamps are written, matching the spreadsheet's
// form-response column
const KioskTimestampLayout = "1/2/2006, 3:04:05 PM"

// KioskZone is the district's local time zone
const KioskZone = "America/Chicago"

// KioskTimestamp formats t in district local time
func KioskTimestamp(t time.Time) string {
	loc, err := time.LoadLocation(KioskZone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(KioskTimestampLayout)
}

// CreateMessageStore defines the database operations needed to leave a message
type CreateMessageStore interface {
	InsertMessage(ctx context.Context, message *db.Message) error
}

// CreateMessage records a kiosk message. Inserting it triggers the technician email.
func CreateMessage(ctx context.Context, store CreateMessageStore, logger *zap.Logger, msg *db.Message) error {
	if msg.UserName == "" || msg.UserLocation == "" || msg.Summary == "" {
		return invalid("Missing required fields: userName, userLocation, or summary.")
	}

	msg.ID = ""
	msg.CreatedAt = time.Time{}
	if err := store.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	logger.Info("Message created", zap.String("id", msg.ID), zap.String("location", msg.UserLocation))
	return nil
}

// CreateWaiverStore defines the database operations needed to submit a waiver
type CreateWaiverStore interface {
	InsertWaiver(ctx context.Context, waiver *db.Waiver) error
}

// CreateWaiver records a waiver submitted at the kiosk, stamping it with the local time
// when the kiosk did not. Inserting it triggers the spreadsheet export.
func CreateWaiver(ctx context.Context, store CreateWaiverStore, logger *zap.Logger, waiver *db.Waiver, now time.Time) error {
	if waiver.UserName == "" || waiver.WaiverReason == "" {
		return invalid("Missing required fields: userName or waiverReason.")
	}

	waiver.ID = ""
	if waiver.Timestamp == "" {
		waiver.Timestamp = KioskTimestamp(now)
	}

	if err := store.InsertWaiver(ctx, waiver); err != nil {
		return fmt.Errorf("failed to create waiver: %w", err)
	}

	logger.Info("Waiver created", zap.String("id", waiver.ID), zap.String("timestamp", waiver.Timestamp))
	return nil
}
