package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

// SyncOutcome reports what a waiver sync did
type SyncOutcome int

const (
	SyncInserted SyncOutcome = iota
	SyncDuplicate
)

// SyncWaiverStore defines the database operations needed for waiver syncing
type SyncWaiverStore interface {
	WaiverExistsByTimestamp(ctx context.Context, timestamp string) (bool, error)
	InsertWaiver(ctx context.Context, waiver *db.Waiver) error
}

// SyncWaiver inserts a waiver pushed from the spreadsheet unless one with the same timestamp
// already exists. The check and insert are not atomic: two concurrent syncs of the same row
// can both insert.
func SyncWaiver(ctx context.Context, store SyncWaiverStore, logger *zap.Logger, waiver *db.Waiver) (SyncOutcome, error) {
	if waiver == nil || waiver.Timestamp == "" {
		return 0, invalid("Bad Request: Missing waiver data or timestamp.")
	}

	exists, err := store.WaiverExistsByTimestamp(ctx, waiver.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to check for duplicate waiver: %w", err)
	}
	if exists {
		logger.Info("Duplicate waiver skipped", zap.String("timestamp", waiver.Timestamp))
		return SyncDuplicate, nil
	}

	// The record id is assigned by the store; a client-supplied id is ignored
	waiver.ID = ""
	if err := store.InsertWaiver(ctx, waiver); err != nil {
		return 0, fmt.Errorf("failed to insert waiver: %w", err)
	}

	logger.Info("Waiver synced from sheet",
		zap.String("id", waiver.ID),
		zap.String("userName", waiver.UserName))

	return SyncInserted, nil
}
