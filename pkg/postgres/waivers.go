package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

// InsertWaiver inserts a new waiver. The insert trigger announces it on waiver_created.
func (d *DB) InsertWaiver(ctx context.Context, waiver *db.Waiver) error {
	if waiver.ID == "" {
		waiver.ID = uuid.NewString()
	}
	if waiver.CreatedAt.IsZero() {
		waiver.CreatedAt = time.Now().UTC()
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO waivers (
			id, source_timestamp, user_name, user_email, school_id, user_location, asset_tag,
			asset_description, waiver_reason, is_first_request, ack_future, ack_care, audio_link, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		waiver.ID, waiver.Timestamp, waiver.UserName, waiver.UserEmail, waiver.SchoolID,
		waiver.UserLocation, waiver.AssetTag, waiver.AssetDescription, waiver.WaiverReason,
		waiver.IsFirstRequest, bool(waiver.AckFuture), bool(waiver.AckCare), waiver.AudioLink,
		waiver.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert waiver: %w", err)
	}
	return nil
}

const waiverColumns = `id, source_timestamp, user_name, user_email, school_id, user_location, asset_tag,
	asset_description, waiver_reason, is_first_request, ack_future, ack_care, audio_link, created_at`

func scanWaiver(row pgx.Row) (*db.Waiver, error) {
	var w db.Waiver
	var ackFuture, ackCare bool
	err := row.Scan(
		&w.ID, &w.Timestamp, &w.UserName, &w.UserEmail, &w.SchoolID, &w.UserLocation, &w.AssetTag,
		&w.AssetDescription, &w.WaiverReason, &w.IsFirstRequest, &ackFuture, &ackCare, &w.AudioLink,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.AckFuture = db.Flag(ackFuture)
	w.AckCare = db.Flag(ackCare)
	return &w, nil
}

// GetWaiver retrieves a waiver by id
func (d *DB) GetWaiver(ctx context.Context, id string) (*db.Waiver, error) {
	w, err := scanWaiver(d.pool.QueryRow(ctx, `SELECT `+waiverColumns+` FROM waivers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waiver: %w", err)
	}
	return w, nil
}

// ListWaivers retrieves all waivers, newest first
func (d *DB) ListWaivers(ctx context.Context) ([]db.Waiver, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+waiverColumns+` FROM waivers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list waivers: %w", err)
	}
	defer rows.Close()

	waivers := []db.Waiver{}
	for rows.Next() {
		w, err := scanWaiver(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waiver: %w", err)
		}
		waivers = append(waivers, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list waivers: %w", err)
	}
	return waivers, nil
}

// WaiverExistsByTimestamp reports whether any waiver carries timestamp
func (d *DB) WaiverExistsByTimestamp(ctx context.Context, timestamp string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM waivers WHERE source_timestamp = $1)
	`, timestamp).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check waiver timestamp: %w", err)
	}
	return exists, nil
}
