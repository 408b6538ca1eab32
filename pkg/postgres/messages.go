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

// InsertMessage inserts a new message. The insert trigger announces it on message_created.
func (d *DB) InsertMessage(ctx context.Context, message *db.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO messages (id, created_at, user_name, user_location, school_id, summary, video_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, message.ID, message.CreatedAt, message.UserName, message.UserLocation,
		message.SchoolID, message.Summary, message.VideoLink)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessage retrieves a message by id
func (d *DB) GetMessage(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	err := d.pool.QueryRow(ctx, `
		SELECT id, created_at, user_name, user_location, school_id, summary, video_link
		FROM messages WHERE id = $1
	`, id).Scan(&m.ID, &m.CreatedAt, &m.UserName, &m.UserLocation, &m.SchoolID, &m.Summary, &m.VideoLink)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// ListMessages retrieves all messages, newest first
func (d *DB) ListMessages(ctx context.Context) ([]db.Message, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, created_at, user_name, user_location, school_id, summary, video_link
		FROM messages ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []db.Message{}
	for rows.Next() {
		var m db.Message
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.UserName, &m.UserLocation, &m.SchoolID, &m.Summary, &m.VideoLink); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
