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

const ticketColumns = `
	id, created_at, status, requestor_name, school_id, user_location, user_id, location_id,
	device, asset_tag, problem_description, video_link, incident_iq_ticket_id,
	incident_iq_ticket_number, subject, resolution_notes, closed_at, issue_category
`

func scanTicket(row pgx.Row) (*db.Ticket, error) {
	var t db.Ticket
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.Status, &t.RequestorName, &t.SchoolID, &t.UserLocation,
		&t.UserID, &t.LocationID, &t.Device, &t.AssetTag, &t.ProblemDescription, &t.VideoLink,
		&t.IncidentIQTicketID, &t.IncidentIQTicketNumber, &t.Subject, &t.ResolutionNotes, &t.ClosedAt, &t.Category,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTicket inserts a new ticket, defaulting id, creation time and status
func (d *DB) InsertTicket(ctx context.Context, ticket *db.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	if ticket.Status == "" {
		ticket.Status = db.StatusOpen
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		ticket.ID, ticket.CreatedAt, ticket.Status, ticket.RequestorName, ticket.SchoolID,
		ticket.UserLocation, ticket.UserID, ticket.LocationID, ticket.Device, ticket.AssetTag,
		ticket.ProblemDescription, ticket.VideoLink, ticket.IncidentIQTicketID,
		ticket.IncidentIQTicketNumber, ticket.Subject, ticket.ResolutionNotes, ticket.ClosedAt,
		ticket.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// GetTicket retrieves a ticket by id
func (d *DB) GetTicket(ctx context.Context, id string) (*db.Ticket, error) {
	t, err := scanTicket(d.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// ListTickets retrieves tickets with the given status, newest first. An empty status lists all.
func (d *DB) ListTickets(ctx context.Context, status db.TicketStatus) ([]db.Ticket, error) {
	return d.queryTickets(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`, string(status))
}

// ListTicketsBySchoolID retrieves every ticket raised by a student or staff id, newest first
func (d *DB) ListTicketsBySchoolID(ctx context.Context, schoolID string) ([]db.Ticket, error) {
	return d.queryTickets(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE school_id = $1
		ORDER BY created_at DESC
	`, schoolID)
}

// ListTicketsByAssetTag retrieves every ticket raised for a device, newest first
func (d *DB) ListTicketsByAssetTag(ctx context.Context, assetTag string) ([]db.Ticket, error) {
	return d.queryTickets(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE asset_tag = $1
		ORDER BY created_at DESC
	`, assetTag)
}

func (d *DB) queryTickets(ctx context.Context, query string, args ...any) ([]db.Ticket, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []db.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// CloseTicket closes an open ticket. The status guard lives in the WHERE clause so a
// concurrent close cannot overwrite the first one's notes.
func (d *DB) CloseTicket(ctx context.Context, id, notes string, closedAt time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE tickets
		SET status = $2, resolution_notes = $3, closed_at = $4
		WHERE id = $1 AND status = $5
	`, id, db.StatusClosed, notes, closedAt.UTC(), db.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to close ticket: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := d.GetTicket(ctx, id); err != nil {
		return err
	}
	return db.ErrInvalidTransition
}
