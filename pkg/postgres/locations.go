package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

const uniqueViolation = "23505"

// ListLocations retrieves all locations ordered by name
func (d *DB) ListLocations(ctx context.Context) ([]db.Location, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, assigned_tech_emails FROM locations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations := []db.Location{}
	for rows.Next() {
		var l db.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.AssignedTechEmails); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

// GetLocationByName retrieves the location whose name matches exactly
func (d *DB) GetLocationByName(ctx context.Context, name string) (*db.Location, error) {
	var l db.Location
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, assigned_tech_emails FROM locations WHERE name = $1
	`, name).Scan(&l.ID, &l.Name, &l.AssignedTechEmails)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

// InsertLocation inserts a new location
func (d *DB) InsertLocation(ctx context.Context, location *db.Location) error {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	if location.AssignedTechEmails == nil {
		location.AssignedTechEmails = []string{}
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO locations (id, name, assigned_tech_emails)
		VALUES ($1, $2, $3)
	`, location.ID, location.Name, location.AssignedTechEmails)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return db.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// AddTechnician appends email to the location's assignees unless already present
func (d *DB) AddTechnician(ctx context.Context, locationID, email string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE locations
		SET assigned_tech_emails = CASE
			WHEN $2 = ANY(assigned_tech_emails) THEN assigned_tech_emails
			ELSE array_append(assigned_tech_emails, $2)
		END
		WHERE id = $1
	`, locationID, email)
	if err != nil {
		return fmt.Errorf("failed to add technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// RemoveTechnician drops email from the location's assignees
func (d *DB) RemoveTechnician(ctx context.Context, locationID, email string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE locations
		SET assigned_tech_emails = array_remove(assigned_tech_emails, $2)
		WHERE id = $1
	`, locationID, email)
	if err != nil {
		return fmt.Errorf("failed to remove technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
