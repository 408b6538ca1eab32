package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

// GetUser retrieves a user by uid
func (d *DB) GetUser(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, name, role FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers retrieves all users ordered by email
func (d *DB) ListUsers(ctx context.Context) ([]db.User, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, email, name, role FROM users ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []db.User{}
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpsertUser inserts or replaces a user
func (d *DB) UpsertUser(ctx context.Context, user *db.User) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role
	`, user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// InsertUserIfAbsent inserts user unless the uid already exists, and returns the stored record
func (d *DB) InsertUserIfAbsent(ctx context.Context, user *db.User) (*db.User, error) {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return d.GetUser(ctx, user.ID)
}

// SetUserRole changes the role of an existing user
func (d *DB) SetUserRole(ctx context.Context, id string, role db.Role) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE users SET role = $2 WHERE id = $1
	`, id, role)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
