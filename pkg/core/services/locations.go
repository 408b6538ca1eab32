package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

var validate = validator.New()

// LocationAdminStore defines the database operations needed to manage locations
type LocationAdminStore interface {
	InsertLocation(ctx context.Context, location *db.Location) error
	AddTechnician(ctx context.Context, locationID, email string) error
	RemoveTechnician(ctx context.Context, locationID, email string) error
}

// AddLocation creates a location with no assigned technicians
func AddLocation(ctx context.Context, store LocationAdminStore, logger *zap.Logger, name string) (*db.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Missing required field: name.")
	}

	location := &db.Location{Name: name, AssignedTechEmails: []string{}}
	if err := store.InsertLocation(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to add location %s: %w", name, err)
	}

	logger.Info("Location added", zap.String("id", location.ID), zap.String("name", name))
	return location, nil
}

// AssignTechnician adds email to the location's notification list
func AssignTechnician(ctx context.Context, store LocationAdminStore, logger *zap.Logger, locationID, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if err := store.AddTechnician(ctx, locationID, email); err != nil {
		return fmt.Errorf("failed to assign %s to location %s: %w", email, locationID, err)
	}

	logger.Info("Technician assigned", zap.String("locationId", locationID), zap.String("email", email))
	return nil
}

// UnassignTechnician removes email from the location's notification list
func UnassignTechnician(ctx context.Context, store LocationAdminStore, logger *zap.Logger, locationID, email string) error {
	email = canonicalEmail(email)
	if email == "" {
		return invalid("Missing required field: email.")
	}

	if err := store.RemoveTechnician(ctx, locationID, email); err != nil {
		return fmt.Errorf("failed to unassign %s from location %s: %w", email, locationID, err)
	}

	logger.Info("Technician unassigned", zap.String("locationId", locationID), zap.String("email", email))
	return nil
}

// canonicalEmail is the form technician emails are stored and matched in
func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmail(email string) (string, error) {
	email = canonicalEmail(email)
	if email == "" {
		return "", invalid("Missing required field: email.")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", invalid("Invalid email address.")
	}
	return email, nil
}
