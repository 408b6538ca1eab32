package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/auth"
	"github.com/jakechorley/support-kiosk/pkg/clients/identityclient"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// PreauthorizeStore defines the database operations needed to grant a role
type PreauthorizeStore interface {
	UpsertUser(ctx context.Context, user *db.User) error
}

// IdentityLookup resolves an identity-provider account by email
type IdentityLookup interface {
	LookupUIDByEmail(ctx context.Context, email string) (string, error)
}

// PreauthorizeUser grants role to the account registered for email, creating or replacing
// its user record. The account must exist but need not have signed in yet.
// Returns identityclient.ErrUserNotFound when no account exists.
func PreauthorizeUser(
	ctx context.Context,
	store PreauthorizeStore,
	identity IdentityLookup,
	logger *zap.Logger,
	email, name string,
	role db.Role,
) (*db.User, error) {
	if email == "" || name == "" || role == "" {
		return nil, invalid("Missing required fields: email, name, or role.")
	}
	if !role.Assignable() {
		return nil, ErrInvalidRole
	}

	uid, err := identity.LookupUIDByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identityclient.ErrUserNotFound) {
			logger.Info("Preauthorize target has no account", zap.String("email", email))
		}
		return nil, fmt.Errorf("failed to resolve account for %s: %w", email, err)
	}

	user := &db.User{ID: uid, Email: email, Name: name, Role: role}
	if err := store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	logger.Info("User preauthorized",
		zap.String("uid", uid),
		zap.String("email", email),
		zap.String("role", string(role)))

	return user, nil
}

// EnsureUserStore defines the database operations needed on sign-in
type EnsureUserStore interface {
	InsertUserIfAbsent(ctx context.Context, user *db.User) (*db.User, error)
}

// EnsureUser returns the caller's user record, creating a guest record on first sign-in
func EnsureUser(ctx context.Context, store EnsureUserStore, logger *zap.Logger, identity *auth.Identity) (*db.User, error) {
	user, err := store.InsertUserIfAbsent(ctx, &db.User{
		ID:    identity.UID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  db.RoleGuest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", identity.UID, err)
	}

	logger.Debug("Resolved signed-in user", zap.String("uid", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// RevokeStore defines the database operations needed to revoke access
type RevokeStore interface {
	SetUserRole(ctx context.Context, id string, role db.Role) error
}

// RevokeUser demotes a user to guest. The record is kept.
func RevokeUser(ctx context.Context, store RevokeStore, logger *zap.Logger, uid string) error {
	if err := store.SetUserRole(ctx, uid, db.RoleGuest); err != nil {
		return fmt.Errorf("failed to revoke user %s: %w", uid, err)
	}
	logger.Info("User access revoked", zap.String("uid", uid))
	return nil
}
