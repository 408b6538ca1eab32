package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Secrets  *config.Secrets
	Database db.Database
	// Postgres is set when Database is backed by Postgres rather than memory
	Postgres *postgres.DB
	Logger   *zap.Logger
	Ctx      context.Context
}
