package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/cmd/kiosk/commands"
	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/postgres"
	"github.com/jakechorley/support-kiosk/pkg/utils/logging"
)

var (
	env     string
	envFile string
	logDir  string
	debug   bool
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Support kiosk backend - walk-up help desk services",
		Long:  `Serves the kiosk and dashboard APIs, proxies Incident IQ and Gemini, and runs the record-created handlers.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Flags().Changed("env-file"))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with secrets, the default is ignored when absent")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on the console")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.PreauthorizeCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, secrets, and database. envFileRequired is set when
// --env-file was given explicitly.
func initApp(envFileRequired bool) error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, logging.Options{Dir: logDir, Debug: debug})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Load secrets
	app.Logger.Info("Loading secrets", zap.String("env_file", envFile))
	app.Secrets, err = config.LoadSecrets(envFile, envFileRequired)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	app.Logger.Debug("Secrets loaded", zap.Strings("missing", app.Secrets.Missing()))

	// Initialize database
	url := app.Cfg.DatabaseURL(app.Secrets)
	if url == "" {
		app.Logger.Warn("No database URL configured, using in-memory store")
		app.Database = db.NewMemoryDB()
		return nil
	}

	app.Logger.Info("Connecting to database")
	app.Postgres, err = postgres.NewDB(app.Ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = app.Postgres
	app.Logger.Info("Database initialized successfully")

	return nil
}
