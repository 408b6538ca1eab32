package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/api"
	"github.com/jakechorley/support-kiosk/pkg/utils/telemetry"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the record-created handlers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrate && app.Postgres != nil {
				applied, err := app.Postgres.RunMigrations(ctx)
				if err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
				app.Logger.Info("Migrations applied", zap.Strings("migrations", applied))
			}

			shutdownTelemetry, err := telemetry.Setup(ctx, app.Cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTelemetry(flushCtx); err != nil {
					app.Logger.Warn("Failed to flush telemetry", zap.Error(err))
				}
			}()

			server := api.NewServer(buildDeps(app))
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", app.Cfg.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			dispatcher := buildDispatcher(app)
			dispatcherDone := make(chan struct{})
			go func() {
				defer close(dispatcherDone)
				dispatcher.Run(ctx, app.Database)
			}()

			serveErr := make(chan error, 1)
			go func() {
				app.Logger.Info("Listening", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
				app.Logger.Info("Shutting down")
			case err := <-serveErr:
				if err != nil {
					stop()
					<-dispatcherDone
					return fmt.Errorf("failed to serve: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("Failed to shut down HTTP server", zap.Error(err))
			}
			<-dispatcherDone

			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	return cmd
}
