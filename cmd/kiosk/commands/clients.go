package commands

import (
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jakechorley/support-kiosk/pkg/api"
	"github.com/jakechorley/support-kiosk/pkg/auth"
	"github.com/jakechorley/support-kiosk/pkg/clients/driveclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/gemini"
	"github.com/jakechorley/support-kiosk/pkg/clients/gmailclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/identityclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/incidentiq"
	"github.com/jakechorley/support-kiosk/pkg/clients/sheetsclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/speechclient"
	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/triggers"
	"github.com/jakechorley/support-kiosk/pkg/utils"
)

// newIdentityClient resolves accounts with application default credentials
func newIdentityClient(app *AppContext) (*identityclient.Client, error) {
	httpClient, err := utils.DefaultClient(app.Ctx, utils.ScopeCloudPlatform)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity http client: %w", err)
	}
	return identityclient.NewClient(app.Ctx, option.WithHTTPClient(httpClient))
}

// buildDeps creates every client whose secret is present. Clients that cannot be built are
// left out so their routes report a configuration error.
func buildDeps(app *AppContext) api.Deps {
	cfg := app.Cfg
	secrets := app.Secrets
	logger := app.Logger

	deps := api.Deps{
		Config:     cfg,
		Store:      app.Database,
		Verifier:   auth.NewFirebaseVerifier(cfg.Identity, nil),
		SyncAPIKey: secrets.SheetSyncAPIKey,
		Logger:     logger,
	}

	for _, name := range secrets.Missing() {
		logger.Warn("Secret not set, dependent routes will report a configuration error", zap.String("secret", name))
	}

	if secrets.IncidentIQToken != "" {
		iiq := incidentiq.NewClient(cfg.IncidentIQ, secrets.IncidentIQToken)
		deps.IncidentIQ = iiq
		deps.Directory = iiq
	}

	if secrets.GeminiAPIKey != "" {
		deps.Gemini = gemini.NewClient(cfg.Gemini, secrets.GeminiAPIKey)
	}

	if len(secrets.DriveCredentials) > 0 {
		if drive, err := newDriveClient(app); err != nil {
			logger.Error("Drive client unavailable", zap.Error(err))
		} else {
			deps.Uploader = drive
		}
	}

	if speech, err := newSpeechClient(app); err != nil {
		logger.Error("Speech client unavailable", zap.Error(err))
	} else {
		deps.Transcriber = speech
	}

	if identity, err := newIdentityClient(app); err != nil {
		logger.Error("Identity client unavailable", zap.Error(err))
	} else {
		deps.Identity = identity
	}

	return deps
}

// buildDispatcher wires the record-created handlers to the mail and sheets clients
func buildDispatcher(app *AppContext) *triggers.Dispatcher {
	var mailer services.Mailer
	if client := newMailer(app); client != nil {
		mailer = client
	}
	var appender services.RowAppender
	if client := newAppender(app); client != nil {
		appender = client
	}
	return triggers.NewDispatcher(app.Database, mailer, appender, app.Cfg.Mail, app.Cfg.Sheets, app.Logger)
}

func newDriveClient(app *AppContext) (*driveclient.Client, error) {
	httpClient, err := utils.ServiceAccountClient(app.Ctx, app.Secrets.DriveCredentials, utils.ScopeDrive)
	if err != nil {
		return nil, err
	}
	return driveclient.NewClient(app.Ctx, app.Cfg.Drive.FolderID, app.Cfg.Drive.MimeType, option.WithHTTPClient(httpClient))
}

func newSpeechClient(app *AppContext) (*speechclient.Client, error) {
	httpClient, err := utils.DefaultClient(app.Ctx, utils.ScopeCloudPlatform)
	if err != nil {
		return nil, err
	}
	return speechclient.NewClient(app.Ctx, option.WithHTTPClient(httpClient))
}

func newMailer(app *AppContext) *gmailclient.Client {
	if len(app.Secrets.GmailCredentials) == 0 {
		return nil
	}
	mail := app.Cfg.Mail
	httpClient, err := utils.ImpersonatingClient(app.Ctx, app.Secrets.GmailCredentials, mail.Sender, utils.ScopeGmailSend)
	if err != nil {
		app.Logger.Error("Gmail client unavailable", zap.Error(err))
		return nil
	}
	client, err := gmailclient.NewClient(app.Ctx, gmailclient.Address{Name: mail.FromName, Email: mail.Sender}, option.WithHTTPClient(httpClient))
	if err != nil {
		app.Logger.Error("Gmail client unavailable", zap.Error(err))
		return nil
	}
	return client
}

func newAppender(app *AppContext) *sheetsclient.Client {
	if len(app.Secrets.SheetsCredentials) == 0 {
		return nil
	}
	httpClient, err := utils.ServiceAccountClient(app.Ctx, app.Secrets.SheetsCredentials, utils.ScopeSheets)
	if err != nil {
		app.Logger.Error("Sheets client unavailable", zap.Error(err))
		return nil
	}
	client, err := sheetsclient.NewClient(app.Ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		app.Logger.Error("Sheets client unavailable", zap.Error(err))
		return nil
	}
	return client
}
