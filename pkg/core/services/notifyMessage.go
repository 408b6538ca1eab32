package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/clients/gmailclient"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// NotifyMessageStore defines the database operations needed to route a message
type NotifyMessageStore interface {
	GetLocationByName(ctx context.Context, name string) (*db.Location, error)
}

// Mailer sends HTML email
type Mailer interface {
	SendHTML(ctx context.Context, email gmailclient.Email) error
}

var messageEmailTemplate = template.Must(template.New("message").Parse(`
<p>You have received a new message via the support kiosk.</p>
<ul>
    <li><strong>From:</strong> {{.UserName}}</li>
    <li><strong>School ID:</strong> {{if .SchoolID}}{{.SchoolID}}{{else}}Not provided{{end}}</li>
    <li><strong>Location:</strong> {{.UserLocation}}</li>
</ul>
<hr>
<h3>AI Summary of Message:</h3>
<p><em>{{.Summary}}</em></p>
<hr>
<p><a href="{{.VideoLink}}">Click here to watch the full video message.</a></p>
`))

// NotifyMessage emails the technicians assigned to the message's location, or the fallback
// address when the location is unknown or unstaffed. A message without a location is skipped.
func NotifyMessage(
	ctx context.Context,
	store NotifyMessageStore,
	mailer Mailer,
	cfg config.MailConfig,
	logger *zap.Logger,
	msg *db.Message,
) error {
	if msg == nil || msg.UserLocation == "" {
		logger.Info("New message is missing data or location, not notifying")
		return nil
	}

	recipients, err := messageRecipients(ctx, store, cfg, logger, msg.UserLocation)
	if err != nil {
		return err
	}

	email, err := buildMessageEmail(cfg, msg, recipients)
	if err != nil {
		return err
	}

	if err := mailer.SendHTML(ctx, email); err != nil {
		return fmt.Errorf("failed to send message email: %w", err)
	}

	logger.Info("Message email sent",
		zap.String("messageId", msg.ID),
		zap.Strings("to", recipients),
		zap.String("bcc", cfg.Bcc))

	return nil
}

// messageRecipients returns the location's assigned technicians, falling back when there are none
func messageRecipients(
	ctx context.Context,
	store NotifyMessageStore,
	cfg config.MailConfig,
	logger *zap.Logger,
	locationName string,
) ([]string, error) {
	location, err := store.GetLocationByName(ctx, locationName)
	if errors.Is(err, db.ErrNotFound) {
		logger.Warn("No location matches message, sending to fallback", zap.String("location", locationName))
		return []string{cfg.FallbackTo}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up location %s: %w", locationName, err)
	}

	if len(location.AssignedTechEmails) == 0 {
		logger.Warn("Location has no assigned technicians, sending to fallback", zap.String("location", locationName))
		return []string{cfg.FallbackTo}, nil
	}

	return location.AssignedTechEmails, nil
}

func buildMessageEmail(cfg config.MailConfig, msg *db.Message, recipients []string) (gmailclient.Email, error) {
	var body bytes.Buffer
	if err := messageEmailTemplate.Execute(&body, msg); err != nil {
		return gmailclient.Email{}, fmt.Errorf("failed to render message email: %w", err)
	}

	email := gmailclient.Email{
		To:      recipients,
		Subject: fmt.Sprintf("New Message from %s at %s", msg.UserName, msg.UserLocation),
		HTML:    body.String(),
	}
	if cfg.Bcc != "" {
		email.Bcc = []string{cfg.Bcc}
	}
	return email, nil
}
