package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

var channels = []db.EventKind{db.EventMessageCreated, db.EventWaiverCreated}

// Listen holds one pooled connection subscribed to the record-created channels and
// delivers each notification to handle until ctx is cancelled or the connection fails.
// Notifications sent while no listener is connected are not replayed.
func (d *DB) Listen(ctx context.Context, handle func(context.Context, db.Event)) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{string(channel)}.Sanitize()); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		handle(ctx, db.Event{
			Kind: db.EventKind(notification.Channel),
			ID:   notification.Payload,
		})
	}
}
