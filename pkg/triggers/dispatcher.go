package triggers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// DefaultRetryDelay is how long Run waits before listening again after the source fails
const DefaultRetryDelay = 5 * time.Second

// DefaultHandlerTimeout bounds one event's side effect. Handlers outlive the listener's
// context so a shutdown lets in-flight sends finish.
const DefaultHandlerTimeout = time.Minute

// Source delivers record-created events until ctx is done
type Source interface {
	Listen(ctx context.Context, handle func(context.Context, db.Event)) error
}

// Store defines the database operations the handlers need
type Store interface {
	GetMessage(ctx context.Context, id string) (*db.Message, error)
	GetWaiver(ctx context.Context, id string) (*db.Waiver, error)
	services.NotifyMessageStore
}

// Dispatcher runs the side effects of newly created records
type Dispatcher struct {
	store          Store
	mailer         services.Mailer
	appender       services.RowAppender
	mailCfg        config.MailConfig
	sheetsCfg      config.SheetsConfig
	logger         *zap.Logger
	retryDelay     time.Duration
	handlerTimeout time.Duration
	wg             sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil mailer or appender disables that handler.
func NewDispatcher(
	store Store,
	mailer services.Mailer,
	appender services.RowAppender,
	mailCfg config.MailConfig,
	sheetsCfg config.SheetsConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:          store,
		mailer:         mailer,
		appender:       appender,
		mailCfg:        mailCfg,
		sheetsCfg:      sheetsCfg,
		logger:         logger,
		retryDelay:     DefaultRetryDelay,
		handlerTimeout: DefaultHandlerTimeout,
	}
}

// SetRetryDelay changes the wait between listener restarts
func (d *Dispatcher) SetRetryDelay(delay time.Duration) {
	d.retryDelay = delay
}

// SetHandlerTimeout changes how long one event's handler may run
func (d *Dispatcher) SetHandlerTimeout(timeout time.Duration) {
	d.handlerTimeout = timeout
}

// Run listens on source until ctx is done, restarting the listener after errors.
// It returns once in-flight handlers have finished.
func (d *Dispatcher) Run(ctx context.Context, source Source) {
	defer d.wg.Wait()

	for {
		err := source.Listen(ctx, d.dispatch)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Record listener stopped", zap.Error(err), zap.Duration("retryIn", d.retryDelay))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.retryDelay):
		}
	}
}

// dispatch runs each event's handler on its own goroutine, detached from ctx cancellation
func (d *Dispatcher) dispatch(ctx context.Context, ev db.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.handlerTimeout)
		defer cancel()
		d.Handle(handlerCtx, ev)
	}()
}

// Handle runs the handler for one event. Failures are logged and not retried.
func (d *Dispatcher) Handle(ctx context.Context, ev db.Event) {
	logger := d.logger.With(zap.String("event", string(ev.Kind)), zap.String("id", ev.ID))

	switch ev.Kind {
	case db.EventMessageCreated:
		d.handleMessage(ctx, logger, ev.ID)
	case db.EventWaiverCreated:
		d.handleWaiver(ctx, logger, ev.ID)
	default:
		logger.Warn("Ignoring unknown record event")
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, logger *zap.Logger, id string) {
	if d.mailer == nil {
		logger.Warn("Mail is not configured, skipping message notification")
		return
	}

	msg, err := d.store.GetMessage(ctx, id)
	if err != nil {
		logger.Error("Failed to load message", zap.Error(err))
		return
	}

	if err := services.NotifyMessage(ctx, d.store, d.mailer, d.mailCfg, logger, msg); err != nil {
		logger.Error("Error sending email", zap.Error(err))
	}
}

func (d *Dispatcher) handleWaiver(ctx context.Context, logger *zap.Logger, id string) {
	if d.appender == nil {
		logger.Warn("Sheets is not configured, skipping waiver export")
		return
	}

	waiver, err := d.store.GetWaiver(ctx, id)
	if err != nil {
		logger.Error("Failed to load waiver", zap.Error(err))
		return
	}

	if err := services.ExportWaiver(ctx, d.appender, d.sheetsCfg, logger, waiver); err != nil {
		logger.Error("Error writing waiver to sheet", zap.Error(err))
	}
}
