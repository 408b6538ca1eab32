package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/core/checkin"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

// BulkCloseNotes is recorded on every ticket closed in bulk
const BulkCloseNotes = "Bulk Closed."

// CreateTicketStore defines the database operations needed to open a ticket
type CreateTicketStore interface {
	InsertTicket(ctx context.Context, ticket *db.Ticket) error
}

// CreateTicket records a ticket raised at the kiosk. New tickets are always Open and
// their subject is built from the device, the issue category and the location.
func CreateTicket(ctx context.Context, store CreateTicketStore, logger *zap.Logger, ticket *db.Ticket) error {
	if ticket.RequestorName == "" || ticket.ProblemDescription == "" {
		return invalid("Missing required fields: requestorName or problemDescription.")
	}

	ticket.ID = ""
	ticket.Status = db.StatusOpen
	ticket.ResolutionNotes = ""
	ticket.ClosedAt = nil
	ticket.Subject = checkin.TicketSubject(ticket.Device, ticket.Category, ticket.UserLocation)

	if err := store.InsertTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	logger.Info("Ticket created",
		zap.String("id", ticket.ID),
		zap.String("subject", ticket.Subject),
		zap.String("incidentIqTicketNumber", ticket.IncidentIQTicketNumber),
		zap.String("location", ticket.UserLocation))

	return nil
}

// CloseTicketStore defines the database operations needed to close tickets
type CloseTicketStore interface {
	CloseTicket(ctx context.Context, id, notes string, closedAt time.Time) error
}

// CloseTicket closes one open ticket with the technician's notes.
// Returns db.ErrNotFound or db.ErrInvalidTransition when it cannot be closed.
func CloseTicket(ctx context.Context, store CloseTicketStore, logger *zap.Logger, id, notes string, now time.Time) error {
	if err := store.CloseTicket(ctx, id, notes, now); err != nil {
		return fmt.Errorf("failed to close ticket %s: %w", id, err)
	}
	logger.Info("Ticket closed", zap.String("id", id))
	return nil
}

// BulkCloseResult lists which tickets a bulk close changed
type BulkCloseResult struct {
	Closed  []string `json:"closed"`
	Skipped []string `json:"skipped"`
}

// BulkCloseTickets closes every open ticket in ids. Unknown or already closed ids are skipped;
// any other failure stops the run and is returned with the tickets closed so far.
func BulkCloseTickets(ctx context.Context, store CloseTicketStore, logger *zap.Logger, ids []string, now time.Time) (*BulkCloseResult, error) {
	if len(ids) == 0 {
		return nil, invalid("Missing required field: ids.")
	}

	result := &BulkCloseResult{Closed: []string{}, Skipped: []string{}}
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		err := store.CloseTicket(ctx, id, BulkCloseNotes, now)
		switch {
		case err == nil:
			result.Closed = append(result.Closed, id)
		case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrInvalidTransition):
			result.Skipped = append(result.Skipped, id)
		default:
			return result, fmt.Errorf("failed to close ticket %s: %w", id, err)
		}
	}

	logger.Info("Bulk close complete",
		zap.Int("closed", len(result.Closed)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
