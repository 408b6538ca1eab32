package db

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a ticket cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicate is returned when a unique value already exists
	ErrDuplicate = errors.New("record already exists")
)

// UserStore defines the interface for user database operations
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpsertUser(ctx context.Context, user *User) error
	InsertUserIfAbsent(ctx context.Context, user *User) (*User, error)
	SetUserRole(ctx context.Context, id string, role Role) error
}

// LocationStore defines the interface for location database operations
type LocationStore interface {
	ListLocations(ctx context.Context) ([]Location, error)
	GetLocationByName(ctx context.Context, name string) (*Location, error)
	InsertLocation(ctx context.Context, location *Location) error
	AddTechnician(ctx context.Context, locationID, email string) error
	RemoveTechnician(ctx context.Context, locationID, email string) error
}

// TicketStore defines the interface for ticket database operations
type TicketStore interface {
	InsertTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListTickets(ctx context.Context, status TicketStatus) ([]Ticket, error)
	ListTicketsBySchoolID(ctx context.Context, schoolID string) ([]Ticket, error)
	ListTicketsByAssetTag(ctx context.Context, assetTag string) ([]Ticket, error)
	CloseTicket(ctx context.Context, id, notes string, closedAt time.Time) error
}

// MessageStore defines the interface for message database operations
type MessageStore interface {
	InsertMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context) ([]Message, error)
}

// WaiverStore defines the interface for waiver database operations
type WaiverStore interface {
	InsertWaiver(ctx context.Context, waiver *Waiver) error
	GetWaiver(ctx context.Context, id string) (*Waiver, error)
	ListWaivers(ctx context.Context) ([]Waiver, error)
	WaiverExistsByTimestamp(ctx context.Context, timestamp string) (bool, error)
}

// Database defines the interface for all database operations.
// Both the in-memory db.MemoryDB and postgres.DB implement this interface.
type Database interface {
	UserStore
	LocationStore
	TicketStore
	MessageStore
	WaiverStore
	Listen(ctx context.Context, handle func(context.Context, Event)) error
	Close()
}
