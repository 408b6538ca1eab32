package db

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const memoryEventBuffer = 256

// MemoryDB is an in-process Database used by tests and local development.
// Inserted messages and waivers are announced to Listen like the Postgres triggers do.
type MemoryDB struct {
	mu        sync.RWMutex
	users     map[string]User
	locations map[string]Location
	tickets   map[string]Ticket
	messages  map[string]Message
	waivers   map[string]Waiver
	events    chan Event
	now       func() time.Time
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:     make(map[string]User),
		locations: make(map[string]Location),
		tickets:   make(map[string]Ticket),
		messages:  make(map[string]Message),
		waivers:   make(map[string]Waiver),
		events:    make(chan Event, memoryEventBuffer),
		now:       time.Now,
	}
}

// Close is a no-op
func (m *MemoryDB) Close() {}

// Listen delivers record-created events to handle until ctx is cancelled
func (m *MemoryDB) Listen(ctx context.Context, handle func(context.Context, Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			handle(ctx, ev)
		}
	}
}

// publish drops the event when nobody drains the buffer
func (m *MemoryDB) publish(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

// GetUser retrieves a user by uid
func (m *MemoryDB) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ListUsers retrieves all users ordered by email
func (m *MemoryDB) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// UpsertUser inserts or replaces a user
func (m *MemoryDB) UpsertUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[user.ID] = *user
	return nil
}

// InsertUserIfAbsent inserts user unless one already exists with the same uid, and returns the stored record
func (m *MemoryDB) InsertUserIfAbsent(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[user.ID]; ok {
		return &existing, nil
	}
	m.users[user.ID] = *user
	stored := *user
	return &stored, nil
}

// SetUserRole changes the role of an existing user
func (m *MemoryDB) SetUserRole(ctx context.Context, id string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	m.users[id] = user
	return nil
}

// ListLocations retrieves all locations ordered by name
func (m *MemoryDB) ListLocations(ctx context.Context) ([]Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	locations := make([]Location, 0, len(m.locations))
	for _, l := range m.locations {
		l.AssignedTechEmails = slices.Clone(l.AssignedTechEmails)
		locations = append(locations, l)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	return locations, nil
}

// GetLocationByName retrieves the location whose name matches exactly
func (m *MemoryDB) GetLocationByName(ctx context.Context, name string) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.locations {
		if l.Name == name {
			l.AssignedTechEmails = slices.Clone(l.AssignedTechEmails)
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

// InsertLocation inserts a new location. Names are unique.
func (m *MemoryDB) InsertLocation(ctx context.Context, location *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.locations {
		if l.Name == location.Name {
			return ErrDuplicate
		}
	}
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	if location.AssignedTechEmails == nil {
		location.AssignedTechEmails = []string{}
	}

	stored := *location
	stored.AssignedTechEmails = slices.Clone(location.AssignedTechEmails)
	m.locations[location.ID] = stored
	return nil
}

// AddTechnician assigns email to a location. Adding an existing email is a no-op.
func (m *MemoryDB) AddTechnician(ctx context.Context, locationID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locations[locationID]
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(l.AssignedTechEmails, email) {
		l.AssignedTechEmails = append(slices.Clone(l.AssignedTechEmails), email)
	}
	m.locations[locationID] = l
	return nil
}

// RemoveTechnician unassigns email from a location. Removing an absent email is a no-op.
func (m *MemoryDB) RemoveTechnician(ctx context.Context, locationID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locations[locationID]
	if !ok {
		return ErrNotFound
	}
	l.AssignedTechEmails = slices.DeleteFunc(slices.Clone(l.AssignedTechEmails), func(e string) bool {
		return e == email
	})
	m.locations[locationID] = l
	return nil
}

// InsertTicket inserts a new ticket, defaulting id, creation time and status
func (m *MemoryDB) InsertTicket(ctx context.Context, ticket *Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = m.now().UTC()
	}
	if ticket.Status == "" {
		ticket.Status = StatusOpen
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

// GetTicket retrieves a ticket by id
func (m *MemoryDB) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ListTickets retrieves tickets with the given status, newest first. An empty status lists all.
func (m *MemoryDB) ListTickets(ctx context.Context, status TicketStatus) ([]Ticket, error) {
	return m.filterTickets(func(t Ticket) bool {
		return status == "" || t.Status == status
	}), nil
}

// ListTicketsBySchoolID retrieves every ticket raised by a student or staff id, newest first
func (m *MemoryDB) ListTicketsBySchoolID(ctx context.Context, schoolID string) ([]Ticket, error) {
	return m.filterTickets(func(t Ticket) bool {
		return t.SchoolID == schoolID
	}), nil
}

// ListTicketsByAssetTag retrieves every ticket raised for a device, newest first
func (m *MemoryDB) ListTicketsByAssetTag(ctx context.Context, assetTag string) ([]Ticket, error) {
	return m.filterTickets(func(t Ticket) bool {
		return t.AssetTag == assetTag
	}), nil
}

func (m *MemoryDB) filterTickets(keep func(Ticket) bool) []Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tickets := []Ticket{}
	for _, t := range m.tickets {
		if keep(t) {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets
}

// CloseTicket closes an open ticket with resolution notes
func (m *MemoryDB) CloseTicket(ctx context.Context, id, notes string, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if !t.Status.CanTransition(StatusClosed) {
		return ErrInvalidTransition
	}

	closed := closedAt.UTC()
	t.Status = StatusClosed
	t.ResolutionNotes = notes
	t.ClosedAt = &closed
	m.tickets[id] = t
	return nil
}

// InsertMessage inserts a new message and announces it
func (m *MemoryDB) InsertMessage(ctx context.Context, message *Message) error {
	m.mu.Lock()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = m.now().UTC()
	}
	m.messages[message.ID] = *message
	m.mu.Unlock()

	m.publish(Event{Kind: EventMessageCreated, ID: message.ID})
	return nil
}

// GetMessage retrieves a message by id
func (m *MemoryDB) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &msg, nil
}

// ListMessages retrieves all messages, newest first
func (m *MemoryDB) ListMessages(ctx context.Context) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]Message, 0, len(m.messages))
	for _, msg := range m.messages {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.After(messages[j].CreatedAt) })
	return messages, nil
}

// InsertWaiver inserts a new waiver and announces it
func (m *MemoryDB) InsertWaiver(ctx context.Context, waiver *Waiver) error {
	m.mu.Lock()
	if waiver.ID == "" {
		waiver.ID = uuid.NewString()
	}
	if waiver.CreatedAt.IsZero() {
		waiver.CreatedAt = m.now().UTC()
	}
	m.waivers[waiver.ID] = *waiver
	m.mu.Unlock()

	m.publish(Event{Kind: EventWaiverCreated, ID: waiver.ID})
	return nil
}

// GetWaiver retrieves a waiver by id
func (m *MemoryDB) GetWaiver(ctx context.Context, id string) (*Waiver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.waivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

// ListWaivers retrieves all waivers, newest first
func (m *MemoryDB) ListWaivers(ctx context.Context) ([]Waiver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	waivers := make([]Waiver, 0, len(m.waivers))
	for _, w := range m.waivers {
		waivers = append(waivers, w)
	}
	sort.Slice(waivers, func(i, j int) bool { return waivers[i].CreatedAt.After(waivers[j].CreatedAt) })
	return waivers, nil
}

// WaiverExistsByTimestamp reports whether any waiver carries timestamp
func (m *MemoryDB) WaiverExistsByTimestamp(ctx context.Context, timestamp string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.waivers {
		if w.Timestamp == timestamp {
			return true, nil
		}
	}
	return false, nil
}
