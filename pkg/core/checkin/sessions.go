package checkin

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an untouched session is kept
const DefaultSessionTTL = 30 * time.Minute

// ErrSessionNotFound is returned for an unknown or expired session id
var ErrSessionNotFound = errors.New("check-in session not found")

// Snapshot is the externally visible state of a session after a step
type Snapshot struct {
	ID           string `json:"id"`
	State        State  `json:"state"`
	Effect       Effect `json:"effect"`
	Pending      Effect `json:"pending"`
	Name         string `json:"name,omitempty"`
	Conversation string `json:"conversation,omitempty"`
	Cancelled    bool   `json:"cancelled,omitempty"`
}

type session struct {
	machine  *Machine
	lastSeen time.Time
}

// Sessions keeps one Machine per kiosk session. Safe for concurrent use.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions creates a session store. Sessions idle longer than ttl are dropped.
func NewSessions(ttl time.Duration, now func() time.Time) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Sessions{sessions: make(map[string]*session), ttl: ttl, now: now}
}

// Start opens a session and moves it to identity entry
func (s *Sessions) Start() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	m := NewMachine()
	effect, _ := m.Step(Input{Event: EventStart})
	id := uuid.NewString()
	s.sessions[id] = &session{machine: m, lastSeen: s.now()}
	return snapshot(id, m, effect, false)
}

// Step feeds in to the session. Heard text asking to cancel resets the session instead.
func (s *Sessions) Step(id string, in Input) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	sess, ok := s.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	sess.lastSeen = s.now()

	cancelled := heardEvents[in.Event] && IsCancel(in.Text)
	if cancelled {
		in = Input{Event: EventReset}
	}

	effect, err := sess.machine.Step(in)
	if err != nil {
		return snapshot(id, sess.machine, EffectNone, false), err
	}
	return snapshot(id, sess.machine, effect, cancelled), nil
}

// End drops a session
func (s *Sessions) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func snapshot(id string, m *Machine, effect Effect, cancelled bool) Snapshot {
	return Snapshot{
		ID:           id,
		State:        m.State(),
		Effect:       effect,
		Pending:      m.Pending(),
		Name:         m.Name(),
		Conversation: m.Conversation(),
		Cancelled:    cancelled,
	}
}
