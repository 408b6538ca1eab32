package checkin

import (
	"errors"
	"fmt"
	"strings"
)

// State is a step of a kiosk check-in session
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingIdentity      State = "awaiting_identity"
	StateConfirmingIdentity    State = "confirming_identity"
	StateSelectingUser         State = "selecting_user"
	StateSelectingAsset        State = "selecting_asset"
	StateAwaitingProblem       State = "awaiting_problem"
	StateAwaitingClarification State = "awaiting_clarification"
	StateSummarizing           State = "summarizing"
	StateConfirmingSummary     State = "confirming_summary"
	StateCreatingTicket        State = "creating_ticket"
	StateDone                  State = "done"
	StateFailed                State = "failed"
)

// Event names an input to the machine
type Event string

const (
	EventStart              Event = "start"
	EventIdentityHeard      Event = "identity_heard"
	EventUsersFound         Event = "users_found"
	EventUserChosen         Event = "user_chosen"
	EventIdentityConfirmed  Event = "identity_confirmed"
	EventIdentityRejected   Event = "identity_rejected"
	EventAssetsLoaded       Event = "assets_loaded"
	EventAssetSelected      Event = "asset_selected"
	EventProblemHeard       Event = "problem_heard"
	EventClarificationHeard Event = "clarification_heard"
	EventSummaryReady       Event = "summary_ready"
	EventSummaryConfirmed   Event = "summary_confirmed"
	EventSummaryRejected    Event = "summary_rejected"
	EventTicketCreated      Event = "ticket_created"
	EventEffectFailed       Event = "effect_failed"
	EventReset              Event = "reset"
)

// Effect is the side effect the caller must run after a step
type Effect string

const (
	EffectNone             Effect = ""
	EffectLookupUser       Effect = "lookup_user"
	EffectLoadAssets       Effect = "load_assets"
	EffectAskClarification Effect = "ask_clarification"
	EffectSummarize        Effect = "summarize"
	EffectCreateTicket     Effect = "create_ticket"
	EffectScheduleReset    Effect = "schedule_reset"
)

// ErrInvalidTransition is returned when an input is not accepted in the current state
var ErrInvalidTransition = errors.New("invalid check-in transition")

// Input is one event fed to the machine.
// Text carries heard speech, Count the number of users or assets an effect returned.
type Input struct {
	Event Event
	Text  string
	Count int
}

// Machine tracks one kiosk session. It is not safe for concurrent use.
type Machine struct {
	state        State
	pending      Effect
	name         string
	problem      string
	followUp     string
	clarified    bool
	lastFailedOn State
}

// NewMachine returns a machine in the idle state
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state
func (m *Machine) State() State { return m.state }

// Pending returns the effect whose result the machine is waiting for
func (m *Machine) Pending() Effect { return m.pending }

// Name returns the identity text heard for this session
func (m *Machine) Name() string { return m.name }

// FailedIn returns the state the session was in when it last failed
func (m *Machine) FailedIn() State { return m.lastFailedOn }

// Conversation returns the problem text, with the clarification answer when one was given
func (m *Machine) Conversation() string {
	if m.followUp == "" {
		return m.problem
	}
	return fmt.Sprintf("Initial: %s\nFollow-up Response: %s", m.problem, m.followUp)
}

// Step applies in and returns the effect to run. On ErrInvalidTransition the state is unchanged.
func (m *Machine) Step(in Input) (Effect, error) {
	if in.Event == EventReset {
		m.reset()
		return EffectNone, nil
	}
	if m.state == StateFailed {
		return EffectNone, ErrInvalidTransition
	}
	if in.Event == EventEffectFailed {
		if m.pending == EffectNone {
			return EffectNone, ErrInvalidTransition
		}
		m.lastFailedOn = m.state
		m.state = StateFailed
		m.pending = EffectNone
		return EffectScheduleReset, nil
	}

	switch m.state {
	case StateIdle:
		if in.Event == EventStart {
			return m.move(StateAwaitingIdentity, EffectNone), nil
		}

	case StateAwaitingIdentity:
		switch {
		case in.Event == EventIdentityHeard && m.pending == EffectNone:
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return EffectNone, ErrInvalidTransition
			}
			m.name = text
			return m.move(StateAwaitingIdentity, EffectLookupUser), nil
		case in.Event == EventUsersFound && m.pending == EffectLookupUser:
			switch {
			case in.Count <= 0:
				return m.move(StateAwaitingIdentity, EffectNone), nil
			case in.Count == 1:
				return m.move(StateConfirmingIdentity, EffectNone), nil
			default:
				return m.move(StateSelectingUser, EffectNone), nil
			}
		}

	case StateSelectingUser:
		switch in.Event {
		case EventUserChosen:
			return m.move(StateConfirmingIdentity, EffectNone), nil
		case EventIdentityRejected:
			return m.move(StateAwaitingIdentity, EffectNone), nil
		}

	case StateConfirmingIdentity:
		switch in.Event {
		case EventIdentityConfirmed:
			return m.move(StateSelectingAsset, EffectLoadAssets), nil
		case EventIdentityRejected:
			return m.move(StateAwaitingIdentity, EffectNone), nil
		}

	case StateSelectingAsset:
		switch {
		case in.Event == EventAssetsLoaded && m.pending == EffectLoadAssets:
			if in.Count <= 0 {
				return m.move(StateAwaitingProblem, EffectNone), nil
			}
			return m.move(StateSelectingAsset, EffectNone), nil
		case in.Event == EventAssetSelected && m.pending == EffectNone:
			return m.move(StateAwaitingProblem, EffectNone), nil
		}

	case StateAwaitingProblem:
		if in.Event == EventProblemHeard {
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return EffectNone, ErrInvalidTransition
			}
			m.problem = text
			m.followUp = ""
			if !m.clarified && NeedsClarification(text) {
				m.clarified = true
				return m.move(StateAwaitingClarification, EffectAskClarification), nil
			}
			return m.move(StateSummarizing, EffectSummarize), nil
		}

	case StateAwaitingClarification:
		if in.Event == EventClarificationHeard && m.pending == EffectAskClarification {
			m.followUp = strings.TrimSpace(in.Text)
			return m.move(StateSummarizing, EffectSummarize), nil
		}

	case StateSummarizing:
		if in.Event == EventSummaryReady && m.pending == EffectSummarize {
			return m.move(StateConfirmingSummary, EffectNone), nil
		}

	case StateConfirmingSummary:
		switch in.Event {
		case EventSummaryConfirmed:
			return m.move(StateCreatingTicket, EffectCreateTicket), nil
		case EventSummaryRejected:
			return m.move(StateAwaitingProblem, EffectNone), nil
		}

	case StateCreatingTicket:
		if in.Event == EventTicketCreated && m.pending == EffectCreateTicket {
			return m.move(StateDone, EffectScheduleReset), nil
		}
	}

	return EffectNone, ErrInvalidTransition
}

func (m *Machine) move(to State, effect Effect) Effect {
	m.state = to
	if effect == EffectScheduleReset {
		m.pending = EffectNone
	} else {
		m.pending = effect
	}
	return effect
}

// reset starts a fresh session at identity entry
func (m *Machine) reset() {
	*m = Machine{state: StateAwaitingIdentity, lastFailedOn: m.lastFailedOn}
}

var cancelPhrases = []string{"cancel", "start over", "never mind", "delete"}

// heardEvents carry speech that may ask to abandon the session
var heardEvents = map[Event]bool{
	EventIdentityHeard:      true,
	EventProblemHeard:       true,
	EventClarificationHeard: true,
}

// IsCancel reports whether heard text asks to abandon the session
func IsCancel(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range cancelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var specificKeywords = []string{"cracked", "broken", "won't", "can't", "not", "won t", "cant"}

// NeedsClarification reports whether a problem description is too vague to summarize.
// Text naming a specific symptom and longer than 30 characters needs no question.
func NeedsClarification(text string) bool {
	lower := strings.ToLower(text)
	specific := false
	for _, kw := range specificKeywords {
		if strings.Contains(lower, kw) {
			specific = true
			break
		}
	}
	return !(specific && len(text) > 30)
}
