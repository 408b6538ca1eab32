package db

// EventKind names a record-created channel
type EventKind string

const (
	EventMessageCreated EventKind = "message_created"
	EventWaiverCreated  EventKind = "waiver_created"
)

// Event announces that a record was inserted
type Event struct {
	Kind EventKind
	ID   string
}
