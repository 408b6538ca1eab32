package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is a dashboard user's permission level
type Role string

const (
	RoleTechnician Role = "technician"
	RoleLeadership Role = "leadership"
	RoleGuest      Role = "guest"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleTechnician, RoleLeadership, RoleGuest:
		return true
	}
	return false
}

// Assignable reports whether r can be granted through preauthorization
func (r Role) Assignable() bool {
	return r == RoleTechnician || r == RoleLeadership
}

// TicketStatus is the lifecycle state of a ticket
type TicketStatus string

const (
	StatusOpen   TicketStatus = "Open"
	StatusClosed TicketStatus = "Closed"
)

// CanTransition reports whether a ticket may move from s to next. Tickets only ever close.
func (s TicketStatus) CanTransition(next TicketStatus) bool {
	return s == StatusOpen && next == StatusClosed
}

// User represents a dashboard user keyed by identity-provider uid
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Location represents a school or site and the technicians notified for it
type Location struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	AssignedTechEmails []string `json:"assignedTechEmails"`
}

// Ticket represents a kiosk-created support ticket
type Ticket struct {
	ID                     string       `json:"id"`
	CreatedAt              time.Time    `json:"createdAt"`
	Status                 TicketStatus `json:"status"`
	RequestorName          string       `json:"requestorName"`
	SchoolID               string       `json:"schoolId"`
	UserLocation           string       `json:"userLocation"`
	UserID                 string       `json:"userId"`
	LocationID             string       `json:"locationId"`
	Device                 string       `json:"device"`
	AssetTag               string       `json:"assetTag"`
	ProblemDescription     string       `json:"problemDescription"`
	VideoLink              string       `json:"videoLink"`
	IncidentIQTicketID     string       `json:"incidentIqTicketId"`
	IncidentIQTicketNumber string       `json:"incidentIqTicketNumber"`
	Category               string       `json:"category"`
	Subject                string       `json:"subject"`
	ResolutionNotes        string       `json:"resolutionNotes"`
	ClosedAt               *time.Time   `json:"closedAt"`
}

// Message represents a message left at the kiosk for the site's technicians
type Message struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UserName     string    `json:"userName"`
	UserLocation string    `json:"userLocation"`
	SchoolID     string    `json:"schoolId"`
	Summary      string    `json:"summary"`
	VideoLink    string    `json:"videoLink"`
}

// Waiver represents a device waiver request. Timestamp is the source's display string
// and doubles as the deduplication key for spreadsheet syncs.
type Waiver struct {
	ID               string    `json:"id"`
	Timestamp        string    `json:"timestamp"`
	UserName         string    `json:"userName"`
	UserEmail        string    `json:"userEmail"`
	SchoolID         string    `json:"schoolId"`
	UserLocation     string    `json:"userLocation"`
	AssetTag         string    `json:"assetTag"`
	AssetDescription string    `json:"assetDescription"`
	WaiverReason     string    `json:"waiverReason"`
	IsFirstRequest   string    `json:"isFirstRequest"`
	AckFuture        Flag      `json:"ackFuture"`
	AckCare          Flag      `json:"ackCare"`
	AudioLink        string    `json:"audioLink"`
	CreatedAt        time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts string, number and boolean cells for the text columns, since a
// spreadsheet automation sends cell values with their sheet types
func (w *Waiver) UnmarshalJSON(data []byte) error {
	type plain Waiver
	aux := struct {
		*plain
		Timestamp        Text `json:"timestamp"`
		UserName         Text `json:"userName"`
		UserEmail        Text `json:"userEmail"`
		SchoolID         Text `json:"schoolId"`
		UserLocation     Text `json:"userLocation"`
		AssetTag         Text `json:"assetTag"`
		AssetDescription Text `json:"assetDescription"`
		WaiverReason     Text `json:"waiverReason"`
		IsFirstRequest   Text `json:"isFirstRequest"`
		AudioLink        Text `json:"audioLink"`
	}{plain: (*plain)(w)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	w.Timestamp = string(aux.Timestamp)
	w.UserName = string(aux.UserName)
	w.UserEmail = string(aux.UserEmail)
	w.SchoolID = string(aux.SchoolID)
	w.UserLocation = string(aux.UserLocation)
	w.AssetTag = string(aux.AssetTag)
	w.AssetDescription = string(aux.AssetDescription)
	w.WaiverReason = string(aux.WaiverReason)
	w.IsFirstRequest = string(aux.IsFirstRequest)
	w.AudioLink = string(aux.AudioLink)
	return nil
}

// Text is a string that also accepts a number or boolean, keeping its JSON spelling
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("failed to parse text: empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse text: %w", err)
		}
		*t = Text(s)
		return nil
	case '{', '[':
		return fmt.Errorf("failed to parse text %s", string(data))
	}

	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")) {
		*t = Text(data)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to parse text %s", string(data))
	}
	*t = Text(n.String())
	return nil
}

// Flag is a boolean that also accepts the checkbox strings a spreadsheet automation sends
type Flag bool

// UnmarshalJSON accepts true/false, numbers, and strings such as "Yes", "TRUE" or "x"
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
		return nil
	case bytes.Equal(data, []byte("true")):
		*f = true
		return nil
	case bytes.Equal(data, []byte("false")):
		*f = false
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse flag: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1", "x", "on", "checked":
			*f = true
		default:
			*f = false
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to parse flag %s", string(data))
	}
	*f = n != 0
	return nil
}

// YesNo renders the flag the way the waiver spreadsheet records it
func (f Flag) YesNo() string {
	if f {
		return "Yes"
	}
	return "No"
}
