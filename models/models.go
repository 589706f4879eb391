package models

import (
	"time"
)

// Role names as stored in the roles table and carried in the identity token.
const (
	RoleCitizen   = "user"
	RoleRelations = "Municipal public relations officer"
	RoleTechnical = "Technical office staff member"
	RoleExternal  = "External maintainer"
	RoleAdmin     = "Admin"
)

// Identity is the authenticated caller: a stable id plus a role.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Kind returns the identity kind used for room addressing.
func (i Identity) Kind() string {
	if i.Role == RoleCitizen {
		return "citizen"
	}
	return "operator"
}

// IsOperator reports whether the identity is internal staff or an external maintainer.
func (i Identity) IsOperator() bool {
	return i.Role == RoleTechnical || i.Role == RoleExternal
}

// Report status ids. The id space is fixed and referenced by business rules.
const (
	StatusPending    = 1
	StatusApproved   = 2
	StatusRejected   = 3
	StatusInProgress = 4
	StatusResolved   = 5
)

// StatusName maps a status id to its display name.
func StatusName(id int) string {
	switch id {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	}
	return ""
}

// IsTerminalStatus reports whether no further lifecycle mutation is permitted.
// Both Resolved and Rejected block status updates and assignment.
func IsTerminalStatus(id int) bool {
	return id == StatusResolved || id == StatusRejected
}

// CanTransition reports whether moving from current to next is a legal
// lifecycle transition. Terminal states admit no transition; rejection is
// allowed from any non-terminal state.
func CanTransition(current, next int) bool {
	if IsTerminalStatus(current) {
		return false
	}
	if next == StatusRejected {
		return true
	}
	switch current {
	case StatusPending:
		return next == StatusApproved
	case StatusApproved:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusResolved || next == StatusApproved
	}
	return false
}

// Status is a status id with its display name.
type Status struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Message sender types.
const (
	SenderCitizen  = "citizen"
	SenderOperator = "operator"
	SenderSystem   = "system"
)

// SystemSenderID is the synthetic sender id used for system messages.
const SystemSenderID = 0

// UserRef is a minimal reference to a citizen or operator.
type UserRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// OperatorRef is an operator reference with office and company detail.
type OperatorRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	OfficeID int    `json:"office_id,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Photo is an attached photo reference.
type Photo struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Report is the report read model exposed outward.
type Report struct {
	ID                 int          `json:"id"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Latitude           float64      `json:"latitude"`
	Longitude          float64      `json:"longitude"`
	Anonymous          bool         `json:"anonymous"`
	CategoryID         int          `json:"category_id"`
	OfficeID           int          `json:"office_id"`
	Status             Status       `json:"status"`
	RejectionReason    string       `json:"rejection_reason,omitempty"`
	Citizen            *UserRef     `json:"citizen"`
	AssignedToOperator *OperatorRef `json:"assigned_to_operator"`
	AssignedToExternal *OperatorRef `json:"assigned_to_external"`
	Photos             []Photo      `json:"photos"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Message is a chat message belonging to exactly one report thread.
// System messages carry SenderSystem and SystemSenderID and are synthesized
// on status transitions, never written directly by users.
type Message struct {
	ID         int       `json:"id"`
	ReportID   int       `json:"report_id"`
	SenderID   int       `json:"sender_id"`
	SenderType string    `json:"sender_type"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

// Notification is a citizen-facing notification derived from a lifecycle
// transition. CitizenID addresses delivery and never goes on the wire.
type Notification struct {
	ID          int       `json:"id"`
	CitizenID   int       `json:"-"`
	ReportID    int       `json:"report_id"`
	ReportTitle string    `json:"report_title"`
	Message     string    `json:"message"`
	NewStatusID *int      `json:"new_status_id"`
	StatusName  string    `json:"status_name,omitempty"`
	SentAt      time.Time `json:"sent_at"`
	Seen        bool      `json:"seen"`
}

// LastMessage is the most recent message of a thread, shown in chat lists.
type LastMessage struct {
	Content    string    `json:"content"`
	SenderType string    `json:"sender_type"`
	SentAt     time.Time `json:"sent_at"`
}

// ChatSummary is the derived per-report chat annotation. Citizen is only
// populated for operator views and is nil for anonymous reports.
type ChatSummary struct {
	ReportID        int          `json:"report_id"`
	Title           string       `json:"title"`
	StatusID        int          `json:"status_id"`
	StatusName      string       `json:"status_name"`
	ReportCreatedAt time.Time    `json:"report_created_at"`
	Citizen         *UserRef     `json:"citizen,omitempty"`
	LastMessage     *LastMessage `json:"last_message"`
	MessageCount    int          `json:"message_count"`
	LastActivity    time.Time    `json:"last_activity"`
}

// ChatDetails is the thread metadata plus the access-control fields the
// caller uses to authorize.
type ChatDetails struct {
	ReportID    int       `json:"report_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StatusID    int       `json:"status_id"`
	StatusName  string    `json:"status_name"`
	CreatedAt   time.Time `json:"created_at"`
	Citizen     *UserRef  `json:"citizen"`
	Operator    *UserRef  `json:"operator"`
	External    *UserRef  `json:"external"`
	Messages    []Message `json:"messages,omitempty"`
}

// BroadcastMessage is the frame pushed to WebSocket clients.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
	ActiveRooms      int    `json:"active_rooms"`
	EventsDelivered  int    `json:"events_delivered"`
}
