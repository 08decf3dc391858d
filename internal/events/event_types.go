package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType = domain.EventName

const (
	EventTicketCreated       = domain.EventTicketCreated
	EventTicketCommented     = domain.EventTicketCommented
	EventTicketAssigned      = domain.EventTicketAssigned
	EventTicketStatusChanged = domain.EventTicketStatusChanged
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a lifecycle event raised by the ticket aggregate.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Internal reports whether the event must stay off customer-facing channels.
func (e Event) Internal() bool {
	if p, ok := e.Payload.(TicketCommentedPayload); ok {
		return p.Internal
	}
	return false
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID string                `json:"department_id"`
	CompanyID    string                `json:"company_id"`
	CustomerID   string                `json:"customer_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Subject      string                `json:"subject"`
	FileCount    int                   `json:"file_count"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID   string            `json:"comment_id"`
	Seq         int64             `json:"seq"`
	Visibility  domain.Visibility `json:"visibility"`
	Internal    bool              `json:"internal"`
	AuthorID    string            `json:"author_id"`
	AuthorRole  domain.Role       `json:"author_role"`
	Minutes     int               `json:"minutes"`
	BodyPreview string            `json:"body_preview"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAgentID *string `json:"old_agent_id,omitempty"`
	AgentID    string  `json:"agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
