package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports enum membership.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

const (
	MaxSubjectLength = 60
	MaxContentLength = 500
)

// Ticket is the aggregate root for a support request. Comments, attachment
// references and lifecycle events are owned child records kept in insertion
// order.
type Ticket struct {
	ID           string
	Version      int64
	Subject      string
	Content      string
	Status       TicketStatus
	Priority     TicketPriority
	DepartmentID string
	CompanyID    string
	CustomerID   string
	AgentID      *string
	Minutes      int
	NextSeq      int64
	Files        []AttachmentReference
	Comments     []Comment
	Events       []TicketEvent
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTicketParams carries the validated inputs for a fresh ticket.
type NewTicketParams struct {
	ID           string
	Subject      string
	Content      string
	Priority     TicketPriority
	DepartmentID string
	CompanyID    string
	CustomerID   string
	Files        []AttachmentReference
	At           time.Time
}

// NewTicket builds a ticket in the open state.
func NewTicket(p NewTicketParams) (*Ticket, error) {
	subject, err := ValidateText("subject", p.Subject, MaxSubjectLength)
	if err != nil {
		return nil, err
	}
	content, err := ValidateText("content", p.Content, MaxContentLength)
	if err != nil {
		return nil, err
	}
	priority := p.Priority
	if priority == "" {
		priority = TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	if p.CustomerID == "" || p.DepartmentID == "" || p.CompanyID == "" {
		return nil, errorutil.NewValidationError("customer, department and company required", nil)
	}
	return &Ticket{
		ID:           p.ID,
		Subject:      subject,
		Content:      content,
		Status:       TicketStatusOpen,
		Priority:     priority,
		DepartmentID: p.DepartmentID,
		CompanyID:    p.CompanyID,
		CustomerID:   p.CustomerID,
		Files:        append([]AttachmentReference(nil), p.Files...),
		NextSeq:      1,
		CreatedAt:    p.At,
		UpdatedAt:    p.At,
	}, nil
}

// AssignAgent sets the assigned agent. It reports the previous assignee and
// whether anything changed.
func (t *Ticket) AssignAgent(agentID string, at time.Time) (*string, bool) {
	old := t.AgentID
	if old != nil && *old == agentID {
		return old, false
	}
	id := agentID
	t.AgentID = &id
	t.UpdatedAt = at
	return old, true
}

// Clone returns a deep copy safe to hand to another goroutine.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AgentID != nil {
		agent := *t.AgentID
		cp.AgentID = &agent
	}
	cp.Files = append([]AttachmentReference(nil), t.Files...)
	cp.Comments = make([]Comment, len(t.Comments))
	for i := range t.Comments {
		cp.Comments[i] = t.Comments[i].clone()
	}
	cp.Events = append([]TicketEvent(nil), t.Events...)
	return &cp
}

// ValidateText trims and bounds a required free-text field.
func ValidateText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errorutil.NewValidationError(field+" required", map[string]any{"field": field})
	}
	if utf8.RuneCountInString(value) > max {
		return "", errorutil.NewValidationError(field+" too long", map[string]any{"field": field, "max": max})
	}
	return value, nil
}
