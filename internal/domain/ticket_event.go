package domain

import "time"

// EventName identifies a ticket lifecycle event.
type EventName string

const (
	EventTicketCreated       EventName = "ticket.created"
	EventTicketCommented     EventName = "ticket.commented"
	EventTicketAssigned      EventName = "ticket.assigned"
	EventTicketStatusChanged EventName = "ticket.statusChanged"
)

// TicketEvent is an immutable lifecycle entry kept on the ticket.
type TicketEvent struct {
	ID         string
	Name       EventName
	ActorID    string
	ActorRole  Role
	CommentID  string
	Internal   bool
	OldValue   string
	NewValue   string
	OccurredAt time.Time
}

// Record appends a lifecycle event and returns it.
func (t *Ticket) Record(ev TicketEvent) TicketEvent {
	t.Events = append(t.Events, ev)
	return ev
}
