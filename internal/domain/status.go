package domain

import (
	"time"

	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports enum membership.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed
}

// ParseTicketStatus validates a caller-supplied status.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if !status.Valid() {
		return "", errorutil.NewValidationError("invalid status", map[string]any{"status": raw})
	}
	return status, nil
}

// Transition moves the ticket to next. Any non-terminal state may move to any
// other state; a move to the current state is a no-op and reports false.
// Who may call it is decided by the visibility policy.
func (t *Ticket) Transition(next TicketStatus, at time.Time) (bool, error) {
	if !next.Valid() {
		return false, errorutil.NewValidationError("invalid status", map[string]any{"status": next})
	}
	if t.Status.Terminal() {
		return false, errorutil.NewTicketClosed(t.ID)
	}
	if t.Status == next {
		return false, nil
	}
	t.Status = next
	t.UpdatedAt = at
	return true, nil
}
