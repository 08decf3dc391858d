// Package policy decides what an actor may do with a ticket.
package policy

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Operation is an action an actor attempts against a ticket.
type Operation string

const (
	OpCreate        Operation = "create"
	OpRead          Operation = "read"
	OpReplyPublic   Operation = "reply-public"
	OpReplyInternal Operation = "reply-internal"
	OpReassign      Operation = "reassign"
	OpChangeStatus  Operation = "change-status"
	OpClose         Operation = "close"
)

// DenyReason explains a denial for logs. It is never shown to callers.
type DenyReason string

const (
	ReasonNotOwner      DenyReason = "not-owner"
	ReasonRoleForbidden DenyReason = "role-forbidden"
	ReasonUnknownRole   DenyReason = "unknown-role"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var (
	allow = Decision{Allowed: true}

	customerOps = map[Operation]bool{
		OpCreate:      true,
		OpRead:        true,
		OpReplyPublic: true,
	}
)

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Authorize maps (actor, ticket, operation) to a decision. For OpCreate the
// ticket is the draft about to be created. It never mutates the ticket.
func Authorize(actor domain.Actor, ticket *domain.Ticket, op Operation) Decision {
	switch actor.Role {
	case domain.RoleAdmin:
		return allow
	case domain.RoleAgent:
		return allow
	case domain.RoleCustomer:
		if !customerOps[op] {
			return deny(ReasonRoleForbidden)
		}
		if ticket == nil || actor.ID == "" || ticket.CustomerID != actor.ID {
			return deny(ReasonNotOwner)
		}
		return allow
	default:
		return deny(ReasonUnknownRole)
	}
}

// StatusOperation returns the operation needed to move a ticket to next.
func StatusOperation(next domain.TicketStatus) Operation {
	if next == domain.TicketStatusClosed {
		return OpClose
	}
	return OpChangeStatus
}
