package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CommentInput describes a comment about to be appended.
type CommentInput struct {
	ID      string
	Author  Actor
	Content string
	Minutes int
	Files   []AttachmentReference
	At      time.Time
}

// AppendPublic appends a customer-visible reply. Public replies carry no time.
func (t *Ticket) AppendPublic(in CommentInput) (*Comment, error) {
	in.Minutes = 0
	return t.appendComment(in, VisibilityPublic)
}

// AppendInternal appends an agent-only note with optional time spent.
func (t *Ticket) AppendInternal(in CommentInput) (*Comment, error) {
	if in.Author.Role == RoleCustomer {
		return nil, errorutil.NewUnauthorized("role-forbidden")
	}
	if in.Minutes < 0 {
		return nil, errorutil.NewValidationError("minutes must not be negative", map[string]any{"minutes": in.Minutes})
	}
	return t.appendComment(in, VisibilityInternal)
}

func (t *Ticket) appendComment(in CommentInput, visibility Visibility) (*Comment, error) {
	content, err := ValidateText("content", in.Content, MaxContentLength)
	if err != nil {
		return nil, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if t.NextSeq < 1 {
		t.NextSeq = 1
	}
	comment := Comment{
		ID:         in.ID,
		Seq:        t.NextSeq,
		AuthorID:   in.Author.ID,
		AuthorRole: in.Author.Role,
		Content:    content,
		Visibility: visibility,
		Minutes:    in.Minutes,
		Files:      append([]AttachmentReference(nil), in.Files...),
		CreatedAt:  in.At,
		UpdatedAt:  in.At,
	}
	t.NextSeq++
	t.Comments = append(t.Comments, comment)
	t.RecomputeMinutes()
	t.UpdatedAt = in.At
	return &t.Comments[len(t.Comments)-1], nil
}

// HasComment reports whether the thread holds a comment with id.
func (t *Ticket) HasComment(id string) bool {
	for _, c := range t.Comments {
		if c.ID == id {
			return true
		}
	}
	return false
}

// RecomputeMinutes derives Minutes from the comment thread.
func (t *Ticket) RecomputeMinutes() int {
	total := 0
	for _, c := range t.Comments {
		total += c.Minutes
	}
	t.Minutes = total
	return total
}

// PublicView returns a copy of the ticket with internal comments and
// internal lifecycle events removed.
func (t *Ticket) PublicView() *Ticket {
	cp := t.Clone()
	comments := make([]Comment, 0, len(cp.Comments))
	for _, c := range cp.Comments {
		if c.Internal() {
			continue
		}
		comments = append(comments, c)
	}
	cp.Comments = comments
	events := make([]TicketEvent, 0, len(cp.Events))
	for _, ev := range cp.Events {
		if ev.Internal {
			continue
		}
		events = append(events, ev)
	}
	cp.Events = events
	return cp
}
