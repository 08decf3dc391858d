package domain

import "time"

// Visibility differentiates customer-visible replies from agent-only notes.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// Comment is one entry of a ticket thread. Seq is the ordering key.
type Comment struct {
	ID         string
	Seq        int64
	AuthorID   string
	AuthorRole Role
	Content    string
	Visibility Visibility
	Minutes    int
	Files      []AttachmentReference
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Internal reports whether the comment is hidden from customers.
func (c Comment) Internal() bool {
	return c.Visibility == VisibilityInternal
}

func (c Comment) clone() Comment {
	c.Files = append([]AttachmentReference(nil), c.Files...)
	return c
}
