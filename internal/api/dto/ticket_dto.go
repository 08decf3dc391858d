package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. CustomerID is required when staff file on a
// customer's behalf. Status is accepted for compatibility; new tickets
// always start open.
type CreateTicketRequest struct {
	CustomerID   string                `json:"customer_id"`
	DepartmentID string                `json:"department_id"`
	Subject      string                `json:"subject"`
	Content      string                `json:"content"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       string                `json:"status"`
	Files        []string              `json:"files"`
}

// CreateCommentRequest payload. Internal notes and minutes are staff only.
type CreateCommentRequest struct {
	Content  string   `json:"content"`
	Files    []string `json:"files"`
	Internal bool     `json:"internal"`
	Minutes  int      `json:"minutes"`
}

// AssignAgentRequest payload.
type AssignAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// CompanyRef is the embedded company summary.
type CompanyRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DepartmentRef is the embedded department summary.
type DepartmentRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// FileRef is an attachment reference.
type FileRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string            `json:"_id"`
	User       string            `json:"user"`
	Content    string            `json:"content"`
	Minutes    int               `json:"minutes"`
	Visibility domain.Visibility `json:"visibility"`
	Files      []FileRef         `json:"files"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// TicketResponse is the external ticket representation.
type TicketResponse struct {
	ID         string                `json:"_id"`
	Version    int64                 `json:"__v"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	Company    *CompanyRef           `json:"company"`
	Customer   string                `json:"customer"`
	Agent      *string               `json:"agent"`
	Subject    string                `json:"subject"`
	Content    string                `json:"content"`
	Files      []FileRef             `json:"files"`
	Minutes    int                   `json:"minutes"`
	Comments   []CommentResponse     `json:"comments"`
	Department *DepartmentRef        `json:"department"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// CommentCreatedResponse is returned by POST /tickets/:id/comments.
type CommentCreatedResponse struct {
	Comment CommentResponse `json:"comment"`
	Ticket  TicketResponse  `json:"ticket"`
}
