package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes ticket commands to customers and staff. Which
// projection a caller receives is decided by the ticket service.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DepartmentID == "" {
		return apperrors.NewValidationError("department_id required", nil)
	}

	view, err := h.service.Create(c.UserContext(), actor, service.CreateTicketInput{
		CustomerID:   req.CustomerID,
		DepartmentID: req.DepartmentID,
		Subject:      req.Subject,
		Content:      req.Content,
		Priority:     req.Priority,
		Status:       req.Status,
		FileIDs:      req.Files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListTickets(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// AddComment POST /tickets/:id/comments. Customers always reply publicly;
// staff reply publicly or leave an internal note.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ctx := c.UserContext()
	ticketID := c.Params("id")
	var result *service.CommentResult
	switch {
	case req.Internal:
		result, err = h.service.AddInternalNote(ctx, actor, ticketID, req.Content, req.Minutes, req.Files)
	case actor.Role == domain.RoleCustomer:
		result, err = h.service.ReplyAsCustomer(ctx, actor, ticketID, req.Content, req.Files)
	default:
		result, err = h.service.ReplyAsAgent(ctx, actor, ticketID, req.Content, req.Files)
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentCreatedResponse{
		Comment: commentResponse(&result.Comment),
		Ticket:  ticketResponse(result.Ticket),
	}})
}

// AssignAgent PUT /tickets/:id/agent.
func (h *TicketsHandler) AssignAgent(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.AssignAgent(c.UserContext(), actor, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// ChangeStatus PUT /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthenticated("authentication required")
	}
	return actor, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if dept := c.Query("department_id"); dept != "" {
		filter.DepartmentID = &dept
	}
	if agent := c.Query("agent_id"); agent != "" {
		filter.AgentID = &agent
	}
	page := parseInt(c.Query("page"), 1)
	// Clamp before computing the offset so consecutive pages stay contiguous.
	pageSize, _ := repository.NormalizePage(parseInt(c.Query("page_size"), 20), 0)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	ticket := view.Ticket
	resp := dto.TicketResponse{
		ID:        ticket.ID,
		Version:   ticket.Version,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		Customer:  ticket.CustomerID,
		Agent:     ticket.AgentID,
		Subject:   ticket.Subject,
		Content:   ticket.Content,
		Files:     fileRefs(ticket.Files),
		Minutes:   ticket.Minutes,
		Comments:  make([]dto.CommentResponse, 0, len(ticket.Comments)),
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
	if view.Company != nil {
		resp.Company = &dto.CompanyRef{ID: view.Company.ID, Name: view.Company.Name, Email: view.Company.Email}
	} else {
		resp.Company = &dto.CompanyRef{ID: ticket.CompanyID}
	}
	if view.Department != nil {
		resp.Department = &dto.DepartmentRef{ID: view.Department.ID, Name: view.Department.Name}
	} else {
		resp.Department = &dto.DepartmentRef{ID: ticket.DepartmentID}
	}
	for i := range ticket.Comments {
		resp.Comments = append(resp.Comments, commentResponse(&ticket.Comments[i]))
	}
	return resp
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		User:       comment.AuthorID,
		Content:    comment.Content,
		Minutes:    comment.Minutes,
		Visibility: comment.Visibility,
		Files:      fileRefs(comment.Files),
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

func fileRefs(refs []domain.AttachmentReference) []dto.FileRef {
	out := make([]dto.FileRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, dto.FileRef{ID: ref.FileID, Name: ref.Name, MimeType: ref.MimeType})
	}
	return out
}
