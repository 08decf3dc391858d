package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const previewLength = 140

// TicketService coordinates ticket workflows. Every command reads the
// ticket, authorizes, validates, mutates in memory and writes it back with
// a version check. Events go out only after the write succeeded.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	companies   repository.CompanyRepository
	departments repository.DepartmentRepository
	resolver    *AttachmentResolver
	notifier    events.Notifier
	logger      *zap.Logger
	limits      config.TicketsConfig
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	FileRepo       repository.FileRepository
	UserRepo       repository.UserRepository
	CompanyRepo    repository.CompanyRepository
	DepartmentRepo repository.DepartmentRepository
	Notifier       events.Notifier
	Logger         *zap.Logger
	Limits         config.TicketsConfig
	Clock          func() time.Time
}

// CreateTicketInput describes ticket creation payload. CustomerID may be
// left empty when a customer files for themselves.
type CreateTicketInput struct {
	CustomerID   string
	DepartmentID string
	Subject      string
	Content      string
	Priority     domain.TicketPriority
	Status       string
	FileIDs      []string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	DepartmentID *string
	AgentID      *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Limit        int
	Offset       int
}

// TicketView is a ticket as a given actor may see it, with its company and
// department resolved.
type TicketView struct {
	Ticket     *domain.Ticket
	Company    *domain.Company
	Department *domain.Department
}

// CommentResult is returned by the comment commands.
type CommentResult struct {
	Ticket  *TicketView
	Comment domain.Comment
}

type commentCommand struct {
	op      policy.Operation
	content string
	minutes int
	fileIDs []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	limits := deps.Limits
	if limits.ReplyMaxFiles <= 0 {
		limits.ReplyMaxFiles = 3
	}
	if limits.CreateMaxFiles <= 0 {
		limits.CreateMaxFiles = 10
	}
	if limits.ConflictRetries < 0 {
		limits.ConflictRetries = 0
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		companies:   deps.CompanyRepo,
		departments: deps.DepartmentRepo,
		resolver:    NewAttachmentResolver(deps.FileRepo, logger),
		notifier:    deps.Notifier,
		logger:      logger,
		limits:      limits,
		now:         clock,
	}
}

// Create files a new ticket. Customers file for themselves; staff file on
// behalf of a customer named in the input.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*TicketView, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" && actor.Role == domain.RoleCustomer {
		customerID = actor.ID
	}
	draft := &domain.Ticket{CustomerID: customerID}
	if decision := policy.Authorize(actor, draft, policy.OpCreate); !decision.Allowed {
		return nil, s.deny(actor, "", policy.OpCreate, decision)
	}
	if customerID == "" {
		return nil, errorutil.NewValidationError("customer_id required", nil)
	}
	if input.Status != "" {
		if _, err := domain.ParseTicketStatus(input.Status); err != nil {
			return nil, err
		}
	}

	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		return nil, lookupError(err, "customer")
	}
	if customer.Role != domain.RoleCustomer || customer.CompanyID == nil {
		return nil, errorutil.NewValidationError("customer must belong to a company", map[string]any{"customer_id": customerID})
	}
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		return nil, lookupError(err, "department")
	}
	if !dept.IsActive {
		return nil, errorutil.NewValidationError("department inactive", map[string]any{"department_id": dept.ID})
	}
	company, err := s.companies.GetByID(ctx, *customer.CompanyID)
	if err != nil {
		return nil, lookupError(err, "company")
	}

	now := s.now()
	ticket, err := domain.NewTicket(domain.NewTicketParams{
		ID:           uuid.NewString(),
		Subject:      input.Subject,
		Content:      input.Content,
		Priority:     input.Priority,
		DepartmentID: dept.ID,
		CompanyID:    company.ID,
		CustomerID:   customer.ID,
		At:           now,
	})
	if err != nil {
		return nil, err
	}

	target := domain.AttachmentTarget{Kind: domain.BindingTicket, ID: ticket.ID, TicketID: ticket.ID}
	refs, err := s.resolver.Resolve(ctx, input.FileIDs, actor, s.limits.CreateMaxFiles, target)
	if err != nil {
		return nil, err
	}
	ticket.Files = refs

	recorded := ticket.Record(domain.TicketEvent{
		ID:         uuid.NewString(),
		Name:       domain.EventTicketCreated,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		NewValue:   string(ticket.Status),
		OccurredAt: now,
	})
	if err := s.tickets.Create(ctx, ticket); err != nil {
		err = storageError(err)
		s.releaseUnlessStored(ctx, err, ticket.ID, refs, func(*domain.Ticket) bool { return true })
		return nil, err
	}

	s.publish(ctx, []events.Event{toEvent(ticket.ID, recorded, events.TicketCreatedPayload{
		DepartmentID: ticket.DepartmentID,
		CompanyID:    ticket.CompanyID,
		CustomerID:   ticket.CustomerID,
		Priority:     ticket.Priority,
		Subject:      ticket.Subject,
		FileCount:    len(ticket.Files),
	})})
	return &TicketView{Ticket: s.project(actor, ticket), Company: company, Department: dept}, nil
}

// ReplyAsCustomer appends a public reply from the ticket's customer.
func (s *TicketService) ReplyAsCustomer(ctx context.Context, actor domain.Actor, ticketID, content string, fileIDs []string) (*CommentResult, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, s.deny(actor, ticketID, policy.OpReplyPublic, policy.Decision{Reason: policy.ReasonRoleForbidden})
	}
	return s.addComment(ctx, actor, ticketID, commentCommand{op: policy.OpReplyPublic, content: content, fileIDs: fileIDs})
}

// ReplyAsAgent appends a public reply from support staff.
func (s *TicketService) ReplyAsAgent(ctx context.Context, actor domain.Actor, ticketID, content string, fileIDs []string) (*CommentResult, error) {
	if !actor.Role.IsStaff() {
		return nil, s.deny(actor, ticketID, policy.OpReplyPublic, policy.Decision{Reason: policy.ReasonRoleForbidden})
	}
	return s.addComment(ctx, actor, ticketID, commentCommand{op: policy.OpReplyPublic, content: content, fileIDs: fileIDs})
}

// AddInternalNote appends an agent-only note, optionally logging time spent.
func (s *TicketService) AddInternalNote(ctx context.Context, actor domain.Actor, ticketID, content string, minutes int, fileIDs []string) (*CommentResult, error) {
	return s.addComment(ctx, actor, ticketID, commentCommand{op: policy.OpReplyInternal, content: content, minutes: minutes, fileIDs: fileIDs})
}

func (s *TicketService) addComment(ctx context.Context, actor domain.Actor, ticketID string, cmd commentCommand) (*CommentResult, error) {
	commentID := uuid.NewString()
	var (
		refs     []domain.AttachmentReference
		resolved bool
		comment  domain.Comment
	)
	ticket, err := s.mutate(ctx, actor, ticketID, cmd.op, func(t *domain.Ticket) ([]events.Event, error) {
		if _, err := domain.ValidateText("content", cmd.content, domain.MaxContentLength); err != nil {
			return nil, err
		}
		if cmd.minutes < 0 {
			return nil, errorutil.NewValidationError("minutes must not be negative", map[string]any{"minutes": cmd.minutes})
		}
		// Files are claimed once; retries after a version conflict reuse the claims.
		if !resolved {
			target := domain.AttachmentTarget{Kind: domain.BindingComment, ID: commentID, TicketID: t.ID}
			var err error
			refs, err = s.resolver.Resolve(ctx, cmd.fileIDs, actor, s.limits.ReplyMaxFiles, target)
			if err != nil {
				return nil, err
			}
			resolved = true
		}

		in := domain.CommentInput{ID: commentID, Author: actor, Content: cmd.content, Minutes: cmd.minutes, Files: refs, At: s.now()}
		var (
			appended *domain.Comment
			err      error
		)
		if cmd.op == policy.OpReplyInternal {
			appended, err = t.AppendInternal(in)
		} else {
			appended, err = t.AppendPublic(in)
		}
		if err != nil {
			return nil, err
		}
		comment = *appended

		recorded := t.Record(domain.TicketEvent{
			ID:         uuid.NewString(),
			Name:       domain.EventTicketCommented,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			CommentID:  comment.ID,
			Internal:   comment.Internal(),
			OccurredAt: in.At,
		})
		return []events.Event{toEvent(t.ID, recorded, events.TicketCommentedPayload{
			CommentID:   comment.ID,
			Seq:         comment.Seq,
			Visibility:  comment.Visibility,
			Internal:    comment.Internal(),
			AuthorID:    comment.AuthorID,
			AuthorRole:  comment.AuthorRole,
			Minutes:     comment.Minutes,
			BodyPreview: stringPreview(comment.Content, previewLength),
		})}, nil
	})
	if err != nil {
		s.releaseUnlessStored(ctx, err, ticketID, refs, func(stored *domain.Ticket) bool {
			return stored.HasComment(commentID)
		})
		return nil, err
	}
	return &CommentResult{Ticket: s.view(ctx, actor, ticket), Comment: comment}, nil
}

// releaseUnlessStored gives back claims after a failed write. An unavailable
// store may have committed before failing, so the ticket is re-read first and
// the claims stay when stored reports the write landed or the read fails too.
func (s *TicketService) releaseUnlessStored(ctx context.Context, cause error, ticketID string, refs []domain.AttachmentReference, stored func(*domain.Ticket) bool) {
	if len(refs) == 0 {
		return
	}
	if errorutil.CodeOf(cause) == errorutil.CodeUnavailable {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		ticket, err := s.tickets.Get(readCtx, ticketID)
		switch {
		case err == nil && stored(ticket):
			s.logger.Warn("write reported failure but landed, keeping file claims",
				zap.String("ticket_id", ticketID),
				zap.Error(cause))
			return
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			s.logger.Error("cannot confirm ticket write, keeping file claims",
				zap.String("ticket_id", ticketID),
				zap.Int("files", len(refs)),
				zap.Error(err))
			return
		}
	}
	s.resolver.Release(ctx, refs)
}

// AssignAgent sets the ticket's agent. Assigning the current agent again is
// a no-op and emits nothing.
func (s *TicketService) AssignAgent(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*TicketView, error) {
	agentID = strings.TrimSpace(agentID)
	ticket, err := s.mutate(ctx, actor, ticketID, policy.OpReassign, func(t *domain.Ticket) ([]events.Event, error) {
		if agentID == "" {
			return nil, errorutil.NewValidationError("agent_id required", nil)
		}
		agent, err := s.users.GetByID(ctx, agentID)
		if err != nil {
			return nil, lookupError(err, "agent")
		}
		if !agent.Role.IsStaff() || !agent.Active {
			return nil, errorutil.NewValidationError("assignee must be an active agent", map[string]any{"agent_id": agentID})
		}
		at := s.now()
		old, changed := t.AssignAgent(agent.ID, at)
		if !changed {
			return nil, nil
		}
		oldValue := ""
		if old != nil {
			oldValue = *old
		}
		recorded := t.Record(domain.TicketEvent{
			ID:         uuid.NewString(),
			Name:       domain.EventTicketAssigned,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OldValue:   oldValue,
			NewValue:   agent.ID,
			OccurredAt: at,
		})
		return []events.Event{toEvent(t.ID, recorded, events.TicketAssignedPayload{OldAgentID: old, AgentID: agent.ID})}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, ticket), nil
}

// ChangeStatus moves the ticket through the state machine. Moving to the
// current status is a no-op and emits nothing.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID, status string) (*TicketView, error) {
	next := domain.TicketStatus(status)
	ticket, err := s.mutate(ctx, actor, ticketID, policy.StatusOperation(next), func(t *domain.Ticket) ([]events.Event, error) {
		at := s.now()
		old := t.Status
		changed, err := t.Transition(next, at)
		if err != nil || !changed {
			return nil, err
		}
		recorded := t.Record(domain.TicketEvent{
			ID:         uuid.NewString(),
			Name:       domain.EventTicketStatusChanged,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OldValue:   string(old),
			NewValue:   string(next),
			OccurredAt: at,
		})
		return []events.Event{toEvent(t.ID, recorded, events.TicketStatusChangedPayload{OldStatus: old, NewStatus: next})}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, ticket), nil
}

// GetTicket returns the ticket as actor may see it.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketView, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if decision := policy.Authorize(actor, ticket, policy.OpRead); !decision.Allowed {
		return nil, s.deny(actor, ticketID, policy.OpRead, decision)
	}
	return s.view(ctx, actor, ticket), nil
}

// ListTickets returns a page of tickets visible to actor. Customers only
// ever see their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]TicketView, error) {
	repoFilter := repository.TicketFilter{
		DepartmentID: filter.DepartmentID,
		AgentID:      filter.AgentID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	switch {
	case actor.Role == domain.RoleCustomer:
		id := actor.ID
		repoFilter.CustomerID = &id
	case !actor.Role.IsStaff():
		return nil, s.deny(actor, "", policy.OpRead, policy.Decision{Reason: policy.ReasonUnknownRole})
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, storageError(err)
	}
	views := make([]TicketView, 0, len(tickets))
	companies := map[string]*domain.Company{}
	departments := map[string]*domain.Department{}
	for i := range tickets {
		ticket := &tickets[i]
		if decision := policy.Authorize(actor, ticket, policy.OpRead); !decision.Allowed {
			continue
		}
		views = append(views, TicketView{
			Ticket:     s.project(actor, ticket),
			Company:    s.company(ctx, ticket.CompanyID, companies),
			Department: s.department(ctx, ticket.DepartmentID, departments),
		})
	}
	return views, nil
}

// mutate runs fn against the freshest copy of the ticket and writes the
// result back. A version conflict re-reads and re-runs fn up to the
// configured number of retries. fn returning no events means nothing
// changed and nothing is written.
func (s *TicketService) mutate(ctx context.Context, actor domain.Actor, ticketID string, op policy.Operation, fn func(*domain.Ticket) ([]events.Event, error)) (*domain.Ticket, error) {
	for attempt := 0; ; attempt++ {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if decision := policy.Authorize(actor, ticket, op); !decision.Allowed {
			return nil, s.deny(actor, ticketID, op, decision)
		}
		pending, err := fn(ticket)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			return ticket, nil
		}

		err = s.tickets.Put(ctx, ticket)
		if err == nil {
			s.publish(ctx, pending)
			return ticket, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt < s.limits.ConflictRetries {
			s.logger.Debug("ticket version conflict, retrying",
				zap.String("ticket_id", ticketID),
				zap.String("operation", string(op)),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, storageError(err)
	}
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, errorutil.NewValidationError("ticket id required", nil)
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, storageError(err)
	}
	return ticket, nil
}

func (s *TicketService) deny(actor domain.Actor, ticketID string, op policy.Operation, decision policy.Decision) error {
	s.logger.Debug("ticket command denied",
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("ticket_id", ticketID),
		zap.String("operation", string(op)),
		zap.String("reason", string(decision.Reason)))
	return errorutil.NewUnauthorized(string(decision.Reason))
}

// publish hands events to the notifier. Delivery failures never reach the
// caller and the caller's cancellation does not stop delivery.
func (s *TicketService) publish(ctx context.Context, pending []events.Event) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, event := range pending {
		if err := s.notifier.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

func (s *TicketService) project(actor domain.Actor, ticket *domain.Ticket) *domain.Ticket {
	if actor.Role.IsStaff() {
		return ticket.Clone()
	}
	return ticket.PublicView()
}

func (s *TicketService) view(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) *TicketView {
	return &TicketView{
		Ticket:     s.project(actor, ticket),
		Company:    s.company(ctx, ticket.CompanyID, nil),
		Department: s.department(ctx, ticket.DepartmentID, nil),
	}
}

func (s *TicketService) company(ctx context.Context, id string, cache map[string]*domain.Company) *domain.Company {
	if c, ok := cache[id]; ok {
		return c
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("company lookup failed", zap.String("company_id", id), zap.Error(err))
		company = nil
	}
	if cache != nil {
		cache[id] = company
	}
	return company
}

func (s *TicketService) department(ctx context.Context, id string, cache map[string]*domain.Department) *domain.Department {
	if d, ok := cache[id]; ok {
		return d
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("department lookup failed", zap.String("department_id", id), zap.Error(err))
		dept = nil
	}
	if cache != nil {
		cache[id] = dept
	}
	return dept
}

func toEvent(ticketID string, recorded domain.TicketEvent, payload any) events.Event {
	return events.Event{
		ID:        recorded.ID,
		Type:      recorded.Name,
		TicketID:  ticketID,
		Actor:     events.Actor{ID: recorded.ActorID, Role: recorded.ActorRole},
		Timestamp: recorded.OccurredAt,
		Payload:   payload,
	}
}

// storageError maps repository failures onto the caller-facing taxonomy.
func storageError(err error) error {
	var domainErr *errorutil.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound("ticket", nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return errorutil.NewConflict("ticket was modified concurrently", nil)
	default:
		return errorutil.NewUnavailable(err)
	}
}

func lookupError(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.NewNotFound(resource, nil)
	}
	return errorutil.NewUnavailable(err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
