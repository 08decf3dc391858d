package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by Put when the stored version moved.
	ErrVersionConflict = errors.New("ticket version conflict")
	// ErrAlreadyClaimed is returned when a file is already bound elsewhere.
	ErrAlreadyClaimed = errors.New("file already claimed")
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID   *string
	DepartmentID *string
	AgentID      *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Limit        int
	Offset       int
}

// TicketRepository persists ticket aggregates as versioned documents.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	// Put writes the ticket only if the stored version still equals
	// ticket.Version, then bumps ticket.Version.
	Put(ctx context.Context, ticket *domain.Ticket) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, version, subject, content, status, priority, department_id, company_id,
               customer_id, agent_id, minutes, next_seq, files, comments, events, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	docs, err := encodeDocuments(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, version, subject, content, status, priority, department_id, company_id,
            customer_id, agent_id, minutes, next_seq, files, comments, events, created_at, updated_at)
        VALUES ($1,1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	if _, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Subject,
		ticket.Content,
		ticket.Status,
		ticket.Priority,
		ticket.DepartmentID,
		ticket.CompanyID,
		ticket.CustomerID,
		ticket.AgentID,
		ticket.Minutes,
		ticket.NextSeq,
		docs.files,
		docs.comments,
		docs.events,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

func (r *ticketRepository) Put(ctx context.Context, ticket *domain.Ticket) error {
	docs, err := encodeDocuments(ticket)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET version=version+1, subject=$3, content=$4, status=$5, priority=$6,
            department_id=$7, agent_id=$8, minutes=$9, next_seq=$10, files=$11, comments=$12,
            events=$13, updated_at=$14
        WHERE id=$1 AND version=$2`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Version,
		ticket.Subject,
		ticket.Content,
		ticket.Status,
		ticket.Priority,
		ticket.DepartmentID,
		ticket.AgentID,
		ticket.Minutes,
		ticket.NextSeq,
		docs.files,
		docs.comments,
		docs.events,
		ticket.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// NormalizePage applies the default page size and clamps offsets.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type ticketDocuments struct {
	files    []byte
	comments []byte
	events   []byte
}

func encodeDocuments(ticket *domain.Ticket) (ticketDocuments, error) {
	var docs ticketDocuments
	var err error
	if docs.files, err = json.Marshal(nonNil(ticket.Files)); err != nil {
		return docs, fmt.Errorf("encode files: %w", err)
	}
	if docs.comments, err = json.Marshal(nonNil(ticket.Comments)); err != nil {
		return docs, fmt.Errorf("encode comments: %w", err)
	}
	if docs.events, err = json.Marshal(nonNil(ticket.Events)); err != nil {
		return docs, fmt.Errorf("encode events: %w", err)
	}
	return docs, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var files, comments, evts []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.Version,
		&ticket.Subject,
		&ticket.Content,
		&ticket.Status,
		&ticket.Priority,
		&ticket.DepartmentID,
		&ticket.CompanyID,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.Minutes,
		&ticket.NextSeq,
		&files,
		&comments,
		&evts,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(files, &ticket.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	if err := json.Unmarshal(comments, &ticket.Comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	if err := json.Unmarshal(evts, &ticket.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return &ticket, nil
}
