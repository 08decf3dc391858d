package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// FileRepository is the file storage collaborator: it describes uploads and
// binds them to tickets or comments exactly once.
type FileRepository interface {
	Describe(ctx context.Context, id string) (*domain.StoredFile, error)
	// Claim binds the file to target. It fails with ErrAlreadyClaimed when
	// another binding won, and must be race-free across callers.
	Claim(ctx context.Context, id string, target domain.AttachmentTarget, boundBy string) error
	// Release undoes a claim held by target. Releasing a claim held by
	// someone else is a no-op.
	Release(ctx context.Context, id string, target domain.AttachmentTarget) error
}

// fileStore is the slice of *pgxpool.Pool the file repository needs.
type fileStore interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type fileRepository struct {
	pool fileStore
}

// NewFileRepository constructs repository.
func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &fileRepository{pool: pool}
}

func (r *fileRepository) Describe(ctx context.Context, id string) (*domain.StoredFile, error) {
	const query = `
        SELECT id, owner_id, file_name, mime_type, size_bytes, status, bound_kind, bound_id, bound_ticket_id
        FROM files WHERE id=$1`
	var file domain.StoredFile
	var boundKind, boundID, boundTicket *string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.OwnerID,
		&file.Name,
		&file.MimeType,
		&file.SizeBytes,
		&file.Status,
		&boundKind,
		&boundID,
		&boundTicket,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if boundID != nil {
		target := domain.AttachmentTarget{ID: *boundID}
		if boundKind != nil {
			target.Kind = domain.BindingKind(*boundKind)
		}
		if boundTicket != nil {
			target.TicketID = *boundTicket
		}
		file.Binding = &target
	}
	return &file, nil
}

func (r *fileRepository) Claim(ctx context.Context, id string, target domain.AttachmentTarget, boundBy string) error {
	const query = `
        UPDATE files SET bound_kind=$2, bound_id=$3, bound_ticket_id=$4, bound_by=$5, bound_at=NOW()
        WHERE id=$1 AND bound_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, target.Kind, target.ID, target.TicketID, boundBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM files WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyClaimed
	}
	return nil
}

func (r *fileRepository) Release(ctx context.Context, id string, target domain.AttachmentTarget) error {
	const query = `
        UPDATE files SET bound_kind=NULL, bound_id=NULL, bound_ticket_id=NULL, bound_by=NULL, bound_at=NULL
        WHERE id=$1 AND bound_id=$2`
	_, err := r.pool.Exec(ctx, query, id, target.ID)
	return err
}
