package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const releaseTimeout = 5 * time.Second

// AttachmentResolver turns caller-supplied file ids into attachment
// references, claiming each file for exactly one ticket or comment.
type AttachmentResolver struct {
	files  repository.FileRepository
	logger *zap.Logger
}

// NewAttachmentResolver constructs the resolver.
func NewAttachmentResolver(files repository.FileRepository, logger *zap.Logger) *AttachmentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentResolver{files: files, logger: logger}
}

// Resolve validates fileIDs for actor and claims them for target, in order.
// Either every file is claimed or none stays claimed.
func (r *AttachmentResolver) Resolve(ctx context.Context, fileIDs []string, actor domain.Actor, max int, target domain.AttachmentTarget) ([]domain.AttachmentReference, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	if len(fileIDs) > max {
		return nil, errorutil.NewAttachmentInvalid("too many files", map[string]any{"max": max, "count": len(fileIDs)})
	}
	seen := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		if id == "" {
			return nil, errorutil.NewAttachmentInvalid("empty file id", nil)
		}
		if _, dup := seen[id]; dup {
			return nil, invalidFile(id, "duplicate")
		}
		seen[id] = struct{}{}
	}

	described := make([]*domain.StoredFile, len(fileIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range fileIDs {
		i, id := i, id
		g.Go(func() error {
			file, err := r.files.Describe(gctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return invalidFile(id, "not-found")
			}
			if err != nil {
				return errorutil.NewUnavailable(err)
			}
			if err := checkFile(file, actor); err != nil {
				return err
			}
			described[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]domain.AttachmentReference, 0, len(described))
	for _, file := range described {
		err := r.files.Claim(ctx, file.ID, target, actor.ID)
		if err != nil {
			r.Release(ctx, refs)
			if errors.Is(err, repository.ErrAlreadyClaimed) {
				return nil, invalidFile(file.ID, "already-bound")
			}
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalidFile(file.ID, "not-found")
			}
			return nil, errorutil.NewUnavailable(err)
		}
		refs = append(refs, domain.AttachmentReference{
			FileID:   file.ID,
			Name:     file.Name,
			MimeType: file.MimeType,
			Target:   target,
			BoundBy:  actor.ID,
		})
	}
	return refs, nil
}

// Release undoes claims taken by Resolve. It runs even when ctx is already
// done, and failures are only logged.
func (r *AttachmentResolver) Release(ctx context.Context, refs []domain.AttachmentReference) {
	if len(refs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	for _, ref := range refs {
		if err := r.files.Release(ctx, ref.FileID, ref.Target); err != nil {
			r.logger.Warn("file claim release failed",
				zap.String("file_id", ref.FileID),
				zap.String("target_id", ref.Target.ID),
				zap.Error(err))
		}
	}
}

func checkFile(file *domain.StoredFile, actor domain.Actor) error {
	switch {
	case file.OwnerID != actor.ID:
		return invalidFile(file.ID, "not-owner")
	case file.Status != domain.FileStatusUploaded:
		return invalidFile(file.ID, "not-uploaded")
	case file.Bound():
		return invalidFile(file.ID, "already-bound")
	}
	return nil
}

func invalidFile(id, reason string) error {
	return errorutil.NewAttachmentInvalid("invalid attachment", map[string]any{"file_id": id, "reason": reason})
}
