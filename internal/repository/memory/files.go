package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// FileRepository is an in-process file storage collaborator.
type FileRepository struct {
	mu    sync.Mutex
	files map[string]domain.StoredFile
}

// NewFileRepository creates an empty registry.
func NewFileRepository() *FileRepository {
	return &FileRepository{files: make(map[string]domain.StoredFile)}
}

// Add registers an upload.
func (r *FileRepository) Add(file domain.StoredFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.ID] = file
}

func (r *FileRepository) Describe(ctx context.Context, id string) (*domain.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if file.Binding != nil {
		binding := *file.Binding
		file.Binding = &binding
	}
	return &file, nil
}

func (r *FileRepository) Claim(ctx context.Context, id string, target domain.AttachmentTarget, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	if file.Binding != nil {
		return repository.ErrAlreadyClaimed
	}
	file.Binding = &target
	r.files[id] = file
	return nil
}

func (r *FileRepository) Release(ctx context.Context, id string, target domain.AttachmentTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok || file.Binding == nil || file.Binding.ID != target.ID {
		return nil
	}
	file.Binding = nil
	r.files[id] = file
	return nil
}
