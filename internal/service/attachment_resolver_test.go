package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type unreachableFiles struct {
	*memory.FileRepository
}

func (unreachableFiles) Describe(context.Context, string) (*domain.StoredFile, error) {
	return nil, errors.New("storage timeout")
}

func TestResolverClaimsInOrder(t *testing.T) {
	files := memory.NewFileRepository()
	for _, id := range []string{"a", "b"} {
		files.Add(domain.StoredFile{ID: id, OwnerID: "u1", Name: id, Status: domain.FileStatusUploaded})
	}
	r := NewAttachmentResolver(files, nil)
	target := domain.AttachmentTarget{Kind: domain.BindingComment, ID: "c1", TicketID: "t1"}

	refs, err := r.Resolve(context.Background(), []string{"b", "a"}, domain.Actor{ID: "u1"}, 3, target)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "b", refs[0].FileID)
	assert.Equal(t, "a", refs[1].FileID)
	assert.Equal(t, "u1", refs[0].BoundBy)

	r.Release(context.Background(), refs)
	file, err := files.Describe(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, file.Bound())
}

func TestResolverRejections(t *testing.T) {
	files := memory.NewFileRepository()
	files.Add(domain.StoredFile{ID: "ok", OwnerID: "u1", Status: domain.FileStatusUploaded})
	files.Add(domain.StoredFile{ID: "gone", OwnerID: "u1", Status: domain.FileStatusDeleted})
	r := NewAttachmentResolver(files, nil)
	target := domain.AttachmentTarget{Kind: domain.BindingTicket, ID: "t1", TicketID: "t1"}
	owner := domain.Actor{ID: "u1"}

	cases := map[string][]string{
		"empty id":   {""},
		"duplicates": {"ok", "ok"},
		"too many":   {"ok", "a", "b", "c"},
		"missing":    {"nope"},
		"deleted":    {"gone"},
	}
	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), ids, owner, 3, target)
			assert.Equal(t, errorutil.CodeAttachmentInvalid, errorutil.CodeOf(err))
		})
	}

	_, err := r.Resolve(context.Background(), []string{"ok"}, domain.Actor{ID: "u2"}, 3, target)
	assert.Equal(t, errorutil.CodeAttachmentInvalid, errorutil.CodeOf(err))

	refs, err := r.Resolve(context.Background(), nil, owner, 3, target)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestResolverCollaboratorFailureIsUnavailable(t *testing.T) {
	r := NewAttachmentResolver(unreachableFiles{memory.NewFileRepository()}, nil)
	_, err := r.Resolve(context.Background(), []string{"f1"}, domain.Actor{ID: "u1"}, 3, domain.AttachmentTarget{ID: "c1"})
	assert.Equal(t, errorutil.CodeUnavailable, errorutil.CodeOf(err))
}
