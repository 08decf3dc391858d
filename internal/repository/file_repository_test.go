package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type existsRow struct {
	exists bool
	err    error
}

func (r existsRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.exists
	return nil
}

// stubFiles answers the claim UPDATE with a fixed tag and the existence
// probe with a fixed row.
type stubFiles struct {
	tag     string
	execErr error
	row     existsRow
	queries int
}

func (s *stubFiles) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(s.tag), s.execErr
}

func (s *stubFiles) QueryRow(context.Context, string, ...any) pgx.Row {
	s.queries++
	return s.row
}

func TestFileClaimOutcomes(t *testing.T) {
	target := domain.AttachmentTarget{Kind: domain.BindingComment, ID: "c-1", TicketID: "t-1"}
	lookupErr := errors.New("connection reset")

	cases := []struct {
		name    string
		store   *stubFiles
		want    error
		queries int
	}{
		{name: "claimed", store: &stubFiles{tag: "UPDATE 1"}, want: nil, queries: 0},
		{name: "bound elsewhere", store: &stubFiles{tag: "UPDATE 0", row: existsRow{exists: true}}, want: ErrAlreadyClaimed, queries: 1},
		{name: "row deleted", store: &stubFiles{tag: "UPDATE 0", row: existsRow{exists: false}}, want: ErrNotFound, queries: 1},
		{name: "existence check fails", store: &stubFiles{tag: "UPDATE 0", row: existsRow{err: lookupErr}}, want: lookupErr, queries: 1},
		{name: "update fails", store: &stubFiles{execErr: lookupErr}, want: lookupErr, queries: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fileRepository{pool: tc.store}
			err := repo.Claim(context.Background(), "f-1", target, "agent-1")
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.queries, tc.store.queries)
		})
	}
}
