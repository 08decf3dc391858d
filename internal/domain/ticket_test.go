package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	testNow      = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testCustomer = Actor{ID: "cust-1", Role: RoleCustomer, CompanyID: "co-1"}
	testAgent    = Actor{ID: "agent-1", Role: RoleAgent}
)

func newTestTicket(t *testing.T) *Ticket {
	t.Helper()
	ticket, err := NewTicket(NewTicketParams{
		ID:           "t-1",
		Subject:      "Login broken",
		Content:      "I cannot sign in since this morning",
		Priority:     TicketPriorityHigh,
		DepartmentID: "dep-1",
		CompanyID:    "co-1",
		CustomerID:   testCustomer.ID,
		At:           testNow,
	})
	require.NoError(t, err)
	return ticket
}

func TestNewTicket(t *testing.T) {
	ticket := newTestTicket(t)
	assert.Equal(t, TicketStatusOpen, ticket.Status)
	assert.Equal(t, 0, ticket.Minutes)
	assert.Empty(t, ticket.Comments)
	assert.Equal(t, int64(1), ticket.NextSeq)

	t.Run("defaults priority", func(t *testing.T) {
		tk, err := NewTicket(NewTicketParams{Subject: "s", Content: "c", DepartmentID: "d", CompanyID: "c", CustomerID: "u"})
		require.NoError(t, err)
		assert.Equal(t, TicketPriorityMedium, tk.Priority)
	})

	cases := []struct {
		name   string
		params NewTicketParams
	}{
		{"subject too long", NewTicketParams{Subject: strings.Repeat("x", 61), Content: "c", DepartmentID: "d", CompanyID: "c", CustomerID: "u"}},
		{"blank subject", NewTicketParams{Subject: "   ", Content: "c", DepartmentID: "d", CompanyID: "c", CustomerID: "u"}},
		{"missing content", NewTicketParams{Subject: "s", DepartmentID: "d", CompanyID: "c", CustomerID: "u"}},
		{"bad priority", NewTicketParams{Subject: "s", Content: "c", Priority: "urgent", DepartmentID: "d", CompanyID: "c", CustomerID: "u"}},
		{"no customer", NewTicketParams{Subject: "s", Content: "c", DepartmentID: "d", CompanyID: "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTicket(tc.params)
			assert.Equal(t, errorutil.CodeValidation, errorutil.CodeOf(err))
		})
	}
}

func TestTransition(t *testing.T) {
	ticket := newTestTicket(t)

	changed, err := ticket.Transition(TicketStatusPending, testNow)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ticket.Transition(TicketStatusPending, testNow)
	require.NoError(t, err)
	assert.False(t, changed, "same status is a no-op")

	changed, err = ticket.Transition(TicketStatusOpen, testNow)
	require.NoError(t, err)
	assert.True(t, changed, "non-closed states may move backwards")

	_, err = ticket.Transition("reopened", testNow)
	assert.Equal(t, errorutil.CodeValidation, errorutil.CodeOf(err))

	_, err = ticket.Transition(TicketStatusClosed, testNow)
	require.NoError(t, err)

	for _, next := range []TicketStatus{TicketStatusOpen, TicketStatusClosed, TicketStatusResolved} {
		_, err = ticket.Transition(next, testNow)
		assert.Equal(t, errorutil.CodeTicketClosed, errorutil.CodeOf(err), "from closed to %s", next)
	}
}

func TestLedger(t *testing.T) {
	ticket := newTestTicket(t)

	reply, err := ticket.AppendPublic(CommentInput{Author: testCustomer, Content: "any news?", Minutes: 30, At: testNow})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply.Seq)
	assert.Equal(t, 0, reply.Minutes, "public replies never carry time")
	assert.Equal(t, RoleCustomer, reply.AuthorRole)

	note, err := ticket.AppendInternal(CommentInput{Author: testAgent, Content: "checked logs", Minutes: 15, At: testNow})
	require.NoError(t, err)
	assert.Equal(t, int64(2), note.Seq)
	assert.True(t, note.Internal())

	_, err = ticket.AppendInternal(CommentInput{Author: testAgent, Content: "more", Minutes: 10, At: testNow})
	require.NoError(t, err)
	assert.Equal(t, 25, ticket.Minutes)

	t.Run("customer cannot write internal notes", func(t *testing.T) {
		_, err := ticket.AppendInternal(CommentInput{Author: testCustomer, Content: "sneaky", At: testNow})
		assert.Equal(t, errorutil.CodeUnauthorized, errorutil.CodeOf(err))
		assert.Len(t, ticket.Comments, 3)
	})

	t.Run("negative minutes", func(t *testing.T) {
		_, err := ticket.AppendInternal(CommentInput{Author: testAgent, Content: "x", Minutes: -1, At: testNow})
		assert.Equal(t, errorutil.CodeValidation, errorutil.CodeOf(err))
	})

	t.Run("content bounds", func(t *testing.T) {
		_, err := ticket.AppendPublic(CommentInput{Author: testAgent, Content: strings.Repeat("y", 501), At: testNow})
		assert.Equal(t, errorutil.CodeValidation, errorutil.CodeOf(err))
		_, err = ticket.AppendPublic(CommentInput{Author: testAgent, Content: strings.Repeat("y", 500), At: testNow})
		assert.NoError(t, err)
	})

	t.Run("sequence is monotonic under identical timestamps", func(t *testing.T) {
		for i := 1; i < len(ticket.Comments); i++ {
			assert.Greater(t, ticket.Comments[i].Seq, ticket.Comments[i-1].Seq)
		}
	})
}

func TestHasComment(t *testing.T) {
	ticket := newTestTicket(t)
	assert.False(t, ticket.HasComment("c-1"))

	_, err := ticket.AppendInternal(CommentInput{ID: "c-1", Author: testAgent, Content: "noted", At: testNow})
	require.NoError(t, err)
	assert.True(t, ticket.HasComment("c-1"))
	assert.False(t, ticket.HasComment("c-2"))
}

func TestPublicView(t *testing.T) {
	ticket := newTestTicket(t)
	_, err := ticket.AppendInternal(CommentInput{Author: testAgent, Content: "internal", Minutes: 15, At: testNow})
	require.NoError(t, err)
	_, err = ticket.AppendPublic(CommentInput{Author: testAgent, Content: "hello", At: testNow})
	require.NoError(t, err)
	ticket.Record(TicketEvent{Name: EventTicketCommented, Internal: true})

	view := ticket.PublicView()
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "hello", view.Comments[0].Content)
	assert.Empty(t, view.Events)
	assert.Len(t, ticket.Comments, 2, "projection must not mutate the aggregate")
}

func TestAssignAgent(t *testing.T) {
	ticket := newTestTicket(t)
	old, changed := ticket.AssignAgent("agent-1", testNow)
	assert.Nil(t, old)
	assert.True(t, changed)

	old, changed = ticket.AssignAgent("agent-1", testNow)
	assert.False(t, changed)
	require.NotNil(t, old)

	old, changed = ticket.AssignAgent("agent-2", testNow)
	assert.True(t, changed)
	assert.Equal(t, "agent-1", *old)
	assert.Equal(t, "agent-2", *ticket.AgentID)
}

func TestCloneIsDeep(t *testing.T) {
	ticket := newTestTicket(t)
	ticket.AssignAgent("agent-1", testNow)
	_, err := ticket.AppendPublic(CommentInput{Author: testAgent, Content: "hi", Files: []AttachmentReference{{FileID: "f1"}}, At: testNow})
	require.NoError(t, err)

	cp := ticket.Clone()
	*cp.AgentID = "other"
	cp.Comments[0].Files[0].FileID = "f2"

	assert.Equal(t, "agent-1", *ticket.AgentID)
	assert.Equal(t, "f1", ticket.Comments[0].Files[0].FileID)
}
