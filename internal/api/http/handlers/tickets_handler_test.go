package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func queryFilter(t *testing.T, target string) service.TicketListFilter {
	t.Helper()
	var filter service.TicketListFilter
	app := fiber.New()
	app.Get("/tickets", func(c *fiber.Ctx) error {
		filter = parseTicketQuery(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	return filter
}

func TestParseTicketQueryPaging(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		limit  int
		offset int
	}{
		{name: "defaults", query: "", limit: 20, offset: 0},
		{name: "second page", query: "?page=2&page_size=50", limit: 50, offset: 50},
		{name: "oversized page is clamped before offset", query: "?page=2&page_size=150", limit: 100, offset: 100},
		{name: "third oversized page", query: "?page=3&page_size=1000", limit: 100, offset: 200},
		{name: "garbage falls back", query: "?page=zero&page_size=-4", limit: 20, offset: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filter := queryFilter(t, "/tickets"+tc.query)
			assert.Equal(t, tc.limit, filter.Limit)
			assert.Equal(t, tc.offset, filter.Offset)
		})
	}
}

func TestParseTicketQueryFilters(t *testing.T) {
	filter := queryFilter(t, "/tickets?status=open,%20pending&priority=high&department_id=support&agent_id=agent-1")
	assert.Equal(t, []domain.TicketStatus{"open", "pending"}, filter.Statuses)
	assert.Equal(t, []domain.TicketPriority{domain.TicketPriorityHigh}, filter.Priorities)
	require.NotNil(t, filter.DepartmentID)
	assert.Equal(t, "support", *filter.DepartmentID)
	require.NotNil(t, filter.AgentID)
	assert.Equal(t, "agent-1", *filter.AgentID)
}
