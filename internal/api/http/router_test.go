package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	company := "acme"
	dir := memory.NewDirectory()
	dir.AddCompany(domain.Company{ID: company, Name: "Acme", Email: "it@acme.test"})
	dir.AddDepartment(domain.Department{ID: "support", Name: "Support", IsActive: true})
	dir.AddUser(domain.User{ID: "cust-1", Role: domain.RoleCustomer, CompanyID: &company, Active: true})
	dir.AddUser(domain.User{ID: "agent-1", Role: domain.RoleAgent, Active: true})

	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     memory.NewTicketRepository(),
		FileRepo:       memory.NewFileRepository(),
		UserRepo:       dir.Users(),
		CompanyRepo:    dir.Companies(),
		DepartmentRepo: dir.Departments(),
		Limits:         config.TicketsConfig{ReplyMaxFiles: 3, CreateMaxFiles: 10, ConflictRetries: 5},
	})
	tokens := auth.NewTokenManager("test-secret", 5)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil),
		Tickets:        handlers.NewTicketsHandler(svc),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, actor *domain.Actor, body any) (*nethttp.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, _, err := s.tokens.GenerateToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	return resp, envelope
}

func decodeTicket(t *testing.T, envelope map[string]json.RawMessage) dto.TicketResponse {
	t.Helper()
	var ticket dto.TicketResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &ticket))
	return ticket
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	customer := &domain.Actor{ID: "cust-1", Role: domain.RoleCustomer, CompanyID: "acme"}
	agent := &domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	resp, body := s.do(t, nethttp.MethodPost, "/tickets", customer, dto.CreateTicketRequest{
		DepartmentID: "support",
		Subject:      "Login broken",
		Content:      "Cannot sign in",
		Priority:     domain.TicketPriorityHigh,
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	created := decodeTicket(t, body)
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, "Acme", created.Company.Name)
	assert.Equal(t, "Support", created.Department.Name)
	assert.Equal(t, "cust-1", created.Customer)
	assert.Empty(t, created.Comments)

	ticketPath := "/tickets/" + created.ID

	resp, _ = s.do(t, nethttp.MethodPost, ticketPath+"/comments", agent, dto.CreateCommentRequest{Content: "checking logs", Internal: true, Minutes: 15})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	resp, _ = s.do(t, nethttp.MethodPost, ticketPath+"/comments", agent, dto.CreateCommentRequest{Content: "please retry now"})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	resp, body = s.do(t, nethttp.MethodGet, ticketPath, customer, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	customerView := decodeTicket(t, body)
	require.Len(t, customerView.Comments, 1)
	assert.Equal(t, "please retry now", customerView.Comments[0].Content)
	assert.Equal(t, 15, customerView.Minutes)

	resp, body = s.do(t, nethttp.MethodGet, ticketPath, agent, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decodeTicket(t, body).Comments, 2)

	resp, _ = s.do(t, nethttp.MethodPost, ticketPath+"/comments", customer, dto.CreateCommentRequest{Content: "psst", Internal: true})
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, nethttp.MethodPut, ticketPath+"/status", customer, dto.ChangeStatusRequest{Status: "closed"})
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, nethttp.MethodPut, ticketPath+"/agent", agent, dto.AssignAgentRequest{AgentID: "agent-1"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assigned := decodeTicket(t, body)
	require.NotNil(t, assigned.Agent)
	assert.Equal(t, "agent-1", *assigned.Agent)

	resp, _ = s.do(t, nethttp.MethodPut, ticketPath+"/status", agent, dto.ChangeStatusRequest{Status: "closed"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, body = s.do(t, nethttp.MethodPut, ticketPath+"/status", agent, dto.ChangeStatusRequest{Status: "open"})
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	var errBody struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body["error"], &errBody))
	assert.Equal(t, "TICKET_CLOSED", errBody.Code)

	resp, body = s.do(t, nethttp.MethodGet, "/tickets?status=closed", customer, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var list []dto.TicketResponse
	require.NoError(t, json.Unmarshal(body["data"], &list))
	require.Len(t, list, 1)
	assert.Len(t, list[0].Comments, 1)
}

func TestTicketsRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, nethttp.MethodGet, "/tickets", nil, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, nethttp.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, nethttp.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestRequestTimeoutPropagates(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, time.Millisecond)
	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/slow", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}
