package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/expense-ticket-service/internal/auth"
	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/observability"
	"github.com/spec-kit/expense-ticket-service/internal/persistence"
	"github.com/spec-kit/expense-ticket-service/internal/repository/memstore"
	"github.com/spec-kit/expense-ticket-service/internal/service"
)

type apiHarness struct {
	app    *fiber.App
	tokens *auth.TokenManager
	demo   *memstore.Demo
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	ctx := context.Background()
	policy := config.Default().Workflow
	clk := clock.NewFake(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))

	store := memstore.New()
	demo, err := memstore.SeedDemo(ctx, store, clk.Now())
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	catalog := service.NewApprovalCatalog(service.CatalogDependencies{LevelRepo: store.Levels()})
	tickets := service.NewTicketService(service.TicketDependencies{
		TxManager:      store,
		TicketRepo:     store.Tickets(),
		RecordRepo:     store.Records(),
		EmployeeRepo:   store.Employees(),
		DepartmentRepo: store.Departments(),
		AssistRepo:     store.Assists(),
		Catalog:        catalog,
		Policy:         policy,
		Dispatcher:     dispatcher,
		Clock:          clk,
	})
	assists := service.NewAssistService(service.AssistDependencies{
		TxManager:      store,
		AssistRepo:     store.Assists(),
		TicketRepo:     store.Tickets(),
		EmployeeRepo:   store.Employees(),
		DepartmentRepo: store.Departments(),
		Dispatcher:     dispatcher,
		Clock:          clk,
	})
	queries := service.NewTicketQueryService(service.QueryDependencies{TicketRepo: store.Tickets(), AssistRepo: store.Assists(), Policy: policy})
	reports := service.NewReportService(service.ReportDependencies{TicketRepo: store.Tickets()})
	tenants := service.NewTenantService(service.TenantDependencies{
		TxManager:      store,
		TenantRepo:     store.Tenants(),
		DepartmentRepo: store.Departments(),
		LevelRepo:      store.Levels(),
		Catalog:        catalog,
		Clock:          clk,
	})

	tokens := auth.NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5}, "test")
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("expense-ticket-service", "test", &persistence.Postgres{}, &persistence.Redis{}, metrics),
		Tenants:        handlers.NewTenantsHandler(tenants),
		Tickets:        handlers.NewTicketsHandler(tickets, queries, clk),
		Assists:        handlers.NewAssistsHandler(assists, queries),
		Reports:        handlers.NewReportsHandler(reports),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Employees(), store.Tenants()),
	})
	return &apiHarness{app: app, tokens: tokens, demo: demo}
}

func (h *apiHarness) do(t *testing.T, method, path, employee string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if employee != "" {
		role := domain.RoleEmployee
		if employee == "admin" {
			role = domain.RoleAdmin
		}
		token, _, err := h.tokens.GenerateToken(h.demo.Employees[employee], h.demo.TenantID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = h.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestRequestIDEchoedOrAssigned(t *testing.T) {
	h := newAPIHarness(t)

	req := httptest.NewRequest(fiber.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	resp, err = h.app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, fiber.MethodGet, "/tickets/pending", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestUnknownRouteIsJSONNotFound(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, fiber.MethodGet, "/nope", "lead", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestTicketFlowOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, fiber.MethodPost, "/tickets", "fixer", map[string]any{
		"title":          "broken door",
		"reason":         "lock jammed",
		"address":        "lobby",
		"funds":          []map[string]any{{"reason": "lock", "amount": 300}},
		"department_ids": []string{h.demo.Departments["Facilities"]},
	})
	require.Equal(t, fiber.StatusCreated, status, "%v", body)
	ticket := body["data"].(map[string]any)
	id := ticket["id"].(string)
	assert.Equal(t, "unapproved", ticket["state"])

	status, body = h.do(t, fiber.MethodGet, "/tickets/pending", "lead", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = h.do(t, fiber.MethodPost, "/tickets/"+id+"/approve", "director", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = h.do(t, fiber.MethodPost, "/tickets/"+id+"/approve", "lead", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "open", body["data"].(map[string]any)["state"])

	status, _ = h.do(t, fiber.MethodPost, "/tickets/"+id+"/approve", "lead", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = h.do(t, fiber.MethodPost, "/tickets/"+id+"/take", "helper", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = h.do(t, fiber.MethodGet, "/me/current", "helper", nil)
	require.Equal(t, fiber.StatusOK, status)
	current := body["data"].(map[string]any)
	assert.Equal(t, id, current["ticket"].(map[string]any)["id"])

	status, body = h.do(t, fiber.MethodGet, "/tickets/"+id, "fixer", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "assigned", body["data"].(map[string]any)["state"])
	assert.Len(t, body["data"].(map[string]any)["approvals"], 1)

	status, _ = h.do(t, fiber.MethodPost, "/tickets/"+id+"/finish", "helper", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = h.do(t, fiber.MethodGet, "/reports/pie?t=daily&date=2024-03-04", "admin", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["closed"])
}

func TestInitializeRequiresAdminOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, fiber.MethodPost, "/tenant/initialize", "lead", map[string]any{"departments": []string{"x"}})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = h.do(t, fiber.MethodPost, "/tenant/initialize", "admin", map[string]any{
		"departments":    []string{"x"},
		"default_levels": []map[string]any{{"name": "a", "amount": 10}},
	})
	assert.Equal(t, fiber.StatusConflict, status, "demo tenant is already initialized: %v", body)
}

func TestReportWorkbookDownload(t *testing.T) {
	h := newAPIHarness(t)

	req := httptest.NewRequest(fiber.MethodGet, "/reports/bar.xlsx?t=weekly&date=2024-03-04", nil)
	token, _, err := h.tokens.GenerateToken(h.demo.Employees["admin"], h.demo.TenantID, domain.RoleAdmin)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}
