package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/repository/memstore"
)

var start = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memstore.Store
	clock      *clock.Fake
	dispatcher events.Dispatcher

	mu        sync.Mutex
	published []events.Event

	catalog *ApprovalCatalog
	tenants *TenantService
	tickets *TicketService
	assists *AssistService
	queries *TicketQueryService
	reports *ReportService

	tenantID string
}

func newFixture(t *testing.T, tweak ...func(*config.WorkflowConfig)) *fixture {
	t.Helper()
	policy := config.Default().Workflow
	for _, fn := range tweak {
		fn(&policy)
	}
	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      memstore.New(),
		clock:      clock.NewFake(start),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	f.dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e)
		return nil
	})

	f.catalog = NewApprovalCatalog(CatalogDependencies{LevelRepo: f.store.Levels(), Fallback: policy.CompanyFallback})
	f.tenants = NewTenantService(TenantDependencies{
		TxManager:      f.store,
		TenantRepo:     f.store.Tenants(),
		DepartmentRepo: f.store.Departments(),
		LevelRepo:      f.store.Levels(),
		Catalog:        f.catalog,
		Clock:          f.clock,
	})
	f.tickets = NewTicketService(TicketDependencies{
		TxManager:      f.store,
		TicketRepo:     f.store.Tickets(),
		RecordRepo:     f.store.Records(),
		EmployeeRepo:   f.store.Employees(),
		DepartmentRepo: f.store.Departments(),
		AssistRepo:     f.store.Assists(),
		Catalog:        f.catalog,
		Policy:         policy,
		Dispatcher:     f.dispatcher,
		Clock:          f.clock,
	})
	f.assists = NewAssistService(AssistDependencies{
		TxManager:      f.store,
		AssistRepo:     f.store.Assists(),
		TicketRepo:     f.store.Tickets(),
		EmployeeRepo:   f.store.Employees(),
		DepartmentRepo: f.store.Departments(),
		Dispatcher:     f.dispatcher,
		Clock:          f.clock,
	})
	f.queries = NewTicketQueryService(QueryDependencies{
		TicketRepo: f.store.Tickets(),
		AssistRepo: f.store.Assists(),
		Policy:     policy,
	})
	f.reports = NewReportService(ReportDependencies{TicketRepo: f.store.Tickets(), Location: time.UTC})

	tenant := &domain.Tenant{Name: "acme-corp"}
	require.NoError(t, f.store.Tenants().Create(f.ctx, tenant))
	f.tenantID = tenant.ID
	return f
}

func (f *fixture) department(name string) string {
	f.t.Helper()
	dept := &domain.Department{TenantID: f.tenantID, Name: name}
	require.NoError(f.t, f.store.Departments().Create(f.ctx, dept))
	return dept.ID
}

func (f *fixture) level(name string, amount int64, company string) string {
	f.t.Helper()
	level := &domain.ApprovalLevel{TenantID: f.tenantID, Name: name, Amount: amount}
	if company != "" {
		level.Company = &company
	}
	require.NoError(f.t, f.store.Levels().Create(f.ctx, level))
	f.catalog.Invalidate(f.ctx, f.tenantID)
	return level.ID
}

// initialized marks the tenant ready without going through TenantService.
func (f *fixture) initialized() {
	f.t.Helper()
	require.NoError(f.t, f.store.Tenants().MarkInitialized(f.ctx, f.tenantID, f.clock.Now()))
}

type employeeOption func(*domain.Employee)

func seat(levelID string) employeeOption {
	return func(e *domain.Employee) { e.ApprovalLevelID = &levelID }
}

func inDepartments(ids ...string) employeeOption {
	return func(e *domain.Employee) { e.DepartmentIDs = ids }
}

func ofCompany(company string) employeeOption {
	return func(e *domain.Employee) { e.Company = &company }
}

func admin() employeeOption {
	return func(e *domain.Employee) { e.Role = domain.RoleAdmin }
}

func (f *fixture) employee(name string, opts ...employeeOption) string {
	f.t.Helper()
	e := &domain.Employee{TenantID: f.tenantID, Name: name, Available: true}
	for _, opt := range opts {
		opt(e)
	}
	require.NoError(f.t, f.store.Employees().Create(f.ctx, e))
	return e.ID
}

// as resolves the identity the way the auth middleware does for every request.
func (f *fixture) as(employeeID string) domain.Identity {
	f.t.Helper()
	e, err := f.store.Employees().GetByID(f.ctx, employeeID)
	require.NoError(f.t, err)
	tenant, err := f.store.Tenants().GetByID(f.ctx, e.TenantID)
	require.NoError(f.t, err)
	return domain.Identity{Employee: e, Tenant: tenant}
}

func (f *fixture) create(creatorID string, amount int64, depts ...string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, f.as(creatorID), TicketCreateInput{
		Title:         "office chairs",
		Reason:        "replacement",
		Address:       "floor 3",
		Funds:         []domain.Fund{{Reason: "chairs", Amount: amount}},
		DepartmentIDs: depts,
	})
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) reload(ticketID string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.store.Tickets().GetByID(f.ctx, ticketID)
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}
