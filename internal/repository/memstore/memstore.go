// Package memstore implements every repository interface in memory. Conditional
// writes behave like their SQL counterparts, which makes the store usable for
// service tests and for running the API without Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
)

type state struct {
	tenants      map[string]domain.Tenant
	departments  map[string]domain.Department
	levels       map[string]domain.ApprovalLevel
	employees    map[string]domain.Employee
	tickets      map[string]domain.Ticket
	records      []domain.ApprovalRecord
	assists      map[string]domain.Assist
	participants map[string]time.Time
}

// Store holds all entities. Writes made through WithTx are rolled back when fn fails.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64
	data state
}

// New returns an empty store.
func New() *Store {
	return &Store{data: state{
		tenants:      map[string]domain.Tenant{},
		departments:  map[string]domain.Department{},
		levels:       map[string]domain.ApprovalLevel{},
		employees:    map[string]domain.Employee{},
		tickets:      map[string]domain.Ticket{},
		assists:      map[string]domain.Assist{},
		participants: map[string]time.Time{},
	}}
}

type txKey struct{}

// WithTx serializes transactional units and restores the previous state when fn errors.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, true))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	return err
}

// Tenants returns the tenant repository view.
func (s *Store) Tenants() repository.TenantRepository { return tenantRepo{s} }

// Departments returns the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }

// Levels returns the approval level repository view.
func (s *Store) Levels() repository.ApprovalLevelRepository { return levelRepo{s} }

// Employees returns the employee repository view.
func (s *Store) Employees() repository.EmployeeRepository { return employeeRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Records returns the approval record repository view.
func (s *Store) Records() repository.ApprovalRecordRepository { return recordRepo{s} }

// Assists returns the assist repository view.
func (s *Store) Assists() repository.AssistRepository { return assistRepo{s} }

func (st state) clone() state {
	out := state{
		tenants:      make(map[string]domain.Tenant, len(st.tenants)),
		departments:  make(map[string]domain.Department, len(st.departments)),
		levels:       make(map[string]domain.ApprovalLevel, len(st.levels)),
		employees:    make(map[string]domain.Employee, len(st.employees)),
		tickets:      make(map[string]domain.Ticket, len(st.tickets)),
		records:      append([]domain.ApprovalRecord(nil), st.records...),
		assists:      make(map[string]domain.Assist, len(st.assists)),
		participants: make(map[string]time.Time, len(st.participants)),
	}
	for k, v := range st.tenants {
		out.tenants[k] = v
	}
	for k, v := range st.departments {
		out.departments[k] = v
	}
	for k, v := range st.levels {
		out.levels[k] = v
	}
	for k, v := range st.employees {
		out.employees[k] = cloneEmployee(v)
	}
	for k, v := range st.tickets {
		out.tickets[k] = cloneTicket(v)
	}
	for k, v := range st.assists {
		out.assists[k] = cloneAssist(v)
	}
	for k, v := range st.participants {
		out.participants[k] = v
	}
	return out
}

func cloneEmployee(e domain.Employee) domain.Employee {
	e.DepartmentIDs = append([]string(nil), e.DepartmentIDs...)
	return e
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Funds = append([]domain.Fund(nil), t.Funds...)
	t.DepartmentIDs = append([]string(nil), t.DepartmentIDs...)
	return t
}

func cloneAssist(a domain.Assist) domain.Assist {
	a.Requirements = append([]domain.AssistRequirement(nil), a.Requirements...)
	a.ParticipantIDs = append([]string(nil), a.ParticipantIDs...)
	return a
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }

// ---- tenants ----

type tenantRepo struct{ s *Store }

func (r tenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	r.s.data.tenants[tenant.ID] = *tenant
	return nil
}

func (r tenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tenant, ok := r.s.data.tenants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tenant, nil
}

func (r tenantRepo) MarkInitialized(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tenant, ok := r.s.data.tenants[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if tenant.Initialized {
		return repository.ErrConflict
	}
	tenant.Initialized = true
	tenant.InitializedAt = ptrTime(at)
	r.s.data.tenants[id] = tenant
	return nil
}

// ---- departments ----

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.departments {
		if existing.TenantID == dept.TenantID && existing.Name == dept.Name {
			return repository.ErrConflict
		}
	}
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	dept.CreatedAt = time.Now()
	r.s.data.departments[dept.ID] = *dept
	return nil
}

func (r departmentRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Department
	for _, dept := range r.s.data.departments {
		if dept.TenantID == tenantID {
			out = append(out, dept)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- approval levels ----

type levelRepo struct{ s *Store }

func (r levelRepo) Create(_ context.Context, level *domain.ApprovalLevel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.levels {
		if existing.TenantID == level.TenantID && existing.Amount == level.Amount && existing.InScope(level.Company) {
			return repository.ErrConflict
		}
	}
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	r.s.seq++
	level.Seq = r.s.seq
	level.CreatedAt = time.Now()
	r.s.data.levels[level.ID] = *level
	return nil
}

func (r levelRepo) GetByID(_ context.Context, id string) (*domain.ApprovalLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	level, ok := r.s.data.levels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &level, nil
}

func (r levelRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.ApprovalLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ApprovalLevel
	for _, level := range r.s.data.levels {
		if level.TenantID == tenantID {
			out = append(out, level)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// ---- employees ----

type employeeRepo struct{ s *Store }

func (r employeeRepo) Create(_ context.Context, employee *domain.Employee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if employee.Role == "" {
		employee.Role = domain.RoleEmployee
	}
	employee.CreatedAt = time.Now()
	r.s.data.employees[employee.ID] = cloneEmployee(*employee)
	return nil
}

func (r employeeRepo) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	employee, ok := r.s.data.employees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	employee = cloneEmployee(employee)
	return &employee, nil
}

func (r employeeRepo) Reserve(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	employee, ok := r.s.data.employees[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !employee.Available {
		return repository.ErrConflict
	}
	employee.Available = false
	r.s.data.employees[id] = employee
	return nil
}

func (r employeeRepo) Release(_ context.Context, ids ...string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if employee, ok := r.s.data.employees[id]; ok {
			employee.Available = true
			r.s.data.employees[id] = employee
		}
	}
	return nil
}

// ---- approval records ----

type recordRepo struct{ s *Store }

func (r recordRepo) Append(_ context.Context, record *domain.ApprovalRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.records {
		if existing.TicketID == record.TicketID && existing.ApprovalLevelID == record.ApprovalLevelID {
			return repository.ErrConflict
		}
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	r.s.data.records = append(r.s.data.records, *record)
	return nil
}

func (r recordRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ApprovalRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ApprovalRecord
	for _, record := range r.s.data.records {
		if record.TicketID == ticketID {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DecidedAt.Before(out[j].DecidedAt) })
	return out, nil
}
