package service

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// HistoryKind says why an entry is in an employee's history.
type HistoryKind string

const (
	HistoryCreated     HistoryKind = "created"
	HistoryReceived    HistoryKind = "received"
	HistorySubmitted   HistoryKind = "assist_submitted"
	HistoryParticipant HistoryKind = "assist_participated"
)

// HistoryEntry is one ticket or assist in an employee's history.
type HistoryEntry struct {
	Kind   HistoryKind
	At     time.Time
	Ticket *domain.Ticket
	Assist *domain.Assist
}

// CurrentWork is what an employee is busy with. Both fields are nil when idle.
type CurrentWork struct {
	Ticket *domain.Ticket
	Assist *domain.Assist
}

// TicketQueryService answers the read-side questions of the workflow.
type TicketQueryService struct {
	tickets repository.TicketRepository
	assists repository.AssistRepository
	policy  config.WorkflowConfig
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TicketRepo repository.TicketRepository
	AssistRepo repository.AssistRepository
	Policy     config.WorkflowConfig
}

// NewTicketQueryService constructs the service.
func NewTicketQueryService(deps QueryDependencies) *TicketQueryService {
	return &TicketQueryService{
		tickets: deps.TicketRepo,
		assists: deps.AssistRepo,
		policy:  deps.Policy,
	}
}

// PendingApproval lists tickets waiting at the caller's approval seat, oldest first.
func (s *TicketQueryService) PendingApproval(ctx context.Context, id domain.Identity, page Page) ([]domain.Ticket, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if id.Employee.ApprovalLevelID == nil {
		return []domain.Ticket{}, nil
	}
	page = page.normalize(s.policy)
	tickets, err := s.tickets.ListPending(ctx, id.TenantID(), *id.Employee.ApprovalLevelID, page.Size, page.offset())
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return nonNil(tickets), nil
}

// Available lists approved tickets without a receiver that the caller's departments may take.
func (s *TicketQueryService) Available(ctx context.Context, id domain.Identity, page Page) ([]domain.Ticket, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	page = page.normalize(s.policy)
	tickets, err := s.tickets.ListAvailable(ctx, id.TenantID(), id.Employee.DepartmentIDs, page.Size, page.offset())
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return nonNil(tickets), nil
}

// AvailableAssists lists open assists asking for one of the caller's departments.
func (s *TicketQueryService) AvailableAssists(ctx context.Context, id domain.Identity) ([]domain.Assist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	assists, err := s.assists.ListOpenForDepartments(ctx, id.TenantID(), id.Employee.DepartmentIDs)
	if err != nil {
		return nil, storeError(err, "assist", "")
	}
	out := make([]domain.Assist, 0, len(assists))
	for _, a := range assists {
		if a.SubmitterID != id.Employee.ID && !a.HasParticipant(id.Employee.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// CurrentWork returns the assigned ticket the caller received, or else the one
// open assist they take part in. More than one of either is a data integrity error.
func (s *TicketQueryService) CurrentWork(ctx context.Context, id domain.Identity) (*CurrentWork, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	received, err := s.tickets.ListByReceiver(ctx, id.Employee.ID)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	var assigned []domain.Ticket
	for _, t := range received {
		if t.FinishedAt == nil && t.RejectedAt == nil {
			assigned = append(assigned, t)
		}
	}
	switch len(assigned) {
	case 0:
	case 1:
		return &CurrentWork{Ticket: &assigned[0]}, nil
	default:
		return nil, apperrors.NewIntegrityError("employee holds more than one assigned ticket",
			map[string]any{"employee_id": id.Employee.ID, "count": len(assigned)})
	}

	participated, err := s.assists.ListByParticipant(ctx, id.Employee.ID)
	if err != nil {
		return nil, storeError(err, "assist", "")
	}
	var open []domain.Assist
	for _, a := range participated {
		if a.State == domain.AssistOpen {
			open = append(open, a)
		}
	}
	switch len(open) {
	case 0:
		return &CurrentWork{}, nil
	case 1:
		return &CurrentWork{Assist: &open[0]}, nil
	default:
		return nil, apperrors.NewIntegrityError("employee participates in more than one open assist",
			map[string]any{"employee_id": id.Employee.ID, "count": len(open)})
	}
}

// History merges the tickets the caller created, the terminal tickets they
// received and the assists they submitted or joined, newest first.
func (s *TicketQueryService) History(ctx context.Context, id domain.Identity, page Page) ([]HistoryEntry, int, error) {
	if err := requireIdentity(id); err != nil {
		return nil, 0, err
	}
	employeeID := id.Employee.ID
	var entries []HistoryEntry

	created, err := s.tickets.ListByCreator(ctx, employeeID)
	if err != nil {
		return nil, 0, storeError(err, "ticket", "")
	}
	for i := range created {
		entries = append(entries, HistoryEntry{Kind: HistoryCreated, At: created[i].CreatedAt, Ticket: &created[i]})
	}

	received, err := s.tickets.ListByReceiver(ctx, employeeID)
	if err != nil {
		return nil, 0, storeError(err, "ticket", "")
	}
	for i := range received {
		if received[i].FinishedAt != nil {
			entries = append(entries, HistoryEntry{Kind: HistoryReceived, At: *received[i].FinishedAt, Ticket: &received[i]})
		}
	}

	submitted, err := s.assists.ListBySubmitter(ctx, employeeID)
	if err != nil {
		return nil, 0, storeError(err, "assist", "")
	}
	for i := range submitted {
		if submitted[i].ClosedAt != nil {
			entries = append(entries, HistoryEntry{Kind: HistorySubmitted, At: *submitted[i].ClosedAt, Assist: &submitted[i]})
		}
	}

	joined, err := s.assists.ListByParticipant(ctx, employeeID)
	if err != nil {
		return nil, 0, storeError(err, "assist", "")
	}
	for i := range joined {
		entries = append(entries, HistoryEntry{Kind: HistoryParticipant, At: joined[i].CreatedAt, Assist: &joined[i]})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.After(entries[j].At) })

	total := len(entries)
	page = page.normalize(s.policy)
	start := page.offset()
	if start >= total {
		return []HistoryEntry{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return entries[start:end], total, nil
}

func nonNil(tickets []domain.Ticket) []domain.Ticket {
	if tickets == nil {
		return []domain.Ticket{}
	}
	return tickets
}
