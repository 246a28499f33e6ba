package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
)

type ticketRepo struct{ s *Store }

// view returns a copy of the ticket with FirstDecisionAt derived from the records.
// Callers hold s.mu.
func (r ticketRepo) view(t domain.Ticket) domain.Ticket {
	t = cloneTicket(t)
	t.FirstDecisionAt = nil
	for _, record := range r.s.data.records {
		if record.TicketID != t.ID {
			continue
		}
		if t.FirstDecisionAt == nil || record.DecidedAt.Before(*t.FirstDecisionAt) {
			t.FirstDecisionAt = ptrTime(record.DecidedAt)
		}
	}
	return t
}

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.s.data.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.data.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket = r.view(ticket)
	return &ticket, nil
}

// update applies fn to the stored ticket when cond holds, mirroring a conditional UPDATE.
func (r ticketRepo) update(id string, cond func(domain.Ticket) bool, fn func(*domain.Ticket)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.data.tickets[id]
	if !ok || !cond(ticket) {
		return repository.ErrConflict
	}
	fn(&ticket)
	r.s.data.tickets[id] = ticket
	return nil
}

func atLevel(levelID string) func(domain.Ticket) bool {
	return func(t domain.Ticket) bool {
		return t.CurrentApprovalLevelID != nil && *t.CurrentApprovalLevelID == levelID &&
			t.ApprovedAt == nil && t.RejectedAt == nil
	}
}

func (r ticketRepo) AdvanceApproval(_ context.Context, id, fromLevelID string, next *string, approverID string, approvedAt *time.Time) error {
	return r.update(id, atLevel(fromLevelID), func(t *domain.Ticket) {
		t.CurrentApprovalLevelID = next
		t.LastApproverID = ptrString(approverID)
		t.ApprovedAt = approvedAt
	})
}

func (r ticketRepo) MarkRejected(_ context.Context, id, fromLevelID, approverID string, at time.Time) error {
	return r.update(id, atLevel(fromLevelID), func(t *domain.Ticket) {
		t.LastApproverID = ptrString(approverID)
		t.RejectedAt = ptrTime(at)
	})
}

func (r ticketRepo) AssignReceiver(_ context.Context, id, receiverID string, at time.Time) error {
	return r.update(id, func(t domain.Ticket) bool {
		return t.ReceiverID == nil && t.ApprovedAt != nil && t.RejectedAt == nil
	}, func(t *domain.Ticket) {
		t.ReceiverID = ptrString(receiverID)
		t.ReceivedAt = ptrTime(at)
	})
}

func (r ticketRepo) MarkFinished(_ context.Context, id, receiverID string, at time.Time) error {
	return r.update(id, func(t domain.Ticket) bool {
		return t.ReceiverID != nil && *t.ReceiverID == receiverID && t.FinishedAt == nil && t.RejectedAt == nil
	}, func(t *domain.Ticket) {
		t.FinishedAt = ptrTime(at)
	})
}

func (r ticketRepo) filter(keep func(domain.Ticket) bool, less func(a, b domain.Ticket) bool) []domain.Ticket {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.data.tickets {
		if keep(t) {
			out = append(out, r.view(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func page(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if offset >= len(tickets) {
		return nil
	}
	tickets = tickets[offset:]
	if limit > 0 && limit < len(tickets) {
		tickets = tickets[:limit]
	}
	return tickets
}

func (r ticketRepo) ListPending(_ context.Context, tenantID, levelID string, limit, offset int) ([]domain.Ticket, error) {
	pending := atLevel(levelID)
	out := r.filter(func(t domain.Ticket) bool {
		return t.TenantID == tenantID && pending(t)
	}, func(a, b domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return page(out, limit, offset), nil
}

func (r ticketRepo) ListAvailable(_ context.Context, tenantID string, departmentIDs []string, limit, offset int) ([]domain.Ticket, error) {
	member := domain.Employee{DepartmentIDs: departmentIDs}
	out := r.filter(func(t domain.Ticket) bool {
		if t.TenantID != tenantID || !t.Takeable() {
			return false
		}
		return !t.RequiresDepartments() || member.InAnyDepartment(t.DepartmentIDs)
	}, func(a, b domain.Ticket) bool { return a.ApprovedAt.Before(*b.ApprovedAt) })
	return page(out, limit, offset), nil
}

func (r ticketRepo) ListByCreator(_ context.Context, creatorID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.CreatorID == creatorID
	}, func(a, b domain.Ticket) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (r ticketRepo) ListByReceiver(_ context.Context, receiverID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.ReceiverID != nil && *t.ReceiverID == receiverID
	}, func(a, b domain.Ticket) bool { return a.ReceivedAt.After(*b.ReceivedAt) }), nil
}

func (r ticketRepo) ListCreatedBefore(_ context.Context, tenantID string, at time.Time) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.TenantID == tenantID && !t.CreatedAt.After(at)
	}, func(a, b domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

// ---- assists ----

type assistRepo struct{ s *Store }

func participantKey(assistID, employeeID string) string { return assistID + "/" + employeeID }

func (r assistRepo) Create(_ context.Context, assist *domain.Assist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if assist.ID == "" {
		assist.ID = uuid.NewString()
	}
	for i := range assist.Requirements {
		assist.Requirements[i].AssistID = assist.ID
	}
	r.s.data.assists[assist.ID] = cloneAssist(*assist)
	return nil
}

func (r assistRepo) GetByID(_ context.Context, id string) (*domain.Assist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	assist, ok := r.s.data.assists[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	assist = cloneAssist(assist)
	return &assist, nil
}

func (r assistRepo) IncrementRequirement(_ context.Context, assistID, departmentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	assist, ok := r.s.data.assists[assistID]
	if !ok || assist.State != domain.AssistOpen {
		return repository.ErrConflict
	}
	assist = cloneAssist(assist)
	for i := range assist.Requirements {
		req := &assist.Requirements[i]
		if req.DepartmentID != departmentID {
			continue
		}
		if req.State != domain.AssistOpen || req.Current >= req.Total {
			return repository.ErrConflict
		}
		req.Current++
		if req.Current >= req.Total {
			req.State = domain.AssistClosed
		}
		r.s.data.assists[assistID] = assist
		return nil
	}
	return repository.ErrConflict
}

func (r assistRepo) AddParticipant(_ context.Context, assistID, employeeID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := participantKey(assistID, employeeID)
	if _, exists := r.s.data.participants[key]; exists {
		return repository.ErrConflict
	}
	assist, ok := r.s.data.assists[assistID]
	if !ok {
		return pgx.ErrNoRows
	}
	assist = cloneAssist(assist)
	assist.ParticipantIDs = append(assist.ParticipantIDs, employeeID)
	r.s.data.assists[assistID] = assist
	r.s.data.participants[key] = at
	return nil
}

func (r assistRepo) Close(_ context.Context, assistID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	assist, ok := r.s.data.assists[assistID]
	if !ok || assist.State != domain.AssistOpen {
		return repository.ErrConflict
	}
	assist = cloneAssist(assist)
	assist.State = domain.AssistClosed
	assist.ClosedAt = ptrTime(at)
	for i := range assist.Requirements {
		assist.Requirements[i].State = domain.AssistClosed
	}
	r.s.data.assists[assistID] = assist
	return nil
}

func (r assistRepo) CountOpenByTicket(_ context.Context, ticketID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, assist := range r.s.data.assists {
		if assist.TicketID == ticketID && assist.State == domain.AssistOpen {
			count++
		}
	}
	return count, nil
}

func (r assistRepo) filter(keep func(domain.Assist) bool, asc bool) []domain.Assist {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Assist
	for _, assist := range r.s.data.assists {
		if keep(assist) {
			out = append(out, cloneAssist(assist))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt) == asc
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r assistRepo) ListOpenForDepartments(_ context.Context, tenantID string, departmentIDs []string) ([]domain.Assist, error) {
	return r.filter(func(a domain.Assist) bool {
		return a.TenantID == tenantID && a.State == domain.AssistOpen && len(a.OpenRequirementsFor(departmentIDs)) > 0
	}, true), nil
}

func (r assistRepo) ListBySubmitter(_ context.Context, submitterID string) ([]domain.Assist, error) {
	return r.filter(func(a domain.Assist) bool { return a.SubmitterID == submitterID }, false), nil
}

func (r assistRepo) ListByParticipant(_ context.Context, employeeID string) ([]domain.Assist, error) {
	return r.filter(func(a domain.Assist) bool { return a.HasParticipant(employeeID) }, false), nil
}
