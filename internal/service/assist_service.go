package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// AssistService lets a ticket's receiver pull in people from other departments.
type AssistService struct {
	tx          repository.TxManager
	assists     repository.AssistRepository
	tickets     repository.TicketRepository
	employees   repository.EmployeeRepository
	departments repository.DepartmentRepository
	clock       clock.Clock
	logger      *zap.Logger
	events      publisher
}

// AssistDependencies bundles collaborators for the assist service.
type AssistDependencies struct {
	TxManager      repository.TxManager
	AssistRepo     repository.AssistRepository
	TicketRepo     repository.TicketRepository
	EmployeeRepo   repository.EmployeeRepository
	DepartmentRepo repository.DepartmentRepository
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Logger         *zap.Logger
}

// RequirementInput asks a department for Total people.
type RequirementInput struct {
	DepartmentID string
	Total        int
}

// NewAssistService constructs the service.
func NewAssistService(deps AssistDependencies) *AssistService {
	logger := orNop(deps.Logger)
	clk := orReal(deps.Clock)
	return &AssistService{
		tx:          deps.TxManager,
		assists:     deps.AssistRepo,
		tickets:     deps.TicketRepo,
		employees:   deps.EmployeeRepo,
		departments: deps.DepartmentRepo,
		clock:       clk,
		logger:      logger,
		events:      publisher{dispatcher: deps.Dispatcher, clock: clk, logger: logger},
	}
}

// CreateAssist opens an assist on a ticket the caller received and is still working on.
func (s *AssistService) CreateAssist(ctx context.Context, id domain.Identity, ticketID string, reqs []RequirementInput) (*domain.Assist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if err := s.validateRequirements(ctx, id.TenantID(), reqs); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	if !id.Owns(ticket.TenantID) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	submitter := id.Employee
	if ticket.ReceiverID == nil || *ticket.ReceiverID != submitter.ID {
		return nil, apperrors.NewForbidden("only the ticket's receiver may request assistance")
	}
	if ticket.FinishedAt != nil {
		return nil, apperrors.NewConflict("ticket is already finished", nil)
	}

	assist := &domain.Assist{
		TenantID:    ticket.TenantID,
		TicketID:    ticket.ID,
		SubmitterID: submitter.ID,
		State:       domain.AssistOpen,
		CreatedAt:   s.clock.Now(),
	}
	counts := make(map[string]int, len(reqs))
	for _, req := range reqs {
		assist.Requirements = append(assist.Requirements, domain.AssistRequirement{
			DepartmentID: req.DepartmentID,
			Total:        req.Total,
			State:        domain.AssistOpen,
		})
		counts[req.DepartmentID] = req.Total
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.assists.Create(ctx, assist)
	}); err != nil {
		return nil, storeError(err, "assist", "assist could not be created")
	}

	s.logger.Info("assist created",
		zap.String("assist_id", assist.ID),
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", submitter.ID),
		zap.String("system_id", ticket.TenantID))
	s.events.publish(ctx, events.Event{
		Type:       events.EventAssistCreated,
		TenantID:   assist.TenantID,
		TicketID:   assist.TicketID,
		AssistID:   assist.ID,
		EmployeeID: submitter.ID,
		Payload:    events.AssistCreatedPayload{Departments: counts},
	})
	return assist, nil
}

func (s *AssistService) validateRequirements(ctx context.Context, tenantID string, reqs []RequirementInput) error {
	if len(reqs) == 0 {
		return apperrors.NewValidationError("at least one department requirement is required", nil)
	}
	depts, err := s.departments.ListByTenant(ctx, tenantID)
	if err != nil {
		return storeError(err, "department", "")
	}
	known := make(map[string]bool, len(depts))
	for _, d := range depts {
		known[d.ID] = true
	}
	seen := make(map[string]bool, len(reqs))
	for i, req := range reqs {
		if req.Total <= 0 {
			return apperrors.NewValidationError("requested headcount must be positive", map[string]any{"index": i})
		}
		if !known[req.DepartmentID] {
			return apperrors.NewValidationError("unknown department", map[string]any{"department_id": req.DepartmentID})
		}
		if seen[req.DepartmentID] {
			return apperrors.NewValidationError("duplicate department", map[string]any{"department_id": req.DepartmentID})
		}
		seen[req.DepartmentID] = true
	}
	return nil
}

// JoinAssist adds the caller to every open requirement of their departments.
// Each requirement is incremented atomically and closes when full.
func (s *AssistService) JoinAssist(ctx context.Context, id domain.Identity, assistID string) (*domain.Assist, error) {
	assist, err := s.load(ctx, id, assistID)
	if err != nil {
		return nil, err
	}
	employee := id.Employee
	if assist.State != domain.AssistOpen {
		return nil, apperrors.NewConflict("assist is closed", nil)
	}
	if assist.SubmitterID == employee.ID {
		return nil, apperrors.NewForbidden("the submitter cannot join their own assist")
	}
	if assist.HasParticipant(employee.ID) {
		return nil, apperrors.NewConflict("employee already joined this assist", nil)
	}
	matches := assist.OpenRequirementsFor(employee.DepartmentIDs)
	if len(matches) == 0 {
		if requested(assist, employee) {
			return nil, apperrors.NewConflict("assist has no open places for your departments", nil)
		}
		return nil, apperrors.NewForbidden("employee is not in a requested department")
	}

	now := s.clock.Now()
	var joined []string
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		joined = joined[:0]
		for _, req := range matches {
			err := s.assists.IncrementRequirement(ctx, assist.ID, req.DepartmentID)
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
			joined = append(joined, req.DepartmentID)
		}
		if len(joined) == 0 {
			return apperrors.NewConflict("assist has no open places for your departments", nil)
		}
		if err := s.assists.AddParticipant(ctx, assist.ID, employee.ID, now); err != nil {
			return storeError(err, "assist", "employee already joined this assist")
		}
		if err := s.employees.Reserve(ctx, employee.ID); err != nil {
			return storeError(err, "employee", "employee is busy with other work")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "assist", "assist is closed")
	}

	s.logger.Info("assist joined",
		zap.String("assist_id", assist.ID),
		zap.String("employee_id", employee.ID),
		zap.Strings("department_ids", joined))
	s.events.publish(ctx, events.Event{
		Type:       events.EventAssistJoined,
		TenantID:   assist.TenantID,
		TicketID:   assist.TicketID,
		AssistID:   assist.ID,
		EmployeeID: employee.ID,
		Payload:    events.AssistJoinedPayload{DepartmentIDs: joined},
	})
	return s.reload(ctx, assist.ID)
}

// CloseAssist closes the assist and frees its participants. Only the submitter may close it.
func (s *AssistService) CloseAssist(ctx context.Context, id domain.Identity, assistID string) (*domain.Assist, error) {
	assist, err := s.load(ctx, id, assistID)
	if err != nil {
		return nil, err
	}
	if assist.SubmitterID != id.Employee.ID {
		return nil, apperrors.NewForbidden("only the submitter may close the assist")
	}
	if assist.State != domain.AssistOpen {
		return nil, apperrors.NewConflict("assist is closed", nil)
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.assists.Close(ctx, assist.ID, now); err != nil {
			return err
		}
		current, err := s.assists.GetByID(ctx, assist.ID)
		if err != nil {
			return err
		}
		return s.employees.Release(ctx, current.ParticipantIDs...)
	})
	if err != nil {
		return nil, storeError(err, "assist", "assist is closed")
	}

	s.logger.Info("assist closed",
		zap.String("assist_id", assist.ID),
		zap.String("employee_id", id.Employee.ID))
	s.events.publish(ctx, events.Event{
		Type:       events.EventAssistClosed,
		TenantID:   assist.TenantID,
		TicketID:   assist.TicketID,
		AssistID:   assist.ID,
		EmployeeID: id.Employee.ID,
	})
	return s.reload(ctx, assist.ID)
}

func requested(assist *domain.Assist, employee *domain.Employee) bool {
	for _, req := range assist.Requirements {
		for _, deptID := range employee.DepartmentIDs {
			if req.DepartmentID == deptID {
				return true
			}
		}
	}
	return false
}

func (s *AssistService) load(ctx context.Context, id domain.Identity, assistID string) (*domain.Assist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	assist, err := s.assists.GetByID(ctx, assistID)
	if err != nil {
		return nil, storeError(err, "assist", "")
	}
	if !id.Owns(assist.TenantID) {
		return nil, apperrors.NewNotFound("assist", nil)
	}
	return assist, nil
}

func (s *AssistService) reload(ctx context.Context, assistID string) (*domain.Assist, error) {
	assist, err := s.assists.GetByID(ctx, assistID)
	if err != nil {
		return nil, storeError(err, "assist", "")
	}
	return assist, nil
}
