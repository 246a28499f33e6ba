package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// TicketService drives the ticket lifecycle: create, approve, reject, take and finish.
type TicketService struct {
	tx          repository.TxManager
	tickets     repository.TicketRepository
	records     repository.ApprovalRecordRepository
	employees   repository.EmployeeRepository
	departments repository.DepartmentRepository
	assists     repository.AssistRepository
	catalog     *ApprovalCatalog
	policy      config.WorkflowConfig
	clock       clock.Clock
	logger      *zap.Logger
	events      publisher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TxManager      repository.TxManager
	TicketRepo     repository.TicketRepository
	RecordRepo     repository.ApprovalRecordRepository
	EmployeeRepo   repository.EmployeeRepository
	DepartmentRepo repository.DepartmentRepository
	AssistRepo     repository.AssistRepository
	Catalog        *ApprovalCatalog
	Policy         config.WorkflowConfig
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Reason        string
	Address       string
	Funds         []domain.Fund
	DepartmentIDs []string
}

// TicketDetail is a ticket with its derived state and approval trail.
type TicketDetail struct {
	Ticket  *domain.Ticket
	State   domain.TicketState
	Records []domain.ApprovalRecord
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := orNop(deps.Logger)
	clk := orReal(deps.Clock)
	return &TicketService{
		tx:          deps.TxManager,
		tickets:     deps.TicketRepo,
		records:     deps.RecordRepo,
		employees:   deps.EmployeeRepo,
		departments: deps.DepartmentRepo,
		assists:     deps.AssistRepo,
		catalog:     deps.Catalog,
		policy:      deps.Policy,
		clock:       clk,
		logger:      logger,
		events:      publisher{dispatcher: deps.Dispatcher, clock: clk, logger: logger},
	}
}

// CreateTicket opens a ticket and routes it to the first approval level.
// When the catalog has no level above zero the ticket is approved on creation.
func (s *TicketService) CreateTicket(ctx context.Context, id domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if !id.Tenant.Initialized {
		return nil, apperrors.NewValidationError("tenant has no approval configuration yet", nil)
	}
	if err := s.validateCreate(ctx, id.TenantID(), &input); err != nil {
		return nil, err
	}

	creator := id.Employee
	first, err := s.catalog.NextLevel(ctx, id.TenantID(), creator.Company, 0)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		TenantID:      id.TenantID(),
		CreatorID:     creator.ID,
		Company:       creator.Company,
		Title:         strings.TrimSpace(input.Title),
		Reason:        strings.TrimSpace(input.Reason),
		Address:       strings.TrimSpace(input.Address),
		Funds:         input.Funds,
		Amount:        domain.SumFunds(input.Funds),
		DepartmentIDs: input.DepartmentIDs,
		CreatedAt:     now,
	}
	if first == nil {
		ticket.ApprovedAt = &now
	} else {
		ticket.CurrentApprovalLevelID = &first.ID
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.tickets.Create(ctx, ticket)
	}); err != nil {
		return nil, storeError(err, "ticket", "ticket could not be created")
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", creator.ID),
		zap.String("system_id", ticket.TenantID),
		zap.Int64("amount", ticket.Amount))
	payload := events.TicketCreatedPayload{Title: ticket.Title, Amount: ticket.Amount}
	if first != nil {
		payload.FirstLevelID = &first.ID
	}
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketCreated,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		EmployeeID: creator.ID,
		Payload:    payload,
	})
	return ticket, nil
}

func (s *TicketService) validateCreate(ctx context.Context, tenantID string, input *TicketCreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if len(input.Funds) == 0 {
		return apperrors.NewValidationError("at least one fund line is required", nil)
	}
	for i, fund := range input.Funds {
		if strings.TrimSpace(fund.Reason) == "" {
			return apperrors.NewValidationError("fund reason required", map[string]any{"index": i})
		}
		if fund.Amount <= 0 {
			return apperrors.NewValidationError("fund amount must be positive", map[string]any{"index": i})
		}
	}
	if len(input.DepartmentIDs) == 0 {
		return nil
	}
	depts, err := s.departments.ListByTenant(ctx, tenantID)
	if err != nil {
		return storeError(err, "department", "")
	}
	known := make(map[string]bool, len(depts))
	for _, d := range depts {
		known[d.ID] = true
	}
	seen := make(map[string]bool, len(input.DepartmentIDs))
	for _, deptID := range input.DepartmentIDs {
		if !known[deptID] {
			return apperrors.NewValidationError("unknown department", map[string]any{"department_id": deptID})
		}
		if seen[deptID] {
			return apperrors.NewValidationError("duplicate department", map[string]any{"department_id": deptID})
		}
		seen[deptID] = true
	}
	return nil
}

// GetTicket returns a ticket of the caller's tenant with its approval trail.
func (s *TicketService) GetTicket(ctx context.Context, id domain.Identity, ticketID string) (*TicketDetail, error) {
	ticket, err := s.load(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "approval record", "")
	}
	return &TicketDetail{Ticket: ticket, State: ticket.StateAt(s.clock.Now()), Records: records}, nil
}

// Approve signs the ticket at its current level. The chain completes when the
// ticket amount is within the level's authority or no higher level exists.
func (s *TicketService) Approve(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	approver := id.Employee
	if err := s.checkSignable(ctx, ticket, approver); err != nil {
		return nil, err
	}

	level, err := s.catalog.Level(ctx, ticket.TenantID, *ticket.CurrentApprovalLevelID)
	if err != nil {
		return nil, err
	}
	var next *domain.ApprovalLevel
	if ticket.Amount > level.Amount {
		next, err = s.catalog.NextLevel(ctx, ticket.TenantID, ticket.Company, level.Amount)
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	var nextID *string
	var approvedAt *time.Time
	if next != nil {
		nextID = &next.ID
	} else {
		approvedAt = &now
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.AdvanceApproval(ctx, ticket.ID, level.ID, nextID, approver.ID, approvedAt); err != nil {
			return err
		}
		return s.records.Append(ctx, &domain.ApprovalRecord{
			TicketID:        ticket.ID,
			ApprovalLevelID: level.ID,
			ApproverID:      approver.ID,
			Result:          domain.ApprovalApproved,
			DecidedAt:       now,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket", "ticket is no longer waiting at this approval level")
	}

	s.logger.Info("ticket approved",
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", approver.ID),
		zap.String("system_id", ticket.TenantID),
		zap.String("level_id", level.ID),
		zap.Bool("completed", next == nil))
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketApproved,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		EmployeeID: approver.ID,
		Payload:    events.TicketApprovedPayload{LevelID: level.ID, NextLevelID: nextID, Completed: next == nil},
	})
	return s.reload(ctx, ticket.ID)
}

// Reject ends the ticket at its current level.
func (s *TicketService) Reject(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	approver := id.Employee
	if err := s.checkSignable(ctx, ticket, approver); err != nil {
		return nil, err
	}
	levelID := *ticket.CurrentApprovalLevelID

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.MarkRejected(ctx, ticket.ID, levelID, approver.ID, now); err != nil {
			return err
		}
		return s.records.Append(ctx, &domain.ApprovalRecord{
			TicketID:        ticket.ID,
			ApprovalLevelID: levelID,
			ApproverID:      approver.ID,
			Result:          domain.ApprovalRejected,
			DecidedAt:       now,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket", "ticket is no longer waiting at this approval level")
	}

	s.logger.Info("ticket rejected",
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", approver.ID),
		zap.String("system_id", ticket.TenantID))
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketRejected,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		EmployeeID: approver.ID,
		Payload:    events.TicketRejectedPayload{LevelID: levelID},
	})
	return s.reload(ctx, ticket.ID)
}

// checkSignable verifies the ticket waits for a decision at the approver's seat.
// An approver whose level already signed gets a conflict rather than a denial.
func (s *TicketService) checkSignable(ctx context.Context, ticket *domain.Ticket, approver *domain.Employee) error {
	if ticket.RejectedAt != nil {
		return apperrors.NewConflict("ticket was rejected", nil)
	}
	if ticket.ApprovedAt != nil || ticket.CurrentApprovalLevelID == nil {
		return apperrors.NewConflict("ticket is already fully approved", nil)
	}
	if approver.HasSeat(*ticket.CurrentApprovalLevelID) {
		return nil
	}
	if approver.ApprovalLevelID != nil {
		records, err := s.records.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return storeError(err, "approval record", "")
		}
		for _, record := range records {
			if record.ApprovalLevelID == *approver.ApprovalLevelID {
				return apperrors.NewConflict("ticket already passed your approval level", nil)
			}
		}
	}
	return apperrors.NewForbidden("approver does not hold the ticket's current approval seat")
}

// Take makes the employee the ticket's receiver. Exactly one concurrent caller wins.
func (s *TicketService) Take(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	employee := id.Employee
	switch {
	case ticket.RejectedAt != nil:
		return nil, apperrors.NewConflict("ticket was rejected", nil)
	case ticket.ApprovedAt == nil:
		return nil, apperrors.NewConflict("ticket is not fully approved", nil)
	case ticket.ReceiverID != nil:
		return nil, apperrors.NewConflict("ticket already has a receiver", nil)
	}
	if ticket.RequiresDepartments() && !employee.InAnyDepartment(ticket.DepartmentIDs) {
		return nil, apperrors.NewForbidden("employee is not in a department this ticket requires")
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.AssignReceiver(ctx, ticket.ID, employee.ID, now); err != nil {
			return storeError(err, "ticket", "ticket already has a receiver")
		}
		if err := s.employees.Reserve(ctx, employee.ID); err != nil {
			return storeError(err, "employee", "employee is busy with other work")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "ticket", "ticket already has a receiver")
	}

	s.logger.Info("ticket taken",
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", employee.ID),
		zap.String("system_id", ticket.TenantID))
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketTaken,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		EmployeeID: employee.ID,
	})
	return s.reload(ctx, ticket.ID)
}

// Finish closes an assigned ticket. Only its receiver may finish it.
func (s *TicketService) Finish(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id, ticketID)
	if err != nil {
		return nil, err
	}
	employee := id.Employee
	if ticket.ReceiverID == nil || *ticket.ReceiverID != employee.ID {
		return nil, apperrors.NewForbidden("only the ticket's receiver may finish it")
	}
	if ticket.FinishedAt != nil {
		return nil, apperrors.NewConflict("ticket is already finished", nil)
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if s.policy.FinishRequiresAssistsClosed {
			open, err := s.assists.CountOpenByTicket(ctx, ticket.ID)
			if err != nil {
				return err
			}
			if open > 0 {
				return apperrors.NewConflict("ticket still has open assists", map[string]any{"open_assists": open})
			}
		}
		if err := s.tickets.MarkFinished(ctx, ticket.ID, employee.ID, now); err != nil {
			return err
		}
		return s.employees.Release(ctx, employee.ID)
	})
	if err != nil {
		return nil, storeError(err, "ticket", "ticket is already finished")
	}

	s.logger.Info("ticket finished",
		zap.String("ticket_id", ticket.ID),
		zap.String("employee_id", employee.ID),
		zap.String("system_id", ticket.TenantID))
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketFinished,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		EmployeeID: employee.ID,
	})
	return s.reload(ctx, ticket.ID)
}

// load fetches a ticket of the caller's tenant. Tickets of other tenants are reported as missing.
func (s *TicketService) load(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	if !id.Owns(ticket.TenantID) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

func (s *TicketService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return ticket, nil
}
