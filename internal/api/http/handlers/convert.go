package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/api/dto"
	"github.com/spec-kit/expense-ticket-service/internal/auth"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/service"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

func identity(c *fiber.Ctx) (domain.Identity, error) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("identity required")
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// parsePage reads ?page and ?size. Zero size defers to the configured default.
func parsePage(c *fiber.Ctx) service.Page {
	return service.Page{
		Number: parseInt(c.Query("page"), 1),
		Size:   parseInt(c.Query("size"), 0),
	}
}

func ticketSummary(ticket *domain.Ticket, at time.Time) dto.TicketSummary {
	depts := ticket.DepartmentIDs
	if depts == nil {
		depts = []string{}
	}
	return dto.TicketSummary{
		ID:                     ticket.ID,
		Title:                  ticket.Title,
		Company:                ticket.Company,
		Amount:                 ticket.Amount,
		State:                  ticket.StateAt(at).String(),
		CreatorID:              ticket.CreatorID,
		CurrentApprovalLevelID: ticket.CurrentApprovalLevelID,
		ReceiverID:             ticket.ReceiverID,
		DepartmentIDs:          depts,
		CreatedAt:              ticket.CreatedAt,
		ApprovedAt:             ticket.ApprovedAt,
		ReceivedAt:             ticket.ReceivedAt,
		FinishedAt:             ticket.FinishedAt,
		RejectedAt:             ticket.RejectedAt,
	}
}

func ticketSummaries(tickets []domain.Ticket, at time.Time) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], at))
	}
	return items
}

func ticketDetail(detail *service.TicketDetail, at time.Time) dto.TicketDetailResponse {
	ticket := detail.Ticket
	summary := ticketSummary(ticket, at)
	summary.State = detail.State.String()

	funds := make([]dto.FundResponse, 0, len(ticket.Funds))
	for _, f := range ticket.Funds {
		funds = append(funds, dto.FundResponse{Reason: f.Reason, Amount: f.Amount})
	}
	records := make([]dto.ApprovalRecordResponse, 0, len(detail.Records))
	for _, r := range detail.Records {
		records = append(records, dto.ApprovalRecordResponse{
			ID:              r.ID,
			ApprovalLevelID: r.ApprovalLevelID,
			ApproverID:      r.ApproverID,
			Result:          string(r.Result),
			DecidedAt:       r.DecidedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary:  summary,
		Reason:         ticket.Reason,
		Address:        ticket.Address,
		Funds:          funds,
		LastApproverID: ticket.LastApproverID,
		Approvals:      records,
	}
}

func assistResponse(assist *domain.Assist) dto.AssistResponse {
	reqs := make([]dto.RequirementResponse, 0, len(assist.Requirements))
	for _, r := range assist.Requirements {
		reqs = append(reqs, dto.RequirementResponse{
			DepartmentID: r.DepartmentID,
			Total:        r.Total,
			Current:      r.Current,
			State:        string(r.State),
		})
	}
	participants := assist.ParticipantIDs
	if participants == nil {
		participants = []string{}
	}
	return dto.AssistResponse{
		ID:             assist.ID,
		TicketID:       assist.TicketID,
		SubmitterID:    assist.SubmitterID,
		State:          string(assist.State),
		Requirements:   reqs,
		ParticipantIDs: participants,
		CreatedAt:      assist.CreatedAt,
		ClosedAt:       assist.ClosedAt,
	}
}

func levelResponses(levels []domain.ApprovalLevel) []dto.ApprovalLevelResponse {
	resp := make([]dto.ApprovalLevelResponse, 0, len(levels))
	for _, l := range levels {
		resp = append(resp, dto.ApprovalLevelResponse{
			ID:        l.ID,
			Name:      l.Name,
			Amount:    l.Amount,
			Company:   l.Company,
			CreatedAt: l.CreatedAt,
		})
	}
	return resp
}

func departmentResponses(depts []domain.Department) []dto.DepartmentResponse {
	resp := make([]dto.DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		resp = append(resp, dto.DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return resp
}
