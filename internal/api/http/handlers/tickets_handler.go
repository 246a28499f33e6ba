package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/api/dto"
	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/service"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle and the caller's views.
type TicketsHandler struct {
	tickets *service.TicketService
	queries *service.TicketQueryService
	clock   clock.Clock
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, queries *service.TicketQueryService, clk clock.Clock) *TicketsHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketsHandler{tickets: tickets, queries: queries, clock: clk}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TicketCreateInput{
		Title:         req.Title,
		Reason:        req.Reason,
		Address:       req.Address,
		DepartmentIDs: req.DepartmentIDs,
	}
	for _, f := range req.Funds {
		input.Funds = append(input.Funds, domain.Fund{Reason: f.Reason, Amount: f.Amount})
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket, h.clock.Now())})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicket(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail, h.clock.Now())})
}

// Approve POST /tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.tickets.Approve)
}

// Reject POST /tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.tickets.Reject)
}

// Take POST /tickets/:id/take.
func (h *TicketsHandler) Take(c *fiber.Ctx) error {
	return h.transition(c, h.tickets.Take)
}

// Finish POST /tickets/:id/finish.
func (h *TicketsHandler) Finish(c *fiber.Ctx) error {
	return h.transition(c, h.tickets.Finish)
}

type ticketTransition func(ctx context.Context, id domain.Identity, ticketID string) (*domain.Ticket, error)

func (h *TicketsHandler) transition(c *fiber.Ctx, apply ticketTransition) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	ticket, err := apply(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, h.clock.Now())})
}

// Pending GET /tickets/pending.
func (h *TicketsHandler) Pending(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	tickets, err := h.queries.PendingApproval(c.UserContext(), id, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.clock.Now())})
}

// Available GET /tickets/available.
func (h *TicketsHandler) Available(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	tickets, err := h.queries.Available(c.UserContext(), id, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.clock.Now())})
}

// Current GET /me/current.
func (h *TicketsHandler) Current(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	work, err := h.queries.CurrentWork(c.UserContext(), id)
	if err != nil {
		return err
	}
	resp := dto.CurrentWorkResponse{}
	if work.Ticket != nil {
		summary := ticketSummary(work.Ticket, h.clock.Now())
		resp.Ticket = &summary
	}
	if work.Assist != nil {
		assist := assistResponse(work.Assist)
		resp.Assist = &assist
	}
	return c.JSON(fiber.Map{"data": resp})
}

// History GET /me/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	entries, total, err := h.queries.History(c.UserContext(), id, page)
	if err != nil {
		return err
	}
	now := h.clock.Now()
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := dto.HistoryEntryResponse{Kind: string(e.Kind), At: e.At}
		if e.Ticket != nil {
			summary := ticketSummary(e.Ticket, now)
			item.Ticket = &summary
		}
		if e.Assist != nil {
			assist := assistResponse(e.Assist)
			item.Assist = &assist
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page.Number, Size: len(items), Total: total},
	})
}
