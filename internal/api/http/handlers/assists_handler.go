package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/api/dto"
	"github.com/spec-kit/expense-ticket-service/internal/service"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// AssistsHandler manages help requests on received tickets.
type AssistsHandler struct {
	assists *service.AssistService
	queries *service.TicketQueryService
}

// NewAssistsHandler constructs handler.
func NewAssistsHandler(assists *service.AssistService, queries *service.TicketQueryService) *AssistsHandler {
	return &AssistsHandler{assists: assists, queries: queries}
}

// CreateAssist POST /assists.
func (h *AssistsHandler) CreateAssist(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateAssistRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	reqs := make([]service.RequirementInput, 0, len(req.Requirements))
	for _, r := range req.Requirements {
		reqs = append(reqs, service.RequirementInput{DepartmentID: r.DepartmentID, Total: r.Total})
	}
	assist, err := h.assists.CreateAssist(c.UserContext(), id, req.TicketID, reqs)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assistResponse(assist)})
}

// JoinAssist POST /assists/:id/join.
func (h *AssistsHandler) JoinAssist(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	assist, err := h.assists.JoinAssist(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assistResponse(assist)})
}

// CloseAssist POST /assists/:id/close.
func (h *AssistsHandler) CloseAssist(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	assist, err := h.assists.CloseAssist(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assistResponse(assist)})
}

// Available GET /assists/available.
func (h *AssistsHandler) Available(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	assists, err := h.queries.AvailableAssists(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.AssistResponse, 0, len(assists))
	for i := range assists {
		items = append(items, assistResponse(&assists[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
