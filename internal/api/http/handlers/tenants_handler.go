package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/api/dto"
	"github.com/spec-kit/expense-ticket-service/internal/service"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// TenantsHandler configures a tenant and lists its catalog.
type TenantsHandler struct {
	tenants *service.TenantService
}

// NewTenantsHandler constructs handler.
func NewTenantsHandler(tenants *service.TenantService) *TenantsHandler {
	return &TenantsHandler{tenants: tenants}
}

// Initialize POST /tenant/initialize.
func (h *TenantsHandler) Initialize(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.InitializeTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.InitializeInput{
		Departments:   req.Departments,
		DefaultLevels: levelInputs(req.DefaultLevels),
		CompanyLevels: make(map[string][]service.LevelInput, len(req.CompanyLevels)),
	}
	for company, levels := range req.CompanyLevels {
		input.CompanyLevels[company] = levelInputs(levels)
	}
	result, err := h.tenants.Initialize(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.InitializeTenantResponse{
		Departments: departmentResponses(result.Departments),
		Levels:      levelResponses(result.Levels),
	}})
}

// Levels GET /tenant/levels?company=.
func (h *TenantsHandler) Levels(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	levels, err := h.tenants.LevelsForCompany(c.UserContext(), id, c.Query("company"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": levelResponses(levels)})
}

// Departments GET /tenant/departments.
func (h *TenantsHandler) Departments(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	depts, err := h.tenants.Departments(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponses(depts)})
}

func levelInputs(levels []dto.LevelRequest) []service.LevelInput {
	out := make([]service.LevelInput, 0, len(levels))
	for _, l := range levels {
		out = append(out, service.LevelInput{Name: l.Name, Amount: l.Amount})
	}
	return out
}
