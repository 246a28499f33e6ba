package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens and resolves the caller's identity.
type AuthMiddleware struct {
	tokens    *TokenManager
	employees repository.EmployeeRepository
	tenants   repository.TenantRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, employees repository.EmployeeRepository, tenants repository.TenantRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, employees: employees, tenants: tenants}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	employee, err := m.employees.GetByID(ctx, claims.EmployeeID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("employee not found")
		}
		return apperrors.MapError(err)
	}
	if employee.TenantID != claims.TenantID {
		return apperrors.NewForbidden("employee does not belong to tenant")
	}
	tenant, err := m.tenants.GetByID(ctx, claims.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("tenant not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(identityKey, domain.Identity{Employee: employee, Tenant: tenant})
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	id, ok := c.Locals(identityKey).(domain.Identity)
	if !ok || id.Employee == nil || id.Tenant == nil {
		return domain.Identity{}, false
	}
	return id, true
}
