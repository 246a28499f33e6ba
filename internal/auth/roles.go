package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		id, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("identity required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[id.Employee.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
