package serverutils

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AccessChecker interface {
	HasActiveSubscription(ctx context.Context, userId uuid.UUID) (bool, error)
}

// RequireActiveSubscription gates premium routes. It must run after the JWT middleware.
func RequireActiveSubscription(checker AccessChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId, err := UserIdFromCtx(ctx)
		if err != nil {
			return err
		}
		ok, err := checker.HasActiveSubscription(ctx.UserContext(), userId)
		if err != nil {
			return err
		}
		if !ok {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Active subscription required"))
		}
		return ctx.Next()
	}
}
