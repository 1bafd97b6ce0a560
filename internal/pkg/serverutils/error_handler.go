package serverutils

import (
	"errors"

	"fitness-billing-be/pkg/billing"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr), errors.Is(err, billing.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, billing.ErrAuthentication):
		return fiber.StatusUnauthorized
	case errors.Is(err, billing.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, billing.ErrDuplicateTransaction), errors.Is(err, billing.ErrActiveSubscriptionExists):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders errors returned by handlers as BaseResponse.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
