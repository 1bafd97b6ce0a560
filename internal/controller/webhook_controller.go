package controller

import (
	"fitness-billing-be/internal/pkg/serverutils"
	"fitness-billing-be/internal/service"
	"fitness-billing-be/pkg/webhook"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	TelcoNotification(ctx *fiber.Ctx) error
}

type webhookController struct {
	service service.IWebhookService
}

func NewWebhookController(service service.IWebhookService) IWebhookController {
	return &webhookController{service: service}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhooks")
	h.Post("/telco", c.TelcoNotification)
}

// TelcoNotification answers 200 for processed, ignored and duplicate events,
// 400 when processing failed and the aggregator should retry, 401 for bad
// signatures and 500 for crashes.
func (c *webhookController) TelcoNotification(ctx *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns
	raw := append([]byte(nil), ctx.Body()...)
	signature := ctx.Get(webhook.SignatureHeader)

	res, err := c.service.HandleWebhook(ctx.UserContext(), raw, signature)
	if err != nil {
		if webhook.IsAuthError(err) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid signature"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Internal server error"))
	}
	if !res.Success {
		return ctx.Status(fiber.StatusBadRequest).JSON(res)
	}
	return ctx.Status(fiber.StatusOK).JSON(res)
}
