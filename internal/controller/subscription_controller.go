package controller

import (
	"fitness-billing-be/internal/dto"
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/serverutils"
	"fitness-billing-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetSubscription(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.ISubscriptionService
}

func NewSubscriptionController(service service.ISubscriptionService) ISubscriptionController {
	return &subscriptionController{service: service}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/subscription", auth)
	h.Get("/", c.GetSubscription)
	h.Get("/status", c.GetStatus)
	h.Get("/history", c.GetHistory)
	h.Post("/cancel", c.Cancel)
	h.Get("/stats", serverutils.RequireRole(string(entity.UserRoleAdmin)), c.GetStats)
}

func (c *subscriptionController) GetSubscription(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GetUserSubscription(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription", res))
}

func (c *subscriptionController) GetStatus(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	active, err := c.service.HasActiveSubscription(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription status", dto.SubscriptionAccessResponse{
		HasActiveSubscription: active,
	}))
}

func (c *subscriptionController) GetHistory(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}
	limit := ctx.QueryInt("limit", 0)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.service.GetSubscriptionHistory(ctx.UserContext(), userId, limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription history", res))
}

func (c *subscriptionController) Cancel(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.CancelSubscriptionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.CancelSubscription(ctx.UserContext(), userId, req.Reason); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Subscription cancelled", nil))
}

func (c *subscriptionController) GetStats(ctx *fiber.Ctx) error {
	res, err := c.service.GetSubscriptionStats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription stats", res))
}
