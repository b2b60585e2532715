package controller

import (
	"time"

	"citizen-portal-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	GetHealth(ctx *fiber.Ctx) error
}

type healthController struct {
	serviceName string
	now         func() time.Time
}

func NewHealthController(serviceName string) IHealthController {
	return &healthController{serviceName: serviceName, now: time.Now}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.GetHealth)
}

func (c *healthController) GetHealth(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{
		Status:    "ok",
		Service:   c.serviceName,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	})
}
