package controller

import (
	"errors"

	"citizen-portal-be/internal/dto"
	"citizen-portal-be/internal/pkg/serverutils"
	"citizen-portal-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/tidwall/gjson"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.SendChat)
	r.Get("/status", c.GetStatus)
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	req, err := parseChatRequest(ctx.Body(), ctx.App().Config().JSONDecoder)
	if err != nil {
		return serverutils.WriteError(ctx, dto.NewInvalidInputError(err.Error()))
	}

	res, err := c.service.SendChat(ctx.UserContext(), ctx.IP(), req)
	if err != nil {
		return serverutils.WriteError(ctx, err)
	}

	return ctx.JSON(res)
}

func (c *chatbotController) GetStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Status(ctx.UserContext()))
}

// parseChatRequest checks the JSON types of the top-level fields before decoding, so a
// wrong type is reported by field name instead of as a generic decode failure.
func parseChatRequest(body []byte, decode utils.JSONUnmarshal) (*dto.ChatRequest, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("request body must be valid JSON")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.New("request body must be a JSON object")
	}

	message := root.Get("message")
	if !message.Exists() || message.Type == gjson.Null {
		return nil, errors.New("message is required")
	}
	if message.Type != gjson.String {
		return nil, errors.New("message must be a string")
	}

	if history := root.Get("history"); history.Exists() && history.Type != gjson.Null && !history.IsArray() {
		return nil, errors.New("history must be an array")
	}
	if departments := root.Get("departmentContext"); departments.Exists() && departments.Type != gjson.Null && !departments.IsArray() {
		return nil, errors.New("departmentContext must be an array")
	}

	var req dto.ChatRequest
	if err := decode(body, &req); err != nil {
		return nil, errors.New("history and departmentContext entries must match the expected shape")
	}
	return &req, nil
}
