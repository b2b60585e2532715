package serverutils

import (
	"errors"
	"math"
	"strconv"

	"citizen-portal-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(message string) dto.ErrorResponse {
	return dto.ErrorResponse{Success: false, Error: message}
}

// ChatErrorResponse renders a pipeline error for the client, never including its cause.
func ChatErrorResponse(e *dto.ChatError) dto.ErrorResponse {
	res := dto.ErrorResponse{
		Success:  false,
		Error:    e.Message,
		Fallback: e.Fallback(),
	}
	if e.RetryAfter > 0 {
		secs := int(math.Ceil(e.RetryAfter.Seconds()))
		res.RetryAfter = &secs
	}
	return res
}

// WriteError turns any handler error into the JSON error contract.
func WriteError(ctx *fiber.Ctx, err error) error {
	var chatErr *dto.ChatError
	if errors.As(err, &chatErr) {
		if chatErr.RetryAfter > 0 {
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(chatErr.RetryAfter.Seconds()))))
		}
		return ctx.Status(chatErr.StatusCode()).JSON(ChatErrorResponse(chatErr))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error"))
}

// ErrorHandlerMiddleware renders errors returned further down the chain.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}
