package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
)

type ErrorResponse struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// ErrorHandler maps domain errors to HTTP statuses. Unexpected errors are
// logged and answered with a generic message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		resp := ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
			TraceID: uuid.New().String()[:8],
		}
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			resp.Message = fe.Message
		case errors.As(err, &ve):
			code = fiber.StatusUnprocessableEntity
			resp.Message = domain.ErrValidation.Error()
			resp.Errors = ve.Fields
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusUnprocessableEntity
			resp.Message = err.Error()
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
			resp.Message = domain.ErrNotFound.Error()
		case errors.Is(err, domain.ErrForbidden):
			code = fiber.StatusForbidden
			resp.Message = domain.ErrForbidden.Error()
		case errors.Is(err, domain.ErrConflict):
			code = fiber.StatusConflict
			resp.Message = domain.ErrConflict.Error()
		}
		resp.Code = errorCode(code)

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("trace_id", resp.TraceID),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(resp)
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

func NewError(code int, message string) *fiber.Error {
	return fiber.NewError(code, message)
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}

func Conflict(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, message)
}
