package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"filevault/internal/http/middleware"
	"filevault/internal/service"
	"filevault/internal/validator"
)

// errorPayload is the JSON body of every non-2xx JSON response.
type errorPayload struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Code      string `json:"code"`
}

type errorText struct {
	code    string
	message string
}

// routingErrors covers failures raised by fiber itself before a handler runs.
var routingErrors = map[int]errorText{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"FILE_TOO_LARGE", "request body too large"},
}

var internalError = errorText{"INTERNAL_ERROR", "internal server error"}

func requestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return id
}

// writeError sends a JSON error. message must be safe for clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     message,
		Code:      code,
	})
}

// writeUploadError maps a FileService.Upload error to its response.
// Validation failures carry their own client-facing message.
func writeUploadError(c *fiber.Ctx, err error) error {
	var vErr *validator.ValidationError
	switch {
	case errors.As(err, &vErr):
		return writeError(c, fiber.StatusBadRequest, vErr.Code, vErr.Message)
	case errors.Is(err, service.ErrUniqueConstraintConflict):
		return writeError(c, fiber.StatusConflict, "UPLOAD_CONFLICT", "A file with this name was uploaded at the same time. Please retry.")
	default:
		return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", msgUploadFailed)
	}
}

// ErrorHandler renders errors returned from handlers and routing in the
// errorPayload shape. Anything that is not a *fiber.Error is a 500.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		// fiber rejects bodies over BodyLimit before the upload handler can validate them
		if status == fiber.StatusRequestEntityTooLarge && c.Path() == uploadPath {
			return writeError(c, status, validator.ErrFileTooLarge.Code, validator.ErrFileTooLarge.Message)
		}

		text, ok := routingErrors[status]
		if !ok {
			status, text = fiber.StatusInternalServerError, internalError
		}
		return writeError(c, status, text.code, text.message)
	}
}
