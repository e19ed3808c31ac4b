package server

import (
	"errors"
	"log/slog"

	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
	"clubhouse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errorHandler renders errors that escape a handler. Fiber errors keep their
// status; anything else is logged and reported as an internal error.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// respondError writes err with the status its code maps to. Internal errors
// are logged; the client only sees a generic message.
func respondError(c *fiber.Ctx, err error) error {
	if models.ErrorCode(err) == "" {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		err = models.NewInternalError(err)
	}
	return models.RespondWithAppError(c, err)
}

// parseBody decodes the JSON body into req and validates it. An empty body
// validates the zero value.
func parseBody(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return validation.Struct(req)
	}
	if err := c.BodyParser(req); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return validation.Struct(req)
}

func parseEntityKind(c *fiber.Ctx) (models.EntityKind, error) {
	return models.ParseEntityKind(c.Params("kind"))
}

func requireParam(c *fiber.Ctx, name, label string) (string, error) {
	v := c.Params(name)
	if v == "" {
		return "", models.NewValidationError(label + " is required")
	}
	return v, nil
}
