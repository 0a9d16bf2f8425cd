package server

import (
	"strings"

	"eminence/internal/middleware"
	"eminence/internal/models"
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	limit, offset := service.NormalizePage(limit, c.QueryInt("offset", 0))
	return Pagination{Limit: limit, Offset: offset}
}

// actor returns the authenticated caller.
func actor(c *fiber.Ctx) service.Actor {
	return service.Actor{UID: middleware.UserID(c), Anonymous: middleware.IsAnonymous(c)}
}

// respondServiceError writes err with the status its code maps to.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusCode(err)
	if status == fiber.StatusInternalServerError && !models.HasCode(err, models.CodeInternal) {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err.Error())
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, status, err)
}

// parseBody decodes the JSON body into dst, answering 400 when it is malformed.
// Callers should check: if !ok { return nil }
func parseBody(c *fiber.Ctx, dst interface{}) bool {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// pathParam returns a trimmed route parameter.
func pathParam(c *fiber.Ctx, name string) string {
	return strings.TrimSpace(c.Params(name))
}
