package server

import (
	"strings"

	"eminence/internal/middleware"
	"eminence/internal/models"
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:uid/profile
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.svc.Profiles.GetProfile(c.UserContext(), pathParam(c, "uid"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetUserQuotes handles GET /api/users/:uid/quotes
func (s *Server) GetUserQuotes(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	quotes, err := s.svc.Quotes.ListByAuthor(c.UserContext(), pathParam(c, "uid"), page.Limit, page.Offset, middleware.UserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quotes)
}

// BlockUser handles POST /api/users/:uid/block
func (s *Server) BlockUser(c *fiber.Ctx) error {
	added, err := s.svc.Safety.Block(c.UserContext(), actor(c), pathParam(c, "uid"))
	if err != nil {
		return respondServiceError(c, err)
	}
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"blocked": true})
}

// UnblockUser handles DELETE /api/users/:uid/block
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	if err := s.svc.Safety.Unblock(c.UserContext(), actor(c), pathParam(c, "uid")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReportUser handles POST /api/users/:uid/report
func (s *Server) ReportUser(c *fiber.Ctx) error {
	var req reportRequest
	if !parseBody(c, &req) {
		return nil
	}
	report, err := s.svc.Safety.Report(c.UserContext(), service.ReportInput{
		Actor:          actor(c),
		ReportedUserID: pathParam(c, "uid"),
		Reason:         models.ReportReason(strings.TrimSpace(req.Reason)),
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
