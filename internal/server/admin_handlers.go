package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// GrantBadge handles POST /api/admin/users/:uid/badges
// @Summary Grant a badge
// @Description Grants any catalog badge, including administrative ones
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User ID"
// @Param request body object{badgeId=string} true "Badge"
// @Success 200 {object} object{granted=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users/{uid}/badges [post]
func (s *Server) GrantBadge(c *fiber.Ctx) error {
	var req struct {
		BadgeID string `json:"badgeId"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	granted, err := s.svc.Admin.GrantBadge(c.UserContext(), pathParam(c, "uid"), req.BadgeID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"granted": granted})
}

// RevokeBadge handles DELETE /api/admin/users/:uid/badges/:badge
func (s *Server) RevokeBadge(c *fiber.Ctx) error {
	revoked, err := s.svc.Admin.RevokeBadge(c.UserContext(), pathParam(c, "uid"), pathParam(c, "badge"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"revoked": revoked})
}

// ListBadgeHolders handles GET /api/admin/badges/:badge/holders
func (s *Server) ListBadgeHolders(c *fiber.Ctx) error {
	holders, err := s.svc.Admin.ListHolders(c.UserContext(), pathParam(c, "badge"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"userIds": holders})
}

// GetPendingReports handles GET /api/admin/reports
func (s *Server) GetPendingReports(c *fiber.Ctx) error {
	reports, err := s.svc.Safety.PendingReports(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(reports)
}

// RecountReplies handles POST /api/admin/replies/recount
func (s *Server) RecountReplies(c *fiber.Ctx) error {
	changed, err := s.svc.Admin.RecountReplies(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"changed": changed})
}

// RunDigest handles POST /api/admin/digest/run. It runs the digest for the
// current day; a day that already has a top quote is reported, not re-sent.
func (s *Server) RunDigest(c *fiber.Ctx) error {
	res, err := s.svc.Digest.Run(c.UserContext(), time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}
