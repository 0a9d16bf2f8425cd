package server

import (
	"eminence/internal/auth"
	"eminence/internal/badges"
	"eminence/internal/middleware"
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignInAnonymously handles POST /api/auth/anonymous
// @Summary Anonymous sign-in
// @Description Issues a token for a fresh anonymous identity
// @Tags auth
// @Produce json
// @Success 201 {object} object{token=string,uid=string}
// @Failure 429 {object} object{error=string}
// @Router /auth/anonymous [post]
func (s *Server) SignInAnonymously(c *fiber.Ctx) error {
	uid := auth.NewAnonymousUID()
	token, err := s.svc.Tokens.Issue(uid, true)
	if err != nil {
		return respondServiceError(c, err)
	}
	if _, err := s.svc.Profiles.GetMyProfile(c.UserContext(), service.Actor{UID: uid, Anonymous: true}); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "uid": uid})
}

// GetBadgeCatalog handles GET /api/badges
func (s *Server) GetBadgeCatalog(c *fiber.Ctx) error {
	return c.JSON(badges.Catalog())
}

// GetFeatureFlags handles GET /api/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.svc.Flags.Snapshot(middleware.UserID(c)),
	})
}

// GetWidgetQuote handles GET /api/widget/quote
func (s *Server) GetWidgetQuote(c *fiber.Ctx) error {
	quote, err := s.svc.Widget.Quote(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quote)
}
