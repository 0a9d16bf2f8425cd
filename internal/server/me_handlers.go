package server

import (
	"eminence/internal/middleware"
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/me/profile
// @Summary Caller's profile
// @Description Created with the default display name on first access
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} models.ErrorResponse
// @Router /me/profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.svc.Profiles.GetMyProfile(c.UserContext(), actor(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/me/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName     *string `json:"displayName"`
		Bio             *string `json:"bio"`
		ProfileImageURL *string `json:"profileImageURL"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	ctx := c.UserContext()
	if _, err := s.svc.Profiles.GetMyProfile(ctx, actor(c)); err != nil {
		return respondServiceError(c, err)
	}
	profile, err := s.svc.Profiles.UpdateProfile(ctx, service.UpdateProfileInput{
		UID:             middleware.UserID(c),
		DisplayName:     req.DisplayName,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// SetSelectedBadges handles PUT /api/me/badges/selected
func (s *Server) SetSelectedBadges(c *fiber.Ctx) error {
	var req struct {
		BadgeIDs []string `json:"badgeIds"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	profile, err := s.svc.Profiles.SetSelectedBadges(c.UserContext(), middleware.UserID(c), req.BadgeIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetMyBookmarks handles GET /api/me/bookmarks
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	quotes, err := s.svc.Quotes.ListBookmarks(c.UserContext(), middleware.UserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quotes)
}

// GetBlockedUsers handles GET /api/me/blocked
func (s *Server) GetBlockedUsers(c *fiber.Ctx) error {
	blocked, err := s.svc.Safety.ListBlocked(c.UserContext(), actor(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"blockedUserIds": blocked})
}

// UpdatePushToken handles PUT /api/me/push-token
func (s *Server) UpdatePushToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	ctx := c.UserContext()
	if _, err := s.svc.Profiles.GetMyProfile(ctx, actor(c)); err != nil {
		return respondServiceError(c, err)
	}
	if err := s.svc.Profiles.UpdatePushToken(ctx, middleware.UserID(c), req.Token); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateNotificationSettings handles PUT /api/me/notification-settings
func (s *Server) UpdateNotificationSettings(c *fiber.Ctx) error {
	var req struct {
		Enabled *bool   `json:"enabled"`
		Time    *string `json:"time"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	ctx := c.UserContext()
	if _, err := s.svc.Profiles.GetMyProfile(ctx, actor(c)); err != nil {
		return respondServiceError(c, err)
	}
	user, err := s.svc.Profiles.UpdateNotificationSettings(ctx, service.NotificationSettingsInput{
		UID:     middleware.UserID(c),
		Enabled: req.Enabled,
		Time:    req.Time,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
