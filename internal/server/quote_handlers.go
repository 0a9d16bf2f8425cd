package server

import (
	"strings"

	"eminence/internal/middleware"
	"eminence/internal/models"
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

type quoteRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// GetQuotes handles GET /api/quotes
// @Summary Quote feed
// @Description Newest or most liked quotes, hiding authors the caller blocked
// @Tags quotes
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Param sort query string false "new or popular" default(new)
// @Success 200 {array} models.Quote
// @Failure 400 {object} models.ErrorResponse
// @Router /quotes [get]
func (s *Server) GetQuotes(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	quotes, err := s.svc.Quotes.ListQuotes(c.UserContext(), service.ListQuotesInput{
		Limit:    page.Limit,
		Offset:   page.Offset,
		ViewerID: middleware.UserID(c),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quotes)
}

// SearchQuotes handles GET /api/quotes/search?q=...
// @Summary Search quotes
// @Tags quotes
// @Produce json
// @Param q query string true "Text or author fragment"
// @Success 200 {array} models.Quote
// @Failure 400 {object} models.ErrorResponse
// @Router /quotes/search [get]
func (s *Server) SearchQuotes(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	quotes, err := s.svc.Quotes.SearchQuotes(c.UserContext(), c.Query("q"), page.Limit, page.Offset, middleware.UserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quotes)
}

// GetQuote handles GET /api/quotes/:id
func (s *Server) GetQuote(c *fiber.Ctx) error {
	quote, err := s.svc.Quotes.GetQuote(c.UserContext(), pathParam(c, "id"), middleware.UserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quote)
}

// CreateQuote handles POST /api/quotes
// @Summary Post a quote
// @Description Moderated; anonymous callers are limited per day. Returns any badges the post unlocked.
// @Tags quotes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{text=string,author=string} true "Quote"
// @Success 201 {object} service.CreateQuoteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /quotes [post]
func (s *Server) CreateQuote(c *fiber.Ctx) error {
	var req quoteRequest
	if !parseBody(c, &req) {
		return nil
	}
	res, err := s.svc.Quotes.CreateQuote(c.UserContext(), service.CreateQuoteInput{
		Actor:  actor(c),
		Text:   req.Text,
		Author: req.Author,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdateQuote handles PUT /api/quotes/:id
func (s *Server) UpdateQuote(c *fiber.Ctx) error {
	var req quoteRequest
	if !parseBody(c, &req) {
		return nil
	}
	quote, err := s.svc.Quotes.UpdateQuote(c.UserContext(), service.UpdateQuoteInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
		Text:    req.Text,
		Author:  req.Author,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quote)
}

// DeleteQuote handles DELETE /api/quotes/:id
func (s *Server) DeleteQuote(c *fiber.Ctx) error {
	err := s.svc.Quotes.DeleteQuote(c.UserContext(), service.DeleteQuoteInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/quotes/:id/like
// @Summary Toggle like
// @Description Adds the caller's like, or removes it when already present. The count is authoritative.
// @Tags quotes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quote ID"
// @Success 200 {object} models.ToggleResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /quotes/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	res, err := s.svc.Quotes.ToggleLike(c.UserContext(), service.ToggleInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

// ToggleBookmark handles POST /api/quotes/:id/bookmark
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	res, err := s.svc.Quotes.ToggleBookmark(c.UserContext(), service.ToggleInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

type reportRequest struct {
	Reason         string `json:"reason"`
	AdditionalInfo string `json:"additionalInfo"`
}

// ReportQuote handles POST /api/quotes/:id/report
func (s *Server) ReportQuote(c *fiber.Ctx) error {
	var req reportRequest
	if !parseBody(c, &req) {
		return nil
	}
	report, err := s.svc.Safety.Report(c.UserContext(), service.ReportInput{
		Actor:          actor(c),
		QuoteID:        pathParam(c, "id"),
		Reason:         models.ReportReason(strings.TrimSpace(req.Reason)),
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
