package server

import (
	"eminence/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetReplies handles GET /api/quotes/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	replies, err := s.svc.Replies.ListReplies(c.UserContext(), pathParam(c, "id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(replies)
}

// CreateReply handles POST /api/quotes/:id/replies
// @Summary Reply to a quote
// @Tags replies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quote ID"
// @Param request body object{text=string,author=string} true "Reply"
// @Success 201 {object} models.Reply
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /quotes/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	var req quoteRequest
	if !parseBody(c, &req) {
		return nil
	}
	reply, err := s.svc.Replies.CreateReply(c.UserContext(), service.CreateReplyInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
		Text:    req.Text,
		Author:  req.Author,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// DeleteReply handles DELETE /api/quotes/:id/replies/:replyId
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	err := s.svc.Replies.DeleteReply(c.UserContext(), service.DeleteReplyInput{
		Actor:   actor(c),
		QuoteID: pathParam(c, "id"),
		ReplyID: pathParam(c, "replyId"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
