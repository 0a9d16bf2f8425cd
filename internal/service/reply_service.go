package service

import (
	"context"
	"strings"

	"eminence/internal/models"
	"eminence/internal/moderation"
	"eminence/internal/notifications"
	"eminence/internal/observability"
	"eminence/internal/repository"
)

type ReplyService struct {
	replies   repository.ReplyRepository
	quotes    repository.QuoteRepository
	profiles  repository.ProfileRepository
	checker   *moderation.Checker
	emitter   NotificationEmitter
	publisher EventPublisher
	isAdmin   func(ctx context.Context, uid string) (bool, error)
}

type CreateReplyInput struct {
	Actor   Actor
	QuoteID string
	Text    string
	Author  string
}

type DeleteReplyInput struct {
	Actor   Actor
	QuoteID string
	ReplyID string
}

// NewReplyService creates the service. emitter and publisher may be nil.
func NewReplyService(
	replies repository.ReplyRepository,
	quotes repository.QuoteRepository,
	profiles repository.ProfileRepository,
	checker *moderation.Checker,
	emitter NotificationEmitter,
	publisher EventPublisher,
	isAdmin func(ctx context.Context, uid string) (bool, error),
) *ReplyService {
	if checker == nil {
		checker = moderation.NewChecker(moderation.DefaultRules())
	}
	if isAdmin == nil {
		isAdmin = func(context.Context, string) (bool, error) { return false, nil }
	}
	return &ReplyService{
		replies:   replies,
		quotes:    quotes,
		profiles:  profiles,
		checker:   checker,
		emitter:   emitter,
		publisher: publisher,
		isAdmin:   isAdmin,
	}
}

// ListReplies returns the first page of replies, oldest first.
func (s *ReplyService) ListReplies(ctx context.Context, quoteID string) ([]*models.Reply, error) {
	if _, err := s.quotes.GetByID(ctx, quoteID, ""); err != nil {
		return nil, err
	}
	return s.replies.ListByQuote(ctx, quoteID, ReplyPageSize)
}

// CreateReply stores a reply and bumps the parent's reply count in one
// transaction, then notifies the quote's author.
func (s *ReplyService) CreateReply(ctx context.Context, in CreateReplyInput) (*models.Reply, error) {
	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if err := s.checker.CheckReply(text); err != nil {
		return nil, err
	}
	quote, err := s.quotes.GetByID(ctx, in.QuoteID, "")
	if err != nil {
		return nil, err
	}

	author, displayName, image, err := authorIdentity(ctx, s.profiles, in.Actor, in.Author)
	if err != nil {
		return nil, err
	}
	reply := &models.Reply{
		QuoteID:            in.QuoteID,
		Text:               text,
		Author:             author,
		AuthorUID:          in.Actor.UID,
		AuthorDisplayName:  displayName,
		AuthorProfileImage: image,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}

	if s.emitter != nil {
		_, err := s.emitter.EmitOnReply(ctx, notifications.ReplyEvent{
			QuoteID:              quote.ID,
			QuoteText:            quote.Text,
			ToUserID:             quote.AuthorUIDValue(),
			FromUserID:           in.Actor.UID,
			FromUserName:         displayName,
			FromUserProfileImage: image,
			FromAnonymous:        in.Actor.Anonymous,
			ReplyText:            text,
			ReplyAuthor:          author,
		})
		if err != nil {
			observability.LogAsyncOperationError(ctx, "reply_notification", err, map[string]interface{}{
				"quote_id": quote.ID,
				"reply_id": reply.ID,
			})
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAll(ctx, notifications.EventReplyCreated, reply); err != nil {
			observability.LogAsyncOperationError(ctx, "reply_publish", err, map[string]interface{}{
				"reply_id": reply.ID,
			})
		}
	}
	return reply, nil
}

// DeleteReply removes a reply on behalf of its author or an administrator and
// decrements the parent's reply count in the same transaction.
func (s *ReplyService) DeleteReply(ctx context.Context, in DeleteReplyInput) error {
	if err := in.Actor.require(); err != nil {
		return err
	}
	reply, err := s.replies.GetByID(ctx, in.ReplyID)
	if err != nil {
		return err
	}
	if in.QuoteID != "" && reply.QuoteID != in.QuoteID {
		return models.NewNotFoundError("Reply", in.ReplyID)
	}
	if reply.AuthorUID != in.Actor.UID {
		admin, err := s.isAdmin(ctx, in.Actor.UID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("Not authorized to delete this reply")
		}
	}
	return s.replies.Delete(ctx, reply)
}
