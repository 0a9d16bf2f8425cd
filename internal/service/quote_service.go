package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eminence/internal/badges"
	"eminence/internal/featureflags"
	"eminence/internal/models"
	"eminence/internal/moderation"
	"eminence/internal/notifications"
	"eminence/internal/observability"
	"eminence/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultAnonymousPostLimit is how many quotes an anonymous caller may post per day.
const DefaultAnonymousPostLimit = 5

// reviewReporterID marks reports filed automatically by the review queue.
const reviewReporterID = "system"

// QuoteService owns quotes and the like and bookmark toggles on them.
type QuoteService struct {
	quotes    repository.QuoteRepository
	counters  repository.CounterStore
	profiles  repository.ProfileRepository
	reports   repository.ReportRepository
	checker   *moderation.Checker
	badges    BadgeChecker
	emitter   NotificationEmitter
	publisher EventPublisher
	flags     *featureflags.Manager
	isAdmin   func(ctx context.Context, uid string) (bool, error)
	loc       *time.Location
	anonLimit int
	now       func() time.Time
}

// QuoteServiceDeps wires a QuoteService. Badges, Emitter, Publisher, Reports
// and Flags may be nil.
type QuoteServiceDeps struct {
	Quotes    repository.QuoteRepository
	Counters  repository.CounterStore
	Profiles  repository.ProfileRepository
	Reports   repository.ReportRepository
	Checker   *moderation.Checker
	Badges    BadgeChecker
	Emitter   NotificationEmitter
	Publisher EventPublisher
	Flags     *featureflags.Manager
	IsAdmin   func(ctx context.Context, uid string) (bool, error)
	Location  *time.Location
	// AnonymousPostLimit is the daily quota for anonymous callers; zero uses the default.
	AnonymousPostLimit int
}

type ListQuotesInput struct {
	Limit    int
	Offset   int
	ViewerID string
	Sort     string
}

type CreateQuoteInput struct {
	Actor  Actor
	Text   string
	Author string
}

// CreateQuoteResult is the stored quote plus any badges the post unlocked.
type CreateQuoteResult struct {
	Quote     *models.Quote `json:"quote"`
	NewBadges []string      `json:"newBadges"`
}

type UpdateQuoteInput struct {
	Actor   Actor
	QuoteID string
	Text    string
	Author  string
}

type DeleteQuoteInput struct {
	Actor   Actor
	QuoteID string
}

type ToggleInput struct {
	Actor   Actor
	QuoteID string
}

func NewQuoteService(d QuoteServiceDeps) *QuoteService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	limit := d.AnonymousPostLimit
	if limit <= 0 {
		limit = DefaultAnonymousPostLimit
	}
	checker := d.Checker
	if checker == nil {
		checker = moderation.NewChecker(moderation.DefaultRules())
	}
	isAdmin := d.IsAdmin
	if isAdmin == nil {
		isAdmin = func(context.Context, string) (bool, error) { return false, nil }
	}
	return &QuoteService{
		quotes:    d.Quotes,
		counters:  d.Counters,
		profiles:  d.Profiles,
		reports:   d.Reports,
		checker:   checker,
		badges:    d.Badges,
		emitter:   d.Emitter,
		publisher: d.Publisher,
		flags:     d.Flags,
		isAdmin:   isAdmin,
		loc:       loc,
		anonLimit: limit,
		now:       time.Now,
	}
}

func (s *QuoteService) ListQuotes(ctx context.Context, in ListQuotesInput) ([]*models.Quote, error) {
	limit, offset := NormalizePage(in.Limit, in.Offset)
	sort := in.Sort
	switch sort {
	case "", repository.SortNew:
		sort = repository.SortNew
	case repository.SortPopular:
	default:
		return nil, models.NewValidationError("sort must be new or popular")
	}
	return s.quotes.List(ctx, limit, offset, in.ViewerID, sort)
}

func (s *QuoteService) SearchQuotes(ctx context.Context, query string, limit, offset int, viewerID string) ([]*models.Quote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	limit, offset = NormalizePage(limit, offset)
	return s.quotes.Search(ctx, query, limit, offset, viewerID)
}

func (s *QuoteService) GetQuote(ctx context.Context, id, viewerID string) (*models.Quote, error) {
	return s.quotes.GetByID(ctx, id, viewerID)
}

func (s *QuoteService) ListByAuthor(ctx context.Context, authorUID string, limit, offset int, viewerID string) ([]*models.Quote, error) {
	limit, offset = NormalizePage(limit, offset)
	return s.quotes.ListByAuthor(ctx, authorUID, limit, offset, viewerID)
}

func (s *QuoteService) ListBookmarks(ctx context.Context, uid string, limit, offset int) ([]*models.Quote, error) {
	if uid == "" {
		return nil, models.ErrAuthPending
	}
	limit, offset = NormalizePage(limit, offset)
	return s.quotes.ListBookmarked(ctx, uid, limit, offset)
}

// CreateQuote screens and stores a quote, then runs the poster's badge check.
// Anonymous posting is gated by a feature flag and a rolling daily quota.
func (s *QuoteService) CreateQuote(ctx context.Context, in CreateQuoteInput) (*CreateQuoteResult, error) {
	span, ctx := observability.NewSpan(ctx, "QuoteService.CreateQuote",
		attribute.Bool("actor.anonymous", in.Actor.Anonymous))
	defer span.End()

	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if err := s.checker.Check(text); err != nil {
		return nil, err
	}

	now := s.now()
	if in.Actor.Anonymous {
		if err := s.checkAnonymousQuota(ctx, in.Actor.UID, now); err != nil {
			return nil, err
		}
	}

	author, displayName, image, err := authorIdentity(ctx, s.profiles, in.Actor, in.Author)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	uid := in.Actor.UID
	zero := 0
	quote := &models.Quote{
		Text:               text,
		Author:             author,
		AuthorUID:          &uid,
		AuthorDisplayName:  displayName,
		AuthorProfileImage: image,
		ReplyCount:         &zero,
	}
	if err := s.quotes.Create(ctx, quote); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.LogServiceCall(ctx, "QuoteService", "CreateQuote", map[string]interface{}{
		"quote_id":  quote.ID,
		"anonymous": in.Actor.Anonymous,
	})

	s.queueForReview(ctx, quote)

	result := &CreateQuoteResult{Quote: quote, NewBadges: []string{}}
	if !in.Actor.Anonymous && s.badges != nil {
		awarded, err := s.badges.CheckAndAward(ctx, uid, badges.AtHour(now.In(s.loc).Hour()))
		if err != nil {
			observability.LogAsyncOperationError(ctx, "badge_check_on_post", err, map[string]interface{}{
				"user_id": uid,
			})
		} else if len(awarded.Granted) > 0 {
			result.NewBadges = awarded.Granted
		}
	}
	return result, nil
}

func (s *QuoteService) checkAnonymousQuota(ctx context.Context, uid string, now time.Time) error {
	if !s.flags.Enabled(featureflags.AnonymousPosting, uid) {
		return models.NewForbiddenError("匿名での投稿は現在利用できません")
	}
	posted, err := s.quotes.CountByAuthorSince(ctx, uid, now.Add(-24*time.Hour))
	if err != nil {
		return err
	}
	if posted >= int64(s.anonLimit) {
		return models.NewForbiddenError(fmt.Sprintf("匿名での投稿は1日%d件までです", s.anonLimit))
	}
	return nil
}

// queueForReview files a system report for accepted text that still deserves a look.
func (s *QuoteService) queueForReview(ctx context.Context, quote *models.Quote) {
	if s.reports == nil || !s.flags.Enabled(featureflags.ReviewQueue, "") || !s.checker.NeedsReview(quote.Text) {
		return
	}
	quoteID := quote.ID
	err := s.reports.Create(ctx, &models.Report{
		QuoteID:        &quoteID,
		ReporterID:     reviewReporterID,
		Reason:         models.ReportOther,
		AdditionalInfo: "automatic review: flagged words",
	})
	if err != nil {
		observability.LogAsyncOperationError(ctx, "review_queue", err, map[string]interface{}{
			"quote_id": quoteID,
		})
	}
}

// UpdateQuote lets the author edit text and attribution.
func (s *QuoteService) UpdateQuote(ctx context.Context, in UpdateQuoteInput) (*models.Quote, error) {
	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	quote, err := s.quotes.GetByID(ctx, in.QuoteID, in.Actor.UID)
	if err != nil {
		return nil, err
	}
	if quote.AuthorUIDValue() != in.Actor.UID {
		return nil, models.NewForbiddenError("Not authorized to update this quote")
	}

	text := strings.TrimSpace(in.Text)
	if err := s.checker.Check(text); err != nil {
		return nil, err
	}
	quote.Text = text
	if author := models.TruncateRunes(strings.TrimSpace(in.Author), 100); author != "" {
		quote.Author = author
	}
	if err := s.quotes.Update(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// DeleteQuote removes a quote on behalf of its author or an administrator.
func (s *QuoteService) DeleteQuote(ctx context.Context, in DeleteQuoteInput) error {
	if err := in.Actor.require(); err != nil {
		return err
	}
	quote, err := s.quotes.GetByID(ctx, in.QuoteID, in.Actor.UID)
	if err != nil {
		return err
	}
	if quote.AuthorUIDValue() != in.Actor.UID {
		admin, err := s.isAdmin(ctx, in.Actor.UID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("Not authorized to delete this quote")
		}
	}
	return s.quotes.Delete(ctx, in.QuoteID)
}

// ToggleLike flips the caller's like and returns the authoritative state.
// Notification, author badge check and realtime update run only after the
// toggle committed, and their failures never reach the caller.
func (s *QuoteService) ToggleLike(ctx context.Context, in ToggleInput) (*models.ToggleResponse, error) {
	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	res, err := s.counters.ToggleMembership(ctx, repository.LikedBy, in.QuoteID, in.Actor.UID)
	if err != nil {
		return nil, err
	}
	resp := &models.ToggleResponse{QuoteID: in.QuoteID, Member: res.IsMember(), Count: res.NewCount}

	quote, err := s.quotes.GetByID(ctx, in.QuoteID, "")
	if err != nil {
		observability.LogAsyncOperationError(ctx, "like_followup_load", err, map[string]interface{}{
			"quote_id": in.QuoteID,
		})
		return resp, nil
	}
	authorUID := quote.AuthorUIDValue()

	if resp.Member {
		s.notifyLike(ctx, in.Actor, quote)
	}
	if authorUID != "" && authorUID != in.Actor.UID && s.badges != nil {
		if _, err := s.badges.CheckAndAward(ctx, authorUID, badges.Signals{}); err != nil {
			observability.LogAsyncOperationError(ctx, "badge_check_on_like", err, map[string]interface{}{
				"user_id":  authorUID,
				"quote_id": in.QuoteID,
			})
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAll(ctx, notifications.EventQuoteLikeUpdated, resp); err != nil {
			observability.LogAsyncOperationError(ctx, "like_publish", err, map[string]interface{}{
				"quote_id": in.QuoteID,
			})
		}
	}
	return resp, nil
}

func (s *QuoteService) notifyLike(ctx context.Context, actor Actor, quote *models.Quote) {
	if s.emitter == nil {
		return
	}
	ev := notifications.LikeEvent{
		QuoteID:       quote.ID,
		QuoteText:     quote.Text,
		ToUserID:      quote.AuthorUIDValue(),
		FromUserID:    actor.UID,
		FromAnonymous: actor.Anonymous,
	}
	if !actor.Anonymous && s.profiles != nil {
		if profile, err := s.profiles.Get(ctx, actor.UID); err == nil {
			ev.FromUserName = profile.DisplayName
			ev.FromUserProfileImage = profile.ProfileImageURL
		}
	}
	if _, err := s.emitter.EmitOnLike(ctx, ev); err != nil {
		observability.LogAsyncOperationError(ctx, "like_notification", err, map[string]interface{}{
			"quote_id": quote.ID,
		})
	}
}

// ToggleBookmark flips the caller's bookmark. Count is the number of bookmarks.
func (s *QuoteService) ToggleBookmark(ctx context.Context, in ToggleInput) (*models.ToggleResponse, error) {
	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	res, err := s.counters.ToggleMembership(ctx, repository.BookmarkedBy, in.QuoteID, in.Actor.UID)
	if err != nil {
		return nil, err
	}
	return &models.ToggleResponse{QuoteID: in.QuoteID, Member: res.IsMember(), Count: res.NewCount}, nil
}
