package service

import (
	"context"
	"log/slog"
	"time"

	"eminence/internal/cache"
	"eminence/internal/featureflags"
	"eminence/internal/models"
	"eminence/internal/notifications"
	"eminence/internal/observability"
	"eminence/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultDigestHour is the local hour the digest runs when none is configured.
const DefaultDigestHour = 21

// Digest run outcomes recorded in metrics.
const (
	digestPublished = "published"
	digestNoQuotes  = "no_quotes"
	digestDisabled  = "disabled"
	digestDuplicate = "already_ran"
	digestFailed    = "failed"
)

// DigestResult describes one digest run. Top is nil when nothing was chosen.
type DigestResult struct {
	Top        *models.DailyTopQuote `json:"top"`
	Recipients int                   `json:"recipients"`
	PushJobs   int                   `json:"pushJobs"`
	AlreadyRan bool                  `json:"alreadyRan"`
}

// PushEnqueuer queues multicast push jobs.
type PushEnqueuer interface {
	EnqueueMulticast(ctx context.Context, job notifications.PushJob) (int, error)
}

// DigestService picks the day's most liked quote and announces it.
type DigestService struct {
	quotes    repository.QuoteRepository
	tops      repository.DailyTopRepository
	users     repository.UserRepository
	push      PushEnqueuer
	publisher EventPublisher
	flags     *featureflags.Manager
	loc       *time.Location
	hour      int
}

// NewDigestService creates the service. push, publisher and flags may be nil;
// a nil flag manager leaves the digest enabled.
func NewDigestService(
	quotes repository.QuoteRepository,
	tops repository.DailyTopRepository,
	users repository.UserRepository,
	push PushEnqueuer,
	publisher EventPublisher,
	flags *featureflags.Manager,
	loc *time.Location,
	hour int,
) *DigestService {
	if loc == nil {
		loc = time.UTC
	}
	if hour < 0 || hour > 23 {
		hour = DefaultDigestHour
	}
	return &DigestService{
		quotes:    quotes,
		tops:      tops,
		users:     users,
		push:      push,
		publisher: publisher,
		flags:     flags,
		loc:       loc,
		hour:      hour,
	}
}

// DayBounds returns the local calendar day containing now as [start, end).
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// NextRun returns the first scheduled run strictly after now.
func (s *DigestService) NextRun(now time.Time) time.Time {
	start, _ := DayBounds(now, s.loc)
	next := time.Date(start.Year(), start.Month(), start.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// pickTop returns the quote with the most likes. quotes must be newest first,
// so a tie goes to the newer quote.
func pickTop(quotes []*models.Quote) *models.Quote {
	var top *models.Quote
	for _, q := range quotes {
		if top == nil || q.Likes > top.Likes {
			top = q
		}
	}
	return top
}

// Run selects the top quote of the local day containing now, records it and
// queues the push. A day that already has an entry is not announced twice.
func (s *DigestService) Run(ctx context.Context, now time.Time) (*DigestResult, error) {
	span, ctx := observability.NewSpan(ctx, "DigestService.Run")
	defer span.End()

	if s.flags != nil && !s.flags.Enabled(featureflags.DailyDigest, "") {
		observability.DigestRuns.WithLabelValues(digestDisabled).Inc()
		return &DigestResult{}, nil
	}

	start, end := DayBounds(now, s.loc)
	span.AddAttributes(attribute.String("digest.date", start.Format("2006-01-02")))

	existing, err := s.tops.ForDate(ctx, start)
	switch {
	case err == nil:
		observability.DigestRuns.WithLabelValues(digestDuplicate).Inc()
		return &DigestResult{Top: existing, AlreadyRan: true}, nil
	case !models.HasCode(err, models.CodeNotFound):
		return nil, s.fail(span, err)
	}

	quotes, err := s.quotes.CreatedBetween(ctx, start, end)
	if err != nil {
		return nil, s.fail(span, err)
	}
	best := pickTop(quotes)
	if best == nil {
		observability.DigestRuns.WithLabelValues(digestNoQuotes).Inc()
		observability.GlobalLogger.InfoContext(ctx, "no quotes for digest", slog.String("date", start.Format("2006-01-02")))
		return &DigestResult{}, nil
	}

	top := &models.DailyTopQuote{
		QuoteID: best.ID,
		Text:    best.Text,
		Author:  best.Author,
		Likes:   best.Likes,
		Date:    start.UTC(),
	}
	if err := s.tops.Save(ctx, top); err != nil {
		return nil, s.fail(span, err)
	}
	cache.Invalidate(ctx, cache.DailyTopKey)

	result := &DigestResult{Top: top}
	if err := s.announce(ctx, top, result); err != nil {
		observability.LogAsyncOperationError(ctx, "digest_push", err, map[string]interface{}{
			"quote_id": top.QuoteID,
		})
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAll(ctx, notifications.EventDailyTopQuote, top); err != nil {
			observability.LogAsyncOperationError(ctx, "digest_publish", err, map[string]interface{}{
				"quote_id": top.QuoteID,
			})
		}
	}

	observability.DigestRuns.WithLabelValues(digestPublished).Inc()
	observability.GlobalLogger.InfoContext(ctx, "daily top quote published",
		slog.String("quote_id", top.QuoteID),
		slog.Int("likes", top.Likes),
		slog.Int("recipients", result.Recipients),
		slog.Int("push_jobs", result.PushJobs),
	)
	return result, nil
}

func (s *DigestService) announce(ctx context.Context, top *models.DailyTopQuote, result *DigestResult) error {
	if s.push == nil || s.users == nil {
		return nil
	}
	recipients, err := s.users.PushRecipients(ctx)
	if err != nil {
		return err
	}
	tokens := make([]string, 0, len(recipients))
	for _, u := range recipients {
		if u.CanReceivePush() {
			tokens = append(tokens, *u.FCMToken)
		}
	}
	result.Recipients = len(tokens)
	if len(tokens) == 0 {
		return nil
	}
	jobs, err := s.push.EnqueueMulticast(ctx, notifications.PushJob{
		Kind:   notifications.PushKindDigest,
		Tokens: tokens,
		Title:  notifications.DigestPushTitle,
		Body:   notifications.DigestPushBody(top.Text, top.Author, top.Likes),
		Data:   map[string]string{"quoteId": top.QuoteID, "type": notifications.PushKindDigest},
	})
	result.PushJobs = jobs
	return err
}

func (s *DigestService) fail(span *observability.Span, err error) error {
	span.SetError(err)
	observability.DigestRuns.WithLabelValues(digestFailed).Inc()
	return err
}

// Latest returns the most recent daily top quote.
func (s *DigestService) Latest(ctx context.Context) (*models.DailyTopQuote, error) {
	var top models.DailyTopQuote
	err := cache.Aside(ctx, cache.DailyTopKey, &top, cache.DailyTopTTL, func() error {
		latest, err := s.tops.Latest(ctx)
		if err != nil {
			return err
		}
		top = *latest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &top, nil
}
