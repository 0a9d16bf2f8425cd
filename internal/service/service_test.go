package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eminence/internal/badges"
	"eminence/internal/featureflags"
	"eminence/internal/models"
	"eminence/internal/notifications"
	"eminence/internal/repository"
	"eminence/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// emitterStub records notification requests.
type emitterStub struct {
	mu      sync.Mutex
	likes   []notifications.LikeEvent
	replies []notifications.ReplyEvent
	err     error
}

func (e *emitterStub) EmitOnLike(_ context.Context, ev notifications.LikeEvent) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.likes = append(e.likes, ev)
	return e.err == nil, e.err
}

func (e *emitterStub) EmitOnReply(_ context.Context, ev notifications.ReplyEvent) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies = append(e.replies, ev)
	return e.err == nil, e.err
}

// publisherStub records realtime event types.
type publisherStub struct {
	mu   sync.Mutex
	user []string
	all  []string
	err  error
}

func (p *publisherStub) PublishUser(_ context.Context, userID, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = append(p.user, userID+":"+eventType)
	return p.err
}

func (p *publisherStub) PublishAll(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.all = append(p.all, eventType)
	return p.err
}

type badgeCall struct {
	uid     string
	signals badges.Signals
}

// badgeCheckerStub records badge checks and answers with a fixed result.
type badgeCheckerStub struct {
	mu      sync.Mutex
	calls   []badgeCall
	granted []string
	err     error
}

func (b *badgeCheckerStub) CheckAndAward(_ context.Context, uid string, signals badges.Signals) (badges.AwardResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, badgeCall{uid: uid, signals: signals})
	if b.err != nil {
		return badges.AwardResult{}, b.err
	}
	return badges.AwardResult{Granted: b.granted}, nil
}

// quoteRepoStub overrides selected QuoteRepository methods; the rest panic.
type quoteRepoStub struct {
	repository.QuoteRepository
	createFn  func(context.Context, *models.Quote) error
	getByIDFn func(context.Context, string, string) (*models.Quote, error)
}

func (s *quoteRepoStub) Create(ctx context.Context, q *models.Quote) error {
	return s.createFn(ctx, q)
}

func (s *quoteRepoStub) GetByID(ctx context.Context, id, viewerID string) (*models.Quote, error) {
	return s.getByIDFn(ctx, id, viewerID)
}

type fixture struct {
	db        *gorm.DB
	quotes    repository.QuoteRepository
	counters  repository.CounterStore
	profiles  repository.ProfileRepository
	users     repository.UserRepository
	replies   repository.ReplyRepository
	reports   repository.ReportRepository
	notifs    repository.NotificationRepository
	tops      repository.DailyTopRepository
	emitter   *emitterStub
	publisher *publisherStub
	badges    *badgeCheckerStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &fixture{
		db:        db,
		quotes:    repository.NewQuoteRepository(db),
		counters:  repository.NewCounterStore(db, time.UTC),
		profiles:  repository.NewProfileRepository(db),
		users:     repository.NewUserRepository(db),
		replies:   repository.NewReplyRepository(db),
		reports:   repository.NewReportRepository(db),
		notifs:    repository.NewNotificationRepository(db),
		tops:      repository.NewDailyTopRepository(db),
		emitter:   &emitterStub{},
		publisher: &publisherStub{},
		badges:    &badgeCheckerStub{},
	}
}

func (f *fixture) quoteService(flags string) *QuoteService {
	return NewQuoteService(QuoteServiceDeps{
		Quotes:    f.quotes,
		Counters:  f.counters,
		Profiles:  f.profiles,
		Reports:   f.reports,
		Badges:    f.badges,
		Emitter:   f.emitter,
		Publisher: f.publisher,
		Flags:     featureflags.NewManager(flags),
		IsAdmin:   AdminCheckFromProfiles(f.profiles),
	})
}

func (f *fixture) replyService() *ReplyService {
	return NewReplyService(f.replies, f.quotes, f.profiles, nil, f.emitter, f.publisher, AdminCheckFromProfiles(f.profiles))
}

// seedQuote stores a quote by authorUID directly.
func (f *fixture) seedQuote(t *testing.T, authorUID, text string) *models.Quote {
	t.Helper()
	uid := authorUID
	zero := 0
	q := &models.Quote{Text: text, Author: "作者", AuthorUID: &uid, ReplyCount: &zero}
	require.NoError(t, f.quotes.Create(context.Background(), q))
	return q
}

func (f *fixture) setDisplayName(t *testing.T, uid, name string) {
	t.Helper()
	_, err := f.profiles.Update(context.Background(), uid, repository.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestNormalizePage(t *testing.T) {
	limit, offset := NormalizePage(0, -3)
	assert.Equal(t, DefaultPageSize, limit)
	assert.Equal(t, 0, offset)

	limit, offset = NormalizePage(1000, 40)
	assert.Equal(t, MaxPageSize, limit)
	assert.Equal(t, 40, offset)
}

func TestAdminCheckFromProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	isAdmin := AdminCheckFromProfiles(f.profiles)

	ok, err := isAdmin(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.profiles.AwardBadges(ctx, "mod", []string{badges.AdminBadgeID}, models.MaxSelectedBadges)
	require.NoError(t, err)
	ok, err = isAdmin(ctx, "mod")
	require.NoError(t, err)
	assert.True(t, ok)
}
