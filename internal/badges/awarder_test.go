package badges

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eminence/internal/models"
	"eminence/internal/repository"
	"eminence/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Granted
}

func (s *recordingSink) OnBadgeGranted(_ context.Context, g Granted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, g)
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Badge.ID
	}
	return out
}

type stubStore struct {
	award  func(ctx context.Context, uid string, ids []string, maxSelected int) ([]string, error)
	revoke func(ctx context.Context, uid, badgeID string) (bool, error)
}

func (s stubStore) AwardBadges(ctx context.Context, uid string, ids []string, maxSelected int) (repository.BadgeAward, error) {
	inserted, err := s.award(ctx, uid, ids, maxSelected)
	return repository.BadgeAward{Inserted: inserted, FirstGrants: inserted}, err
}

func (s stubStore) RevokeBadge(ctx context.Context, uid, badgeID string) (bool, error) {
	return s.revoke(ctx, uid, badgeID)
}

type stubAggregates func(ctx context.Context, uid string) (repository.Aggregate, error)

func (f stubAggregates) RecomputeAggregate(ctx context.Context, uid string) (repository.Aggregate, error) {
	return f(ctx, uid)
}

func newSQLiteAwarder(t *testing.T) (*Awarder, *recordingSink, repository.ProfileRepository) {
	db := testutil.NewTestDB(t)
	profiles := repository.NewProfileRepository(db)
	sink := &recordingSink{}
	return NewAwarder(profiles, repository.NewCounterStore(db, time.UTC), sink), sink, profiles
}

func TestAwarder_AwardIsIdempotentAndAnnouncesOnce(t *testing.T) {
	awarder, sink, profiles := newSQLiteAwarder(t)
	ctx := context.Background()

	res, err := awarder.Award(ctx, "u1", []string{"ten_likes", "first_post"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_post", "ten_likes"}, res.Granted)

	res, err = awarder.Award(ctx, "u1", []string{"first_post", "ten_likes"})
	require.NoError(t, err)
	assert.Empty(t, res.Granted)
	assert.Equal(t, []string{"first_post", "ten_likes"}, sink.ids())

	p, err := profiles.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_post", "ten_likes"}, p.SelectedBadges)

	sink.mu.Lock()
	first := sink.events[0]
	sink.mu.Unlock()
	assert.Equal(t, GrantedAlertTitle, first.AlertTitle)
	assert.Equal(t, "初投稿 - 初めての名言を投稿", first.AlertBody)
}

func TestAwarder_ConcurrentAwardsGrantEachBadgeOnce(t *testing.T) {
	awarder, sink, _ := newSQLiteAwarder(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := awarder.Award(ctx, "u1", []string{"first_post", "five_posts"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.ElementsMatch(t, []string{"first_post", "five_posts"}, sink.ids())
}

func TestAwarder_SelectionStopsAtFour(t *testing.T) {
	awarder, _, profiles := newSQLiteAwarder(t)
	ctx := context.Background()

	_, err := awarder.Award(ctx, "u1", []string{"first_post", "five_posts", "ten_posts", "ten_likes", "fifty_likes", "early_bird"})
	require.NoError(t, err)

	p, err := profiles.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, p.AllBadges, 6)
	assert.Len(t, p.SelectedBadges, models.MaxSelectedBadges)
	assert.Equal(t, []string{"first_post", "five_posts", "ten_posts", "ten_likes"}, p.SelectedBadges)
}

func TestAwarder_StoreFailureAnnouncesNothing(t *testing.T) {
	sink := &recordingSink{}
	boom := models.NewTransientError(errors.New("db down"))
	store := stubStore{award: func(context.Context, string, []string, int) ([]string, error) { return nil, boom }}
	awarder := NewAwarder(store, nil, sink)

	_, err := awarder.Award(context.Background(), "u1", []string{"first_post"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, sink.ids())
}

func TestAwarder_CheckAndAwardAbortsWhenAggregateFails(t *testing.T) {
	called := false
	store := stubStore{award: func(context.Context, string, []string, int) ([]string, error) {
		called = true
		return nil, nil
	}}
	aggregates := stubAggregates(func(context.Context, string) (repository.Aggregate, error) {
		return repository.Aggregate{}, errors.New("unavailable")
	})
	awarder := NewAwarder(store, aggregates, &recordingSink{})

	_, err := awarder.CheckAndAward(context.Background(), "u1", AtHour(6))
	assert.Error(t, err)
	assert.False(t, called)
}

func TestAwarder_CheckAndAwardUsesAggregateAndHour(t *testing.T) {
	var awarded []string
	store := stubStore{award: func(_ context.Context, _ string, ids []string, max int) ([]string, error) {
		assert.Equal(t, models.MaxSelectedBadges, max)
		awarded = ids
		return ids, nil
	}}
	aggregates := stubAggregates(func(context.Context, string) (repository.Aggregate, error) {
		return repository.Aggregate{PostCount: 5, TotalLikesReceived: 10, StreakDays: 7, AllBadges: []string{"first_post"}}, nil
	})
	awarder := NewAwarder(store, aggregates, nil)

	res, err := awarder.CheckAndAward(context.Background(), "u1", AtHour(1))
	require.NoError(t, err)
	want := []string{"five_posts", "ten_likes", "weekly_post", "night_owl"}
	assert.Equal(t, want, awarded)
	assert.Equal(t, want, res.Granted)
}

func TestAwarder_GrantAndRevoke(t *testing.T) {
	awarder, sink, profiles := newSQLiteAwarder(t)
	ctx := context.Background()

	_, err := awarder.Grant(ctx, "u1", "golden_pen")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	granted, err := awarder.Grant(ctx, "u1", AdminBadgeID)
	require.NoError(t, err)
	assert.True(t, granted)
	sink.mu.Lock()
	assert.Equal(t, SourceAdmin, sink.events[0].Source)
	sink.mu.Unlock()

	removed, err := awarder.Revoke(ctx, "u1", AdminBadgeID)
	require.NoError(t, err)
	assert.True(t, removed)

	p, err := profiles.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.AllBadges)
	assert.Empty(t, p.SelectedBadges)

	// granting again restores the badge without a second announcement
	granted, err = awarder.Grant(ctx, "u1", AdminBadgeID)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, []string{AdminBadgeID}, sink.ids())

	p, err = profiles.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{AdminBadgeID}, p.AllBadges)
}
