package seed

import (
	"context"
	"errors"
	"testing"

	"eminence/internal/bootstrap"
	"eminence/internal/config"
	"eminence/internal/models"
	"eminence/internal/optimistic"
	"eminence/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newServices(t *testing.T) (*bootstrap.Services, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:    "seed-secret",
		FeatureFlags: "anonymous_posting=on,daily_digest=on",
		Timezone:     "UTC",
		DigestHour:   21,
	}
	svc, err := bootstrap.NewServices(cfg, db, nil)
	require.NoError(t, err)
	return svc, db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeeder_Run(t *testing.T) {
	svc, db := newServices(t)
	ctx := context.Background()

	s := NewSeeder(svc, nil, 42)
	defer s.Close()

	res, err := s.Run(ctx, Options{
		Users:           4,
		QuotesPerUser:   2,
		MaxLikes:        3,
		MaxReplies:      2,
		BookmarkPercent: 50,
		AdminUID:        "ops",
	})
	require.NoError(t, err)
	assert.Len(t, res.Users, 4)
	assert.Len(t, res.Quotes, 8)
	assert.Zero(t, res.Failures)
	assert.Zero(t, res.Snaps, "in-process toggles should land exactly as flipped")
	assert.Zero(t, res.Rollbacks)

	var likes int64
	require.NoError(t, db.Model(&models.Quote{}).Select("COALESCE(SUM(likes), 0)").Scan(&likes).Error)
	assert.Equal(t, int64(res.Likes), likes)
	assert.Equal(t, int64(res.Likes), count(t, db, &models.QuoteLike{}))
	assert.Equal(t, int64(res.Bookmarks), count(t, db, &models.QuoteBookmark{}))
	assert.Equal(t, int64(res.Replies), count(t, db, &models.Reply{}))

	changed, err := svc.Admin.RecountReplies(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed, "reply counts should already match stored replies")

	for _, uid := range res.Users {
		profile, err := svc.Profiles.GetProfile(ctx, uid)
		require.NoError(t, err)
		assert.NotEqual(t, models.DefaultDisplayName, profile.DisplayName)
		assert.Equal(t, 2, profile.PostCount)
		assert.Contains(t, profile.AllBadges, "first_post")
	}

	admin, err := svc.IsAdmin(ctx, "ops")
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestSeeder_RequiresUsers(t *testing.T) {
	svc, _ := newServices(t)
	s := NewSeeder(svc, nil, 1)
	defer s.Close()

	_, err := s.Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestServiceMutator_Toggle(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	s := NewSeeder(svc, nil, 7)
	defer s.Close()

	uid, err := s.createUser(ctx, 0)
	require.NoError(t, err)
	quoteID, err := s.createQuote(ctx, uid)
	require.NoError(t, err)

	m := ServiceMutator{Quotes: svc.Quotes}
	state, err := m.Toggle(ctx, quoteID, "viewer", optimistic.KindLike)
	require.NoError(t, err)
	assert.Equal(t, optimistic.ServerState{Member: true, Count: 1}, state)

	state, err = m.Toggle(ctx, quoteID, "viewer", optimistic.KindLike)
	require.NoError(t, err)
	assert.Equal(t, optimistic.ServerState{Member: false, Count: 0}, state)

	state, err = m.Toggle(ctx, quoteID, "viewer", optimistic.KindBookmark)
	require.NoError(t, err)
	assert.True(t, state.Member)

	_, err = m.Toggle(ctx, quoteID, "viewer", optimistic.Kind("share"))
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

// skewedMutator reports one more like than the server stored, as if another
// viewer liked the quote at the same moment.
type skewedMutator struct {
	ServiceMutator
}

func (m skewedMutator) Toggle(ctx context.Context, quoteID, viewerID string, kind optimistic.Kind) (optimistic.ServerState, error) {
	state, err := m.ServiceMutator.Toggle(ctx, quoteID, viewerID, kind)
	if err == nil && kind == optimistic.KindLike {
		state.Count++
	}
	return state, err
}

type offlineMutator struct {
	ServiceMutator
}

func (offlineMutator) Toggle(context.Context, string, string, optimistic.Kind) (optimistic.ServerState, error) {
	return optimistic.ServerState{}, models.NewTransientError(errors.New("connection refused"))
}

func TestSeeder_CountsSnapsAgainstSeededState(t *testing.T) {
	svc, _ := newServices(t)
	s := NewSeeder(svc, skewedMutator{ServiceMutator{Quotes: svc.Quotes}}, 3)
	defer s.Close()

	res, err := s.Run(context.Background(), Options{Users: 3, QuotesPerUser: 1, MaxLikes: 3})
	require.NoError(t, err)
	assert.Equal(t, res.Likes, res.Snaps)
	assert.Zero(t, res.Rollbacks)
}

func TestSeeder_CountsRollbacks(t *testing.T) {
	svc, db := newServices(t)
	s := NewSeeder(svc, offlineMutator{ServiceMutator{Quotes: svc.Quotes}}, 5)
	defer s.Close()

	res, err := s.Run(context.Background(), Options{Users: 3, QuotesPerUser: 1, BookmarkPercent: 100})
	require.NoError(t, err)
	assert.Zero(t, res.Bookmarks)
	assert.Equal(t, 9, res.Failures)
	assert.Equal(t, 9, res.Rollbacks)
	assert.Zero(t, count(t, db, &models.QuoteBookmark{}))
}
