package service

import (
	"context"
	"strings"
	"testing"

	"eminence/internal/badges"
	"eminence/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) adminService() *AdminService {
	awarder := badges.NewAwarder(f.profiles, f.counters, nil)
	return NewAdminService(awarder, f.profiles, f.replies, f.quotes)
}

func TestAdminService_GrantRevokeList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.adminService()

	granted, err := svc.GrantBadge(ctx, "u1", "verified")
	require.NoError(t, err)
	assert.True(t, granted)
	granted, err = svc.GrantBadge(ctx, "u1", "verified")
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = svc.GrantBadge(ctx, "u1", "made_up")
	assertCode(t, err, models.CodeValidation)
	_, err = svc.GrantBadge(ctx, "", "verified")
	assertCode(t, err, models.CodeValidation)

	holders, err := svc.ListHolders(ctx, "verified")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, holders)
	_, err = svc.ListHolders(ctx, "made_up")
	assertCode(t, err, models.CodeValidation)

	revoked, err := svc.RevokeBadge(ctx, "u1", "verified")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = svc.RevokeBadge(ctx, "u1", "verified")
	require.NoError(t, err)
	assert.False(t, revoked)

	p, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.AllBadges)
	assert.Empty(t, p.SelectedBadges)
}

func TestAdminService_RecountReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.seedQuote(t, "author", "急いては事を仕損じる")
	_, err := f.replyService().CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "r"}, QuoteID: q.ID, Text: "たしかに"})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Quote{}).Where("id = ?", q.ID).UpdateColumn("reply_count", 7).Error)

	changed, err := f.adminService().RecountReplies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	got, err := f.quotes.GetByID(ctx, q.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReplyCountValue())
}

func TestAdminService_ImportQuotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := strings.Join([]string{
		`{"id":"legacy-1","text":"人間万事塞翁が馬","likedBy":["a","b"],"bookmarkedBy":["a"]}`,
		`{"id":"legacy-2","text":"井の中の蛙","author":"","authorUid":"u9","replyCount":1}`,
		`{"text":"no id"}`,
		`not json`,
	}, "\n")

	res, err := f.adminService().ImportQuotes(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 3, res.Failed[0].Line)
	assert.Equal(t, 4, res.Failed[1].Line)

	q, err := f.quotes.GetByID(ctx, "legacy-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, q.Likes)
	assert.True(t, q.Liked)
	assert.True(t, q.Bookmarked)
	assert.Equal(t, models.AnonymousAuthor, q.Author)

	q, err = f.quotes.GetByID(ctx, "legacy-2", "")
	require.NoError(t, err)
	assert.Equal(t, "u9", q.AuthorUIDValue())
	assert.Equal(t, 1, q.ReplyCountValue())

	res, err = f.adminService().ImportQuotes(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
}
