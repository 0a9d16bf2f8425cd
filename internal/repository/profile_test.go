package repository

import (
	"context"
	"testing"

	"eminence/internal/models"
	"eminence/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_GetOrCreateIsLazyAndStable(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	p, err := repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDisplayName, p.DisplayName)
	assert.Empty(t, p.AllBadges)

	name := "ゆうき"
	_, err = repo.Update(ctx, "u1", ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)

	p, err = repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ゆうき", p.DisplayName)
}

func TestProfileRepository_AwardBadgesAutoSelectsUpToLimit(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	award, err := repo.AwardBadges(ctx, "u1", []string{"first_post", "five_posts", "ten_posts"}, models.MaxSelectedBadges)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_post", "five_posts", "ten_posts"}, award.Inserted)
	assert.Equal(t, award.Inserted, award.FirstGrants)

	award, err = repo.AwardBadges(ctx, "u1", []string{"first_post", "ten_likes", "fifty_likes"}, models.MaxSelectedBadges)
	require.NoError(t, err)
	assert.Equal(t, []string{"ten_likes", "fifty_likes"}, award.Inserted)

	p, err := repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, p.AllBadges, 5)
	assert.Equal(t, []string{"first_post", "five_posts", "ten_posts", "ten_likes"}, p.SelectedBadges)
}

func TestProfileRepository_AwardBadgesLocksProfileFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "user_profiles" WHERE uid = .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("u1"))
	mock.ExpectExec(`INSERT INTO "user_badges"`).
		WillReturnError(&pgconn.PgError{Code: pgSerializationFailure})
	mock.ExpectRollback()

	_, err := repo.AwardBadges(context.Background(), "u1", []string{"first_post"}, models.MaxSelectedBadges)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeTransient))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_SelectAndRevoke(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	_, err := repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	_, err = repo.AwardBadges(ctx, "u1", []string{"first_post", "ten_likes", "admin"}, models.MaxSelectedBadges)
	require.NoError(t, err)

	err = repo.SetSelectedBadges(ctx, "u1", []string{"developer"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	require.NoError(t, repo.SetSelectedBadges(ctx, "u1", []string{"admin", "first_post", "ten_likes"}))

	removed, err := repo.RevokeBadge(ctx, "u1", "first_post")
	require.NoError(t, err)
	assert.True(t, removed)

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "ten_likes"}, p.SelectedBadges)
	assert.NotContains(t, p.AllBadges, "first_post")

	isAdmin, err := repo.HasBadge(ctx, "u1", "admin")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	holders, err := repo.ListHolders(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, holders)

	removed, err = repo.RevokeBadge(ctx, "u1", "first_post")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReplyRepository_CountMovesWithReplies(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReplyRepository(db)
	ctx := context.Background()
	q := seedQuote(t, db, "author-1", 0)

	first := &models.Reply{QuoteID: q.ID, Text: "いいですね", AuthorUID: "r1"}
	second := &models.Reply{QuoteID: q.ID, Text: "同感", AuthorUID: "r2"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	replies, err := repo.ListByQuote(ctx, q.ID, 0)
	require.NoError(t, err)
	assert.Len(t, replies, 2)

	require.NoError(t, repo.Delete(ctx, first))
	var stored models.Quote
	require.NoError(t, db.First(&stored, "id = ?", q.ID).Error)
	assert.Equal(t, 1, stored.ReplyCountValue())

	err = repo.Create(ctx, &models.Reply{QuoteID: "missing", Text: "x", AuthorUID: "r1"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, first), models.CodeNotFound))
}

func TestReplyRepository_RecountAllRepairsDrift(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReplyRepository(db)
	ctx := context.Background()
	q := seedQuote(t, db, "author-1", 0)
	untouched := seedQuote(t, db, "author-2", 0)

	require.NoError(t, repo.Create(ctx, &models.Reply{QuoteID: q.ID, Text: "one", AuthorUID: "r1"}))
	require.NoError(t, db.Model(&models.Quote{}).Where("id = ?", q.ID).UpdateColumn("reply_count", 7).Error)

	changed, err := repo.RecountAll(ctx)
	require.NoError(t, err)
	// the drifted quote and the never-counted one
	assert.Equal(t, int64(2), changed)

	var stored models.Quote
	require.NoError(t, db.First(&stored, "id = ?", q.ID).Error)
	assert.Equal(t, 1, stored.ReplyCountValue())
	require.NoError(t, db.First(&stored, "id = ?", untouched.ID).Error)
	require.NotNil(t, stored.ReplyCount)
	assert.Equal(t, 0, *stored.ReplyCount)

	changed, err = repo.RecountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}

func TestUserRepository_PushSettings(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u, err := repo.Ensure(ctx, "anon-1", true)
	require.NoError(t, err)
	assert.True(t, u.IsAnonymous)
	assert.False(t, u.CanReceivePush())

	require.NoError(t, repo.SetPushToken(ctx, "u1", "token-1"))
	u, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.CanReceivePush())

	off := false
	at := "08:30"
	u, err = repo.UpdateNotificationSettings(ctx, "u1", NotificationSettings{Enabled: &off, Time: &at})
	require.NoError(t, err)
	assert.False(t, u.NotificationsEnabled)
	assert.Equal(t, "08:30", u.NotificationTime)

	require.NoError(t, repo.SetPushToken(ctx, "u2", "token-2"))
	recipients, err := repo.PushRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "u2", recipients[0].UID)
}

func TestUserRepository_Blocks(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	added, err := repo.Block(ctx, "u1", "troll")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Block(ctx, "u1", "troll")
	require.NoError(t, err)
	assert.False(t, added)

	blocked, err := repo.IsBlocked(ctx, "u1", "troll")
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, repo.Unblock(ctx, "u1", "troll"))
	list, err := repo.ListBlocked(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotificationRepository_RecipientOnlyRead(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	n := &models.Notification{Type: models.NotificationLike, Message: "m", FromUserID: "a", ToUserID: "b"}
	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.Create(ctx, &models.Notification{Type: models.NotificationReply, FromUserID: "c", ToUserID: "b"}))

	err := repo.MarkRead(ctx, n.ID, "someone-else")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, repo.MarkRead(ctx, n.ID, "b"))
	count, err := repo.UnreadCount(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	changed, err := repo.MarkAllRead(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	list, err := repo.ListForUser(ctx, "b", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, item := range list {
		assert.True(t, item.IsRead)
	}
}
