package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"eminence/internal/badges"
	"eminence/internal/models"
	"eminence/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReply_NamedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.seedQuote(t, "author", "時は金なり")
	f.setDisplayName(t, "replier", "じろう")
	svc := f.replyService()

	reply, err := svc.CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "replier"}, QuoteID: q.ID, Text: "いい言葉ですね"})
	require.NoError(t, err)
	assert.Equal(t, "じろう", reply.Author)
	assert.Equal(t, "じろう", reply.AuthorDisplayName)
	assert.Equal(t, "replier", reply.AuthorUID)

	got, err := f.quotes.GetByID(ctx, q.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReplyCountValue())

	require.Len(t, f.emitter.replies, 1)
	ev := f.emitter.replies[0]
	assert.Equal(t, "author", ev.ToUserID)
	assert.Equal(t, "replier", ev.FromUserID)
	assert.Equal(t, "じろう", ev.FromUserName)
	assert.Equal(t, "じろう", ev.ReplyAuthor)
	assert.Equal(t, "いい言葉ですね", ev.ReplyText)
	assert.Equal(t, []string{notifications.EventReplyCreated}, f.publisher.all)
}

func TestCreateReply_Anonymous(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(t, "author", "時は金なり")

	reply, err := f.replyService().CreateReply(context.Background(), CreateReplyInput{
		Actor:   Actor{UID: "anon-1", Anonymous: true},
		QuoteID: q.ID,
		Text:    "!",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousAuthor, reply.Author)
	assert.Empty(t, reply.AuthorDisplayName)
	require.Len(t, f.emitter.replies, 1)
	assert.True(t, f.emitter.replies[0].FromAnonymous)
}

func TestCreateReply_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.seedQuote(t, "author", "時は金なり")
	svc := f.replyService()

	_, err := svc.CreateReply(ctx, CreateReplyInput{QuoteID: q.ID, Text: "こんにちは"})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "u"}, QuoteID: q.ID, Text: "   "})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "u"}, QuoteID: "missing", Text: "こんにちは"})
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, f.emitter.replies)
}

func TestListReplies_OldestFirstFirstPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.seedQuote(t, "author", "時は金なり")
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < ReplyPageSize+2; i++ {
		require.NoError(t, f.replies.Create(ctx, &models.Reply{
			QuoteID:   q.ID,
			Text:      fmt.Sprintf("reply %d", i),
			AuthorUID: "u",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	replies, err := f.replyService().ListReplies(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, replies, ReplyPageSize)
	assert.Equal(t, "reply 0", replies[0].Text)
	assert.Equal(t, "reply 19", replies[ReplyPageSize-1].Text)

	_, err = f.replyService().ListReplies(ctx, "missing")
	assertCode(t, err, models.CodeNotFound)
}

func TestDeleteReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.seedQuote(t, "author", "時は金なり")
	other := f.seedQuote(t, "author", "急がば回れ")
	svc := f.replyService()

	first, err := svc.CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "replier"}, QuoteID: q.ID, Text: "一つ目"})
	require.NoError(t, err)
	second, err := svc.CreateReply(ctx, CreateReplyInput{Actor: Actor{UID: "replier"}, QuoteID: q.ID, Text: "二つ目"})
	require.NoError(t, err)

	err = svc.DeleteReply(ctx, DeleteReplyInput{Actor: Actor{UID: "stranger"}, QuoteID: q.ID, ReplyID: first.ID})
	assertCode(t, err, models.CodeForbidden)

	err = svc.DeleteReply(ctx, DeleteReplyInput{Actor: Actor{UID: "replier"}, QuoteID: other.ID, ReplyID: first.ID})
	assertCode(t, err, models.CodeNotFound)

	require.NoError(t, svc.DeleteReply(ctx, DeleteReplyInput{Actor: Actor{UID: "replier"}, QuoteID: q.ID, ReplyID: first.ID}))

	_, err = f.profiles.AwardBadges(ctx, "mod", []string{badges.AdminBadgeID}, models.MaxSelectedBadges)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteReply(ctx, DeleteReplyInput{Actor: Actor{UID: "mod"}, QuoteID: q.ID, ReplyID: second.ID}))

	got, err := f.quotes.GetByID(ctx, q.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReplyCountValue())
}
