package notifications

import (
	"fmt"

	"eminence/internal/models"
)

// Push titles.
const (
	LikePushTitle   = "新しいいいね❤️"
	ReplyPushTitle  = "新しい返信"
	DigestPushTitle = "今日の名言"

	unknownReplier   = "誰か"
	pushSnippetRunes = 30
	digestSnippet    = 50
)

// LikeMessage is the in-app text for a like.
func LikeMessage(fromName string) string {
	return fromName + "さんがあなたの名言にいいねしました"
}

// ReplyMessage is the in-app text for a reply.
func ReplyMessage(fromName string) string {
	return fromName + "さんが返信しました"
}

// LikePushBody quotes the start of the liked quote.
func LikePushBody(quoteText string) string {
	return "「" + models.Snippet(quoteText, pushSnippetRunes) + "」にいいねがつきました"
}

// ReplyPushBody names the replier and quotes the start of the reply.
func ReplyPushBody(replyAuthor, replyText string) string {
	if replyAuthor == "" {
		replyAuthor = unknownReplier
	}
	return replyAuthor + "さんが返信しました: 「" + models.Snippet(replyText, pushSnippetRunes) + "」"
}

// DigestPushBody summarizes the day's top quote.
func DigestPushBody(text, author string, likes int) string {
	if author == "" {
		author = models.AnonymousAuthor
	}
	return fmt.Sprintf("「%s」 - %s (%d いいね)", models.Snippet(text, digestSnippet), author, likes)
}
