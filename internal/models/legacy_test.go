package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuoteDocument_MissingOptionalFieldsDefault(t *testing.T) {
	t.Parallel()
	doc, err := DecodeQuoteDocument([]byte(`{"id":"q1","text":"継続は力なり","likes":3,"likedBy":["a","b","c"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{}, doc.BookmarkedBy)
	assert.Equal(t, 0, doc.ReplyCount)
	assert.Equal(t, "", doc.AuthorUID)
	assert.Equal(t, 3, doc.Likes)
}

func TestDecodeQuoteDocument_LikesDefaultsToLikedBySize(t *testing.T) {
	t.Parallel()
	doc, err := DecodeQuoteDocument([]byte(`{"id":"q1","text":"x y","likedBy":["a","b","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, doc.LikedBy)
	assert.Equal(t, 2, doc.Likes)
}

func TestDecodeQuoteDocument_FloatCountersAndTimestamps(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		body    string
		created time.Time
	}{
		{"rfc3339", `{"id":"q","text":"tt","replyCount":2.0,"createdAt":"2024-05-01T09:00:00Z"}`, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{"firestore object", `{"id":"q","text":"tt","replyCount":2,"createdAt":{"_seconds":1714554000,"_nanoseconds":0}}`, time.Unix(1714554000, 0).UTC()},
		{"unix seconds", `{"id":"q","text":"tt","replyCount":2,"createdAt":1714554000}`, time.Unix(1714554000, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeQuoteDocument([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, 2, doc.ReplyCount)
			assert.True(t, tt.created.Equal(doc.CreatedAt))
		})
	}
}

func TestDecodeQuoteDocument_RequiredFields(t *testing.T) {
	t.Parallel()
	_, err := DecodeQuoteDocument([]byte(`{"text":"no id"}`))
	assert.Error(t, err)

	_, err = DecodeQuoteDocument([]byte(`{"id":"q1"}`))
	assert.Error(t, err)

	_, err = DecodeQuoteDocument([]byte(`{"id":"q1","text":"ok","likedBy":"not-a-list"}`))
	assert.Error(t, err)
}

func TestDecodeQuoteDocuments_MalformedLineDoesNotAbortBatch(t *testing.T) {
	t.Parallel()
	input := strings.Join([]string{
		`{"id":"q1","text":"first"}`,
		`{not json`,
		``,
		`{"id":"q3","text":"third","bookmarkedBy":["u1"]}`,
		`{"text":"missing id"}`,
	}, "\n")

	docs, failures, err := DecodeQuoteDocuments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "q1", docs[0].ID)
	assert.Equal(t, "q3", docs[1].ID)
	assert.Equal(t, []string{"u1"}, docs[1].BookmarkedBy)

	require.Len(t, failures, 2)
	assert.Equal(t, 2, failures[0].Line)
	assert.Equal(t, 5, failures[1].Line)
}

func TestQuoteDocument_ToQuoteKeepsLikeInvariant(t *testing.T) {
	t.Parallel()
	doc := QuoteDocument{ID: "q1", Text: "text", Likes: 10, LikedBy: []string{"a", "b"}}
	q := doc.ToQuote()
	assert.Equal(t, 2, q.Likes)
	assert.Equal(t, AnonymousAuthor, q.Author)
	assert.Nil(t, q.AuthorUID)
	assert.Equal(t, 0, q.ReplyCountValue())
}

func TestQuote_JSONRoundTripKeepsAuthorAndDefaults(t *testing.T) {
	t.Parallel()
	legacy := Quote{ID: "q1", Text: "hello"}
	b, err := json.Marshal(legacy)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"replyCount":0`)
	assert.Contains(t, string(b), `"authorUid":""`)

	uid := "author-1"
	count := 4
	q := Quote{ID: "q2", Text: "hi", AuthorUID: &uid, ReplyCount: &count}
	b, err = json.Marshal(q)
	require.NoError(t, err)

	var decoded Quote
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "author-1", decoded.AuthorUIDValue())
	assert.Equal(t, 4, decoded.ReplyCountValue())
	assert.Equal(t, "hi", decoded.Text)
}

func TestSnippet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", Snippet("abc", 5))
	assert.Equal(t, "あいう...", Snippet("あいうえお", 3))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}
