package models

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// QuoteDocument is an exported quote document from the previous document store,
// decoded once with every optional field resolved to its default.
type QuoteDocument struct {
	ID                 string
	Text               string
	Author             string
	AuthorUID          string
	AuthorDisplayName  string
	AuthorProfileImage string
	Likes              int
	LikedBy            []string
	BookmarkedBy       []string
	ReplyCount         int
	CreatedAt          time.Time
}

// DecodeError describes one document that could not be decoded.
type DecodeError struct {
	Line  int
	DocID string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("document %s: %v", e.DocID, e.Err)
	}
	if e.DocID != "" {
		return fmt.Sprintf("line %d (document %s): %v", e.Line, e.DocID, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type rawQuoteDocument struct {
	ID                 *string      `json:"id"`
	Text               *string      `json:"text"`
	Author             *string      `json:"author"`
	AuthorUID          *string      `json:"authorUid"`
	AuthorDisplayName  *string      `json:"authorDisplayName"`
	AuthorProfileImage *string      `json:"authorProfileImage"`
	Likes              *json.Number `json:"likes"`
	LikedBy            []string     `json:"likedBy"`
	BookmarkedBy       []string     `json:"bookmarkedBy"`
	ReplyCount         *json.Number `json:"replyCount"`
	CreatedAt          *legacyTime  `json:"createdAt"`
}

// legacyTime accepts RFC3339 strings, unix seconds, and {"_seconds","_nanoseconds"} objects.
type legacyTime struct {
	time.Time
}

func (t *legacyTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
		t.Time = parsed
	case '{':
		var ts struct {
			Seconds     int64 `json:"_seconds"`
			Nanoseconds int64 `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &ts); err != nil {
			return err
		}
		t.Time = time.Unix(ts.Seconds, ts.Nanoseconds).UTC()
	default:
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
		t.Time = time.Unix(int64(secs), 0).UTC()
	}
	return nil
}

func numberToInt(n *json.Number, field string) (int, error) {
	if n == nil {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return int(f), nil
}

// DecodeQuoteDocument decodes a single exported quote document. Missing
// bookmarkedBy, likedBy, replyCount and authorUid default to empty values;
// missing likes defaults to the size of likedBy. Only id and text are required.
func DecodeQuoteDocument(data []byte) (QuoteDocument, error) {
	var raw rawQuoteDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return QuoteDocument{}, err
	}

	if raw.ID == nil || strings.TrimSpace(*raw.ID) == "" {
		return QuoteDocument{}, errors.New("missing id")
	}
	doc := QuoteDocument{ID: *raw.ID}
	if raw.Text == nil {
		return doc, errors.New("missing text")
	}
	doc.Text = *raw.Text

	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	doc.Author = deref(raw.Author)
	doc.AuthorUID = deref(raw.AuthorUID)
	doc.AuthorDisplayName = deref(raw.AuthorDisplayName)
	doc.AuthorProfileImage = deref(raw.AuthorProfileImage)

	doc.LikedBy = dedupe(raw.LikedBy)
	doc.BookmarkedBy = dedupe(raw.BookmarkedBy)

	likes, err := numberToInt(raw.Likes, "likes")
	if err != nil {
		return doc, err
	}
	if raw.Likes == nil {
		likes = len(doc.LikedBy)
	}
	if likes < 0 {
		likes = 0
	}
	doc.Likes = likes

	replies, err := numberToInt(raw.ReplyCount, "replyCount")
	if err != nil {
		return doc, err
	}
	if replies < 0 {
		replies = 0
	}
	doc.ReplyCount = replies

	if raw.CreatedAt != nil {
		doc.CreatedAt = raw.CreatedAt.Time
	}
	return doc, nil
}

// DecodeQuoteDocuments reads newline-delimited documents. Malformed lines are
// reported as DecodeErrors and skipped; they never abort the batch.
func DecodeQuoteDocuments(r io.Reader) ([]QuoteDocument, []*DecodeError, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var docs []QuoteDocument
	var failures []*DecodeError
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		doc, err := DecodeQuoteDocument(text)
		if err != nil {
			failures = append(failures, &DecodeError{Line: line, DocID: doc.ID, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return docs, failures, err
	}
	return docs, failures, nil
}

// ToQuote converts the document into a Quote row. Likes is derived from the
// likedBy set so the imported row satisfies likes == |likedBy|.
func (d QuoteDocument) ToQuote() *Quote {
	q := &Quote{
		ID:                d.ID,
		Text:              d.Text,
		Author:            d.Author,
		AuthorDisplayName: d.AuthorDisplayName,
		Likes:             len(d.LikedBy),
		CreatedAt:         d.CreatedAt,
	}
	if q.Author == "" {
		q.Author = AnonymousAuthor
	}
	if d.AuthorUID != "" {
		uid := d.AuthorUID
		q.AuthorUID = &uid
	}
	if d.AuthorProfileImage != "" {
		img := d.AuthorProfileImage
		q.AuthorProfileImage = &img
	}
	count := d.ReplyCount
	q.ReplyCount = &count
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return q
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
