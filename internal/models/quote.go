// Package models defines the persisted entities and shared error types.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quote text bounds, counted in runes after trimming.
const (
	QuoteTextMinLength = 2
	QuoteTextMaxLength = 500
	ReplyTextMaxLength = 500
	AnonymousAuthor    = "匿名"
)

// Quote is a single posted quote.
type Quote struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	Text               string         `gorm:"type:text;not null" json:"text"`
	Author             string         `gorm:"size:100" json:"author"`
	AuthorUID          *string        `gorm:"size:128;index" json:"-"`
	AuthorDisplayName  string         `gorm:"size:100" json:"authorDisplayName"`
	AuthorProfileImage *string        `json:"authorProfileImage,omitempty"`
	Likes              int            `gorm:"not null;default:0" json:"likes"`
	ReplyCount         *int           `json:"-"`
	CreatedAt          time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Viewer-relative flags filled in by the repository.
	Liked      bool `gorm:"-" json:"liked"`
	Bookmarked bool `gorm:"-" json:"bookmarked"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (q *Quote) BeforeCreate(_ *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// AuthorUIDValue returns the author identity, or "" for legacy and anonymous content.
func (q *Quote) AuthorUIDValue() string {
	if q.AuthorUID == nil {
		return ""
	}
	return *q.AuthorUID
}

// ReplyCountValue returns the maintained reply count, treating a missing value as zero.
func (q *Quote) ReplyCountValue() int {
	if q.ReplyCount == nil {
		return 0
	}
	return *q.ReplyCount
}

// MarshalJSON renders nullable counters with their defaults applied.
func (q Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return json.Marshal(struct {
		alias
		AuthorUID  string `json:"authorUid"`
		ReplyCount int    `json:"replyCount"`
	}{
		alias:      alias(q),
		AuthorUID:  q.AuthorUIDValue(),
		ReplyCount: q.ReplyCountValue(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON so cached quotes keep their author identity.
func (q *Quote) UnmarshalJSON(data []byte) error {
	type alias Quote
	aux := struct {
		*alias
		AuthorUID  string `json:"authorUid"`
		ReplyCount int    `json:"replyCount"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.AuthorUID != "" {
		uid := aux.AuthorUID
		q.AuthorUID = &uid
	}
	count := aux.ReplyCount
	q.ReplyCount = &count
	return nil
}

// QuoteLike records that a user liked a quote. The composite key keeps likedBy a set.
type QuoteLike struct {
	QuoteID   string    `gorm:"primaryKey;size:36"`
	UserUID   string    `gorm:"primaryKey;size:128;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// QuoteBookmark records that a user bookmarked a quote.
type QuoteBookmark struct {
	QuoteID   string    `gorm:"primaryKey;size:36"`
	UserUID   string    `gorm:"primaryKey;size:128;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// DailyTopQuote is the digest entry chosen for one calendar day.
type DailyTopQuote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	QuoteID   string    `gorm:"size:36;index" json:"quoteId"`
	Text      string    `gorm:"type:text" json:"text"`
	Author    string    `gorm:"size:100" json:"author"`
	Likes     int       `json:"likes"`
	Date      time.Time `gorm:"index" json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (d *DailyTopQuote) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// ToggleResponse is returned by the like and bookmark endpoints. Count is the
// quote's like count for likes and the bookmark count for bookmarks.
type ToggleResponse struct {
	QuoteID string `json:"quoteId"`
	Member  bool   `json:"member"`
	Count   int    `json:"count"`
}
