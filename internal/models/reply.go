package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply is a response posted under a quote. Replies are hard-deleted so the
// parent's reply count can be recomputed from what remains.
type Reply struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	QuoteID            string    `gorm:"size:36;not null;index:idx_replies_quote_created,priority:1" json:"quoteId"`
	Text               string    `gorm:"type:text;not null" json:"text"`
	Author             string    `gorm:"size:100" json:"author"`
	AuthorUID          string    `gorm:"size:128;index" json:"authorUid"`
	AuthorDisplayName  string    `gorm:"size:100" json:"authorDisplayName"`
	AuthorProfileImage *string   `json:"authorProfileImage,omitempty"`
	CreatedAt          time.Time `gorm:"index:idx_replies_quote_created,priority:2" json:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (r *Reply) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
