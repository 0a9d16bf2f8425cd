package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLike  NotificationType = "like"
	NotificationReply NotificationType = "reply"
	// NotificationFollow is reserved; nothing emits it yet.
	NotificationFollow NotificationType = "follow"
)

// NotificationListLimit caps how many notifications a user sees at once.
const NotificationListLimit = 50

// Notification is an in-app notification addressed to one recipient.
type Notification struct {
	ID                   string           `gorm:"primaryKey;size:36" json:"id"`
	Type                 NotificationType `gorm:"size:16;not null" json:"type"`
	Message              string           `gorm:"size:255" json:"message"`
	FromUserID           string           `gorm:"size:128" json:"fromUserId"`
	FromUserName         string           `gorm:"size:100" json:"fromUserName"`
	FromUserProfileImage *string          `json:"fromUserProfileImage,omitempty"`
	ToUserID             string           `gorm:"size:128;not null;index:idx_notifications_recipient,priority:1" json:"toUserId"`
	RelatedQuoteID       *string          `gorm:"size:36" json:"relatedQuoteId,omitempty"`
	RelatedQuoteText     *string          `gorm:"type:text" json:"relatedQuoteText,omitempty"`
	ReplyText            *string          `gorm:"type:text" json:"replyText,omitempty"`
	IsRead               bool             `gorm:"not null;default:false" json:"isRead"`
	CreatedAt            time.Time        `gorm:"index:idx_notifications_recipient,priority:2" json:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// ReportReason enumerates why content was reported.
type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportInappropriate ReportReason = "inappropriate"
	ReportHarassment    ReportReason = "harassment"
	ReportOther         ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReportSpam, ReportInappropriate, ReportHarassment, ReportOther:
		return true
	}
	return false
}

// ReportStatusPending is the status every new report starts in.
const ReportStatusPending = "pending"

// Report is a user-submitted report against a quote or a user.
type Report struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	QuoteID        *string      `gorm:"size:36;index" json:"quoteId,omitempty"`
	ReportedUserID *string      `gorm:"size:128;index" json:"reportedUserId,omitempty"`
	ReporterID     string       `gorm:"size:128;not null" json:"reporterId"`
	Reason         ReportReason `gorm:"size:32;not null" json:"reason"`
	AdditionalInfo string       `gorm:"type:text" json:"additionalInfo,omitempty"`
	Status         string       `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// BeforeCreate assigns a UUID and the initial status.
func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	return nil
}
