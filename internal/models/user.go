package models

import (
	"time"
)

// Profile field limits in runes. Longer input is truncated, not rejected.
const (
	DisplayNameMaxLength = 10
	BioMaxLength         = 150
	MaxSelectedBadges    = 4
	DefaultDisplayName   = "名無しさん"
)

// User carries account-level settings. Identity itself is issued by an external provider.
type User struct {
	UID                  string    `gorm:"primaryKey;size:128" json:"uid"`
	IsAnonymous          bool      `gorm:"not null;default:false" json:"isAnonymous"`
	FCMToken             *string   `gorm:"column:fcm_token" json:"-"`
	NotificationsEnabled bool      `gorm:"not null;default:false" json:"notificationsEnabled"`
	NotificationTime     string    `gorm:"size:5" json:"notificationTime,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CanReceivePush reports whether push delivery is configured and allowed.
func (u *User) CanReceivePush() bool {
	return u != nil && u.NotificationsEnabled && u.FCMToken != nil && *u.FCMToken != ""
}

// UserBlock is a one-directional block: BlockerUID no longer sees BlockedUID's quotes.
type UserBlock struct {
	BlockerUID string    `gorm:"primaryKey;size:128" json:"blockerUid"`
	BlockedUID string    `gorm:"primaryKey;size:128" json:"blockedUid"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserProfile is the public profile and badge aggregate for a user.
type UserProfile struct {
	UID             string    `gorm:"primaryKey;size:128" json:"uid"`
	DisplayName     string    `gorm:"size:64" json:"displayName"`
	Bio             string    `gorm:"size:600" json:"bio"`
	ProfileImageURL *string   `json:"profileImageURL,omitempty"`
	PostCount       int       `gorm:"not null;default:0" json:"postCount"`
	LikesReceived   int       `gorm:"not null;default:0" json:"likesReceived"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	AllBadges      []string `gorm:"-" json:"allBadges"`
	SelectedBadges []string `gorm:"-" json:"selectedBadges"`
}

// UserBadge is one entry of a profile's allBadges set.
type UserBadge struct {
	UserUID   string    `gorm:"primaryKey;size:128" json:"userUid"`
	BadgeID   string    `gorm:"primaryKey;size:32" json:"badgeId"`
	GrantedAt time.Time `json:"grantedAt"`
}

// BadgeGrant records the first time a user received a badge. Rows outlive
// revocation so a badge is announced to its owner at most once.
type BadgeGrant struct {
	UserUID        string    `gorm:"primaryKey;size:128"`
	BadgeID        string    `gorm:"primaryKey;size:32"`
	FirstGrantedAt time.Time `gorm:"not null"`
}

// SelectedBadge is one slot of a profile's ordered selectedBadges list.
type SelectedBadge struct {
	UserUID  string `gorm:"primaryKey;size:128"`
	BadgeID  string `gorm:"primaryKey;size:32"`
	Position int    `gorm:"not null"`
}

// TableName keeps the selection table name explicit.
func (SelectedBadge) TableName() string {
	return "profile_selected_badges"
}
