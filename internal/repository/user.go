package repository

import (
	"context"
	"time"

	"eminence/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationSettings is a partial update of a user's push preferences.
type NotificationSettings struct {
	Enabled *bool
	Time    *string
}

// UserRepository stores account settings and blocks.
type UserRepository interface {
	Ensure(ctx context.Context, uid string, anonymous bool) (*models.User, error)
	GetByID(ctx context.Context, uid string) (*models.User, error)
	SetPushToken(ctx context.Context, uid, token string) error
	UpdateNotificationSettings(ctx context.Context, uid string, settings NotificationSettings) (*models.User, error)
	PushRecipients(ctx context.Context) ([]*models.User, error)
	Block(ctx context.Context, blockerUID, blockedUID string) (bool, error)
	Unblock(ctx context.Context, blockerUID, blockedUID string) error
	ListBlocked(ctx context.Context, blockerUID string) ([]string, error)
	IsBlocked(ctx context.Context, blockerUID, blockedUID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Ensure creates the user row on first sight. An anonymous account that later
// signs in with a named identity keeps its row and loses the anonymous flag.
func (r *userRepository) Ensure(ctx context.Context, uid string, anonymous bool) (*models.User, error) {
	user := &models.User{UID: uid, IsAnonymous: anonymous}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error; err != nil {
		return nil, translateError(err, "User", uid)
	}
	if !anonymous {
		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("uid = ? AND is_anonymous = ?", uid, true).
			Update("is_anonymous", false).Error; err != nil {
			return nil, translateError(err, "User", uid)
		}
	}
	return r.GetByID(ctx, uid)
}

func (r *userRepository) GetByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).Take(&user).Error; err != nil {
		return nil, translateError(err, "User", uid)
	}
	return &user, nil
}

// SetPushToken stores the device token and turns notifications on.
func (r *userRepository) SetPushToken(ctx context.Context, uid, token string) error {
	if _, err := r.Ensure(ctx, uid, false); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"fcm_token":             token,
			"notifications_enabled": true,
			"updated_at":            time.Now().UTC(),
		}).Error
	return translateError(err, "User", uid)
}

func (r *userRepository) UpdateNotificationSettings(ctx context.Context, uid string, settings NotificationSettings) (*models.User, error) {
	if _, err := r.Ensure(ctx, uid, false); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if settings.Enabled != nil {
		fields["notifications_enabled"] = *settings.Enabled
	}
	if settings.Time != nil {
		fields["notification_time"] = *settings.Time
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("uid = ?", uid).Updates(fields).Error; err != nil {
		return nil, translateError(err, "User", uid)
	}
	return r.GetByID(ctx, uid)
}

// PushRecipients lists users with a device token and notifications turned on.
func (r *userRepository) PushRecipients(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("notifications_enabled = ? AND fcm_token IS NOT NULL AND fcm_token <> ''", true).
		Order("uid ASC").
		Find(&users).Error
	return users, translateError(err, "User", "")
}

// Block adds blockedUID to the blocker's set and reports whether it was new.
func (r *userRepository) Block(ctx context.Context, blockerUID, blockedUID string) (bool, error) {
	var inserted []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = setUnion(tx, blockerUID, BlockedUsers, []string{blockedUID})
		return err
	})
	if err != nil {
		return false, translateError(err, "User", blockerUID)
	}
	return len(inserted) == 1, nil
}

func (r *userRepository) Unblock(ctx context.Context, blockerUID, blockedUID string) error {
	err := r.db.WithContext(ctx).
		Where("blocker_uid = ? AND blocked_uid = ?", blockerUID, blockedUID).
		Delete(&models.UserBlock{}).Error
	return translateError(err, "User", blockerUID)
}

func (r *userRepository) ListBlocked(ctx context.Context, blockerUID string) ([]string, error) {
	var uids []string
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocker_uid = ?", blockerUID).
		Order("created_at DESC").
		Pluck("blocked_uid", &uids).Error
	return uids, translateError(err, "User", blockerUID)
}

func (r *userRepository) IsBlocked(ctx context.Context, blockerUID, blockedUID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocker_uid = ? AND blocked_uid = ?", blockerUID, blockedUID).
		Count(&n).Error
	return n > 0, translateError(err, "User", blockerUID)
}
