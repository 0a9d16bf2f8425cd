package repository

import (
	"context"

	"eminence/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, uid string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, uid string) error
	MarkAllRead(ctx context.Context, uid string) (int64, error)
	UnreadCount(ctx context.Context, uid string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(n).Error, "Notification", n.ID)
}

// ListForUser returns the newest notifications first.
func (r *notificationRepository) ListForUser(ctx context.Context, uid string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > models.NotificationListLimit {
		limit = models.NotificationListLimit
	}
	var out []*models.Notification
	err := r.db.WithContext(ctx).
		Where("to_user_id = ?", uid).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, translateError(err, "Notification", "")
}

// MarkRead flips isRead for a notification addressed to uid. Someone else's
// notification reads as not found.
func (r *notificationRepository) MarkRead(ctx context.Context, id, uid string) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND to_user_id = ?", id, uid).Take(&n).Error; err != nil {
		return translateError(err, "Notification", id)
	}
	if n.IsRead {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	return translateError(err, "Notification", id)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_user_id = ? AND is_read = ?", uid, false).
		Update("is_read", true)
	return res.RowsAffected, translateError(res.Error, "Notification", "")
}

func (r *notificationRepository) UnreadCount(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_user_id = ? AND is_read = ?", uid, false).
		Count(&n).Error
	return n, translateError(err, "Notification", "")
}
