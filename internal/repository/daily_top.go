package repository

import (
	"context"
	"time"

	"eminence/internal/models"

	"gorm.io/gorm"
)

// DailyTopRepository stores the digest history.
type DailyTopRepository interface {
	Save(ctx context.Context, top *models.DailyTopQuote) error
	Latest(ctx context.Context) (*models.DailyTopQuote, error)
	ForDate(ctx context.Context, date time.Time) (*models.DailyTopQuote, error)
}

type dailyTopRepository struct {
	db *gorm.DB
}

// NewDailyTopRepository creates a new daily top quote repository
func NewDailyTopRepository(db *gorm.DB) DailyTopRepository {
	return &dailyTopRepository{db: db}
}

func (r *dailyTopRepository) Save(ctx context.Context, top *models.DailyTopQuote) error {
	return translateError(r.db.WithContext(ctx).Create(top).Error, "DailyTopQuote", top.ID)
}

func (r *dailyTopRepository) Latest(ctx context.Context) (*models.DailyTopQuote, error) {
	var top models.DailyTopQuote
	if err := r.db.WithContext(ctx).Order("date DESC").Order("created_at DESC").Take(&top).Error; err != nil {
		return nil, translateError(err, "DailyTopQuote", "latest")
	}
	return &top, nil
}

// ForDate returns the entry recorded for the calendar day starting at date.
func (r *dailyTopRepository) ForDate(ctx context.Context, date time.Time) (*models.DailyTopQuote, error) {
	var top models.DailyTopQuote
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", date.UTC(), date.AddDate(0, 0, 1).UTC()).
		Order("created_at DESC").
		Take(&top).Error
	if err != nil {
		return nil, translateError(err, "DailyTopQuote", date.Format("2006-01-02"))
	}
	return &top, nil
}
