package database

import "eminence/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserProfile{},
		&models.UserBadge{},
		&models.BadgeGrant{},
		&models.SelectedBadge{},
		&models.UserBlock{},
		&models.Quote{},
		&models.QuoteLike{},
		&models.QuoteBookmark{},
		&models.Reply{},
		&models.Notification{},
		&models.Report{},
		&models.DailyTopQuote{},
	}
}
