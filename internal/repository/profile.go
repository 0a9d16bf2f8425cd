package repository

import (
	"context"
	"errors"
	"time"

	"eminence/internal/models"
	"eminence/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileUpdate carries already-normalized profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName     *string
	Bio             *string
	ProfileImageURL *string
}

// BadgeAward reports what AwardBadges changed. Inserted holds the ids newly
// added to allBadges; FirstGrants is the subset the user never held before,
// even counting badges that were later revoked.
type BadgeAward struct {
	Inserted    []string
	FirstGrants []string
}

// ProfileRepository stores user profiles and their badge sets.
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, uid string) (*models.UserProfile, error)
	Get(ctx context.Context, uid string) (*models.UserProfile, error)
	GetMany(ctx context.Context, uids []string) (map[string]*models.UserProfile, error)
	Update(ctx context.Context, uid string, update ProfileUpdate) (*models.UserProfile, error)
	SetSelectedBadges(ctx context.Context, uid string, ids []string) error
	AwardBadges(ctx context.Context, uid string, ids []string, maxSelected int) (BadgeAward, error)
	RevokeBadge(ctx context.Context, uid, badgeID string) (bool, error)
	HasBadge(ctx context.Context, uid, badgeID string) (bool, error)
	ListHolders(ctx context.Context, badgeID string) ([]string, error)
}

type profileRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, logger: observability.NewRepoLogger("user_profiles")}
}

// GetOrCreate loads the profile, creating it with the default display name on first access.
func (r *profileRepository) GetOrCreate(ctx context.Context, uid string) (*models.UserProfile, error) {
	profile := &models.UserProfile{UID: uid, DisplayName: models.DefaultDisplayName}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(profile)
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "create")
		return nil, translateError(res.Error, "Profile", uid)
	}
	if res.RowsAffected == 1 {
		r.logger.LogCreate(ctx, map[string]interface{}{"uid": uid})
	}
	return r.Get(ctx, uid)
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).Take(&profile).Error; err != nil {
		return nil, translateError(err, "Profile", uid)
	}
	if err := loadBadges(r.db.WithContext(ctx), &profile); err != nil {
		return nil, translateError(err, "Profile", uid)
	}
	return &profile, nil
}

// GetMany loads profiles by uid without badge sets. Missing profiles are absent from the map.
func (r *profileRepository) GetMany(ctx context.Context, uids []string) (map[string]*models.UserProfile, error) {
	out := make(map[string]*models.UserProfile, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	var profiles []*models.UserProfile
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&profiles).Error; err != nil {
		return nil, translateError(err, "Profile", "")
	}
	for _, p := range profiles {
		out[p.UID] = p
	}
	return out, nil
}

func (r *profileRepository) Update(ctx context.Context, uid string, update ProfileUpdate) (*models.UserProfile, error) {
	if _, err := r.GetOrCreate(ctx, uid); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if update.DisplayName != nil {
		fields["display_name"] = *update.DisplayName
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.ProfileImageURL != nil {
		if *update.ProfileImageURL == "" {
			fields["profile_image_url"] = nil
		} else {
			fields["profile_image_url"] = *update.ProfileImageURL
		}
	}
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.UserProfile{}).Where("uid = ?", uid).Updates(fields).Error; err != nil {
			r.logger.LogError(ctx, err, "update")
			return nil, translateError(err, "Profile", uid)
		}
		r.logger.LogUpdate(ctx, map[string]interface{}{"uid": uid, "fields": len(fields)})
	}
	return r.Get(ctx, uid)
}

// SetSelectedBadges replaces the ordered selection. Every id must already be in allBadges.
func (r *profileRepository) SetSelectedBadges(ctx context.Context, uid string, ids []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfile(tx, uid); err != nil {
			return err
		}
		if len(ids) > 0 {
			var owned int64
			if err := tx.Model(&models.UserBadge{}).
				Where("user_uid = ? AND badge_id IN ?", uid, ids).
				Count(&owned).Error; err != nil {
				return err
			}
			if int(owned) != len(ids) {
				return models.NewValidationError("selected badges must be earned first")
			}
		}
		if err := tx.Where("user_uid = ?", uid).Delete(&models.SelectedBadge{}).Error; err != nil {
			return err
		}
		for i, id := range ids {
			if err := tx.Create(&models.SelectedBadge{UserUID: uid, BadgeID: id, Position: i}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err, "Profile", uid)
}

// lockProfile holds uid's profile row FOR UPDATE until tx ends, creating the
// row first if needed. Every change to a user's badge sets takes it, so the
// selection count read inside the transaction stays accurate.
func lockProfile(tx *gorm.DB, uid string) error {
	var p models.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("uid").Where("uid = ?", uid).Take(&p).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	created := &models.UserProfile{UID: uid, DisplayName: models.DefaultDisplayName}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(created).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("uid").Where("uid = ?", uid).Take(&p).Error
}

// AwardBadges unions ids into allBadges and appends the newly inserted ones to the
// selection while it holds fewer than maxSelected.
func (r *profileRepository) AwardBadges(ctx context.Context, uid string, ids []string, maxSelected int) (BadgeAward, error) {
	var award BadgeAward
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfile(tx, uid); err != nil {
			return err
		}
		inserted, err := setUnion(tx, uid, AllBadges, ids)
		if err != nil {
			return err
		}
		if len(inserted) == 0 {
			return nil
		}
		award.Inserted = inserted

		now := time.Now().UTC()
		for _, id := range inserted {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.BadgeGrant{UserUID: uid, BadgeID: id, FirstGrantedAt: now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				award.FirstGrants = append(award.FirstGrants, id)
			}
		}

		var selected int64
		if err := tx.Model(&models.SelectedBadge{}).Where("user_uid = ?", uid).Count(&selected).Error; err != nil {
			return err
		}
		for _, id := range inserted {
			if int(selected) >= maxSelected {
				break
			}
			row := &models.SelectedBadge{UserUID: uid, BadgeID: id, Position: int(selected)}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
				return err
			}
			selected++
		}
		return nil
	})
	if err != nil {
		return BadgeAward{}, translateError(err, "Profile", uid)
	}
	return award, nil
}

// RevokeBadge removes a badge from both sets and closes the gap in the selection.
func (r *profileRepository) RevokeBadge(ctx context.Context, uid, badgeID string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfile(tx, uid); err != nil {
			return err
		}
		res := tx.Where("user_uid = ? AND badge_id = ?", uid, badgeID).Delete(&models.UserBadge{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0

		var sel models.SelectedBadge
		err := tx.Where("user_uid = ? AND badge_id = ?", uid, badgeID).Take(&sel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&sel).Error; err != nil {
			return err
		}
		return tx.Model(&models.SelectedBadge{}).
			Where("user_uid = ? AND position > ?", uid, sel.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		return false, translateError(err, "Profile", uid)
	}
	return removed, nil
}

func (r *profileRepository) HasBadge(ctx context.Context, uid, badgeID string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_uid = ? AND badge_id = ?", uid, badgeID).
		Count(&n).Error
	return n > 0, translateError(err, "Profile", uid)
}

func (r *profileRepository) ListHolders(ctx context.Context, badgeID string) ([]string, error) {
	var uids []string
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("badge_id = ?", badgeID).
		Order("granted_at ASC").
		Pluck("user_uid", &uids).Error
	return uids, translateError(err, "Badge", badgeID)
}

func loadBadges(db *gorm.DB, profile *models.UserProfile) error {
	profile.AllBadges = []string{}
	profile.SelectedBadges = []string{}
	if err := db.Model(&models.UserBadge{}).
		Where("user_uid = ?", profile.UID).
		Order("granted_at ASC").Order("badge_id ASC").
		Pluck("badge_id", &profile.AllBadges).Error; err != nil {
		return err
	}
	return db.Model(&models.SelectedBadge{}).
		Where("user_uid = ?", profile.UID).
		Order("position ASC").
		Pluck("badge_id", &profile.SelectedBadges).Error
}
