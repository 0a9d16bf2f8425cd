package service

import (
	"context"
	"regexp"
	"strings"

	"eminence/internal/badges"
	"eminence/internal/models"
	"eminence/internal/repository"
)

var notificationTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ProfileService manages profiles, badge selection and push settings.
type ProfileService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
}

// UpdateProfileInput carries optional profile edits. Nil fields are left alone.
type UpdateProfileInput struct {
	UID             string
	DisplayName     *string
	Bio             *string
	ProfileImageURL *string
}

type NotificationSettingsInput struct {
	UID     string
	Enabled *bool
	Time    *string
}

func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository) *ProfileService {
	return &ProfileService{profiles: profiles, users: users}
}

// GetMyProfile returns the caller's profile, creating it and the account row on first access.
func (s *ProfileService) GetMyProfile(ctx context.Context, actor Actor) (*models.UserProfile, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	if _, err := s.users.Ensure(ctx, actor.UID, actor.Anonymous); err != nil {
		return nil, err
	}
	return s.profiles.GetOrCreate(ctx, actor.UID)
}

func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, models.NewValidationError("uid is required")
	}
	return s.profiles.Get(ctx, uid)
}

// UpdateProfile truncates display name and bio to their limits instead of
// rejecting long input. An empty display name resets it to the default.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.UserProfile, error) {
	if in.UID == "" {
		return nil, models.ErrAuthPending
	}
	var update repository.ProfileUpdate
	if in.DisplayName != nil {
		name := models.TruncateRunes(strings.TrimSpace(*in.DisplayName), models.DisplayNameMaxLength)
		if name == "" {
			name = models.DefaultDisplayName
		}
		update.DisplayName = &name
	}
	if in.Bio != nil {
		bio := models.TruncateRunes(strings.TrimSpace(*in.Bio), models.BioMaxLength)
		update.Bio = &bio
	}
	if in.ProfileImageURL != nil {
		img := strings.TrimSpace(*in.ProfileImageURL)
		update.ProfileImageURL = &img
	}
	return s.profiles.Update(ctx, in.UID, update)
}

// SetSelectedBadges replaces the showcased badges. At most four, no
// duplicates, and every id must be an earned catalog badge.
func (s *ProfileService) SetSelectedBadges(ctx context.Context, uid string, ids []string) (*models.UserProfile, error) {
	if uid == "" {
		return nil, models.ErrAuthPending
	}
	if len(ids) > models.MaxSelectedBadges {
		return nil, models.NewValidationError("バッジは4つまで選択できます")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !badges.Valid(id) {
			return nil, models.NewValidationError("unknown badge " + id)
		}
		if _, dup := seen[id]; dup {
			return nil, models.NewValidationError("duplicate badge " + id)
		}
		seen[id] = struct{}{}
	}
	if _, err := s.profiles.GetOrCreate(ctx, uid); err != nil {
		return nil, err
	}
	if err := s.profiles.SetSelectedBadges(ctx, uid, ids); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, uid)
}

// UpdatePushToken stores the device token and turns notifications on.
func (s *ProfileService) UpdatePushToken(ctx context.Context, uid, token string) error {
	if uid == "" {
		return models.ErrAuthPending
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token is required")
	}
	return s.users.SetPushToken(ctx, uid, token)
}

func (s *ProfileService) UpdateNotificationSettings(ctx context.Context, in NotificationSettingsInput) (*models.User, error) {
	if in.UID == "" {
		return nil, models.ErrAuthPending
	}
	if in.Time != nil && !notificationTimePattern.MatchString(*in.Time) {
		return nil, models.NewValidationError("time must be HH:MM")
	}
	return s.users.UpdateNotificationSettings(ctx, in.UID, repository.NotificationSettings{
		Enabled: in.Enabled,
		Time:    in.Time,
	})
}
