// Package service holds the application use cases. Handlers translate HTTP
// into these calls; repositories and side-effect collaborators are injected.
package service

import (
	"context"
	"strings"

	"eminence/internal/badges"
	"eminence/internal/models"
	"eminence/internal/notifications"
	"eminence/internal/repository"
)

// Pagination bounds shared by list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// ReplyPageSize is how many replies a quote shows, oldest first.
	ReplyPageSize = 20
)

// Actor is the authenticated caller of a mutation.
type Actor struct {
	UID       string
	Anonymous bool
}

func (a Actor) require() error {
	if strings.TrimSpace(a.UID) == "" {
		return models.ErrAuthPending
	}
	return nil
}

// BadgeChecker evaluates and awards badges after a counter changed.
type BadgeChecker interface {
	CheckAndAward(ctx context.Context, uid string, signals badges.Signals) (badges.AwardResult, error)
}

// NotificationEmitter writes like and reply notifications.
type NotificationEmitter interface {
	EmitOnLike(ctx context.Context, ev notifications.LikeEvent) (bool, error)
	EmitOnReply(ctx context.Context, ev notifications.ReplyEvent) (bool, error)
}

// EventPublisher delivers realtime events.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID, eventType string, payload interface{}) error
	PublishAll(ctx context.Context, eventType string, payload interface{}) error
}

// AdminCheckFromProfiles treats holders of the admin badge as administrators.
func AdminCheckFromProfiles(profiles repository.ProfileRepository) func(ctx context.Context, uid string) (bool, error) {
	return func(ctx context.Context, uid string) (bool, error) {
		if uid == "" {
			return false, nil
		}
		return profiles.HasBadge(ctx, uid, badges.AdminBadgeID)
	}
}

// NormalizePage clamps limit and offset to the accepted range.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// authorIdentity resolves how a post by actor is attributed. Named users get
// their profile name and picture; a blank author falls back to the display
// name, or to the anonymous author for anonymous callers.
func authorIdentity(ctx context.Context, profiles repository.ProfileRepository, actor Actor, author string) (string, string, *string, error) {
	author = models.TruncateRunes(strings.TrimSpace(author), 100)
	if actor.Anonymous || profiles == nil {
		if author == "" {
			author = models.AnonymousAuthor
		}
		return author, "", nil, nil
	}
	profile, err := profiles.GetOrCreate(ctx, actor.UID)
	if err != nil {
		return "", "", nil, err
	}
	name := profile.DisplayName
	if name == "" {
		name = models.DefaultDisplayName
	}
	if author == "" {
		author = name
	}
	return author, name, profile.ProfileImageURL, nil
}
