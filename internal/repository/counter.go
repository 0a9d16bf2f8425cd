// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"eminence/internal/cache"
	"eminence/internal/models"
	"eminence/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetField names a per-quote membership set.
type SetField string

const (
	LikedBy      SetField = "likedBy"
	BookmarkedBy SetField = "bookmarkedBy"
)

// CounterField names a numeric quote field that can be incremented.
type CounterField string

const (
	CounterLikes      CounterField = "likes"
	CounterReplyCount CounterField = "replyCount"
)

// ProfileSetField names a per-user set that only grows through SetUnion.
type ProfileSetField string

const (
	AllBadges    ProfileSetField = "allBadges"
	BlockedUsers ProfileSetField = "blockedUsers"
)

// ToggleResult is the authoritative outcome of a membership toggle.
type ToggleResult struct {
	WasPresent bool
	NewCount   int
}

// IsMember reports whether the actor is in the set after the toggle.
func (r ToggleResult) IsMember() bool {
	return !r.WasPresent
}

// Aggregate is a user's counters as seen by the badge evaluator.
type Aggregate struct {
	PostCount          int
	TotalLikesReceived int
	StreakDays         int
	AllBadges          []string
}

// streakLookback bounds how many recent posts feed the streak calculation.
const streakLookback = 400

// CounterStore is the transactional boundary for counters and membership sets.
type CounterStore interface {
	ToggleMembership(ctx context.Context, field SetField, quoteID, actorID string) (ToggleResult, error)
	IncrementCounter(ctx context.Context, quoteID string, field CounterField, delta int) error
	RecomputeAggregate(ctx context.Context, uid string) (Aggregate, error)
	SetUnion(ctx context.Context, uid string, field ProfileSetField, values []string) ([]string, error)
}

type counterStore struct {
	db  *gorm.DB
	loc *time.Location
}

// NewCounterStore creates a counter store. Streak days are counted in loc.
func NewCounterStore(db *gorm.DB, loc *time.Location) CounterStore {
	if loc == nil {
		loc = time.UTC
	}
	return &counterStore{db: db, loc: loc}
}

func membershipRow(field SetField, quoteID, actorID string) (interface{}, error) {
	switch field {
	case LikedBy:
		return &models.QuoteLike{QuoteID: quoteID, UserUID: actorID}, nil
	case BookmarkedBy:
		return &models.QuoteBookmark{QuoteID: quoteID, UserUID: actorID}, nil
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown membership set %q", field))
	}
}

// ToggleMembership adds actorID to the set if absent and removes it otherwise.
// The insert decides the direction, so two concurrent toggles by the same actor
// serialize on the membership row instead of reading stale state.
func (s *counterStore) ToggleMembership(ctx context.Context, field SetField, quoteID, actorID string) (ToggleResult, error) {
	row, err := membershipRow(field, quoteID, actorID)
	if err != nil {
		return ToggleResult{}, err
	}
	defer observability.TrackQuery("toggle_membership", string(field))()

	var result ToggleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.Quote
		if err := tx.Select("id").Where("id = ?", quoteID).Take(&quote).Error; err != nil {
			return err
		}

		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if inserted.Error != nil {
			return inserted.Error
		}

		delta := 1
		if inserted.RowsAffected == 0 {
			result.WasPresent = true
			removed := tx.Where("quote_id = ? AND user_uid = ?", quoteID, actorID).Delete(row)
			if removed.Error != nil {
				return removed.Error
			}
			delta = -int(removed.RowsAffected)
		}

		if field != LikedBy {
			var n int64
			if err := tx.Model(&models.QuoteBookmark{}).Where("quote_id = ?", quoteID).Count(&n).Error; err != nil {
				return err
			}
			result.NewCount = int(n)
			return nil
		}

		if delta != 0 {
			if err := tx.Model(&models.Quote{}).Where("id = ?", quoteID).
				UpdateColumn("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Quote{}).Where("id = ?", quoteID).
			Select("likes").Scan(&result.NewCount).Error
	})
	if err != nil {
		return ToggleResult{}, translateError(err, "Quote", quoteID)
	}

	direction := "added"
	if result.WasPresent {
		direction = "removed"
	}
	observability.MembershipToggles.WithLabelValues(string(field), direction).Inc()
	cache.InvalidateQuote(ctx, quoteID)
	return result, nil
}

// IncrementCounter adds delta to a quote counter, never letting it drop below zero.
func (s *counterStore) IncrementCounter(ctx context.Context, quoteID string, field CounterField, delta int) error {
	if err := incrementCounter(s.db.WithContext(ctx), quoteID, field, delta); err != nil {
		return translateError(err, "Quote", quoteID)
	}
	cache.InvalidateQuote(ctx, quoteID)
	return nil
}

func incrementCounter(tx *gorm.DB, quoteID string, field CounterField, delta int) error {
	var column string
	switch field {
	case CounterLikes:
		column = "likes"
	case CounterReplyCount:
		column = "reply_count"
	default:
		return models.NewValidationError(fmt.Sprintf("unknown counter %q", field))
	}

	expr := gorm.Expr(
		fmt.Sprintf("CASE WHEN COALESCE(%[1]s, 0) + ? < 0 THEN 0 ELSE COALESCE(%[1]s, 0) + ? END", column),
		delta, delta,
	)
	res := tx.Model(&models.Quote{}).Where("id = ?", quoteID).UpdateColumn(column, expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecomputeAggregate derives a user's counters from their quotes and writes the
// post and like totals back onto the profile when one exists.
func (s *counterStore) RecomputeAggregate(ctx context.Context, uid string) (Aggregate, error) {
	defer observability.TrackQuery("recompute_aggregate", "quotes")()
	db := s.db.WithContext(ctx)

	var totals struct {
		PostCount int
		Likes     int
	}
	if err := db.Model(&models.Quote{}).
		Select("COUNT(*) AS post_count, COALESCE(SUM(likes), 0) AS likes").
		Where("author_uid = ?", uid).
		Scan(&totals).Error; err != nil {
		return Aggregate{}, translateError(err, "User", uid)
	}

	var created []time.Time
	if err := db.Model(&models.Quote{}).
		Where("author_uid = ?", uid).
		Order("created_at DESC").
		Limit(streakLookback).
		Pluck("created_at", &created).Error; err != nil {
		return Aggregate{}, translateError(err, "User", uid)
	}

	var badgeIDs []string
	if err := db.Model(&models.UserBadge{}).
		Where("user_uid = ?", uid).
		Pluck("badge_id", &badgeIDs).Error; err != nil {
		return Aggregate{}, translateError(err, "User", uid)
	}
	sort.Strings(badgeIDs)

	if err := db.Model(&models.UserProfile{}).Where("uid = ?", uid).
		UpdateColumns(map[string]interface{}{
			"post_count":     totals.PostCount,
			"likes_received": totals.Likes,
		}).Error; err != nil {
		return Aggregate{}, translateError(err, "User", uid)
	}

	return Aggregate{
		PostCount:          totals.PostCount,
		TotalLikesReceived: totals.Likes,
		StreakDays:         StreakDays(created, s.loc),
		AllBadges:          badgeIDs,
	}, nil
}

// StreakDays counts consecutive calendar days in loc ending at the most recent
// post. Posts must be ordered newest first.
func StreakDays(createdDesc []time.Time, loc *time.Location) int {
	if len(createdDesc) == 0 {
		return 0
	}
	day := func(t time.Time) time.Time {
		y, m, d := t.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	streak := 1
	current := day(createdDesc[0])
	for _, t := range createdDesc[1:] {
		d := day(t)
		if d.Equal(current) {
			continue
		}
		if !d.Equal(current.AddDate(0, 0, -1)) {
			break
		}
		streak++
		current = d
	}
	return streak
}

// SetUnion adds values to a per-user set and returns the ones that were not
// already present, in input order.
func (s *counterStore) SetUnion(ctx context.Context, uid string, field ProfileSetField, values []string) ([]string, error) {
	var inserted []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = setUnion(tx, uid, field, values)
		return err
	})
	if err != nil {
		return nil, translateError(err, "User", uid)
	}
	return inserted, nil
}

func setUnion(tx *gorm.DB, uid string, field ProfileSetField, values []string) ([]string, error) {
	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(values))
	var inserted []string
	for _, v := range values {
		if _, dup := seen[v]; dup || v == "" {
			continue
		}
		seen[v] = struct{}{}

		var row interface{}
		switch field {
		case AllBadges:
			row = &models.UserBadge{UserUID: uid, BadgeID: v, GrantedAt: now}
		case BlockedUsers:
			row = &models.UserBlock{BlockerUID: uid, BlockedUID: v, CreatedAt: now}
		default:
			return nil, models.NewValidationError(fmt.Sprintf("unknown profile set %q", field))
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			inserted = append(inserted, v)
		}
	}
	return inserted, nil
}
