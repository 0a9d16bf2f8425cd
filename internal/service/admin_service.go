package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"eminence/internal/badges"
	"eminence/internal/models"
	"eminence/internal/observability"
	"eminence/internal/repository"
)

// BadgeGranter is the operator side of the awarder.
type BadgeGranter interface {
	Grant(ctx context.Context, uid, badgeID string) (bool, error)
	Revoke(ctx context.Context, uid, badgeID string) (bool, error)
}

// AdminService backs the admin endpoints and the admin CLI.
type AdminService struct {
	granter  BadgeGranter
	profiles repository.ProfileRepository
	replies  repository.ReplyRepository
	quotes   repository.QuoteRepository
}

// ImportResult summarizes a legacy import. Failed lines are skipped, not fatal.
type ImportResult struct {
	Imported int
	Failed   []*models.DecodeError
}

func NewAdminService(
	granter BadgeGranter,
	profiles repository.ProfileRepository,
	replies repository.ReplyRepository,
	quotes repository.QuoteRepository,
) *AdminService {
	return &AdminService{granter: granter, profiles: profiles, replies: replies, quotes: quotes}
}

// GrantBadge gives a badge to uid and reports whether it was new.
func (s *AdminService) GrantBadge(ctx context.Context, uid, badgeID string) (bool, error) {
	if uid == "" {
		return false, models.NewValidationError("uid is required")
	}
	if _, err := s.profiles.GetOrCreate(ctx, uid); err != nil {
		return false, err
	}
	granted, err := s.granter.Grant(ctx, uid, badgeID)
	if err != nil {
		return false, err
	}
	observability.GlobalLogger.InfoContext(ctx, "admin badge grant",
		slog.String("user_id", uid), slog.String("badge", badgeID), slog.Bool("granted", granted))
	return granted, nil
}

// RevokeBadge removes a badge and reports whether uid held it.
func (s *AdminService) RevokeBadge(ctx context.Context, uid, badgeID string) (bool, error) {
	if uid == "" {
		return false, models.NewValidationError("uid is required")
	}
	revoked, err := s.granter.Revoke(ctx, uid, badgeID)
	if err != nil {
		return false, err
	}
	observability.GlobalLogger.InfoContext(ctx, "admin badge revoke",
		slog.String("user_id", uid), slog.String("badge", badgeID), slog.Bool("revoked", revoked))
	return revoked, nil
}

func (s *AdminService) ListHolders(ctx context.Context, badgeID string) ([]string, error) {
	if !badges.Valid(badgeID) {
		return nil, models.NewValidationError(fmt.Sprintf("unknown badge %q", badgeID))
	}
	return s.profiles.ListHolders(ctx, badgeID)
}

// RecountReplies repairs reply counts from the stored replies.
func (s *AdminService) RecountReplies(ctx context.Context) (int64, error) {
	changed, err := s.replies.RecountAll(ctx)
	if err != nil {
		return 0, err
	}
	observability.GlobalLogger.InfoContext(ctx, "reply counts recomputed", slog.Int64("changed", changed))
	return changed, nil
}

// ImportQuotes loads newline-delimited legacy documents. Lines that fail to
// decode or store are collected in the result.
func (s *AdminService) ImportQuotes(ctx context.Context, r io.Reader) (*ImportResult, error) {
	docs, failures, err := models.DecodeQuoteDocuments(r)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Failed: failures}
	for _, doc := range docs {
		if err := s.quotes.Import(ctx, doc.ToQuote(), doc.LikedBy, doc.BookmarkedBy); err != nil {
			result.Failed = append(result.Failed, &models.DecodeError{DocID: doc.ID, Err: err})
			continue
		}
		result.Imported++
	}
	return result, nil
}
