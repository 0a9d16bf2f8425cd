package service

import (
	"context"
	"strings"

	"eminence/internal/models"
	"eminence/internal/observability"
	"eminence/internal/repository"
)

// maxReportInfoLength bounds the free-text part of a report, in runes.
const maxReportInfoLength = 1000

// SafetyService handles reports and blocks.
type SafetyService struct {
	reports repository.ReportRepository
	users   repository.UserRepository
	quotes  repository.QuoteRepository
}

type ReportInput struct {
	Actor          Actor
	QuoteID        string
	ReportedUserID string
	Reason         models.ReportReason
	AdditionalInfo string
}

func NewSafetyService(reports repository.ReportRepository, users repository.UserRepository, quotes repository.QuoteRepository) *SafetyService {
	return &SafetyService{reports: reports, users: users, quotes: quotes}
}

// Report files a report against exactly one quote or one user.
func (s *SafetyService) Report(ctx context.Context, in ReportInput) (*models.Report, error) {
	if err := in.Actor.require(); err != nil {
		return nil, err
	}
	if !in.Reason.Valid() {
		return nil, models.NewValidationError("reason must be spam, inappropriate, harassment or other")
	}
	if (in.QuoteID == "") == (in.ReportedUserID == "") {
		return nil, models.NewValidationError("report a quote or a user")
	}
	if in.ReportedUserID == in.Actor.UID {
		return nil, models.NewValidationError("cannot report yourself")
	}

	report := &models.Report{
		ReporterID:     in.Actor.UID,
		Reason:         in.Reason,
		AdditionalInfo: models.TruncateRunes(strings.TrimSpace(in.AdditionalInfo), maxReportInfoLength),
	}
	if in.QuoteID != "" {
		if _, err := s.quotes.GetByID(ctx, in.QuoteID, ""); err != nil {
			return nil, err
		}
		id := in.QuoteID
		report.QuoteID = &id
	} else {
		id := in.ReportedUserID
		report.ReportedUserID = &id
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "SafetyService", "Report", map[string]interface{}{
		"report_id": report.ID,
		"reason":    string(report.Reason),
	})
	return report, nil
}

// Block hides blockedUID's quotes from the caller's feeds. It reports whether
// the block is new.
func (s *SafetyService) Block(ctx context.Context, actor Actor, blockedUID string) (bool, error) {
	if err := actor.require(); err != nil {
		return false, err
	}
	if blockedUID == "" || blockedUID == actor.UID {
		return false, models.NewValidationError("cannot block this user")
	}
	return s.users.Block(ctx, actor.UID, blockedUID)
}

func (s *SafetyService) Unblock(ctx context.Context, actor Actor, blockedUID string) error {
	if err := actor.require(); err != nil {
		return err
	}
	return s.users.Unblock(ctx, actor.UID, blockedUID)
}

func (s *SafetyService) ListBlocked(ctx context.Context, actor Actor) ([]string, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	return s.users.ListBlocked(ctx, actor.UID)
}

// PendingReports lists reports awaiting moderation, oldest first.
func (s *SafetyService) PendingReports(ctx context.Context, limit int) ([]*models.Report, error) {
	limit, _ = NormalizePage(limit, 0)
	return s.reports.ListPending(ctx, limit)
}
