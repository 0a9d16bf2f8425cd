package service

import (
	"context"

	"eminence/internal/models"
	"eminence/internal/repository"
)

// Widget quote sources.
const (
	WidgetSourceBookmark = "bookmark"
	WidgetSourceDailyTop = "daily_top"
)

// WidgetQuote is the single quote shown on the home screen widget.
type WidgetQuote struct {
	QuoteID string `json:"quoteId"`
	Text    string `json:"text"`
	Author  string `json:"author"`
	Source  string `json:"source"`
}

// WidgetService picks a quote for the widget: a random bookmark of the
// viewer, or the latest daily top quote.
type WidgetService struct {
	quotes repository.QuoteRepository
	digest *DigestService
}

func NewWidgetService(quotes repository.QuoteRepository, digest *DigestService) *WidgetService {
	return &WidgetService{quotes: quotes, digest: digest}
}

func (s *WidgetService) Quote(ctx context.Context, viewerID string) (*WidgetQuote, error) {
	if viewerID != "" {
		q, err := s.quotes.RandomBookmarked(ctx, viewerID)
		switch {
		case err == nil:
			return &WidgetQuote{QuoteID: q.ID, Text: q.Text, Author: q.Author, Source: WidgetSourceBookmark}, nil
		case !models.HasCode(err, models.CodeNotFound):
			return nil, err
		}
	}
	top, err := s.digest.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return &WidgetQuote{QuoteID: top.QuoteID, Text: top.Text, Author: top.Author, Source: WidgetSourceDailyTop}, nil
}
