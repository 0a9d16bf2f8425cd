package repository

import (
	"context"
	"strings"
	"time"

	"eminence/internal/cache"
	"eminence/internal/models"

	"gorm.io/gorm"
)

// Feed sort orders accepted by List.
const (
	SortNew     = "new"
	SortPopular = "popular"
)

// QuoteRepository defines the interface for quote data operations
type QuoteRepository interface {
	Create(ctx context.Context, quote *models.Quote) error
	GetByID(ctx context.Context, id string, viewerID string) (*models.Quote, error)
	List(ctx context.Context, limit, offset int, viewerID string, sort string) ([]*models.Quote, error)
	Search(ctx context.Context, query string, limit, offset int, viewerID string) ([]*models.Quote, error)
	ListByAuthor(ctx context.Context, authorUID string, limit, offset int, viewerID string) ([]*models.Quote, error)
	ListBookmarked(ctx context.Context, uid string, limit, offset int) ([]*models.Quote, error)
	RandomBookmarked(ctx context.Context, uid string) (*models.Quote, error)
	CreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Quote, error)
	CountByAuthorSince(ctx context.Context, authorUID string, since time.Time) (int64, error)
	Update(ctx context.Context, quote *models.Quote) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, quote *models.Quote, likedBy, bookmarkedBy []string) error
}

// quoteRepository implements QuoteRepository
type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	return translateError(r.db.WithContext(ctx).Create(quote).Error, "Quote", quote.ID)
}

// GetByID loads one quote. Signed-out reads go through the cache since they carry
// no viewer-relative flags.
func (r *quoteRepository) GetByID(ctx context.Context, id string, viewerID string) (*models.Quote, error) {
	var quote models.Quote

	var err error
	if viewerID == "" {
		err = cache.Aside(ctx, cache.QuoteKey(id), &quote, cache.QuoteTTL, func() error {
			return r.db.WithContext(ctx).Where("id = ?", id).Take(&quote).Error
		})
	} else {
		err = r.db.WithContext(ctx).Where("id = ?", id).Take(&quote).Error
	}
	if err != nil {
		return nil, translateError(err, "Quote", id)
	}

	if err := r.applyViewerFlags(ctx, []*models.Quote{&quote}, viewerID); err != nil {
		return nil, translateError(err, "Quote", id)
	}
	return &quote, nil
}

func (r *quoteRepository) List(ctx context.Context, limit, offset int, viewerID string, sort string) ([]*models.Quote, error) {
	base := r.hideBlocked(r.db.WithContext(ctx), viewerID)
	switch sort {
	case SortPopular:
		base = base.Order("likes DESC").Order("created_at DESC")
	default:
		base = base.Order("created_at DESC")
	}
	return r.find(ctx, base.Limit(limit).Offset(offset), viewerID)
}

func (r *quoteRepository) Search(ctx context.Context, query string, limit, offset int, viewerID string) ([]*models.Quote, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	base := r.hideBlocked(r.db.WithContext(ctx), viewerID).
		Where("LOWER(text) LIKE ? OR LOWER(author) LIKE ? OR LOWER(author_display_name) LIKE ?", like, like, like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	return r.find(ctx, base, viewerID)
}

func (r *quoteRepository) ListByAuthor(ctx context.Context, authorUID string, limit, offset int, viewerID string) ([]*models.Quote, error) {
	base := r.db.WithContext(ctx).
		Where("author_uid = ?", authorUID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	return r.find(ctx, base, viewerID)
}

func (r *quoteRepository) ListBookmarked(ctx context.Context, uid string, limit, offset int) ([]*models.Quote, error) {
	base := r.db.WithContext(ctx).
		Joins("JOIN quote_bookmarks ON quote_bookmarks.quote_id = quotes.id").
		Where("quote_bookmarks.user_uid = ?", uid).
		Order("quote_bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset)
	return r.find(ctx, base, uid)
}

// RandomBookmarked picks one of the user's bookmarked quotes at random.
func (r *quoteRepository) RandomBookmarked(ctx context.Context, uid string) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Joins("JOIN quote_bookmarks ON quote_bookmarks.quote_id = quotes.id").
		Where("quote_bookmarks.user_uid = ?", uid).
		Order("RANDOM()").
		Take(&quote).Error
	if err != nil {
		return nil, translateError(err, "Bookmark", uid)
	}
	quote.Bookmarked = true
	return &quote, nil
}

// CreatedBetween returns quotes created in [from, to), newest first.
func (r *quoteRepository) CreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Quote, error) {
	var quotes []*models.Quote
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		Find(&quotes).Error
	return quotes, translateError(err, "Quote", "")
}

func (r *quoteRepository) CountByAuthorSince(ctx context.Context, authorUID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Quote{}).
		Where("author_uid = ? AND created_at >= ?", authorUID, since.UTC()).
		Count(&n).Error
	return n, translateError(err, "Quote", "")
}

// Update persists edited text and author only; counters are owned by the counter store.
func (r *quoteRepository) Update(ctx context.Context, quote *models.Quote) error {
	res := r.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ?", quote.ID).
		Updates(map[string]interface{}{
			"text":       quote.Text,
			"author":     quote.Author,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return translateError(res.Error, "Quote", quote.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Quote", quote.ID)
	}
	cache.InvalidateQuote(ctx, quote.ID)
	return nil
}

func (r *quoteRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Quote{})
	if res.Error != nil {
		return translateError(res.Error, "Quote", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Quote", id)
	}
	cache.InvalidateQuote(ctx, id)
	return nil
}

// Import writes a decoded legacy quote with its membership sets in one transaction.
// Re-importing the same document is a no-op for rows that already exist.
func (r *quoteRepository) Import(ctx context.Context, quote *models.Quote, likedBy, bookmarkedBy []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Unscoped().Model(&models.Quote{}).Where("id = ?", quote.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if err := tx.Create(quote).Error; err != nil {
			return err
		}
		for _, uid := range likedBy {
			if err := tx.Create(&models.QuoteLike{QuoteID: quote.ID, UserUID: uid}).Error; err != nil {
				return err
			}
		}
		for _, uid := range bookmarkedBy {
			if err := tx.Create(&models.QuoteBookmark{QuoteID: quote.ID, UserUID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err, "Quote", quote.ID)
}

func (r *quoteRepository) hideBlocked(db *gorm.DB, viewerID string) *gorm.DB {
	if viewerID == "" {
		return db
	}
	return db.Where(
		"author_uid IS NULL OR author_uid NOT IN (SELECT blocked_uid FROM user_blocks WHERE blocker_uid = ?)",
		viewerID,
	)
}

func (r *quoteRepository) find(ctx context.Context, query *gorm.DB, viewerID string) ([]*models.Quote, error) {
	var quotes []*models.Quote
	if err := query.Find(&quotes).Error; err != nil {
		return nil, translateError(err, "Quote", "")
	}
	if err := r.applyViewerFlags(ctx, quotes, viewerID); err != nil {
		return nil, translateError(err, "Quote", "")
	}
	return quotes, nil
}

// applyViewerFlags fills Liked and Bookmarked with two batched lookups.
func (r *quoteRepository) applyViewerFlags(ctx context.Context, quotes []*models.Quote, viewerID string) error {
	if viewerID == "" || len(quotes) == 0 {
		return nil
	}
	ids := make([]string, len(quotes))
	for i, q := range quotes {
		ids[i] = q.ID
	}

	var liked, bookmarked []string
	if err := r.db.WithContext(ctx).Model(&models.QuoteLike{}).
		Where("user_uid = ? AND quote_id IN ?", viewerID, ids).
		Pluck("quote_id", &liked).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.QuoteBookmark{}).
		Where("user_uid = ? AND quote_id IN ?", viewerID, ids).
		Pluck("quote_id", &bookmarked).Error; err != nil {
		return err
	}

	likedSet := toSet(liked)
	bookmarkedSet := toSet(bookmarked)
	for _, q := range quotes {
		_, q.Liked = likedSet[q.ID]
		_, q.Bookmarked = bookmarkedSet[q.ID]
	}
	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
