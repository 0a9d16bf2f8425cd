package repository

import (
	"context"
	"errors"

	"eminence/internal/cache"
	"eminence/internal/models"

	"gorm.io/gorm"
)

// ReplyListLimit is how many replies a quote shows at once.
const ReplyListLimit = 20

const replyCountSubquery = "(SELECT COUNT(*) FROM replies WHERE replies.quote_id = quotes.id)"

// ReplyRepository stores replies. Creating or deleting a reply moves the parent
// quote's reply count in the same transaction.
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	GetByID(ctx context.Context, id string) (*models.Reply, error)
	ListByQuote(ctx context.Context, quoteID string, limit int) ([]*models.Reply, error)
	Delete(ctx context.Context, reply *models.Reply) error
	RecountAll(ctx context.Context) (int64, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new reply repository
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.Quote
		if err := tx.Select("id").Where("id = ?", reply.QuoteID).Take(&quote).Error; err != nil {
			return err
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return incrementCounter(tx, reply.QuoteID, CounterReplyCount, 1)
	})
	if err != nil {
		return translateError(err, "Quote", reply.QuoteID)
	}
	cache.InvalidateQuote(ctx, reply.QuoteID)
	return nil
}

func (r *replyRepository) GetByID(ctx context.Context, id string) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&reply).Error; err != nil {
		return nil, translateError(err, "Reply", id)
	}
	return &reply, nil
}

// ListByQuote returns the oldest replies first.
func (r *replyRepository) ListByQuote(ctx context.Context, quoteID string, limit int) ([]*models.Reply, error) {
	if limit <= 0 || limit > ReplyListLimit {
		limit = ReplyListLimit
	}
	var replies []*models.Reply
	err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Limit(limit).
		Find(&replies).Error
	return replies, translateError(err, "Reply", "")
}

func (r *replyRepository) Delete(ctx context.Context, reply *models.Reply) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", reply.ID).Delete(&models.Reply{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Reply", reply.ID)
		}
		err := incrementCounter(tx, reply.QuoteID, CounterReplyCount, -1)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// parent already deleted; nothing to keep in step
			return nil
		}
		return err
	})
	if err != nil {
		return translateError(err, "Reply", reply.ID)
	}
	cache.InvalidateQuote(ctx, reply.QuoteID)
	return nil
}

// RecountAll rewrites every drifted reply count from the stored replies and
// returns how many quotes changed.
func (r *replyRepository) RecountAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.Quote{}).
		Where("COALESCE(reply_count, -1) <> "+replyCountSubquery).
		UpdateColumn("reply_count", gorm.Expr(replyCountSubquery))
	if res.Error != nil {
		return 0, translateError(res.Error, "Quote", "")
	}
	return res.RowsAffected, nil
}
