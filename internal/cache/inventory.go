package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	QuoteKeyPrefix = "quote:%s"
	DailyTopKey    = "daily_top:latest"
)

const (
	QuoteTTL    = 30 * time.Minute
	DailyTopTTL = time.Hour
)

func QuoteKey(quoteID string) string {
	return fmt.Sprintf(QuoteKeyPrefix, quoteID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateQuote(ctx context.Context, quoteID string) {
	Invalidate(ctx, QuoteKey(quoteID))
}
