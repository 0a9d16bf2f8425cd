package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_LoadsOnceThenServesFromCache(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dst *item) func() error {
		return func() error {
			loads++
			*dst = item{Name: "名言", Count: 3}
			return nil
		}
	}

	var first item
	require.NoError(t, Aside(ctx, QuoteKey("q1"), &first, QuoteTTL, load(&first)))
	var second item
	require.NoError(t, Aside(ctx, QuoteKey("q1"), &second, QuoteTTL, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var dst item
	err := Aside(context.Background(), QuoteKey("q2"), &dst, QuoteTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(QuoteKey("q2")))
}

func TestInvalidateQuote(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, QuoteKey("q3"), item{Name: "x"}, QuoteTTL))
	require.True(t, mr.Exists(QuoteKey("q3")))

	InvalidateQuote(ctx, "q3")
	assert.False(t, mr.Exists(QuoteKey("q3")))
}

func TestGetJSON_WithoutClientIsMiss(t *testing.T) {
	SetClient(nil)
	var dst item
	assert.ErrorIs(t, GetJSON(context.Background(), "k", &dst), ErrMiss)
	assert.NoError(t, SetJSON(context.Background(), "k", dst, QuoteTTL))
}
