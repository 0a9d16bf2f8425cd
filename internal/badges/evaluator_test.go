package badges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		counters Counters
		current  []string
		signals  Signals
		want     []string
	}{
		{"nothing yet", Counters{}, nil, Signals{}, nil},
		{"first post", Counters{PostCount: 1}, nil, Signals{}, []string{"first_post"}},
		{"five posts adds both", Counters{PostCount: 5}, nil, Signals{}, []string{"first_post", "five_posts"}},
		{"fifth post after the first", Counters{PostCount: 5}, []string{"first_post"}, Signals{}, []string{"five_posts"}},
		{"already held are skipped", Counters{PostCount: 10}, []string{"first_post", "five_posts"}, Signals{}, []string{"ten_posts"}},
		{"likes ladder", Counters{TotalLikesReceived: 100}, []string{"ten_likes"}, Signals{}, []string{"fifty_likes", "hundred_likes"}},
		{"week streak", Counters{}, nil, Signals{StreakDays: 7}, []string{"weekly_post"}},
		{"month streak", Counters{}, []string{"weekly_post"}, Signals{StreakDays: 30}, []string{"monthly_post"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.counters, tt.current, tt.signals))
		})
	}
}

func TestEvaluate_TimeOfDayNeedsPostingHour(t *testing.T) {
	c := Counters{PostCount: 1}
	current := []string{"first_post"}

	assert.Empty(t, Evaluate(c, current, Signals{Hour: 6}))
	assert.Equal(t, []string{"early_bird"}, Evaluate(c, current, AtHour(5)))
	assert.Equal(t, []string{"early_bird"}, Evaluate(c, current, AtHour(7)))
	assert.Empty(t, Evaluate(c, current, AtHour(8)))
	assert.Equal(t, []string{"night_owl"}, Evaluate(c, current, AtHour(0)))
	assert.Equal(t, []string{"night_owl"}, Evaluate(c, current, AtHour(2)))
	assert.Empty(t, Evaluate(c, current, AtHour(3)))
}

func TestEvaluate_NeverUnlocksAdministrativeBadges(t *testing.T) {
	got := Evaluate(Counters{PostCount: 1000, TotalLikesReceived: 100000}, nil, Signals{StreakDays: 365, Hour: 1, HasHour: true})
	for _, id := range got {
		assert.False(t, IsAdministrative(id), id)
	}
	assert.NotContains(t, got, AdminBadgeID)
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	c := Counters{PostCount: 12, TotalLikesReceived: 60}
	first := Evaluate(c, nil, AtHour(1))
	assert.Equal(t, first, Evaluate(c, nil, AtHour(1)))
	assert.Empty(t, Evaluate(c, first, AtHour(1)))
}

func TestCatalog(t *testing.T) {
	all := Catalog()
	assert.Len(t, all, 19)
	assert.Equal(t, "first_post", all[0].ID)

	b, ok := Lookup("tiktok_10k")
	assert.True(t, ok)
	assert.Equal(t, 3, b.Rank)
	assert.True(t, b.Administrative())

	assert.True(t, IsAdministrative("verified"))
	assert.False(t, IsAdministrative("first_post"))
	assert.False(t, Valid("golden_pen"))

	assert.Equal(t, []string{"first_post", "ten_likes", "admin"},
		SortByCatalog([]string{"admin", "bogus", "ten_likes", "first_post", "admin"}))
}
