// Package badges holds the static badge catalog, the unlock evaluator and the
// awarder that persists new badges and announces them.
package badges

import "sort"

// Kind groups badges by what unlocks them.
type Kind string

const (
	KindPosts          Kind = "posts"
	KindLikes          Kind = "likes"
	KindStreak         Kind = "streak"
	KindTimeOfDay      Kind = "time_of_day"
	KindAdministrative Kind = "administrative"
	KindFollowers      Kind = "followers"
)

// Counters are the per-user totals predicates read.
type Counters struct {
	PostCount          int
	TotalLikesReceived int
}

// Signals carry context that only some triggers can supply. Hour is the local
// posting hour and is meaningful only when HasHour is set.
type Signals struct {
	Hour       int
	HasHour    bool
	StreakDays int
}

// AtHour returns signals for a post made at local hour h.
func AtHour(h int) Signals {
	return Signals{Hour: h, HasHour: true}
}

// Badge is one catalog entry. Unlock is nil for badges only an operator can grant.
type Badge struct {
	ID          string                       `json:"id"`
	Title       string                       `json:"title"`
	Description string                       `json:"description"`
	Icon        string                       `json:"icon"`
	Color       string                       `json:"color"`
	Rank        int                          `json:"rank"`
	Kind        Kind                         `json:"kind"`
	Unlock      func(Counters, Signals) bool `json:"-"`
}

// Administrative reports whether the badge is never unlocked automatically.
func (b Badge) Administrative() bool {
	return b.Unlock == nil
}

func minPosts(n int) func(Counters, Signals) bool {
	return func(c Counters, _ Signals) bool { return c.PostCount >= n }
}

func minLikes(n int) func(Counters, Signals) bool {
	return func(c Counters, _ Signals) bool { return c.TotalLikesReceived >= n }
}

func minStreak(days int) func(Counters, Signals) bool {
	return func(_ Counters, s Signals) bool { return s.StreakDays >= days }
}

func hourBetween(from, to int) func(Counters, Signals) bool {
	return func(_ Counters, s Signals) bool { return s.HasHour && s.Hour >= from && s.Hour <= to }
}

var catalog = []Badge{
	{ID: "first_post", Title: "初投稿", Description: "初めての名言を投稿", Icon: "star.fill", Color: "yellow", Kind: KindPosts, Unlock: minPosts(1)},
	{ID: "five_posts", Title: "5投稿達成", Description: "5つの名言を投稿", Icon: "doc.text.fill", Color: "green", Kind: KindPosts, Unlock: minPosts(5)},
	{ID: "ten_posts", Title: "10投稿達成", Description: "10つの名言を投稿", Icon: "doc.badge.plus", Color: "teal", Kind: KindPosts, Unlock: minPosts(10)},
	{ID: "ten_likes", Title: "10いいね達成", Description: "投稿が合計10いいねを獲得", Icon: "heart.fill", Color: "pink", Kind: KindLikes, Unlock: minLikes(10)},
	{ID: "fifty_likes", Title: "50いいね達成", Description: "投稿が合計50いいねを獲得", Icon: "flame.fill", Color: "orange", Kind: KindLikes, Unlock: minLikes(50)},
	{ID: "hundred_likes", Title: "100いいね達成", Description: "投稿が合計100いいねを獲得", Icon: "crown.fill", Color: "purple", Kind: KindLikes, Unlock: minLikes(100)},
	{ID: "weekly_post", Title: "週間投稿者", Description: "7日連続で投稿", Icon: "calendar.badge.plus", Color: "green", Kind: KindStreak, Unlock: minStreak(7)},
	{ID: "monthly_post", Title: "月間投稿者", Description: "30日連続で投稿", Icon: "calendar.circle.fill", Color: "blue", Kind: KindStreak, Unlock: minStreak(30)},
	{ID: "early_bird", Title: "早起き投稿者", Description: "朝5時〜7時に投稿", Icon: "sunrise.fill", Color: "orange", Kind: KindTimeOfDay, Unlock: hourBetween(5, 7)},
	{ID: "night_owl", Title: "夜更かし投稿者", Description: "深夜0時〜2時に投稿", Icon: "moon.stars.fill", Color: "indigo", Kind: KindTimeOfDay, Unlock: hourBetween(0, 2)},
	{ID: "developer", Title: "開発者", Description: "アプリ開発者", Icon: "hammer.fill", Color: "purple", Kind: KindAdministrative},
	{ID: "verified", Title: "認証済み", Description: "公式認証アカウント", Icon: "checkmark.seal.fill", Color: "blue", Kind: KindAdministrative},
	{ID: "admin", Title: "運営者", Description: "アプリ運営者", Icon: "checkmark.seal.fill", Color: "red", Kind: KindAdministrative},
	{ID: "tiktok_1k", Title: "TikTok 1K", Description: "TikTokフォロワー1,000人", Icon: "t.circle.fill", Color: "gray", Rank: 1, Kind: KindFollowers},
	{ID: "tiktok_5k", Title: "TikTok 5K", Description: "TikTokフォロワー5,000人", Icon: "t.circle.fill", Color: "blue", Rank: 2, Kind: KindFollowers},
	{ID: "tiktok_10k", Title: "TikTok 10K", Description: "TikTokフォロワー10,000人", Icon: "t.circle.fill", Color: "red", Rank: 3, Kind: KindFollowers},
	{ID: "x_1k", Title: "X 1K", Description: "Xフォロワー1,000人", Icon: "x.circle.fill", Color: "gray", Rank: 1, Kind: KindFollowers},
	{ID: "x_5k", Title: "X 5K", Description: "Xフォロワー5,000人", Icon: "x.circle.fill", Color: "blue", Rank: 2, Kind: KindFollowers},
	{ID: "x_10k", Title: "X 10K", Description: "Xフォロワー10,000人", Icon: "x.circle.fill", Color: "red", Rank: 3, Kind: KindFollowers},
}

// AdminBadgeID is the badge that carries operator privileges.
const AdminBadgeID = "admin"

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, b := range catalog {
		idx[b.ID] = i
	}
	return idx
}()

// Catalog returns the badges in display order.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a badge by id.
func Lookup(id string) (Badge, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Badge{}, false
	}
	return catalog[i], true
}

// Valid reports whether id names a catalog badge.
func Valid(id string) bool {
	_, ok := catalogIndex[id]
	return ok
}

// IsAdministrative reports whether id can only be granted by an operator.
func IsAdministrative(id string) bool {
	b, ok := Lookup(id)
	return ok && b.Administrative()
}

// SortByCatalog returns the known ids in catalog order without duplicates.
// Unknown ids are dropped.
func SortByCatalog(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || !Valid(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return catalogIndex[out[i]] < catalogIndex[out[j]]
	})
	return out
}
