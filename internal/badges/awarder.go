package badges

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eminence/internal/models"
	"eminence/internal/observability"
	"eminence/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// GrantedAlertTitle is the title of the local alert shown for a new badge.
const GrantedAlertTitle = "🎉 バッジを獲得しました！"

// Grant sources used in metrics and events.
const (
	SourceAuto  = "auto"
	SourceAdmin = "admin"
)

// Store persists badge sets. AwardBadges must union ids into allBadges and
// auto-select newly inserted ones in one transaction, reporting which ids were
// inserted and which of those the user never held before.
type Store interface {
	AwardBadges(ctx context.Context, uid string, ids []string, maxSelected int) (repository.BadgeAward, error)
	RevokeBadge(ctx context.Context, uid, badgeID string) (bool, error)
}

// AggregateSource supplies the counters the evaluator reads.
type AggregateSource interface {
	RecomputeAggregate(ctx context.Context, uid string) (repository.Aggregate, error)
}

// Granted describes one badge newly added to a user.
type Granted struct {
	UserID     string    `json:"userId"`
	Badge      Badge     `json:"badge"`
	Source     string    `json:"source"`
	GrantedAt  time.Time `json:"grantedAt"`
	AlertTitle string    `json:"alertTitle"`
	AlertBody  string    `json:"alertBody"`
}

// EventSink receives one call per (user, badge) pair, the first time the badge
// is granted. Re-granting a revoked badge is silent.
type EventSink interface {
	OnBadgeGranted(ctx context.Context, g Granted)
}

// AwardResult lists the ids that were new, in catalog order.
type AwardResult struct {
	Granted []string
}

// Awarder persists newly unlocked badges and announces them.
type Awarder struct {
	store      Store
	aggregates AggregateSource
	sink       EventSink
	now        func() time.Time
}

// NewAwarder creates an awarder. sink may be nil.
func NewAwarder(store Store, aggregates AggregateSource, sink EventSink) *Awarder {
	return &Awarder{store: store, aggregates: aggregates, sink: sink, now: time.Now}
}

// Award persists the given ids. Ids already held are skipped silently; if the
// store fails nothing is announced.
func (a *Awarder) Award(ctx context.Context, uid string, newlyUnlocked []string) (AwardResult, error) {
	return a.award(ctx, uid, newlyUnlocked, SourceAuto)
}

// CheckAndAward recomputes the user's counters, evaluates the catalog and awards
// whatever is newly unlocked. A failed fetch aborts before anything is written.
func (a *Awarder) CheckAndAward(ctx context.Context, uid string, signals Signals) (AwardResult, error) {
	span, ctx := observability.NewSpan(ctx, "badges.CheckAndAward", attribute.String("user.id", uid))
	defer span.End()

	agg, err := a.aggregates.RecomputeAggregate(ctx, uid)
	if err != nil {
		span.SetError(err)
		return AwardResult{}, err
	}
	if agg.StreakDays > signals.StreakDays {
		signals.StreakDays = agg.StreakDays
	}

	unlocked := Evaluate(Counters{
		PostCount:          agg.PostCount,
		TotalLikesReceived: agg.TotalLikesReceived,
	}, agg.AllBadges, signals)
	if len(unlocked) == 0 {
		return AwardResult{}, nil
	}
	return a.award(ctx, uid, unlocked, SourceAuto)
}

// Grant gives a single badge on an operator's behalf, including administrative ones.
func (a *Awarder) Grant(ctx context.Context, uid, badgeID string) (bool, error) {
	if !Valid(badgeID) {
		return false, models.NewValidationError(fmt.Sprintf("unknown badge %q", badgeID))
	}
	res, err := a.award(ctx, uid, []string{badgeID}, SourceAdmin)
	if err != nil {
		return false, err
	}
	return len(res.Granted) == 1, nil
}

// Revoke removes a badge from both allBadges and selectedBadges.
func (a *Awarder) Revoke(ctx context.Context, uid, badgeID string) (bool, error) {
	if !Valid(badgeID) {
		return false, models.NewValidationError(fmt.Sprintf("unknown badge %q", badgeID))
	}
	return a.store.RevokeBadge(ctx, uid, badgeID)
}

func (a *Awarder) award(ctx context.Context, uid string, ids []string, source string) (AwardResult, error) {
	ids = SortByCatalog(ids)
	if uid == "" || len(ids) == 0 {
		return AwardResult{}, nil
	}

	award, err := a.store.AwardBadges(ctx, uid, ids, models.MaxSelectedBadges)
	if err != nil {
		return AwardResult{}, err
	}

	first := make(map[string]bool, len(award.FirstGrants))
	for _, id := range award.FirstGrants {
		first[id] = true
	}
	now := a.now().UTC()
	for _, id := range award.Inserted {
		b, _ := Lookup(id)
		observability.BadgesGranted.WithLabelValues(id, source).Inc()
		observability.GlobalLogger.InfoContext(ctx, "badge granted",
			slog.String("user_id", uid),
			slog.String("badge", id),
			slog.String("source", source),
			slog.Bool("first_grant", first[id]),
		)
		if a.sink != nil && first[id] {
			a.sink.OnBadgeGranted(ctx, Granted{
				UserID:     uid,
				Badge:      b,
				Source:     source,
				GrantedAt:  now,
				AlertTitle: GrantedAlertTitle,
				AlertBody:  b.Title + " - " + b.Description,
			})
		}
	}
	return AwardResult{Granted: SortByCatalog(award.Inserted)}, nil
}
