// Package seed fills a development database with fake users, quotes, likes
// and replies. Everything goes through the same services and toggle path the
// API uses, so counters, badges and notifications come out consistent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"

	"eminence/internal/badges"
	"eminence/internal/bootstrap"
	"eminence/internal/models"
	"eminence/internal/observability"
	"eminence/internal/optimistic"
	"eminence/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much data is generated.
type Options struct {
	Users           int
	QuotesPerUser   int
	MaxLikes        int
	MaxReplies      int
	BookmarkPercent int
	AdminUID        string
}

// DefaultOptions is what cmd/seed uses without flags.
func DefaultOptions() Options {
	return Options{
		Users:           20,
		QuotesPerUser:   3,
		MaxLikes:        8,
		MaxReplies:      3,
		BookmarkPercent: 20,
	}
}

// Result summarizes a run.
type Result struct {
	Users     []string
	Quotes    []string
	Likes     int
	Bookmarks int
	Replies   int
	Failures  int
	// Snaps counts toggles the server settled differently from the optimistic
	// flip; Rollbacks counts failed toggles that were undone.
	Snaps     int
	Rollbacks int
}

// StateSource loads the server's view of a quote into the coordinator so the
// next toggle flips from real state. apiclient.Client satisfies it.
type StateSource interface {
	SeedFrom(ctx context.Context, coord *optimistic.Coordinator, quoteID, viewerID string) (*models.Quote, error)
}

// Seeder generates data through the wired services.
type Seeder struct {
	svc     *bootstrap.Services
	coord   *optimistic.Coordinator
	source  StateSource
	tracker *outcomeTracker
	faker   *gofakeit.Faker
}

// NewSeeder creates a seeder. Likes and bookmarks are issued through an
// optimistic coordinator over mutator; pass nil to toggle in-process. When
// mutator is also a StateSource it seeds each key before toggling. A zero
// randSeed picks a random seed.
func NewSeeder(svc *bootstrap.Services, mutator optimistic.Mutator, randSeed int64) *Seeder {
	if mutator == nil {
		mutator = ServiceMutator{Quotes: svc.Quotes}
	}
	source, ok := mutator.(StateSource)
	if !ok {
		source = ServiceMutator{Quotes: svc.Quotes}
	}
	tracker := newOutcomeTracker()
	return &Seeder{
		svc:     svc,
		coord:   optimistic.New(mutator, tracker),
		source:  source,
		tracker: tracker,
		faker:   gofakeit.New(randSeed),
	}
}

// Close rejects further toggles and waits for outstanding ones.
func (s *Seeder) Close() {
	s.coord.Close()
	s.coord.Wait()
}

// Run generates users, their quotes and the engagement between them.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users <= 0 {
		return nil, errors.New("seed: at least one user is required")
	}
	res := &Result{}

	for i := 0; i < opts.Users; i++ {
		uid, err := s.createUser(ctx, i)
		if err != nil {
			return res, err
		}
		res.Users = append(res.Users, uid)
	}
	log.Printf("👥 Created %d users", len(res.Users))

	if opts.AdminUID != "" {
		if _, err := s.svc.Admin.GrantBadge(ctx, opts.AdminUID, badges.AdminBadgeID); err != nil {
			return res, fmt.Errorf("grant admin badge: %w", err)
		}
		log.Printf("🔑 Granted admin badge to %s", opts.AdminUID)
	}

	for _, uid := range res.Users {
		for j := 0; j < opts.QuotesPerUser; j++ {
			id, err := s.createQuote(ctx, uid)
			if err != nil {
				return res, err
			}
			res.Quotes = append(res.Quotes, id)
		}
	}
	log.Printf("📝 Created %d quotes", len(res.Quotes))

	for _, quoteID := range res.Quotes {
		s.engage(ctx, quoteID, res, opts)
	}
	s.coord.Wait()
	res.Snaps, res.Rollbacks = s.tracker.totals()
	if res.Snaps > 0 || res.Rollbacks > 0 {
		log.Printf("🔁 %d toggles snapped to server state, %d rolled back", res.Snaps, res.Rollbacks)
	}
	log.Printf("❤️  %d likes, %d bookmarks, %d replies (%d failed)", res.Likes, res.Bookmarks, res.Replies, res.Failures)
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, i int) (string, error) {
	uid := fmt.Sprintf("seed-%03d-%s", i, strings.ToLower(s.faker.LetterN(6)))
	actor := service.Actor{UID: uid}
	if _, err := s.svc.Profiles.GetMyProfile(ctx, actor); err != nil {
		return "", fmt.Errorf("create profile %s: %w", uid, err)
	}
	name := s.faker.Name()
	bio := s.faker.Sentence(s.faker.Number(4, 12))
	image := "https://i.pravatar.cc/150?u=" + s.faker.UUID()
	if _, err := s.svc.Profiles.UpdateProfile(ctx, service.UpdateProfileInput{
		UID:             uid,
		DisplayName:     &name,
		Bio:             &bio,
		ProfileImageURL: &image,
	}); err != nil {
		return "", fmt.Errorf("update profile %s: %w", uid, err)
	}
	return uid, nil
}

func (s *Seeder) createQuote(ctx context.Context, uid string) (string, error) {
	res, err := s.svc.Quotes.CreateQuote(ctx, service.CreateQuoteInput{
		Actor:  service.Actor{UID: uid},
		Text:   s.faker.Sentence(s.faker.Number(5, 16)),
		Author: s.faker.Name(),
	})
	if err != nil {
		return "", fmt.Errorf("create quote for %s: %w", uid, err)
	}
	return res.Quote.ID, nil
}

// engage likes, bookmarks and replies to one quote from a random set of users.
// Each viewer toggles a key once, so every toggle is an add.
func (s *Seeder) engage(ctx context.Context, quoteID string, res *Result, opts Options) {
	viewers := make([]string, len(res.Users))
	copy(viewers, res.Users)
	s.faker.ShuffleStrings(viewers)

	likes := s.pick(opts.MaxLikes, len(viewers))
	for _, uid := range viewers[:likes] {
		if s.toggle(ctx, quoteID, uid, optimistic.KindLike) {
			res.Likes++
		} else {
			res.Failures++
		}
	}

	for _, uid := range viewers {
		if s.faker.Number(1, 100) > opts.BookmarkPercent {
			continue
		}
		if s.toggle(ctx, quoteID, uid, optimistic.KindBookmark) {
			res.Bookmarks++
		} else {
			res.Failures++
		}
	}

	replies := s.pick(opts.MaxReplies, len(viewers))
	for _, uid := range viewers[:replies] {
		_, err := s.svc.Replies.CreateReply(ctx, service.CreateReplyInput{
			Actor:   service.Actor{UID: uid},
			QuoteID: quoteID,
			Text:    s.faker.Sentence(s.faker.Number(3, 10)),
		})
		if err != nil {
			log.Printf("reply to %s failed: %v", quoteID, err)
			res.Failures++
			continue
		}
		res.Replies++
	}
}

func (s *Seeder) pick(max, available int) int {
	if max <= 0 || available == 0 {
		return 0
	}
	if max > available {
		max = available
	}
	return s.faker.Number(0, max)
}

func (s *Seeder) toggle(ctx context.Context, quoteID, uid string, kind optimistic.Kind) bool {
	if _, err := s.source.SeedFrom(ctx, s.coord, quoteID, uid); err != nil {
		log.Printf("load %s for %s failed: %v", quoteID, uid, err)
		return false
	}
	defer s.coord.Detach(quoteID, uid)
	ticket := s.coord.Toggle(ctx, quoteID, uid, kind)
	select {
	case <-ticket.Done():
	case <-ctx.Done():
		return false
	}
	if err := ticket.Err(); err != nil {
		log.Printf("%s on %s by %s failed: %v", kind, quoteID, uid, err)
		return false
	}
	return true
}

// ServiceMutator runs toggles in-process against the quote service.
type ServiceMutator struct {
	Quotes *service.QuoteService
}

// SeedFrom implements StateSource.
func (m ServiceMutator) SeedFrom(ctx context.Context, coord *optimistic.Coordinator, quoteID, viewerID string) (*models.Quote, error) {
	q, err := m.Quotes.GetQuote(ctx, quoteID, viewerID)
	if err != nil {
		return nil, err
	}
	coord.Seed(optimistic.Key{QuoteID: quoteID, ViewerID: viewerID, Kind: optimistic.KindLike},
		optimistic.ServerState{Member: q.Liked, Count: q.Likes})
	coord.Seed(optimistic.Key{QuoteID: quoteID, ViewerID: viewerID, Kind: optimistic.KindBookmark},
		optimistic.ServerState{Member: q.Bookmarked})
	return q, nil
}

// Toggle implements optimistic.Mutator.
func (m ServiceMutator) Toggle(ctx context.Context, quoteID, viewerID string, kind optimistic.Kind) (optimistic.ServerState, error) {
	in := service.ToggleInput{Actor: service.Actor{UID: viewerID}, QuoteID: quoteID}
	var (
		resp *models.ToggleResponse
		err  error
	)
	switch kind {
	case optimistic.KindLike:
		resp, err = m.Quotes.ToggleLike(ctx, in)
	case optimistic.KindBookmark:
		resp, err = m.Quotes.ToggleBookmark(ctx, in)
	default:
		return optimistic.ServerState{}, models.NewValidationError(fmt.Sprintf("unknown toggle kind %q", kind))
	}
	if err != nil {
		return optimistic.ServerState{}, err
	}
	return optimistic.ServerState{Member: resp.Member, Count: resp.Count}, nil
}

// outcomeTracker listens to the coordinator and records how each toggle
// settled compared with its optimistic flip.
type outcomeTracker struct {
	mu        sync.Mutex
	shown     map[optimistic.Key]optimistic.DisplayState
	snaps     int
	rollbacks int
}

func newOutcomeTracker() *outcomeTracker {
	return &outcomeTracker{shown: make(map[optimistic.Key]optimistic.DisplayState)}
}

func (t *outcomeTracker) OnToggled(key optimistic.Key, state optimistic.DisplayState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state.Pending {
		t.shown[key] = state
		return
	}
	predicted, ok := t.shown[key]
	delete(t.shown, key)
	if !ok {
		return
	}
	outcome := "confirmed"
	if predicted.Member != state.Member || predicted.Count != state.Count {
		outcome = "snapped"
		t.snaps++
		observability.GlobalLogger.Debug("optimistic toggle snapped to server state",
			slog.String("quote_id", key.QuoteID),
			slog.String("viewer_id", key.ViewerID),
			slog.String("kind", string(key.Kind)),
			slog.Int("predicted_count", predicted.Count),
			slog.Int("server_count", state.Count))
	}
	observability.OptimisticOutcomes.WithLabelValues(string(key.Kind), outcome).Inc()
}

func (t *outcomeTracker) OnMutationFailed(key optimistic.Key, restored bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.shown, key)
	t.rollbacks++
	observability.OptimisticOutcomes.WithLabelValues(string(key.Kind), "rolled_back").Inc()
	observability.GlobalLogger.Warn("optimistic toggle rolled back",
		slog.String("quote_id", key.QuoteID),
		slog.String("viewer_id", key.ViewerID),
		slog.String("kind", string(key.Kind)),
		slog.Bool("restored_member", restored),
		slog.String("error", err.Error()))
}

func (t *outcomeTracker) totals() (snaps, rollbacks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snaps, t.rollbacks
}
