// Command main seeds the database with fake users, quotes and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"eminence/internal/apiclient"
	"eminence/internal/bootstrap"
	"eminence/internal/config"
	"eminence/internal/optimistic"
	"eminence/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	quotesPerUser := flag.Int("quotes", defaults.QuotesPerUser, "Quotes per user")
	maxLikes := flag.Int("likes", defaults.MaxLikes, "Maximum likes per quote")
	maxReplies := flag.Int("replies", defaults.MaxReplies, "Maximum replies per quote")
	bookmarkPct := flag.Int("bookmark-pct", defaults.BookmarkPercent, "Chance in percent that a user bookmarks a quote")
	adminUID := flag.String("admin", "", "Grant the admin badge to this uid")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = random)")
	apiURL := flag.String("api", "", "Toggle likes and bookmarks through a running API at this base URL")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	svc, err := bootstrap.NewServices(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to wire services: %v", err)
	}

	var mutator optimistic.Mutator
	if *apiURL != "" {
		log.Printf("Toggling through %s", *apiURL)
		mutator = apiclient.New(*apiURL, nil, apiclient.TokenFunc(func(_ context.Context, viewerID string) (string, error) {
			return svc.Tokens.Issue(viewerID, false)
		}))
	}

	s := seed.NewSeeder(svc, mutator, *randSeed)
	defer s.Close()

	res, err := s.Run(context.Background(), seed.Options{
		Users:           *numUsers,
		QuotesPerUser:   *quotesPerUser,
		MaxLikes:        *maxLikes,
		MaxReplies:      *maxReplies,
		BookmarkPercent: *bookmarkPct,
		AdminUID:        *adminUID,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d quotes, %d likes, %d replies", len(res.Users), len(res.Quotes), res.Likes, res.Replies)
	if *apiURL != "" {
		log.Printf("Optimistic toggles: %d snapped, %d rolled back", res.Snaps, res.Rollbacks)
	}
}
