// Package main provides operator utilities for Eminence.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"eminence/internal/bootstrap"
	"eminence/internal/config"
	"eminence/internal/database"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin grant-badge <uid> <badge>      - Grant a badge (administrative ones included)")
	fmt.Println("  go run ./cmd/admin revoke-badge <uid> <badge>     - Revoke a badge")
	fmt.Println("  go run ./cmd/admin list-badge <badge>             - List holders of a badge")
	fmt.Println("  go run ./cmd/admin recount-replies                - Recompute every quote's reply count")
	fmt.Println("  go run ./cmd/admin issue-token <uid> [--anonymous] - Print a bearer token for uid")
	fmt.Println("  go run ./cmd/admin run-digest                     - Run today's digest now")
	fmt.Println("  go run ./cmd/admin import-quotes <file.ndjson>    - Import exported quote documents")
	fmt.Println("  go run ./cmd/admin migrate                        - Apply the schema")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	svc, err := bootstrap.NewServices(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to wire services: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "grant-badge":
		requireArgs(command, args, 2, "<uid> <badge>")
		granted, err := svc.Admin.GrantBadge(ctx, args[0], args[1])
		exitOn(err)
		if !granted {
			fmt.Printf("User %s already holds %s\n", args[0], args[1])
			return
		}
		fmt.Printf("✅ Granted %s to %s\n", args[1], args[0])

	case "revoke-badge":
		requireArgs(command, args, 2, "<uid> <badge>")
		revoked, err := svc.Admin.RevokeBadge(ctx, args[0], args[1])
		exitOn(err)
		if !revoked {
			fmt.Printf("User %s does not hold %s\n", args[0], args[1])
			return
		}
		fmt.Printf("✅ Revoked %s from %s\n", args[1], args[0])

	case "list-badge":
		requireArgs(command, args, 1, "<badge>")
		holders, err := svc.Admin.ListHolders(ctx, args[0])
		exitOn(err)
		if len(holders) == 0 {
			fmt.Printf("Nobody holds %s\n", args[0])
			return
		}
		fmt.Printf("\n📋 Holders of %s:\n", args[0])
		fmt.Println("─────────────────────────────────────")
		for _, uid := range holders {
			fmt.Println(uid)
		}
		fmt.Println("─────────────────────────────────────")

	case "recount-replies":
		changed, err := svc.Admin.RecountReplies(ctx)
		exitOn(err)
		fmt.Printf("✅ Recounted replies, %d quotes corrected\n", changed)

	case "issue-token":
		requireArgs(command, args, 1, "<uid> [--anonymous]")
		anonymous := len(args) > 1 && args[1] == "--anonymous"
		token, err := svc.Tokens.Issue(args[0], anonymous)
		exitOn(err)
		fmt.Println(token)

	case "run-digest":
		res, err := svc.Digest.Run(ctx, time.Now())
		exitOn(err)
		switch {
		case res.AlreadyRan:
			fmt.Println("Digest already ran today")
		case res.Top == nil:
			fmt.Println("No quotes today")
		default:
			fmt.Printf("✅ Top quote %s (%d likes), %d recipients, %d push jobs\n",
				res.Top.QuoteID, res.Top.Likes, res.Recipients, res.PushJobs)
		}

	case "import-quotes":
		requireArgs(command, args, 1, "<file.ndjson>")
		f, err := os.Open(args[0])
		exitOn(err)
		defer func() { _ = f.Close() }()
		res, err := svc.Admin.ImportQuotes(ctx, f)
		exitOn(err)
		for _, failure := range res.Failed {
			fmt.Printf("⚠️  %v\n", failure)
		}
		fmt.Printf("✅ Imported %d quotes, %d failed\n", res.Imported, len(res.Failed))

	case "migrate":
		exitOn(database.Migrate(db))
		fmt.Println("✅ Schema is up to date")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func requireArgs(command string, args []string, n int, shape string) {
	if len(args) < n {
		fmt.Printf("Usage: go run ./cmd/admin %s %s\n", command, shape)
		os.Exit(1)
	}
}

func exitOn(err error) {
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}
