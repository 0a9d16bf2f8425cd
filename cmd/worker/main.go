// Command main runs the scheduled daily digest.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"eminence/internal/bootstrap"
	"eminence/internal/config"
	"eminence/internal/service"
)

func main() {
	once := flag.Bool("once", false, "Run the digest for today and exit")
	flag.Parse()

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

	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := runDigest(ctx, svc); err != nil {
			stop()
			log.Fatalf("Digest failed: %v", err)
		}
		return
	}

	log.Printf("Digest worker started (hour %d, %s)", cfg.DigestHour, svc.Location)
	for {
		next := svc.Digest.NextRun(time.Now())
		log.Printf("Next digest at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Digest worker stopped")
			return
		case <-timer.C:
		}

		if err := runDigest(ctx, svc); err != nil {
			log.Printf("Digest failed: %v", err)
		}
	}
}

func runDigest(ctx context.Context, svc *bootstrap.Services) error {
	res, err := svc.Digest.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	logResult(res)

	if depth, err := svc.Push.Len(ctx); err == nil {
		log.Printf("Push outbox depth: %d", depth)
	}
	return nil
}

func logResult(res *service.DigestResult) {
	switch {
	case res.AlreadyRan:
		log.Println("Digest already ran today")
	case res.Top == nil:
		log.Println("No quotes today, nothing to announce")
	default:
		log.Printf("Top quote %s announced to %d recipients (%d push jobs)", res.Top.QuoteID, res.Recipients, res.PushJobs)
	}
}
