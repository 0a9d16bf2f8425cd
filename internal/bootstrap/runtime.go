// Package bootstrap connects the stores and wires the service graph shared by
// the server, worker, admin and seed commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"eminence/internal/auth"
	"eminence/internal/badges"
	"eminence/internal/cache"
	"eminence/internal/config"
	"eminence/internal/database"
	"eminence/internal/featureflags"
	"eminence/internal/moderation"
	"eminence/internal/notifications"
	"eminence/internal/repository"
	"eminence/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis. A missing Redis is not
// fatal: caching, pub/sub and the push outbox degrade to no-ops.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return db, cache.GetClient(), nil
}

// Services is the wired application graph.
type Services struct {
	Quotes        *service.QuoteService
	Replies       *service.ReplyService
	Profiles      *service.ProfileService
	Safety        *service.SafetyService
	Notifications *service.NotificationService
	Digest        *service.DigestService
	Widget        *service.WidgetService
	Admin         *service.AdminService

	Awarder   *badges.Awarder
	Emitter   *notifications.Emitter
	Hub       *notifications.Hub
	Notifier  *notifications.Notifier
	Publisher *notifications.Publisher
	Push      *notifications.PushQueue
	Flags     *featureflags.Manager
	Tokens    *auth.TokenIssuer
	Location  *time.Location
	IsAdmin   func(ctx context.Context, uid string) (bool, error)
}

// NewServices builds every service over db. rdb may be nil.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}

	checker := moderation.NewChecker(moderation.DefaultRules())
	if cfg.ModerationFile != "" {
		checker, err = moderation.Load(cfg.ModerationFile)
		if err != nil {
			return nil, fmt.Errorf("load moderation rules: %w", err)
		}
		log.Printf("Loaded moderation rules from %s", cfg.ModerationFile)
	}

	quotes := repository.NewQuoteRepository(db)
	counters := repository.NewCounterStore(db, loc)
	profiles := repository.NewProfileRepository(db)
	users := repository.NewUserRepository(db)
	replies := repository.NewReplyRepository(db)
	reports := repository.NewReportRepository(db)
	notifs := repository.NewNotificationRepository(db)
	tops := repository.NewDailyTopRepository(db)

	s := &Services{
		Hub:      notifications.NewHub(),
		Notifier: notifications.NewNotifier(rdb),
		Push:     notifications.NewPushQueue(rdb),
		Flags:    featureflags.NewManager(cfg.FeatureFlags),
		Tokens:   auth.NewTokenIssuer(cfg.JWTSecret, 0),
		Location: loc,
		IsAdmin:  service.AdminCheckFromProfiles(profiles),
	}
	s.Publisher = notifications.NewPublisher(s.Hub, s.Notifier)
	s.Emitter = notifications.NewEmitter(notifs, users, s.Publisher, s.Push)
	s.Awarder = badges.NewAwarder(profiles, counters, s.Emitter)

	s.Quotes = service.NewQuoteService(service.QuoteServiceDeps{
		Quotes:             quotes,
		Counters:           counters,
		Profiles:           profiles,
		Reports:            reports,
		Checker:            checker,
		Badges:             s.Awarder,
		Emitter:            s.Emitter,
		Publisher:          s.Publisher,
		Flags:              s.Flags,
		IsAdmin:            s.IsAdmin,
		Location:           loc,
		AnonymousPostLimit: cfg.AnonPostLimit,
	})
	s.Replies = service.NewReplyService(replies, quotes, profiles, checker, s.Emitter, s.Publisher, s.IsAdmin)
	s.Profiles = service.NewProfileService(profiles, users)
	s.Safety = service.NewSafetyService(reports, users, quotes)
	s.Notifications = service.NewNotificationService(notifs)
	s.Digest = service.NewDigestService(quotes, tops, users, s.Push, s.Publisher, s.Flags, loc, cfg.DigestHour)
	s.Widget = service.NewWidgetService(quotes, s.Digest)
	s.Admin = service.NewAdminService(s.Awarder, profiles, replies, quotes)
	return s, nil
}
