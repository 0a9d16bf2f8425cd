// Package server contains the HTTP and WebSocket handlers for the quotes API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "eminence/docs" // swagger docs
	"eminence/internal/bootstrap"
	"eminence/internal/config"
	"eminence/internal/middleware"
	"eminence/internal/models"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	svc            *bootstrap.Services
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// NewServer connects the stores and wires the services from cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it with sqlite and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	svc, err := bootstrap.NewServices(cfg, db, redisClient)
	if err != nil {
		return nil, fmt.Errorf("wire services: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		svc:            svc,
		promMiddleware: middleware.InitMetrics("eminence-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
	}, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Eminence API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	tokens := s.svc.Tokens
	authRequired := middleware.AuthRequired(tokens)
	optional := middleware.OptionalAuth(tokens)

	app.Get("/health", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/ws/notifications", middleware.WebSocketAuthRequired(tokens), s.WebsocketHandler())

	api := app.Group("/api")

	api.Post("/auth/anonymous", middleware.RateLimit(s.redis, 5, 10*time.Minute, "anon_signin"), s.SignInAnonymously)

	api.Get("/badges", s.GetBadgeCatalog)
	api.Get("/feature-flags", optional, s.GetFeatureFlags)
	api.Get("/widget/quote", optional, s.GetWidgetQuote)

	quotes := api.Group("/quotes")
	quotes.Get("/", optional, s.GetQuotes)
	quotes.Get("/search", optional, middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchQuotes)
	// specific /:id/:resource routes before the generic /:id
	quotes.Get("/:id/replies", optional, s.GetReplies)
	quotes.Get("/:id", optional, s.GetQuote)

	postLimit := s.config.PostRateLimit
	if postLimit <= 0 {
		postLimit = 10
	}
	quotes.Post("/", authRequired, middleware.RateLimit(s.redis, postLimit, time.Minute, "create_quote"), s.CreateQuote)
	quotes.Post("/:id/like", authRequired, s.ToggleLike)
	quotes.Post("/:id/bookmark", authRequired, s.ToggleBookmark)
	quotes.Post("/:id/replies", authRequired, middleware.RateLimit(s.redis, postLimit, time.Minute, "create_reply"), s.CreateReply)
	quotes.Delete("/:id/replies/:replyId", authRequired, s.DeleteReply)
	quotes.Post("/:id/report", authRequired, s.ReportQuote)
	quotes.Put("/:id", authRequired, s.UpdateQuote)
	quotes.Delete("/:id", authRequired, s.DeleteQuote)

	me := api.Group("/me", authRequired)
	me.Get("/profile", s.GetMyProfile)
	me.Put("/profile", s.UpdateMyProfile)
	me.Put("/badges/selected", s.SetSelectedBadges)
	me.Get("/bookmarks", s.GetMyBookmarks)
	me.Get("/blocked", s.GetBlockedUsers)
	me.Put("/push-token", s.UpdatePushToken)
	me.Put("/notification-settings", s.UpdateNotificationSettings)

	users := api.Group("/users")
	users.Get("/:uid/profile", optional, s.GetUserProfile)
	users.Get("/:uid/quotes", optional, s.GetUserQuotes)
	users.Post("/:uid/block", authRequired, s.BlockUser)
	users.Delete("/:uid/block", authRequired, s.UnblockUser)
	users.Post("/:uid/report", authRequired, s.ReportUser)

	notifs := api.Group("/notifications", authRequired)
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)

	admin := api.Group("/admin", authRequired, s.AdminRequired())
	admin.Get("/badges/:badge/holders", s.ListBadgeHolders)
	admin.Post("/users/:uid/badges", s.GrantBadge)
	admin.Delete("/users/:uid/badges/:badge", s.RevokeBadge)
	admin.Get("/reports", s.GetPendingReports)
	admin.Post("/replies/recount", s.RecountReplies)
	admin.Post("/digest/run", s.RunDigest)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects callers without the admin badge.
// Must be placed after AuthRequired so that the uid is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.svc.IsAdmin(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start wires the hub to Redis pub/sub and starts listening.
func (s *Server) Start() error {
	app := s.NewApp()

	if s.svc.Notifier.Enabled() {
		go func() {
			if err := s.svc.Hub.StartWiring(s.shutdownCtx, s.svc.Notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.svc.Hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.svc.Hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.svc.Hub.Name(), err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
