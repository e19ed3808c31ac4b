// Package server contains HTTP and WebSocket handlers for the comment API.
package server

import (
	"context"
	"log/slog"
	"time"

	"clubhouse/internal/bootstrap"
	"clubhouse/internal/config"
	"clubhouse/internal/featureflags"
	"clubhouse/internal/middleware"
	"clubhouse/internal/notifications"
	"clubhouse/internal/repository"
	"clubhouse/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	// set by NewServer; nil when dependencies were injected
	shutdownTracing func(context.Context) error

	commentRepo     repository.CommentRepository
	entityRepo      repository.EntityRepository
	profileRepo     repository.ProfileRepository
	interactionRepo repository.InteractionRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	commentService     *service.CommentService
	threadService      *service.ThreadService
	interactionService *service.InteractionService
	mentionService     *service.MentionService
}

// NewServer connects to the database and Redis and creates a server.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	s, err := NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		return nil, err
	}
	s.shutdownTracing = rt.ShutdownTracing
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: the page cache is skipped and change events are
// only delivered to watchers connected to this instance.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("clubhouse-api"),
		commentRepo:     repository.NewCommentRepository(db),
		entityRepo:      repository.NewEntityRepository(db),
		profileRepo:     repository.NewProfileRepository(db),
		interactionRepo: repository.NewInteractionRepository(db),
		hub:             notifications.NewHub(),
		featureFlags:    featureflags.NewManager(cfg.FeatureFlags),
	}

	var publisher service.ChangePublisher = localPublisher{hub: s.hub}
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		publisher = s.notifier
	}

	s.commentService = service.NewCommentService(s.commentRepo, s.entityRepo, s.profileRepo, publisher)
	s.threadService = service.NewThreadService(s.commentRepo, s.entityRepo, s.profileRepo, s.interactionRepo,
		s.featureFlags, time.Duration(cfg.ThreadCacheTTLSeconds)*time.Second)
	s.interactionService = service.NewInteractionService(s.interactionRepo, s.commentRepo, s.entityRepo)
	s.mentionService = service.NewMentionService(s.profileRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Reads are public; the viewer, when known, only changes like and
	// bookmark flags.
	entities := api.Group("/entities/:kind/:id")
	entities.Get("/comments", middleware.OptionalAuth, s.GetThreadPage)
	entities.Post("/comments", middleware.AuthRequired, middleware.RateLimit(
		s.redis, s.config.CommentRateLimitPerMinute, time.Minute, "create_comment"), s.CreateComment)

	comments := api.Group("/comments", middleware.AuthRequired)
	comments.Put("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)

	api.Post("/likes/:subjectKind/:subjectId/toggle", middleware.AuthRequired, s.ToggleLike)
	api.Post("/bookmarks/:subjectKind/:subjectId/toggle", middleware.AuthRequired, s.ToggleBookmark)

	api.Get("/mentions/suggest", middleware.OptionalAuth, middleware.RateLimit(
		s.redis, 60, time.Minute, "mention_suggest"), s.SuggestMentions)

	api.Get("/feature-flags", middleware.OptionalAuth, s.GetFeatureFlags)

	api.Get("/ws/comments", middleware.WebSocketAuth, s.upgradeRequired, s.CommentFeedHandler())
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Clubhouse API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: the
// API degrades to uncached reads without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	// Changes published by any instance reach this instance's watchers
	// and invalidate its view of the page cache.
	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start comment hub wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down comment hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	if s.shutdownTracing != nil {
		if terr := s.shutdownTracing(ctx); terr != nil {
			middleware.Logger.Error("error flushing traces", slog.String("error", terr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
