// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "greenloop/docs" // swagger docs
	"greenloop/internal/cache"
	"greenloop/internal/config"
	"greenloop/internal/database"
	"greenloop/internal/middleware"
	"greenloop/internal/models"
	"greenloop/internal/notifications"
	"greenloop/internal/repository"
	"greenloop/internal/service"
	"greenloop/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	storyRepo   repository.StoryRepository
	itemRepo    repository.ItemRepository
	ledgerRepo  repository.LedgerRepository
	settingRepo repository.SettingRepository

	objectStore storage.ObjectStore
	notifier    *notifications.Notifier
	hub         *notifications.Hub

	postService     *service.PostService
	commentService  *service.CommentService
	storyService    *service.StoryService
	userService     *service.UserService
	pointsService   *service.PointsService
	itemService     *service.ItemService
	settingsService *service.SettingsService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("greenloop-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		storyRepo:      repository.NewStoryRepository(db),
		itemRepo:       repository.NewItemRepository(db),
		ledgerRepo:     repository.NewLedgerRepository(db),
		settingRepo:    repository.NewSettingRepository(db),
		objectStore:    storage.NewDiskStore(cfg),
	}

	server.pointsService = service.NewPointsService(
		server.ledgerRepo, server.settingRepo, server.postRepo, server.itemRepo, server.userRepo)
	server.postService = service.NewPostService(server.postRepo, server.awardForApproval)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo)
	server.storyService = service.NewStoryService(server.storyRepo)
	server.userService = service.NewUserService(server.userRepo, server.ledgerRepo)
	server.itemService = service.NewItemService(server.itemRepo)
	server.settingsService = service.NewSettingsService(server.settingRepo, server.itemRepo)

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
	}

	return server, nil
}

// awardForApproval runs the points award for a freshly approved post and
// pushes the resulting events to the author.
func (s *Server) awardForApproval(ctx context.Context, post *models.Post, reviewerID uint) error {
	if err := s.pointsService.AwardForApproval(ctx, post, reviewerID); err != nil {
		return err
	}
	balance, err := s.ledgerRepo.Balance(ctx, post.UserID)
	if err != nil {
		return err
	}
	s.publishUserEvent(post.UserID, EventPointsAwarded, map[string]interface{}{
		"post_id": post.ID,
		"balance": balance,
	})
	return nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "GreenLoop Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Public browse routes. OptionalAuth enriches responses for logged-in
	// users (the liked flag) without requiring a token.
	publicPosts := api.Group("/posts", middleware.OptionalAuth)
	publicPosts.Get("/", s.GetFeed)
	publicPosts.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchPosts)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id/likes", s.GetPostLikes)
	publicPosts.Get("/:id", s.GetPost)

	// Public catalog routes
	items := api.Group("/items")
	items.Get("/", middleware.OptionalAuth, s.GetItems)
	items.Get("/:id", s.GetItem)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Post("/:id/review", middleware.RequireCapability(models.CapModeratePosts), s.ReviewPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Moderation queue
	moderation := protected.Group("/moderation", middleware.RequireCapability(models.CapModeratePosts))
	moderation.Get("/queue", s.GetModerationQueue)

	// Story routes
	stories := protected.Group("/stories")
	stories.Post("/", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "create_story"), s.CreateStory)
	stories.Get("/", s.GetStories)
	stories.Get("/:id/viewers", s.GetStoryViewers)
	stories.Get("/:id", s.GetStory)
	stories.Delete("/:id", s.DeleteStory)

	// Points and redemption routes
	points := protected.Group("/points")
	points.Get("/balance", s.GetMyBalance)
	points.Get("/history", s.GetMyHistory)
	points.Get("/redemptions", s.GetMyRedemptions)

	protected.Post("/items/:id/redeem", middleware.RateLimit(
		s.redis, 10, time.Minute, "redeem"), s.RedeemItem)

	// Reward settings snapshot is readable by any authenticated user
	protected.Get("/settings/rewards", s.GetRewardSnapshot)

	// Media uploads
	protected.Post("/uploads", middleware.RateLimit(
		s.redis, 10, time.Minute, "upload"), s.UploadImage)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Put("/me/password", s.ChangeMyPassword)
	users.Get("/", s.GetAllUsers)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/stories", s.GetUserStories)
	users.Post("/:id/points", middleware.RequireCapability(models.CapGrantPoints), s.GrantPoints)
	users.Post("/:id/role", middleware.RequireCapability(models.CapManageSettings), s.ChangeUserRole)
	users.Get("/:id", s.GetUserProfile)

	// Websocket endpoint
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebsocketHandler())

	// Admin routes
	admin := protected.Group("/admin")
	adminItems := admin.Group("/items", middleware.RequireCapability(models.CapManageCatalog))
	adminItems.Post("/", s.CreateItem)
	adminItems.Post("/:id/restock", s.RestockItem)
	adminItems.Post("/:id/activate", s.ActivateItem)
	adminItems.Post("/:id/deactivate", s.DeactivateItem)
	adminItems.Put("/:id", s.UpdateItem)
	adminItems.Delete("/:id", s.DeleteItem)

	adminSettings := admin.Group("/settings", middleware.RequireCapability(models.CapManageSettings))
	adminSettings.Get("/", s.ListSettings)
	adminSettings.Put("/", s.UpdateSetting)
	adminSettings.Delete("/:kind/:key", s.DeleteSetting)

	admin.Get("/redemptions", middleware.RequireCapability(models.CapViewRedemptions), s.GetAllRedemptions)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
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

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "GreenLoop",
		"version": "1.0.0",
		"status":  overallStatus,
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

	app := fiber.New(fiber.Config{
		AppName: "GreenLoop API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire the hub to the Redis subscriber if available
	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
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

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
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
