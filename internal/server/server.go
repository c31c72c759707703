// Package server contains the HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"fmt"
	"time"

	_ "istancool/docs" // swagger docs
	"istancool/internal/auth"
	"istancool/internal/authz"
	"istancool/internal/bootstrap"
	"istancool/internal/cache"
	"istancool/internal/config"
	"istancool/internal/database"
	"istancool/internal/media"
	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/notifications"
	"istancool/internal/repository"
	"istancool/internal/service"

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
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	districtRepo repository.DistrictRepository
	postRepo     repository.PostRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub

	authService     *service.AuthService
	userService     *service.UserService
	categoryService *service.CategoryService
	districtService *service.DistrictService
	postService     *service.PostService
}

// Deps are the already-initialized collaborators of a Server. Store may be
// nil, which disables image uploads.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Store  media.Store
	Mailer service.ResetMailer
}

// NewServer connects to the database, Redis and the image host described by
// cfg and builds a Server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := bootstrap.Prepare(ctx, cfg, db, bootstrap.Options{SeedDistricts: cfg.SeedDistricts}); err != nil {
		return nil, err
	}

	var store media.Store
	if cfg.UploadsEnabled() {
		s3Store, err := media.NewS3Store(ctx, media.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("image store: %w", err)
		}
		store = s3Store
	} else {
		middleware.Logger.Warn("S3_BUCKET not set, image uploads are disabled")
	}

	return NewServerWithDeps(cfg, Deps{DB: db, Redis: cache.GetClient(), Store: store})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it with an in-memory database and store.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("istancool-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		userRepo:       repository.NewUserRepository(deps.DB),
		categoryRepo:   repository.NewCategoryRepository(deps.DB),
		districtRepo:   repository.NewDistrictRepository(deps.DB),
		postRepo:       repository.NewPostRepository(deps.DB),
		notifier:       notifications.NewNotifier(deps.Redis),
		hub:            notifications.NewHub(),
	}

	var uploader *media.Uploader
	if deps.Store != nil {
		uploader = media.NewUploader(deps.Store, cfg.MediaFolder, cfg.ImageMaxUploadSizeMB)
	}

	s.authService = service.NewAuthService(s.userRepo, auth.NewTokens(cfg), deps.Redis, deps.Mailer)
	s.userService = service.NewUserService(s.userRepo)
	s.categoryService = service.NewCategoryService(s.categoryRepo)
	s.districtService = service.NewDistrictService(s.districtRepo)
	s.postService = service.NewPostService(s.postRepo, s.categoryRepo, s.districtRepo, uploader, s.notifier)

	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Warn("moderation feed wiring failed", "error", err)
	}

	app := fiber.New(fiber.Config{
		AppName:   "istancool API",
		BodyLimit: (cfg.ImageMaxUploadSizeMB*8 + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	return s, nil
}

// App returns the configured Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
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

	// CORS runs before the limiter so throttled browser requests still carry
	// CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	perMinute := s.config.RateLimitGlobalPerMin
	if perMinute <= 0 {
		perMinute = 100
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
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
	app.Get("/swagger/*", swagger.HandlerDefault)

	authLimit := s.config.RateLimitAuthPerMinute
	if authLimit <= 0 {
		authLimit = 10
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, authLimit, time.Minute, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, authLimit, time.Minute, "login"), s.Login)
	authGroup.Post("/forgot-password", middleware.RateLimit(s.redis, authLimit, time.Minute, "forgot_password"), s.ForgotPassword)
	authGroup.Post("/reset-password", middleware.RateLimit(s.redis, authLimit, time.Minute, "reset_password"), s.ResetPassword)
	authGroup.Get("/me", s.AuthRequired(), s.GetMe)
	authGroup.Put("/me", s.AuthRequired(), s.UpdateMe)

	users := app.Group("/users", s.AuthRequired(), s.RequireCapability(authz.ManageUsers))
	users.Get("/", s.ListUsers)
	users.Get("/count", s.CountUsers)
	users.Delete("/:id", s.DeleteUser)

	categories := app.Group("/categories")
	categories.Get("/", s.ListCategories)
	// Static segments before /:id
	categories.Get("/homepage", s.HomepageCategories)
	categories.Get("/count", s.CountCategories)
	categories.Get("/:id", s.GetCategory)
	manage := categories.Group("", s.AuthRequired(), s.RequireCapability(authz.ManageCategories))
	manage.Post("/", s.CreateCategory)
	manage.Put("/:id", s.UpdateCategory)
	manage.Delete("/:id", s.DeleteCategory)
	manage.Patch("/:id/toggle-status", s.ToggleCategoryStatus)
	manage.Patch("/:id/toggle-homepage", s.ToggleCategoryHomepage)

	districts := app.Group("/districts")
	districts.Get("/", s.ListDistricts)
	districts.Get("/slug/:slug", s.GetDistrictBySlug)
	districts.Get("/:id", s.GetDistrict)

	posts := app.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Get("/featured", s.FeaturedPosts)
	posts.Get("/map-posts", s.MapPosts)
	posts.Get("/slug/:slug", s.GetPostBySlug)
	posts.Get("/admin/list", s.AuthRequired(), s.AdminListPosts)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
	posts.Patch("/:id/toggle-status", s.AuthRequired(), s.TogglePostStatus)
	posts.Patch("/:id/approve", s.AuthRequired(), s.ApprovePost)
	posts.Patch("/:id/reject", s.AuthRequired(), s.RejectPost)
	posts.Patch("/:id/toggle-featured", s.AuthRequired(), s.TogglePostFeatured)

	app.Get("/ws/moderation", s.AuthRequired(), s.RequireCapability(authz.WatchModeration), s.ModerationFeed())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: a
// missing client is reported but does not fail readiness.
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
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Start listens on the configured port until the app is shut down.
func (s *Server) Start() error {
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server, the moderation feed and the connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down moderation hub", "error", err)
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
