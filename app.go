package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/AlirezaEivazi/Manage-Works/internal/config"
	"github.com/AlirezaEivazi/Manage-Works/internal/handlers"
	"github.com/AlirezaEivazi/Manage-Works/internal/middleware"
	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/monitoring"
	"github.com/AlirezaEivazi/Manage-Works/internal/notify"
	"github.com/AlirezaEivazi/Manage-Works/internal/scheduler"
	"github.com/AlirezaEivazi/Manage-Works/internal/services"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
	"github.com/AlirezaEivazi/Manage-Works/internal/utils"
)

// Application holds all application dependencies and state
type Application struct {
	Config *config.Config
	Store  *store.Store
	Redis  *redis.Client
	Router *gin.Engine
	Server *http.Server

	NotificationLog *notify.Log
	Dispatcher      *notify.Dispatcher
	Scanner         *scheduler.DeadlineScanner

	// Services
	AuthService     services.AuthService
	TaskService     services.TaskService
	CategoryService services.CategoryService
	UserService     services.UserService
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
		Store:  store.New(),
	}

	log.Println("🚀 Initializing ManageWorks Backend...")
	log.Printf("📋 Environment: %s", cfg.Server.Environment)

	if err := seedAdmin(app.Store, cfg.Seed); err != nil {
		return nil, fmt.Errorf("admin seeding failed: %w", err)
	}

	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unavailable: %v (login limiter stays in memory)", err)
			redisClient.Close()
		} else {
			app.Redis = redisClient
			log.Println("✅ Redis connected")
		}
	}

	app.NotificationLog = notify.NewLog()
	app.Dispatcher = notify.NewDispatcher(app.NotificationLog, notify.WithTimeout(cfg.Notifier.Timeout))
	app.Scanner = scheduler.NewDeadlineScanner(app.Store, app.Dispatcher,
		scheduler.WithInterval(cfg.Notifier.Interval),
		scheduler.WithLookahead(cfg.Notifier.Lookahead),
	)

	app.AuthService = services.NewAuthService(app.Store, cfg.Auth)
	app.TaskService = services.NewTaskService(app.Store)
	app.CategoryService = services.NewCategoryService(app.Store)
	app.UserService = services.NewUserService(app.Store)

	app.registerHealthChecks()

	monitoring.RegisterMetricsSource("store", func() interface{} { return app.Store.Stats() })
	monitoring.RegisterMetricsSource("scanner", func() interface{} { return app.Scanner.GetStats() })
	monitoring.RegisterMetricsSource("notification_log", func() interface{} {
		return gin.H{"entries": app.NotificationLog.Len()}
	})

	log.Println("✅ All services initialized")

	return app, nil
}

func seedAdmin(st *store.Store, seed config.SeedConfig) error {
	if _, err := st.GetUser(seed.AdminUsername); err == nil {
		return nil
	}

	hash := seed.AdminPasswordHash
	if hash == "" {
		var err error
		if hash, err = utils.HashPassword(seed.AdminPassword); err != nil {
			return err
		}
	}

	if _, err := st.CreateUser(models.User{
		Username:     seed.AdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}); err != nil {
		return err
	}
	log.Printf("👤 Seeded admin user %q", seed.AdminUsername)
	return nil
}

func (app *Application) registerHealthChecks() {
	monitoring.RegisterHealthCheck("store", func(ctx context.Context) error {
		if app.Store.AdminCount() == 0 {
			return errors.New("no admin user present")
		}
		return nil
	})

	if app.Redis != nil {
		monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}
}

func (app *Application) loginLimiter() middleware.Limiter {
	perMin := app.Config.RateLimit.LoginPerMin
	local := middleware.NewLocalRateLimiter(rate.Limit(float64(perMin)/60.0), perMin)
	if app.Redis == nil {
		return local
	}
	return middleware.NewDistributedRateLimiter(app.Redis, "login", perMin, time.Minute, local)
}

func (app *Application) setupRoutes() {
	r := gin.New()

	// Global middleware stack (order matters!)
	r.Use(gin.Logger())
	r.Use(monitoring.MetricsMiddleware())
	r.Use(middleware.RecoveryWithLog())
	r.Use(middleware.SecureHeader())

	rateLimit := rate.Limit(float64(app.Config.RateLimit.RequestsPerMin) / 60.0)
	r.Use(middleware.RateLimiter(rateLimit, app.Config.RateLimit.BurstSize))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health and monitoring endpoints (no auth required)
	r.GET("/health", monitoring.HealthHandler())
	r.GET("/ready", monitoring.ReadinessHandler())
	r.GET("/live", monitoring.LivenessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(app.AuthService)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", middleware.RateLimit(app.loginLimiter(), middleware.IPKeyFunc), authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Verifier: app.AuthService,
		Users:    app.Store,
	}))
	perUser := app.Config.RateLimit.UserPerMin
	protected.Use(middleware.RateLimit(
		middleware.NewLocalRateLimiter(rate.Limit(float64(perUser)/60.0), perUser),
		middleware.UsernameKeyFunc,
	))
	{
		taskHandler := handlers.NewTaskHandler(app.TaskService, app.UserService)
		taskRoutes := protected.Group("/tasks")
		{
			taskRoutes.GET("", taskHandler.GetTasks)
			taskRoutes.POST("", taskHandler.CreateTask)
			taskRoutes.GET("/notification-url", taskHandler.GetNotificationURL)
			taskRoutes.PUT("/set-notification-url", taskHandler.SetNotificationURL)
			taskRoutes.GET("/:id", taskHandler.GetTaskByID)
			taskRoutes.PUT("/:id", taskHandler.UpdateTask)
			taskRoutes.PATCH("/:id/toggle", taskHandler.ToggleTask)
			taskRoutes.DELETE("/:id", taskHandler.DeleteTask)
		}

		categoryHandler := handlers.NewCategoryHandler(app.CategoryService)
		categoryRoutes := protected.Group("/categories")
		{
			categoryRoutes.GET("", categoryHandler.GetCategories)

			adminCategories := categoryRoutes.Group("", middleware.RequireRole(models.RoleAdmin))
			adminCategories.POST("", categoryHandler.CreateCategory)
			adminCategories.POST("/prune", categoryHandler.PruneCategories)
			adminCategories.PUT("/:id", categoryHandler.RenameCategory)
			adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		userHandler := handlers.NewUserHandler(app.UserService)
		notificationHandler := handlers.NewNotificationHandler(app.NotificationLog)
		adminRoutes := protected.Group("/admin")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.GET("/users", userHandler.GetUsers)
			adminRoutes.POST("/users", userHandler.CreateUser)
			adminRoutes.PUT("/users/:username", userHandler.UpdateUser)
			adminRoutes.DELETE("/users/:username", userHandler.DeleteUser)
			adminRoutes.GET("/notification-logs", notificationHandler.GetLogs)
		}
	}

	app.Router = r
}

func (app *Application) startServer() error {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	if app.Config.Notifier.Enabled {
		app.Scanner.Start(context.Background())
		monitoring.RegisterHealthCheck("deadline_scanner", func(ctx context.Context) error {
			if !app.Scanner.IsRunning() {
				return errors.New("deadline scanner is not running")
			}
			return nil
		})
	} else {
		log.Println("⚠️  Deadline notifications disabled")
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		app.Scanner.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}

		app.cleanup()
		log.Println("✅ Server stopped gracefully")
	}()

	log.Printf("🚀 Server starting on %s", addr)
	log.Printf("📊 Metrics available at http://%s/metrics", addr)
	log.Printf("💚 Health check at http://%s/health", addr)

	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("❌ Server failed to start: %v", err)
		app.Scanner.Stop()
		app.cleanup()
		return err
	}

	<-stopped
	return nil
}

func (app *Application) cleanup() {
	log.Println("🧹 Cleaning up resources...")

	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			log.Printf("⚠️  Error closing Redis: %v", err)
		}
	}

	log.Println("✅ Cleanup complete")
}
