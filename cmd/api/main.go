package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campus-erp/internal/config"
	"campus-erp/internal/domain"
	"campus-erp/internal/handler"
	"campus-erp/internal/middleware"
	"campus-erp/internal/repository"
	"campus-erp/internal/service"
	"campus-erp/internal/service/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := config.NewDB(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redis != nil {
		defer redis.Close()
	} else {
		zlog.Info("REDIS_URL not set, settings cache disabled")
	}

	minioClient, err := config.NewMinIOClient(cfg, zlog)
	if err != nil {
		zlog.Warn("failed to connect to MinIO, attachments will not work", zap.Error(err))
		minioClient = nil
	}

	store := repository.NewStore(db)
	services := service.NewServices(store, redis, minioClient, cfg, zlog)
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(zlog),
		BodyLimit:    int(cfg.MaxAttachmentSize) * 4,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, services.Auth)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		zlog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			zlog.Error("server shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}

	// in-flight email/push deliveries
	services.Dispatcher.Wait()
}

func setupRoutes(app *fiber.App, h *handler.Handlers, authService auth.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	protected := v1.Group("", middleware.AuthRequired(authService))
	staff := middleware.RequireStaff()
	admin := middleware.RequireUserType(domain.UserTypeAdmin)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Get("/stats", h.Notification.GetStats)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.Post("/system", staff, h.Notification.SendSystem)
	notifications.Delete("/expired", admin, h.Notification.PurgeExpired)
	notifications.Get("/:id", h.Notification.Get)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Patch("/:id/unread", h.Notification.MarkAsUnread)
	notifications.Delete("/:id", h.Notification.Delete)

	settings := protected.Group("/notification-settings")
	settings.Get("/", h.Settings.List)
	settings.Post("/enable-all", h.Settings.EnableAll)
	settings.Post("/disable-all", h.Settings.DisableAll)
	settings.Post("/reset", h.Settings.Reset)
	settings.Get("/:type", h.Settings.Get)
	settings.Put("/:type", h.Settings.Update)

	messages := protected.Group("/messages")
	messages.Post("/", h.Message.SendDirect)
	messages.Post("/broadcast", staff, h.Message.SendBroadcast)
	messages.Get("/inbox", h.Message.Inbox)
	messages.Get("/sent", h.Message.Sent)
	messages.Get("/unread-count", h.Message.GetUnreadCount)
	messages.Get("/stats", h.Message.GetStats)
	messages.Get("/:id", h.Message.Get)
	messages.Get("/:id/thread", h.Message.Thread)
	messages.Post("/:id/reply", h.Message.Reply)
	messages.Patch("/:id/read", h.Message.MarkAsRead)
	messages.Patch("/:id/unread", h.Message.MarkAsUnread)
	messages.Patch("/:id/archive", h.Message.Archive)
	messages.Patch("/:id/unarchive", h.Message.Unarchive)
	messages.Patch("/:id/star", h.Message.Star)
	messages.Patch("/:id/unstar", h.Message.Unstar)
	messages.Delete("/:id", h.Message.Delete)

	forum := protected.Group("/forum")
	forum.Post("/topics", h.Forum.CreateTopic)
	forum.Get("/topics", h.Forum.ListTopics)
	forum.Get("/topics/:topicId", h.Forum.GetTopic)
	forum.Post("/topics/:topicId/lock", staff, h.Forum.Lock)
	forum.Post("/topics/:topicId/unlock", staff, h.Forum.Unlock)
	forum.Post("/topics/:topicId/like", h.Forum.LikeTopic)
	forum.Post("/topics/:topicId/subscribe", h.Forum.Subscribe)
	forum.Delete("/topics/:topicId/subscribe", h.Forum.Unsubscribe)
	forum.Post("/topics/:topicId/posts", h.Forum.CreatePost)
	forum.Get("/topics/:topicId/posts", h.Forum.ListPosts)
	forum.Put("/posts/:postId", h.Forum.UpdatePost)
	forum.Delete("/posts/:postId", h.Forum.DeletePost)
	forum.Post("/posts/:postId/like", h.Forum.LikePost)

	assignments := protected.Group("/assignments")
	assignments.Post("/", staff, h.Academic.CreateAssignment)
	assignments.Get("/", h.Academic.ListAssignments)
	assignments.Get("/:id", h.Academic.GetAssignment)
	assignments.Post("/:id/publish", staff, h.Academic.PublishAssignment)
	assignments.Post("/:id/submissions", middleware.RequireUserType(domain.UserTypeStudent), h.Academic.Submit)
	assignments.Get("/:id/submissions", staff, h.Academic.ListSubmissions)

	protected.Post("/submissions/:id/grade", staff, h.Academic.Grade)

	tests := protected.Group("/tests")
	tests.Post("/", staff, h.Academic.CreateTest)
	tests.Get("/", h.Academic.ListTests)
	tests.Get("/:id", h.Academic.GetTest)
	tests.Post("/:id/publish", staff, h.Academic.PublishTest)
}
