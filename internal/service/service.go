package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-erp/internal/config"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/academic"
	"campus-erp/internal/service/auth"
	"campus-erp/internal/service/delivery"
	"campus-erp/internal/service/forum"
	"campus-erp/internal/service/messaging"
	"campus-erp/internal/service/notification"
	"campus-erp/internal/service/settings"
	"campus-erp/internal/service/storage"
)

type Services struct {
	Auth         auth.Service
	Notification notification.Service
	Settings     settings.Service
	Messaging    messaging.Service
	Forum        forum.Service
	Academic     academic.Service
	Dispatcher   delivery.Dispatcher
}

func NewServices(store *repository.Store, redis *redis.Client, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger) *Services {
	settingsService := settings.NewService(store, logger, settings.WithCache(redis, cfg.SettingsCacheTTL))

	var channels []delivery.Channel
	if cfg.ResendAPIKey != "" {
		channels = append(channels, delivery.NewEmailChannel(cfg.ResendAPIKey, cfg.FromEmail, delivery.StudentDirectory{Students: store.Student}))
	}
	if len(cfg.PushURLs) > 0 {
		channels = append(channels, delivery.NewPushChannel(cfg.PushURLs))
	}
	if len(cfg.SMSURLs) > 0 {
		channels = append(channels, delivery.NewSMSChannel(cfg.SMSURLs))
	}
	dispatcher := delivery.NewDispatcher(settingsService, channels, cfg.DeliveryTimeout, logger)

	notificationService := notification.NewService(store, logger,
		notification.WithDispatcher(dispatcher),
		notification.WithDefaultTTL(cfg.NotificationTTL),
	)
	storageService := storage.NewService(minioClient, cfg)

	return &Services{
		Auth:         auth.NewService(cfg),
		Notification: notificationService,
		Settings:     settingsService,
		Messaging:    messaging.NewService(store, notificationService, storageService, logger),
		Forum:        forum.NewService(store, notificationService, logger),
		Academic:     academic.NewService(store, notificationService, logger),
		Dispatcher:   dispatcher,
	}
}
