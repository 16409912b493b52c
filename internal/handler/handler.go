package handler

import "campus-erp/internal/service"

type Handlers struct {
	Notification *NotificationHandler
	Settings     *SettingsHandler
	Message      *MessageHandler
	Forum        *ForumHandler
	Academic     *AcademicHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Notification: NewNotificationHandler(services.Notification),
		Settings:     NewSettingsHandler(services.Settings),
		Message:      NewMessageHandler(services.Messaging),
		Forum:        NewForumHandler(services.Forum),
		Academic:     NewAcademicHandler(services.Academic),
	}
}
