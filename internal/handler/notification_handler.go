package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/pkg/validation"
	"campus-erp/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	filter := domain.NotificationFilter{UnreadOnly: c.QueryBool("unread_only", false)}
	if t := c.Query("type"); t != "" {
		notifType := domain.NotificationType(t)
		filter.Type = &notifType
	}
	if p := c.Query("priority"); p != "" {
		priority := domain.Priority(p)
		if !priority.IsValid() {
			return middleware.BadRequest("Invalid priority")
		}
		filter.Priority = &priority
	}

	result, err := h.notifService.List(c.Context(), actor, filter, getPaginationParams(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "notification")
	if err != nil {
		return err
	}

	notif, err := h.notifService.Get(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, notif)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	count, err := h.notifService.UnreadCount(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *NotificationHandler) GetStats(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	stats, err := h.notifService.Stats(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, stats)
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "notification")
	if err != nil {
		return err
	}

	if err := h.notifService.MarkAsRead(c.Context(), actor, id); err != nil {
		return err
	}
	return respondMessage(c, fiber.StatusOK, "Notification marked as read")
}

func (h *NotificationHandler) MarkAsUnread(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "notification")
	if err != nil {
		return err
	}

	if err := h.notifService.MarkAsUnread(c.Context(), actor, id); err != nil {
		return err
	}
	return respondMessage(c, fiber.StatusOK, "Notification marked as unread")
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	updated, err := h.notifService.MarkAllAsRead(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"updated": updated})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "notification")
	if err != nil {
		return err
	}

	if err := h.notifService.Delete(c.Context(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) SendSystem(c *fiber.Ctx) error {
	var input domain.SystemNotificationInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if input.Type == "" {
		input.Type = domain.NotifSystem
	}
	if err := validation.Struct(input); err != nil {
		return err
	}

	created, err := h.notifService.SendSystem(c.Context(), input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"created": len(created)})
}

func (h *NotificationHandler) PurgeExpired(c *fiber.Ctx) error {
	before := time.Now().UTC()
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return middleware.BadRequest("before must be an RFC3339 timestamp")
		}
		before = parsed
	}

	deleted, err := h.notifService.PurgeExpired(c.Context(), before)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"deleted": deleted})
}
