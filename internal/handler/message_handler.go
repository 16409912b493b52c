package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/service/messaging"
	"campus-erp/internal/service/storage"
)

type MessageHandler struct {
	messageService messaging.Service
}

func NewMessageHandler(messageService messaging.Service) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendDirect accepts JSON, or multipart form fields receiver_id,
// receiver_type, subject, body, priority plus "attachments" files.
func (h *MessageHandler) SendDirect(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.SendDirectMessageInput
	var attachments []domain.AttachmentUpload
	if isMultipart(c) {
		receiverID, err := uuid.Parse(c.FormValue("receiver_id"))
		if err != nil {
			return middleware.BadRequest("Invalid receiver ID")
		}
		input = domain.SendDirectMessageInput{
			Receiver: domain.Actor{ID: receiverID, Type: domain.UserType(c.FormValue("receiver_type"))},
			Subject:  c.FormValue("subject"),
			Body:     c.FormValue("body"),
			Priority: domain.Priority(c.FormValue("priority")),
		}
		if attachments, err = formAttachments(c); err != nil {
			return err
		}
	} else if err := parseBody(c, &input); err != nil {
		return err
	}

	msg, err := h.messageService.SendDirect(c.Context(), actor, input, attachments)
	if err != nil {
		return storageError(err)
	}
	return respond(c, fiber.StatusCreated, msg)
}

// SendBroadcast accepts JSON, or multipart with "recipients" as a JSON array.
func (h *MessageHandler) SendBroadcast(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.SendBroadcastInput
	var attachments []domain.AttachmentUpload
	if isMultipart(c) {
		input = domain.SendBroadcastInput{
			Subject:  c.FormValue("subject"),
			Body:     c.FormValue("body"),
			Priority: domain.Priority(c.FormValue("priority")),
		}
		if err := json.Unmarshal([]byte(c.FormValue("recipients")), &input.Recipients); err != nil {
			return middleware.BadRequest("recipients must be a JSON array")
		}
		if attachments, err = formAttachments(c); err != nil {
			return err
		}
	} else if err := parseBody(c, &input); err != nil {
		return err
	}

	msg, err := h.messageService.SendBroadcast(c.Context(), actor, input, attachments)
	if err != nil {
		return storageError(err)
	}
	return respond(c, fiber.StatusCreated, msg)
}

func (h *MessageHandler) Reply(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}

	var input domain.ReplyMessageInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	msg, err := h.messageService.Reply(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, msg)
}

func (h *MessageHandler) Inbox(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	filter := domain.InboxFilter{
		UnreadOnly: c.QueryBool("unread_only", false),
		Archived:   c.QueryBool("archived", false),
		Starred:    c.QueryBool("starred", false),
	}
	result, err := h.messageService.Inbox(c.Context(), actor, filter, getPaginationParams(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *MessageHandler) Sent(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	result, err := h.messageService.Sent(c.Context(), actor, getPaginationParams(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *MessageHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}

	msg, err := h.messageService.Get(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, msg)
}

func (h *MessageHandler) Thread(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}

	thread, err := h.messageService.Thread(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, thread)
}

func (h *MessageHandler) MarkAsRead(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.MarkAsRead(c.Context(), actor, id)
	}, "Message marked as read")
}

func (h *MessageHandler) MarkAsUnread(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.MarkAsUnread(c.Context(), actor, id)
	}, "Message marked as unread")
}

func (h *MessageHandler) Archive(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.SetArchived(c.Context(), actor, id, true)
	}, "Message archived")
}

func (h *MessageHandler) Unarchive(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.SetArchived(c.Context(), actor, id, false)
	}, "Message unarchived")
}

func (h *MessageHandler) Star(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.SetStarred(c.Context(), actor, id, true)
	}, "Message starred")
}

func (h *MessageHandler) Unstar(c *fiber.Ctx) error {
	return h.withMessage(c, func(actor domain.Actor, id uuid.UUID) error {
		return h.messageService.SetStarred(c.Context(), actor, id, false)
	}, "Message unstarred")
}

func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}

	if err := h.messageService.Delete(c.Context(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MessageHandler) GetUnreadCount(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	count, err := h.messageService.UnreadCount(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *MessageHandler) GetStats(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	stats, err := h.messageService.Stats(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, stats)
}

func (h *MessageHandler) withMessage(c *fiber.Ctx, fn func(actor domain.Actor, id uuid.UUID) error, message string) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}

	if err := fn(actor, id); err != nil {
		return err
	}
	return respondMessage(c, fiber.StatusOK, message)
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrDisabled) {
		return middleware.NewError(fiber.StatusServiceUnavailable, "Attachments are not available")
	}
	return err
}
