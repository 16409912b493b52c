package handler

import (
	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/service/forum"
)

type ForumHandler struct {
	forumService forum.Service
}

func NewForumHandler(forumService forum.Service) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

func (h *ForumHandler) CreateTopic(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateTopicInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	topic, err := h.forumService.CreateTopic(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, topic)
}

func (h *ForumHandler) ListTopics(c *fiber.Ctx) error {
	filter := domain.TopicFilter{Search: c.Query("search")}
	if group := c.Query("group"); group != "" {
		filter.GroupName = &group
	}

	result, err := h.forumService.ListTopics(c.Context(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *ForumHandler) GetTopic(c *fiber.Ctx) error {
	id, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	topic, err := h.forumService.GetTopic(c.Context(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, topic)
}

func (h *ForumHandler) Lock(c *fiber.Ctx) error {
	return h.setLocked(c, true)
}

func (h *ForumHandler) Unlock(c *fiber.Ctx) error {
	return h.setLocked(c, false)
}

func (h *ForumHandler) setLocked(c *fiber.Ctx, locked bool) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	topic, err := h.forumService.SetLocked(c.Context(), actor, id, locked)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, topic)
}

func (h *ForumHandler) CreatePost(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	topicID, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	var input domain.CreatePostInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	post, err := h.forumService.CreatePost(c.Context(), actor, topicID, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, post)
}

func (h *ForumHandler) ListPosts(c *fiber.Ctx) error {
	topicID, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	result, err := h.forumService.ListPosts(c.Context(), topicID, getPaginationParams(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *ForumHandler) UpdatePost(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "postId", "post")
	if err != nil {
		return err
	}

	var input domain.UpdatePostInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	post, err := h.forumService.UpdatePost(c.Context(), actor, postID, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, post)
}

func (h *ForumHandler) DeletePost(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "postId", "post")
	if err != nil {
		return err
	}

	if err := h.forumService.DeletePost(c.Context(), actor, postID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ForumHandler) LikeTopic(c *fiber.Ctx) error {
	return h.toggleLike(c, domain.LikeTopic, "topicId")
}

func (h *ForumHandler) LikePost(c *fiber.Ctx) error {
	return h.toggleLike(c, domain.LikePost, "postId")
}

func (h *ForumHandler) toggleLike(c *fiber.Ctx, target domain.LikeTarget, param string) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, param, string(target))
	if err != nil {
		return err
	}

	result, err := h.forumService.ToggleLike(c.Context(), actor, target, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

func (h *ForumHandler) Subscribe(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	topicID, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	if err := h.forumService.Subscribe(c.Context(), actor, topicID); err != nil {
		return err
	}
	return respondMessage(c, fiber.StatusOK, "Subscribed to topic")
}

func (h *ForumHandler) Unsubscribe(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}
	topicID, err := parseID(c, "topicId", "topic")
	if err != nil {
		return err
	}

	if err := h.forumService.Unsubscribe(c.Context(), actor, topicID); err != nil {
		return err
	}
	return respondMessage(c, fiber.StatusOK, "Unsubscribed from topic")
}
