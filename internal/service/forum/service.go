package forum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
	"campus-erp/internal/pkg/validation"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/notification"
	"campus-erp/internal/service/resolver"
)

type Service interface {
	CreateTopic(ctx context.Context, author domain.Actor, input domain.CreateTopicInput) (*domain.ForumTopic, error)
	ListTopics(ctx context.Context, filter domain.TopicFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.ForumTopic], error)
	GetTopic(ctx context.Context, id uuid.UUID) (*domain.ForumTopic, error)
	SetLocked(ctx context.Context, actor domain.Actor, topicID uuid.UUID, locked bool) (*domain.ForumTopic, error)

	CreatePost(ctx context.Context, author domain.Actor, topicID uuid.UUID, input domain.CreatePostInput) (*domain.ForumPost, error)
	ListPosts(ctx context.Context, topicID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.ForumPost], error)
	UpdatePost(ctx context.Context, actor domain.Actor, postID uuid.UUID, input domain.UpdatePostInput) (*domain.ForumPost, error)
	DeletePost(ctx context.Context, actor domain.Actor, postID uuid.UUID) error

	ToggleLike(ctx context.Context, user domain.Actor, target domain.LikeTarget, targetID uuid.UUID) (*domain.LikeResult, error)

	Subscribe(ctx context.Context, user domain.Actor, topicID uuid.UUID) error
	Unsubscribe(ctx context.Context, user domain.Actor, topicID uuid.UUID) error
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store    *repository.Store
	notifSvc notification.Service
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store *repository.Store, notifSvc notification.Service, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:    store,
		notifSvc: notifSvc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateTopic(ctx context.Context, author domain.Actor, input domain.CreateTopicInput) (*domain.ForumTopic, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	now := s.now()
	topic := &domain.ForumTopic{
		ID:         uuid.New(),
		Title:      input.Title,
		Body:       input.Body,
		AuthorID:   author.ID,
		AuthorType: author.Type,
		GroupName:  input.GroupName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The author is notified of replies as the author, without a subscription row.
	if err := s.store.Forum.CreateTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

func (s *service) ListTopics(ctx context.Context, filter domain.TopicFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.ForumTopic], error) {
	params.Validate()
	topics, total, err := s.store.Forum.ListTopics(ctx, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.ForumTopic]{}, err
	}
	return domain.NewPaginatedResponse(topics, params, total), nil
}

func (s *service) GetTopic(ctx context.Context, id uuid.UUID) (*domain.ForumTopic, error) {
	return s.store.Forum.GetTopic(ctx, id)
}

func (s *service) SetLocked(ctx context.Context, actor domain.Actor, topicID uuid.UUID, locked bool) (*domain.ForumTopic, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := s.store.Forum.SetTopicLocked(ctx, topicID, locked, s.now()); err != nil {
		return nil, err
	}
	return s.store.Forum.GetTopic(ctx, topicID)
}

// CreatePost stores the post, bumps the topic counter and notifies the topic
// author and every active subscriber, the poster included, in one
// transaction.
func (s *service) CreatePost(ctx context.Context, author domain.Actor, topicID uuid.UUID, input domain.CreatePostInput) (*domain.ForumPost, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	now := s.now()
	post := &domain.ForumPost{
		ID:           uuid.New(),
		TopicID:      topicID,
		AuthorID:     author.ID,
		AuthorType:   author.Type,
		ParentPostID: input.ParentPostID,
		Body:         input.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var created []domain.Notification
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		topic, err := repos.Forum.GetTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if topic.IsLocked {
			return fmt.Errorf("topic is locked: %w", domain.ErrForbidden)
		}
		if input.ParentPostID != nil {
			parent, err := repos.Forum.GetPost(ctx, *input.ParentPostID)
			if err != nil || parent.TopicID != topicID {
				return domain.NewValidationError(map[string]string{"parent_post_id": "must reference a post of the same topic"})
			}
		}

		if err := repos.Forum.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		if err := repos.Forum.AdjustTopicPosts(ctx, topicID, 1); err != nil {
			return fmt.Errorf("failed to update posts count: %w", err)
		}

		recipients, err := resolver.ForRepositories(repos).Resolve(ctx, resolver.ForumReplyEvent{TopicID: topicID})
		if err != nil {
			return err
		}
		created, err = s.notifSvc.FanOutWith(ctx, repos.Notification, recipients, domain.CreateNotificationInput{
			Type:    domain.NotifForumReply,
			Title:   "New reply",
			Message: fmt.Sprintf("New reply in %q", topic.Title),
			Payload: domain.Payload{
				"topic_id":  topicID.String(),
				"post_id":   post.ID.String(),
				"author_id": author.ID.String(),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifSvc.Dispatch(created...)
	return post, nil
}

func (s *service) ListPosts(ctx context.Context, topicID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.ForumPost], error) {
	params.Validate()
	if _, err := s.store.Forum.GetTopic(ctx, topicID); err != nil {
		return domain.PaginatedResponse[domain.ForumPost]{}, err
	}
	posts, total, err := s.store.Forum.ListPosts(ctx, topicID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.ForumPost]{}, err
	}
	return domain.NewPaginatedResponse(posts, params, total), nil
}

func (s *service) UpdatePost(ctx context.Context, actor domain.Actor, postID uuid.UUID, input domain.UpdatePostInput) (*domain.ForumPost, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	post, err := s.store.Forum.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Author() != actor {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	if err := s.store.Forum.UpdatePostBody(ctx, postID, input.Body, now); err != nil {
		return nil, err
	}
	post.Body = input.Body
	post.UpdatedAt = now
	return post, nil
}

func (s *service) DeletePost(ctx context.Context, actor domain.Actor, postID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		post, err := repos.Forum.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if post.Author() != actor {
			return domain.ErrForbidden
		}

		if err := repos.Forum.DeleteLikesForTarget(ctx, domain.LikePost, postID); err != nil {
			return fmt.Errorf("failed to delete post likes: %w", err)
		}
		if err := repos.Forum.DeletePost(ctx, postID); err != nil {
			return err
		}
		if err := repos.Forum.AdjustTopicPosts(ctx, post.TopicID, -1); err != nil {
			return fmt.Errorf("failed to update posts count: %w", err)
		}
		return nil
	})
}

// ToggleLike flips the user's like on a topic or post. The like row and the
// counter change together.
func (s *service) ToggleLike(ctx context.Context, user domain.Actor, target domain.LikeTarget, targetID uuid.UUID) (*domain.LikeResult, error) {
	if !target.IsValid() {
		return nil, domain.NewValidationError(map[string]string{"target_type": "must be one of topic, post"})
	}

	result := &domain.LikeResult{}
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		existing, err := repos.Forum.FindLike(ctx, target, targetID, user)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		delta := int64(1)
		if existing != nil {
			if err := repos.Forum.DeleteLike(ctx, existing.ID); err != nil {
				return err
			}
			delta = -1
		} else {
			like := &domain.ForumLike{
				ID:         uuid.New(),
				TargetType: target,
				TargetID:   targetID,
				UserID:     user.ID,
				UserType:   user.Type,
				CreatedAt:  s.now(),
			}
			if err := repos.Forum.CreateLike(ctx, like); err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
		}

		count, err := repos.Forum.AdjustLikes(ctx, target, targetID, delta)
		if err != nil {
			return err
		}
		result.Liked = existing == nil
		result.LikesCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Subscribe(ctx context.Context, user domain.Actor, topicID uuid.UUID) error {
	if _, err := s.store.Forum.GetTopic(ctx, topicID); err != nil {
		return err
	}
	return s.setSubscription(ctx, s.store.Repositories, user, topicID, true)
}

func (s *service) Unsubscribe(ctx context.Context, user domain.Actor, topicID uuid.UUID) error {
	if _, err := s.store.Forum.GetTopic(ctx, topicID); err != nil {
		return err
	}
	return s.setSubscription(ctx, s.store.Repositories, user, topicID, false)
}

func (s *service) setSubscription(ctx context.Context, repos *repository.Repositories, user domain.Actor, topicID uuid.UUID, active bool) error {
	now := s.now()
	sub := &domain.ForumSubscription{
		ID:        uuid.New(),
		TopicID:   topicID,
		UserID:    user.ID,
		UserType:  user.Type,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Forum.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}
