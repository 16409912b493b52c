package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
)

// Event describes something that happened and needs an audience.
type Event interface {
	event()
}

type DirectMessageEvent struct {
	Receiver domain.Actor
}

// BroadcastEvent carries an explicit recipient list; it is returned as given.
type BroadcastEvent struct {
	Recipients []domain.Actor
}

// GroupPublishEvent targets every active student of a study group.
type GroupPublishEvent struct {
	GroupName string
}

// ForumReplyEvent targets the topic author followed by every active
// subscriber. An author who also subscribed is listed twice.
type ForumReplyEvent struct {
	TopicID uuid.UUID
}

func (DirectMessageEvent) event() {}
func (BroadcastEvent) event()     {}
func (GroupPublishEvent) event()  {}
func (ForumReplyEvent) event()    {}

type Service interface {
	Resolve(ctx context.Context, ev Event) ([]domain.Actor, error)
}

type service struct {
	studentRepo repository.StudentRepository
	forumRepo   repository.ForumRepository
}

func NewService(studentRepo repository.StudentRepository, forumRepo repository.ForumRepository) Service {
	return &service{
		studentRepo: studentRepo,
		forumRepo:   forumRepo,
	}
}

// ForRepositories builds a resolver reading through repos, typically the
// ones bound to the caller's transaction.
func ForRepositories(repos *repository.Repositories) Service {
	return NewService(repos.Student, repos.Forum)
}

func (s *service) Resolve(ctx context.Context, ev Event) ([]domain.Actor, error) {
	switch e := ev.(type) {
	case DirectMessageEvent:
		return []domain.Actor{e.Receiver}, nil

	case BroadcastEvent:
		out := make([]domain.Actor, len(e.Recipients))
		copy(out, e.Recipients)
		return out, nil

	case GroupPublishEvent:
		students, err := s.studentRepo.ListActiveByGroup(ctx, e.GroupName)
		if err != nil {
			return nil, fmt.Errorf("failed to list students of group %s: %w", e.GroupName, err)
		}
		out := make([]domain.Actor, 0, len(students))
		for i := range students {
			out = append(out, students[i].Actor())
		}
		return out, nil

	case ForumReplyEvent:
		topic, err := s.forumRepo.GetTopic(ctx, e.TopicID)
		if err != nil {
			return nil, fmt.Errorf("failed to get topic: %w", err)
		}
		subscribers, err := s.forumRepo.ListActiveSubscribers(ctx, e.TopicID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscribers: %w", err)
		}
		return append([]domain.Actor{topic.Author()}, subscribers...), nil

	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
}
