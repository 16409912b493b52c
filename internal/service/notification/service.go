package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/delivery"
)

type Service interface {
	Write(ctx context.Context, recipient domain.Actor, input domain.CreateNotificationInput) (*domain.Notification, error)
	FanOut(ctx context.Context, recipients []domain.Actor, input domain.CreateNotificationInput) ([]domain.Notification, error)
	SendSystem(ctx context.Context, input domain.SystemNotificationInput) ([]domain.Notification, error)

	// WriteWith and FanOutWith write through repo so callers can make the
	// rows part of their own transaction. They do not dispatch; call
	// Dispatch once the transaction committed.
	WriteWith(ctx context.Context, repo repository.NotificationRepository, recipient domain.Actor, input domain.CreateNotificationInput) (*domain.Notification, error)
	FanOutWith(ctx context.Context, repo repository.NotificationRepository, recipients []domain.Actor, input domain.CreateNotificationInput) ([]domain.Notification, error)
	Dispatch(notifs ...domain.Notification)

	List(ctx context.Context, owner domain.Actor, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	Get(ctx context.Context, owner domain.Actor, id uuid.UUID) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID) error
	MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, owner domain.Actor) (int64, error)
	UnreadCount(ctx context.Context, owner domain.Actor) (int64, error)
	Delete(ctx context.Context, owner domain.Actor, id uuid.UUID) error
	Stats(ctx context.Context, owner domain.Actor) (*domain.NotificationStats, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithDispatcher(d delivery.Dispatcher) Option {
	return func(s *service) { s.dispatcher = d }
}

// WithDefaultTTL sets the expiry applied to notifications created without
// an explicit ExpiresAt. Zero keeps them forever.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *service) { s.ttl = ttl }
}

type service struct {
	store      *repository.Store
	dispatcher delivery.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	ttl        time.Duration
}

func NewService(store *repository.Store, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:      store,
		dispatcher: delivery.NewNoopDispatcher(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Write(ctx context.Context, recipient domain.Actor, input domain.CreateNotificationInput) (*domain.Notification, error) {
	notif, err := s.WriteWith(ctx, s.store.Notification, recipient, input)
	if err != nil {
		return nil, err
	}
	s.Dispatch(*notif)
	return notif, nil
}

func (s *service) FanOut(ctx context.Context, recipients []domain.Actor, input domain.CreateNotificationInput) ([]domain.Notification, error) {
	var created []domain.Notification
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		created, err = s.FanOutWith(ctx, repos.Notification, recipients, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Dispatch(created...)
	return created, nil
}

func (s *service) SendSystem(ctx context.Context, input domain.SystemNotificationInput) ([]domain.Notification, error) {
	if len(input.Recipients) == 0 {
		return nil, domain.NewValidationError(map[string]string{"recipients": "at least one recipient is required"})
	}
	if input.Type == "" {
		input.Type = domain.NotifSystem
	}
	return s.FanOut(ctx, input.Recipients, input.CreateNotificationInput)
}

func (s *service) WriteWith(ctx context.Context, repo repository.NotificationRepository, recipient domain.Actor, input domain.CreateNotificationInput) (*domain.Notification, error) {
	notif, err := s.build(recipient, input)
	if err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to create notification for %s: %w", recipient, err)
	}
	return notif, nil
}

func (s *service) FanOutWith(ctx context.Context, repo repository.NotificationRepository, recipients []domain.Actor, input domain.CreateNotificationInput) ([]domain.Notification, error) {
	created := make([]domain.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notif, err := s.WriteWith(ctx, repo, recipient, input)
		if err != nil {
			return nil, err
		}
		created = append(created, *notif)
	}
	return created, nil
}

func (s *service) Dispatch(notifs ...domain.Notification) {
	if len(notifs) == 0 {
		return
	}
	s.dispatcher.Dispatch(notifs...)
}

func (s *service) build(recipient domain.Actor, input domain.CreateNotificationInput) (*domain.Notification, error) {
	fields := map[string]string{}
	if !recipient.Type.IsValid() {
		fields["user_type"] = "must be one of student, teacher, admin"
	}
	if input.Type == "" {
		fields["type"] = "is required"
	}
	if input.Title == "" {
		fields["title"] = "is required"
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityNormal
	} else if !input.Priority.IsValid() {
		fields["priority"] = "must be one of low, normal, high, urgent"
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}

	now := s.now()
	expiresAt := input.ExpiresAt
	if expiresAt == nil && s.ttl > 0 {
		t := now.Add(s.ttl)
		expiresAt = &t
	}
	payload := input.Payload
	if payload == nil {
		payload = domain.Payload{}
	}

	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    recipient.ID,
		UserType:  recipient.Type,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Payload:   payload,
		Priority:  input.Priority,
		IsRead:    false,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

func (s *service) List(ctx context.Context, owner domain.Actor, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.Validate()
	notifications, total, err := s.store.Notification.ListByOwner(ctx, owner, filter, params, s.now())
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	return domain.NewPaginatedResponse(notifications, params, total), nil
}

// Get returns the notification and marks it read on first view.
func (s *service) Get(ctx context.Context, owner domain.Actor, id uuid.UUID) (*domain.Notification, error) {
	now := s.now()
	notif, err := s.store.Notification.GetForOwner(ctx, owner, id, now)
	if err != nil {
		return nil, err
	}

	if !notif.IsRead {
		if err := s.store.Notification.MarkAsRead(ctx, owner, id, now); err != nil {
			return nil, err
		}
		notif.IsRead = true
		notif.ReadAt = &now
	}
	return notif, nil
}

func (s *service) MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	return s.store.Notification.MarkAsRead(ctx, owner, id, s.now())
}

func (s *service) MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	return s.store.Notification.MarkAsUnread(ctx, owner, id, s.now())
}

func (s *service) MarkAllAsRead(ctx context.Context, owner domain.Actor) (int64, error) {
	return s.store.Notification.MarkAllAsRead(ctx, owner, s.now())
}

func (s *service) UnreadCount(ctx context.Context, owner domain.Actor) (int64, error) {
	return s.store.Notification.CountUnread(ctx, owner, s.now())
}

func (s *service) Delete(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	return s.store.Notification.Delete(ctx, owner, id, s.now())
}

func (s *service) Stats(ctx context.Context, owner domain.Actor) (*domain.NotificationStats, error) {
	return s.store.Notification.Stats(ctx, owner, s.now())
}

func (s *service) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.store.Notification.DeleteExpiredBefore(ctx, before.UTC())
	if err != nil {
		return 0, err
	}
	s.logger.Info("purged expired notifications", zap.Int64("count", n), zap.Time("before", before))
	return n, nil
}
