package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
)

type Service interface {
	GetOrCreate(ctx context.Context, owner domain.Actor, notifType domain.NotificationType) (*domain.NotificationSettings, error)
	List(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error)
	Update(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, input domain.UpdateSettingsInput) (*domain.NotificationSettings, error)
	EnableAll(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error)
	DisableAll(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error)
	Reset(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error)
	Allows(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, ch domain.Channel) (bool, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *service) {
		s.redis = client
		s.cacheTTL = ttl
	}
}

type service struct {
	store    *repository.Store
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store *repository.Store, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:    store,
		logger:   logger,
		cacheTTL: 10 * time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(owner domain.Actor, notifType domain.NotificationType) string {
	return fmt.Sprintf("notif_settings:%s:%s:%s", owner.Type, owner.ID, notifType)
}

func validateType(notifType domain.NotificationType) error {
	if notifType == "" || len(notifType) > 64 {
		return domain.NewValidationError(map[string]string{"notification_type": "must be between 1 and 64 characters"})
	}
	return nil
}

func (s *service) GetOrCreate(ctx context.Context, owner domain.Actor, notifType domain.NotificationType) (*domain.NotificationSettings, error) {
	if err := validateType(notifType); err != nil {
		return nil, err
	}

	key := cacheKey(owner, notifType)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			var settings domain.NotificationSettings
			if json.Unmarshal([]byte(cached), &settings) == nil {
				return &settings, nil
			}
		}
	}

	settings, err := s.getOrCreate(ctx, s.store.Settings, owner, notifType)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(settings); err == nil {
			_ = s.redis.Set(ctx, key, data, s.cacheTTL).Err()
		}
	}
	return settings, nil
}

func (s *service) getOrCreate(ctx context.Context, repo repository.SettingsRepository, owner domain.Actor, notifType domain.NotificationType) (*domain.NotificationSettings, error) {
	settings, err := repo.Get(ctx, owner, notifType)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := repo.CreateIfMissing(ctx, s.defaults(owner, notifType)); err != nil {
		return nil, fmt.Errorf("failed to create default settings: %w", err)
	}
	// Re-read so a row created concurrently by another request wins.
	return repo.Get(ctx, owner, notifType)
}

func (s *service) defaults(owner domain.Actor, notifType domain.NotificationType) *domain.NotificationSettings {
	now := s.now()
	settings := domain.DefaultSettings(owner, notifType)
	settings.CreatedAt = now
	settings.UpdatedAt = now
	return settings
}

func (s *service) List(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error) {
	return s.store.Settings.ListByOwner(ctx, owner)
}

func (s *service) Update(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, input domain.UpdateSettingsInput) (*domain.NotificationSettings, error) {
	if err := validateType(notifType); err != nil {
		return nil, err
	}

	var settings *domain.NotificationSettings
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		current, err := s.getOrCreate(ctx, repos.Settings, owner, notifType)
		if err != nil {
			return err
		}
		input.Apply(current)
		current.UpdatedAt = s.now()
		if err := repos.Settings.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		settings = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, owner, notifType)
	return settings, nil
}

func (s *service) EnableAll(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error) {
	return s.setAll(ctx, owner, true)
}

func (s *service) DisableAll(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error) {
	return s.setAll(ctx, owner, false)
}

func (s *service) setAll(ctx context.Context, owner domain.Actor, enabled bool) ([]domain.NotificationSettings, error) {
	var rows []domain.NotificationSettings
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		for _, t := range domain.DefaultNotificationTypes {
			if err := repos.Settings.CreateIfMissing(ctx, s.defaults(owner, t)); err != nil {
				return fmt.Errorf("failed to create default settings: %w", err)
			}
		}
		if _, err := repos.Settings.SetAll(ctx, owner, enabled, s.now()); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		var err error
		rows, err = repos.Settings.ListByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRows(ctx, owner, rows)
	return rows, nil
}

// Reset drops every row of the owner and recreates defaults for the known
// notification types only; custom types are gone afterwards.
func (s *service) Reset(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error) {
	var previous, rows []domain.NotificationSettings
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if previous, err = repos.Settings.ListByOwner(ctx, owner); err != nil {
			return err
		}
		if err := repos.Settings.DeleteByOwner(ctx, owner); err != nil {
			return fmt.Errorf("failed to delete settings: %w", err)
		}
		for _, t := range domain.DefaultNotificationTypes {
			if err := repos.Settings.CreateIfMissing(ctx, s.defaults(owner, t)); err != nil {
				return fmt.Errorf("failed to create default settings: %w", err)
			}
		}
		rows, err = repos.Settings.ListByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRows(ctx, owner, previous)
	s.invalidateRows(ctx, owner, rows)
	return rows, nil
}

func (s *service) Allows(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, ch domain.Channel) (bool, error) {
	settings, err := s.GetOrCreate(ctx, owner, notifType)
	if err != nil {
		return false, err
	}
	return settings.Allows(ch), nil
}

func (s *service) invalidate(ctx context.Context, owner domain.Actor, types ...domain.NotificationType) {
	if s.redis == nil || len(types) == 0 {
		return
	}
	keys := make([]string, 0, len(types))
	for _, t := range types {
		keys = append(keys, cacheKey(owner, t))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate settings cache", zap.String("owner", owner.String()), zap.Error(err))
	}
}

func (s *service) invalidateRows(ctx context.Context, owner domain.Actor, rows []domain.NotificationSettings) {
	types := make([]domain.NotificationType, 0, len(rows))
	for i := range rows {
		types = append(types, rows[i].NotificationType)
	}
	s.invalidate(ctx, owner, types...)
}
