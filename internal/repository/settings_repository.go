package repository

import (
	"context"
	"time"

	"campus-erp/internal/domain"
)

type SettingsRepository interface {
	Get(ctx context.Context, owner domain.Actor, notifType domain.NotificationType) (*domain.NotificationSettings, error)
	ListByOwner(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error)
	CreateIfMissing(ctx context.Context, settings *domain.NotificationSettings) error
	Update(ctx context.Context, settings *domain.NotificationSettings) error
	SetAll(ctx context.Context, owner domain.Actor, enabled bool, now time.Time) (int64, error)
	DeleteByOwner(ctx context.Context, owner domain.Actor) error
}

type settingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, owner domain.Actor, notifType domain.NotificationType) (*domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	query := r.db.Rebind(`
		SELECT * FROM notification_settings
		WHERE user_id = ? AND user_type = ? AND notification_type = ?`)
	if err := r.db.GetContext(ctx, &s, query, owner.ID, owner.Type, notifType); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *settingsRepository) ListByOwner(ctx context.Context, owner domain.Actor) ([]domain.NotificationSettings, error) {
	settings := []domain.NotificationSettings{}
	query := r.db.Rebind(`
		SELECT * FROM notification_settings
		WHERE user_id = ? AND user_type = ?
		ORDER BY notification_type`)
	err := r.db.SelectContext(ctx, &settings, query, owner.ID, owner.Type)
	return settings, err
}

// CreateIfMissing inserts the row unless one already exists for the same
// (owner, type); concurrent lazy creation therefore converges on one row.
func (r *settingsRepository) CreateIfMissing(ctx context.Context, s *domain.NotificationSettings) error {
	query := r.db.Rebind(`
		INSERT INTO notification_settings
			(id, user_id, user_type, notification_type, email_enabled, push_enabled, sms_enabled, in_app_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, user_type, notification_type) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.UserType, s.NotificationType,
		s.EmailEnabled, s.PushEnabled, s.SMSEnabled, s.InAppEnabled,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *settingsRepository) Update(ctx context.Context, s *domain.NotificationSettings) error {
	query := r.db.Rebind(`
		UPDATE notification_settings
		SET email_enabled = ?, push_enabled = ?, sms_enabled = ?, in_app_enabled = ?, updated_at = ?
		WHERE user_id = ? AND user_type = ? AND notification_type = ?`)
	res, err := r.db.ExecContext(ctx, query,
		s.EmailEnabled, s.PushEnabled, s.SMSEnabled, s.InAppEnabled, s.UpdatedAt,
		s.UserID, s.UserType, s.NotificationType,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *settingsRepository) SetAll(ctx context.Context, owner domain.Actor, enabled bool, now time.Time) (int64, error) {
	query := r.db.Rebind(`
		UPDATE notification_settings
		SET email_enabled = ?, push_enabled = ?, sms_enabled = ?, in_app_enabled = ?, updated_at = ?
		WHERE user_id = ? AND user_type = ?`)
	res, err := r.db.ExecContext(ctx, query, enabled, enabled, enabled, enabled, now, owner.ID, owner.Type)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *settingsRepository) DeleteByOwner(ctx context.Context, owner domain.Actor) error {
	query := r.db.Rebind(`DELETE FROM notification_settings WHERE user_id = ? AND user_type = ?`)
	_, err := r.db.ExecContext(ctx, query, owner.ID, owner.Type)
	return err
}
