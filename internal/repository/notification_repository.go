package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetForOwner(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) (*domain.Notification, error)
	ListByOwner(ctx context.Context, owner domain.Actor, filter domain.NotificationFilter, params domain.PaginationParams, now time.Time) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error
	MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error
	MarkAllAsRead(ctx context.Context, owner domain.Actor, now time.Time) (int64, error)
	CountUnread(ctx context.Context, owner domain.Actor, now time.Time) (int64, error)
	Stats(ctx context.Context, owner domain.Actor, now time.Time) (*domain.NotificationStats, error)
	Delete(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := r.db.Rebind(`
		INSERT INTO notifications (id, user_id, user_type, type, title, message, payload, priority, is_read, read_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		notif.ID, notif.UserID, notif.UserType, notif.Type, notif.Title, notif.Message,
		notif.Payload, notif.Priority, notif.IsRead, notif.ReadAt, notif.ExpiresAt, notif.CreatedAt,
	)
	return err
}

func (r *notificationRepository) GetForOwner(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) (*domain.Notification, error) {
	var notif domain.Notification
	query := r.db.Rebind(`SELECT * FROM notifications WHERE id = ? AND user_id = ? AND user_type = ? AND ` + notExpired)
	if err := r.db.GetContext(ctx, &notif, query, id, owner.ID, owner.Type, now); err != nil {
		return nil, notFound(err)
	}
	return &notif, nil
}

func (r *notificationRepository) ListByOwner(ctx context.Context, owner domain.Actor, filter domain.NotificationFilter, params domain.PaginationParams, now time.Time) ([]domain.Notification, int64, error) {
	params.Validate()

	conditions := []string{"user_id = ?", "user_type = ?", notExpired}
	args := []interface{}{owner.ID, owner.Type, now}

	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = ?")
		args = append(args, false)
	}
	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM notifications"+where), args...); err != nil {
		return nil, 0, err
	}

	notifications := []domain.Notification{}
	query := r.db.Rebind("SELECT * FROM notifications" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	err := r.db.SelectContext(ctx, &notifications, query, append(args, params.PageSize, params.Offset())...)
	return notifications, total, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ?
		WHERE id = ? AND user_id = ? AND user_type = ? AND is_read = ? AND ` + notExpired)
	res, err := r.db.ExecContext(ctx, query, true, now, id, owner.ID, owner.Type, false, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	// Nothing changed: either already read (no-op) or not the caller's row.
	return r.exists(ctx, owner, id, now)
}

func (r *notificationRepository) MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = NULL
		WHERE id = ? AND user_id = ? AND user_type = ? AND ` + notExpired)
	res, err := r.db.ExecContext(ctx, query, false, id, owner.ID, owner.Type, now)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, owner domain.Actor, now time.Time) (int64, error) {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ?
		WHERE user_id = ? AND user_type = ? AND is_read = ? AND ` + notExpired)
	res, err := r.db.ExecContext(ctx, query, true, now, owner.ID, owner.Type, false, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, owner domain.Actor, now time.Time) (int64, error) {
	var count int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND user_type = ? AND is_read = ? AND ` + notExpired)
	err := r.db.GetContext(ctx, &count, query, owner.ID, owner.Type, false, now)
	return count, err
}

func (r *notificationRepository) Stats(ctx context.Context, owner domain.Actor, now time.Time) (*domain.NotificationStats, error) {
	stats := &domain.NotificationStats{UnreadByPriority: map[domain.Priority]int64{}}

	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND user_type = ? AND ` + notExpired)
	if err := r.db.GetContext(ctx, &stats.Total, query, owner.ID, owner.Type, now); err != nil {
		return nil, err
	}

	var rows []struct {
		Priority domain.Priority `db:"priority"`
		Count    int64           `db:"cnt"`
	}
	query = r.db.Rebind(`
		SELECT priority, COUNT(*) AS cnt FROM notifications
		WHERE user_id = ? AND user_type = ? AND is_read = ? AND ` + notExpired + `
		GROUP BY priority`)
	if err := r.db.SelectContext(ctx, &rows, query, owner.ID, owner.Type, false, now); err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.UnreadByPriority[row.Priority] = row.Count
		stats.Unread += row.Count
	}
	return stats, nil
}

func (r *notificationRepository) Delete(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error {
	query := r.db.Rebind(`DELETE FROM notifications WHERE id = ? AND user_id = ? AND user_type = ? AND ` + notExpired)
	res, err := r.db.ExecContext(ctx, query, id, owner.ID, owner.Type, now)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *notificationRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= ?`)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) exists(ctx context.Context, owner domain.Actor, id uuid.UUID, now time.Time) error {
	var count int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ? AND user_type = ? AND ` + notExpired)
	if err := r.db.GetContext(ctx, &count, query, id, owner.ID, owner.Type, now); err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return nil
}
