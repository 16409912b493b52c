package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	CreateRecipient(ctx context.Context, rcpt *domain.MessageRecipient) error
	GetRecipient(ctx context.Context, messageID uuid.UUID, owner domain.Actor) (*domain.MessageRecipient, error)
	CountRecipients(ctx context.Context, messageID uuid.UUID) (int64, error)
	CreateAttachment(ctx context.Context, att *domain.MessageAttachment) error
	ListAttachments(ctx context.Context, messageID uuid.UUID) ([]domain.MessageAttachment, error)

	SetDirectRead(ctx context.Context, id uuid.UUID, receiver domain.Actor, read bool, now time.Time) error
	SetRecipientRead(ctx context.Context, messageID uuid.UUID, owner domain.Actor, read bool, now time.Time) error
	SetRecipientArchived(ctx context.Context, messageID uuid.UUID, owner domain.Actor, archived bool) error
	SetRecipientStarred(ctx context.Context, messageID uuid.UUID, owner domain.Actor, starred bool) error

	SoftDeleteForSender(ctx context.Context, id uuid.UUID, sender domain.Actor, now time.Time) error
	SoftDeleteForReceiver(ctx context.Context, id uuid.UUID, receiver domain.Actor, now time.Time) error
	SoftDeleteRecipient(ctx context.Context, messageID uuid.UUID, owner domain.Actor, now time.Time) error

	Inbox(ctx context.Context, owner domain.Actor, filter domain.InboxFilter, params domain.PaginationParams) ([]domain.Message, int64, error)
	Sent(ctx context.Context, owner domain.Actor, params domain.PaginationParams) ([]domain.Message, int64, error)
	Replies(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error)
	CountUnread(ctx context.Context, owner domain.Actor) (int64, error)
	Stats(ctx context.Context, owner domain.Actor) (*domain.MessageStats, error)
}

type messageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) error {
	query := r.db.Rebind(`
		INSERT INTO messages (id, sender_id, sender_type, receiver_id, receiver_type, message_type, subject, body,
			priority, parent_message_id, has_attachments, is_read, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.SenderID, m.SenderType, m.ReceiverID, m.ReceiverType, m.MessageType, m.Subject, m.Body,
		m.Priority, m.ParentMessageID, m.HasAttachments, m.IsRead, m.ReadAt, m.CreatedAt,
	)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var m domain.Message
	if err := r.db.GetContext(ctx, &m, r.db.Rebind(`SELECT * FROM messages WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *messageRepository) CreateRecipient(ctx context.Context, rc *domain.MessageRecipient) error {
	query := r.db.Rebind(`
		INSERT INTO message_recipients (id, message_id, recipient_id, recipient_type, is_read, is_archived, is_starred, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		rc.ID, rc.MessageID, rc.RecipientID, rc.RecipientType, rc.IsRead, rc.IsArchived, rc.IsStarred, rc.ReadAt, rc.CreatedAt,
	)
	return err
}

func (r *messageRepository) GetRecipient(ctx context.Context, messageID uuid.UUID, owner domain.Actor) (*domain.MessageRecipient, error) {
	var rc domain.MessageRecipient
	query := r.db.Rebind(`
		SELECT * FROM message_recipients
		WHERE message_id = ? AND recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &rc, query, messageID, owner.ID, owner.Type); err != nil {
		return nil, notFound(err)
	}
	return &rc, nil
}

func (r *messageRepository) CountRecipients(ctx context.Context, messageID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM message_recipients WHERE message_id = ?`), messageID)
	return count, err
}

func (r *messageRepository) CreateAttachment(ctx context.Context, a *domain.MessageAttachment) error {
	query := r.db.Rebind(`
		INSERT INTO message_attachments (id, message_id, file_name, file_size, mime_type, storage_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.MessageID, a.FileName, a.FileSize, a.MimeType, a.StoragePath, a.CreatedAt)
	return err
}

func (r *messageRepository) ListAttachments(ctx context.Context, messageID uuid.UUID) ([]domain.MessageAttachment, error) {
	atts := []domain.MessageAttachment{}
	query := r.db.Rebind(`SELECT * FROM message_attachments WHERE message_id = ? ORDER BY created_at`)
	err := r.db.SelectContext(ctx, &atts, query, messageID)
	return atts, err
}

func (r *messageRepository) SetDirectRead(ctx context.Context, id uuid.UUID, receiver domain.Actor, read bool, now time.Time) error {
	var readAt *time.Time
	if read {
		readAt = &now
	}
	query := r.db.Rebind(`
		UPDATE messages SET is_read = ?, read_at = ?
		WHERE id = ? AND message_type = ? AND receiver_id = ? AND receiver_type = ? AND receiver_deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, read, readAt, id, domain.MessageDirect, receiver.ID, receiver.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SetRecipientRead(ctx context.Context, messageID uuid.UUID, owner domain.Actor, read bool, now time.Time) error {
	var readAt *time.Time
	if read {
		readAt = &now
	}
	query := r.db.Rebind(`
		UPDATE message_recipients SET is_read = ?, read_at = ?
		WHERE message_id = ? AND recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, read, readAt, messageID, owner.ID, owner.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SetRecipientArchived(ctx context.Context, messageID uuid.UUID, owner domain.Actor, archived bool) error {
	query := r.db.Rebind(`
		UPDATE message_recipients SET is_archived = ?
		WHERE message_id = ? AND recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, archived, messageID, owner.ID, owner.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SetRecipientStarred(ctx context.Context, messageID uuid.UUID, owner domain.Actor, starred bool) error {
	query := r.db.Rebind(`
		UPDATE message_recipients SET is_starred = ?
		WHERE message_id = ? AND recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, starred, messageID, owner.ID, owner.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SoftDeleteForSender(ctx context.Context, id uuid.UUID, sender domain.Actor, now time.Time) error {
	query := r.db.Rebind(`
		UPDATE messages SET sender_deleted_at = ?
		WHERE id = ? AND sender_id = ? AND sender_type = ? AND sender_deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, id, sender.ID, sender.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SoftDeleteForReceiver(ctx context.Context, id uuid.UUID, receiver domain.Actor, now time.Time) error {
	query := r.db.Rebind(`
		UPDATE messages SET receiver_deleted_at = ?
		WHERE id = ? AND receiver_id = ? AND receiver_type = ? AND receiver_deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, id, receiver.ID, receiver.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *messageRepository) SoftDeleteRecipient(ctx context.Context, messageID uuid.UUID, owner domain.Actor, now time.Time) error {
	query := r.db.Rebind(`
		UPDATE message_recipients SET deleted_at = ?
		WHERE message_id = ? AND recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, messageID, owner.ID, owner.Type)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type inboxRow struct {
	domain.Message
	RecipientRowID *uuid.UUID `db:"r_id"`
	RIsRead        *bool      `db:"r_is_read"`
	RIsArchived    *bool      `db:"r_is_archived"`
	RIsStarred     *bool      `db:"r_is_starred"`
	RReadAt        *time.Time `db:"r_read_at"`
	RCreatedAt     *time.Time `db:"r_created_at"`
}

const inboxFrom = `
	FROM messages m
	LEFT JOIN message_recipients r
		ON r.message_id = m.id AND r.recipient_id = ? AND r.recipient_type = ?
	WHERE (
		(m.message_type = 'direct' AND m.receiver_id = ? AND m.receiver_type = ? AND m.receiver_deleted_at IS NULL)
		OR (m.message_type = 'broadcast' AND r.id IS NOT NULL AND r.deleted_at IS NULL)
	)`

const inboxUnread = `((m.message_type = 'direct' AND m.is_read = FALSE) OR (m.message_type = 'broadcast' AND r.is_read = FALSE))`

func inboxClause(owner domain.Actor, filter domain.InboxFilter) (string, []interface{}) {
	clause := inboxFrom
	args := []interface{}{owner.ID, owner.Type, owner.ID, owner.Type}

	if filter.Archived {
		clause += ` AND r.is_archived = TRUE`
	} else {
		clause += ` AND (r.id IS NULL OR r.is_archived = FALSE)`
	}
	if filter.Starred {
		clause += ` AND r.is_starred = TRUE`
	}
	if filter.UnreadOnly {
		clause += ` AND ` + inboxUnread
	}
	return clause, args
}

func (r *messageRepository) Inbox(ctx context.Context, owner domain.Actor, filter domain.InboxFilter, params domain.PaginationParams) ([]domain.Message, int64, error) {
	params.Validate()
	clause, args := inboxClause(owner, filter)

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*)`+clause), args...); err != nil {
		return nil, 0, err
	}

	query := r.db.Rebind(`
		SELECT m.*,
			r.id AS r_id, r.is_read AS r_is_read, r.is_archived AS r_is_archived,
			r.is_starred AS r_is_starred, r.read_at AS r_read_at, r.created_at AS r_created_at` + clause + `
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`)

	var rows []inboxRow
	if err := r.db.SelectContext(ctx, &rows, query, append(args, params.PageSize, params.Offset())...); err != nil {
		return nil, 0, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		m := row.Message
		if row.RecipientRowID != nil {
			m.Recipient = &domain.MessageRecipient{
				ID:            *row.RecipientRowID,
				MessageID:     m.ID,
				RecipientID:   owner.ID,
				RecipientType: owner.Type,
				IsRead:        derefBool(row.RIsRead),
				IsArchived:    derefBool(row.RIsArchived),
				IsStarred:     derefBool(row.RIsStarred),
				ReadAt:        row.RReadAt,
			}
			if row.RCreatedAt != nil {
				m.Recipient.CreatedAt = *row.RCreatedAt
			}
		}
		messages = append(messages, m)
	}
	return messages, total, nil
}

func (r *messageRepository) Sent(ctx context.Context, owner domain.Actor, params domain.PaginationParams) ([]domain.Message, int64, error) {
	params.Validate()

	var total int64
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM messages WHERE sender_id = ? AND sender_type = ? AND sender_deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &total, countQuery, owner.ID, owner.Type); err != nil {
		return nil, 0, err
	}

	messages := []domain.Message{}
	query := r.db.Rebind(`
		SELECT * FROM messages
		WHERE sender_id = ? AND sender_type = ? AND sender_deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`)
	err := r.db.SelectContext(ctx, &messages, query, owner.ID, owner.Type, params.PageSize, params.Offset())
	return messages, total, err
}

func (r *messageRepository) Replies(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	messages := []domain.Message{}
	query := r.db.Rebind(`SELECT * FROM messages WHERE parent_message_id = ? ORDER BY created_at ASC, id ASC`)
	err := r.db.SelectContext(ctx, &messages, query, parentID)
	return messages, err
}

func (r *messageRepository) CountUnread(ctx context.Context, owner domain.Actor) (int64, error) {
	clause, args := inboxClause(owner, domain.InboxFilter{UnreadOnly: true})
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*)`+clause), args...)
	return count, err
}

func (r *messageRepository) Stats(ctx context.Context, owner domain.Actor) (*domain.MessageStats, error) {
	stats := &domain.MessageStats{}

	unread, err := r.CountUnread(ctx, owner)
	if err != nil {
		return nil, err
	}
	stats.Unread = unread

	received := r.db.Rebind(`SELECT COUNT(*)` + inboxFrom)
	if err := r.db.GetContext(ctx, &stats.TotalReceived, received, owner.ID, owner.Type, owner.ID, owner.Type); err != nil {
		return nil, err
	}

	sent := r.db.Rebind(`SELECT COUNT(*) FROM messages WHERE sender_id = ? AND sender_type = ? AND sender_deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &stats.Sent, sent, owner.ID, owner.Type); err != nil {
		return nil, err
	}

	flags := r.db.Rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN is_starred = TRUE THEN 1 ELSE 0 END), 0) AS starred,
			COALESCE(SUM(CASE WHEN is_archived = TRUE THEN 1 ELSE 0 END), 0) AS archived
		FROM message_recipients
		WHERE recipient_id = ? AND recipient_type = ? AND deleted_at IS NULL`)
	var counts struct {
		Starred  int64 `db:"starred"`
		Archived int64 `db:"archived"`
	}
	if err := r.db.GetContext(ctx, &counts, flags, owner.ID, owner.Type); err != nil {
		return nil, err
	}
	stats.Starred = counts.Starred
	stats.Archived = counts.Archived

	return stats, nil
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
