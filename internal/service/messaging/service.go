package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
	"campus-erp/internal/pkg/validation"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/notification"
	"campus-erp/internal/service/resolver"
	"campus-erp/internal/service/storage"
)

type Service interface {
	SendDirect(ctx context.Context, sender domain.Actor, input domain.SendDirectMessageInput, attachments []domain.AttachmentUpload) (*domain.Message, error)
	SendBroadcast(ctx context.Context, sender domain.Actor, input domain.SendBroadcastInput, attachments []domain.AttachmentUpload) (*domain.Message, error)
	Reply(ctx context.Context, sender domain.Actor, parentID uuid.UUID, input domain.ReplyMessageInput) (*domain.Message, error)

	Inbox(ctx context.Context, owner domain.Actor, filter domain.InboxFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Message], error)
	Sent(ctx context.Context, owner domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.Message], error)
	Get(ctx context.Context, owner domain.Actor, id uuid.UUID) (*domain.Message, error)
	Thread(ctx context.Context, owner domain.Actor, id uuid.UUID) ([]domain.Message, error)

	MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID) error
	MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID) error
	SetArchived(ctx context.Context, owner domain.Actor, id uuid.UUID, archived bool) error
	SetStarred(ctx context.Context, owner domain.Actor, id uuid.UUID, starred bool) error
	Delete(ctx context.Context, owner domain.Actor, id uuid.UUID) error

	UnreadCount(ctx context.Context, owner domain.Actor) (int64, error)
	Stats(ctx context.Context, owner domain.Actor) (*domain.MessageStats, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store    *repository.Store
	notifSvc notification.Service
	storage  storage.Service
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store *repository.Store, notifSvc notification.Service, storageSvc storage.Service, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:    store,
		notifSvc: notifSvc,
		storage:  storageSvc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SendDirect(ctx context.Context, sender domain.Actor, input domain.SendDirectMessageInput, attachments []domain.AttachmentUpload) (*domain.Message, error) {
	return s.sendDirect(ctx, sender, input, attachments, nil)
}

func (s *service) sendDirect(ctx context.Context, sender domain.Actor, input domain.SendDirectMessageInput, attachments []domain.AttachmentUpload, parentID *uuid.UUID) (*domain.Message, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	msg := s.newMessage(sender, domain.MessageDirect, input.Subject, input.Body, input.Priority)
	msg.ParentMessageID = parentID
	receiver := input.Receiver
	msg.ReceiverID = &receiver.ID
	msg.ReceiverType = &receiver.Type

	notif := domain.CreateNotificationInput{
		Type:     domain.NotifNewMessage,
		Title:    "New message",
		Message:  input.Subject,
		Priority: msg.Priority,
		Payload:  messagePayload(msg),
	}
	if err := s.send(ctx, msg, attachments, resolver.DirectMessageEvent{Receiver: receiver}, notif, nil); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *service) SendBroadcast(ctx context.Context, sender domain.Actor, input domain.SendBroadcastInput, attachments []domain.AttachmentUpload) (*domain.Message, error) {
	if !sender.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	seen := make(map[domain.Actor]struct{}, len(input.Recipients))
	for _, r := range input.Recipients {
		if _, dup := seen[r]; dup {
			return nil, domain.NewValidationError(map[string]string{"recipients": "must not contain duplicates"})
		}
		seen[r] = struct{}{}
	}

	msg := s.newMessage(sender, domain.MessageBroadcast, input.Subject, input.Body, input.Priority)
	notif := domain.CreateNotificationInput{
		Type:     domain.NotifNewBroadcast,
		Title:    "New announcement",
		Message:  input.Subject,
		Priority: msg.Priority,
		Payload:  messagePayload(msg),
	}
	addRecipients := func(ctx context.Context, repos *repository.Repositories, recipients []domain.Actor) error {
		for _, r := range recipients {
			rc := &domain.MessageRecipient{
				ID:            uuid.New(),
				MessageID:     msg.ID,
				RecipientID:   r.ID,
				RecipientType: r.Type,
				CreatedAt:     msg.CreatedAt,
			}
			if err := repos.Message.CreateRecipient(ctx, rc); err != nil {
				return fmt.Errorf("failed to create recipient row: %w", err)
			}
		}
		return nil
	}
	if err := s.send(ctx, msg, attachments, resolver.BroadcastEvent{Recipients: input.Recipients}, notif, addRecipients); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *service) Reply(ctx context.Context, sender domain.Actor, parentID uuid.UUID, input domain.ReplyMessageInput) (*domain.Message, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	v, err := s.view(ctx, s.store.Repositories, sender, parentID)
	if err != nil {
		return nil, err
	}
	parent := v.msg

	var receiver domain.Actor
	switch {
	case v.receiving():
		receiver = parent.Sender()
	case parent.MessageType == domain.MessageDirect:
		receiver = *parent.Receiver()
	default:
		return nil, domain.NewValidationError(map[string]string{"parent_message_id": "cannot reply to your own broadcast"})
	}

	subject := input.Subject
	if subject == "" {
		subject = parent.Subject
		if !strings.HasPrefix(subject, "Re: ") {
			subject = "Re: " + subject
		}
	}

	return s.sendDirect(ctx, sender, domain.SendDirectMessageInput{
		Receiver: receiver,
		Subject:  subject,
		Body:     input.Body,
		Priority: input.Priority,
	}, nil, &parentID)
}

func (s *service) newMessage(sender domain.Actor, kind domain.MessageType, subject, body string, priority domain.Priority) *domain.Message {
	if priority == "" {
		priority = domain.PriorityNormal
	}
	return &domain.Message{
		ID:          uuid.New(),
		SenderID:    sender.ID,
		SenderType:  sender.Type,
		MessageType: kind,
		Subject:     subject,
		Body:        body,
		Priority:    priority,
		CreatedAt:   s.now(),
	}
}

func messagePayload(m *domain.Message) domain.Payload {
	return domain.Payload{
		"message_id":  m.ID.String(),
		"sender_id":   m.SenderID.String(),
		"sender_type": string(m.SenderType),
	}
}

// send uploads attachments, then stores the message, its extra rows and one
// notification per resolved recipient in a single transaction.
func (s *service) send(
	ctx context.Context,
	msg *domain.Message,
	uploads []domain.AttachmentUpload,
	ev resolver.Event,
	notif domain.CreateNotificationInput,
	extra func(context.Context, *repository.Repositories, []domain.Actor) error,
) error {
	attachments, err := s.upload(ctx, msg.ID, uploads)
	if err != nil {
		return err
	}
	msg.HasAttachments = len(attachments) > 0

	var created []domain.Notification
	err = s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Message.Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		for i := range attachments {
			if err := repos.Message.CreateAttachment(ctx, &attachments[i]); err != nil {
				return fmt.Errorf("failed to create attachment: %w", err)
			}
		}

		recipients, err := resolver.ForRepositories(repos).Resolve(ctx, ev)
		if err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx, repos, recipients); err != nil {
				return err
			}
		}

		created, err = s.notifSvc.FanOutWith(ctx, repos.Notification, recipients, notif)
		return err
	})
	if err != nil {
		for _, a := range attachments {
			s.storage.Remove(context.Background(), a.StoragePath)
		}
		return err
	}

	msg.Attachments = attachments
	s.notifSvc.Dispatch(created...)
	return nil
}

func (s *service) upload(ctx context.Context, messageID uuid.UUID, uploads []domain.AttachmentUpload) ([]domain.MessageAttachment, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.storage == nil {
		return nil, storage.ErrDisabled
	}

	attachments := make([]domain.MessageAttachment, 0, len(uploads))
	for _, u := range uploads {
		a, err := s.storage.Upload(ctx, messageID, u)
		if err != nil {
			for _, done := range attachments {
				s.storage.Remove(ctx, done.StoragePath)
			}
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, nil
}

func (s *service) Inbox(ctx context.Context, owner domain.Actor, filter domain.InboxFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Message], error) {
	params.Validate()
	messages, total, err := s.store.Message.Inbox(ctx, owner, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Message]{}, err
	}
	return domain.NewPaginatedResponse(messages, params, total), nil
}

func (s *service) Sent(ctx context.Context, owner domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.Message], error) {
	params.Validate()
	messages, total, err := s.store.Message.Sent(ctx, owner, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Message]{}, err
	}
	return domain.NewPaginatedResponse(messages, params, total), nil
}

// Get returns a message visible to owner and marks it read for the
// receiving side.
func (s *service) Get(ctx context.Context, owner domain.Actor, id uuid.UUID) (*domain.Message, error) {
	v, err := s.view(ctx, s.store.Repositories, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, v, owner); err != nil {
		return nil, err
	}

	msg := v.msg
	msg.Recipient = v.recipient
	if msg.HasAttachments {
		if msg.Attachments, err = s.attachments(ctx, msg.ID); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (s *service) attachments(ctx context.Context, messageID uuid.UUID) ([]domain.MessageAttachment, error) {
	atts, err := s.store.Message.ListAttachments(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if s.storage != nil {
		for i := range atts {
			atts[i].URL = s.storage.URL(atts[i].StoragePath)
		}
	}
	return atts, nil
}

// Thread returns the root of the conversation containing id followed by
// every reply the owner can see, oldest first.
func (s *service) Thread(ctx context.Context, owner domain.Actor, id uuid.UUID) ([]domain.Message, error) {
	v, err := s.view(ctx, s.store.Repositories, owner, id)
	if err != nil {
		return nil, err
	}

	root := v.msg
	for depth := 0; root.ParentMessageID != nil && depth < 100; depth++ {
		parent, err := s.store.Message.GetByID(ctx, *root.ParentMessageID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return nil, err
		}
		root = parent
	}

	var thread []domain.Message
	queue := []*domain.Message{root}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		if mv, err := s.view(ctx, s.store.Repositories, owner, m.ID); err == nil {
			mv.msg.Recipient = mv.recipient
			thread = append(thread, *mv.msg)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		replies, err := s.store.Message.Replies(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		for i := range replies {
			queue = append(queue, &replies[i])
		}
	}

	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})
	return thread, nil
}

func (s *service) MarkAsRead(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	v, err := s.view(ctx, s.store.Repositories, owner, id)
	if err != nil {
		return err
	}
	if !v.receiving() {
		return domain.ErrForbidden
	}
	return s.markRead(ctx, v, owner)
}

func (s *service) markRead(ctx context.Context, v *visibility, owner domain.Actor) error {
	now := s.now()
	switch {
	case v.direct && !v.msg.IsRead:
		if err := s.store.Message.SetDirectRead(ctx, v.msg.ID, owner, true, now); err != nil {
			return err
		}
		v.msg.IsRead = true
		v.msg.ReadAt = &now
	case v.recipient != nil && !v.recipient.IsRead:
		if err := s.store.Message.SetRecipientRead(ctx, v.msg.ID, owner, true, now); err != nil {
			return err
		}
		v.recipient.IsRead = true
		v.recipient.ReadAt = &now
	}
	return nil
}

func (s *service) MarkAsUnread(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	v, err := s.view(ctx, s.store.Repositories, owner, id)
	if err != nil {
		return err
	}
	switch {
	case v.direct:
		return s.store.Message.SetDirectRead(ctx, id, owner, false, s.now())
	case v.recipient != nil:
		return s.store.Message.SetRecipientRead(ctx, id, owner, false, s.now())
	default:
		return domain.ErrForbidden
	}
}

// SetArchived only applies to broadcast recipient rows; direct messages have
// no per-recipient state to archive.
func (s *service) SetArchived(ctx context.Context, owner domain.Actor, id uuid.UUID, archived bool) error {
	return s.store.Message.SetRecipientArchived(ctx, id, owner, archived)
}

func (s *service) SetStarred(ctx context.Context, owner domain.Actor, id uuid.UUID, starred bool) error {
	return s.store.Message.SetRecipientStarred(ctx, id, owner, starred)
}

// Delete hides the message from the owner's side only. A message sent to
// oneself is removed from both sides.
func (s *service) Delete(ctx context.Context, owner domain.Actor, id uuid.UUID) error {
	// Strangers and parties whose side is already gone both see not-found.
	v, err := s.view(ctx, s.store.Repositories, owner, id)
	if err != nil {
		return err
	}

	now := s.now()
	return s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		if v.direct {
			if err := repos.Message.SoftDeleteForReceiver(ctx, id, owner, now); err != nil {
				return err
			}
		}
		if v.recipient != nil {
			if err := repos.Message.SoftDeleteRecipient(ctx, id, owner, now); err != nil {
				return err
			}
		}
		if v.sender {
			if err := repos.Message.SoftDeleteForSender(ctx, id, owner, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) UnreadCount(ctx context.Context, owner domain.Actor) (int64, error) {
	return s.store.Message.CountUnread(ctx, owner)
}

func (s *service) Stats(ctx context.Context, owner domain.Actor) (*domain.MessageStats, error) {
	return s.store.Message.Stats(ctx, owner)
}

// visibility records on which sides owner can see a message.
type visibility struct {
	msg       *domain.Message
	sender    bool
	direct    bool
	recipient *domain.MessageRecipient
}

func (v *visibility) receiving() bool {
	return v.direct || v.recipient != nil
}

func (s *service) view(ctx context.Context, repos *repository.Repositories, owner domain.Actor, id uuid.UUID) (*visibility, error) {
	msg, err := repos.Message.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &visibility{msg: msg}
	v.sender = msg.IsSentBy(owner) && msg.SenderDeletedAt == nil
	v.direct = msg.IsDirectTo(owner) && msg.ReceiverDeletedAt == nil

	if msg.MessageType == domain.MessageBroadcast {
		rc, err := repos.Message.GetRecipient(ctx, id, owner)
		switch {
		case err == nil:
			v.recipient = rc
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	if !v.sender && !v.receiving() {
		return nil, domain.ErrNotFound
	}
	return v, nil
}
