package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageDirect    MessageType = "direct"
	MessageBroadcast MessageType = "broadcast"
)

// Message read-state lives on the row for direct messages only. Broadcasts
// track read-state per recipient in MessageRecipient.
type Message struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	SenderID          uuid.UUID   `json:"sender_id" db:"sender_id"`
	SenderType        UserType    `json:"sender_type" db:"sender_type"`
	ReceiverID        *uuid.UUID  `json:"receiver_id,omitempty" db:"receiver_id"`
	ReceiverType      *UserType   `json:"receiver_type,omitempty" db:"receiver_type"`
	MessageType       MessageType `json:"message_type" db:"message_type"`
	Subject           string      `json:"subject" db:"subject"`
	Body              string      `json:"body" db:"body"`
	Priority          Priority    `json:"priority" db:"priority"`
	ParentMessageID   *uuid.UUID  `json:"parent_message_id,omitempty" db:"parent_message_id"`
	HasAttachments    bool        `json:"has_attachments" db:"has_attachments"`
	IsRead            bool        `json:"is_read" db:"is_read"`
	ReadAt            *time.Time  `json:"read_at,omitempty" db:"read_at"`
	SenderDeletedAt   *time.Time  `json:"-" db:"sender_deleted_at"`
	ReceiverDeletedAt *time.Time  `json:"-" db:"receiver_deleted_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`

	Attachments []MessageAttachment `json:"attachments,omitempty" db:"-"`
	Recipient   *MessageRecipient   `json:"recipient_state,omitempty" db:"-"`
}

func (m *Message) Sender() Actor {
	return Actor{ID: m.SenderID, Type: m.SenderType}
}

func (m *Message) Receiver() *Actor {
	if m.ReceiverID == nil || m.ReceiverType == nil {
		return nil
	}
	return &Actor{ID: *m.ReceiverID, Type: *m.ReceiverType}
}

func (m *Message) IsSentBy(a Actor) bool {
	return m.SenderID == a.ID && m.SenderType == a.Type
}

func (m *Message) IsDirectTo(a Actor) bool {
	r := m.Receiver()
	return m.MessageType == MessageDirect && r != nil && *r == a
}

type MessageRecipient struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	MessageID     uuid.UUID  `json:"message_id" db:"message_id"`
	RecipientID   uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	RecipientType UserType   `json:"recipient_type" db:"recipient_type"`
	IsRead        bool       `json:"is_read" db:"is_read"`
	IsArchived    bool       `json:"is_archived" db:"is_archived"`
	IsStarred     bool       `json:"is_starred" db:"is_starred"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
	DeletedAt     *time.Time `json:"-" db:"deleted_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type MessageAttachment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MessageID   uuid.UUID `json:"message_id" db:"message_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	MimeType    string    `json:"mime_type" db:"mime_type"`
	StoragePath string    `json:"-" db:"storage_path"`
	URL         string    `json:"url" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SendDirectMessageInput struct {
	Receiver Actor    `json:"receiver" validate:"required"`
	Subject  string   `json:"subject" validate:"required,max=255"`
	Body     string   `json:"body" validate:"required,max=10000"`
	Priority Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

type SendBroadcastInput struct {
	Recipients []Actor  `json:"recipients" validate:"required,min=1,dive"`
	Subject    string   `json:"subject" validate:"required,max=255"`
	Body       string   `json:"body" validate:"required,max=10000"`
	Priority   Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

type ReplyMessageInput struct {
	Body     string   `json:"body" validate:"required,max=10000"`
	Subject  string   `json:"subject,omitempty" validate:"omitempty,max=255"`
	Priority Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

// AttachmentUpload is an attachment still held by the caller; it is moved to
// object storage before the message transaction starts.
type AttachmentUpload struct {
	FileName string
	Size     int64
	MimeType string
	Open     func() (io.ReadCloser, error)
}

type InboxFilter struct {
	UnreadOnly bool
	Archived   bool
	Starred    bool
}

type MessageStats struct {
	Unread        int64 `json:"unread"`
	TotalReceived int64 `json:"total_received"`
	Sent          int64 `json:"sent"`
	Starred       int64 `json:"starred"`
	Archived      int64 `json:"archived"`
}
