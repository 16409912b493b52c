package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	UserType  UserType         `json:"user_type" db:"user_type"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Payload   Payload          `json:"payload,omitempty" db:"payload"`
	Priority  Priority         `json:"priority" db:"priority"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

func (n *Notification) Owner() Actor {
	return Actor{ID: n.UserID, Type: n.UserType}
}

func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

type NotificationType string

const (
	NotifNewMessage       NotificationType = "new_message"
	NotifNewBroadcast     NotificationType = "new_broadcast"
	NotifForumReply       NotificationType = "forum_reply"
	NotifNewAssignment    NotificationType = "new_assignment"
	NotifNewTest          NotificationType = "new_test"
	NotifAssignmentGraded NotificationType = "assignment_graded"
	NotifSystem           NotificationType = "system"
)

// DefaultNotificationTypes is the fixed set recreated by a settings reset.
var DefaultNotificationTypes = []NotificationType{
	NotifNewMessage,
	NotifNewBroadcast,
	NotifForumReply,
	NotifNewAssignment,
	NotifNewTest,
	NotifAssignmentGraded,
	NotifSystem,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type CreateNotificationInput struct {
	Type      NotificationType `json:"type" validate:"required,max=64"`
	Title     string           `json:"title" validate:"required,max=255"`
	Message   string           `json:"message" validate:"required,max=2000"`
	Payload   Payload          `json:"payload,omitempty"`
	Priority  Priority         `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// SystemNotificationInput is what an admin posts to notify an explicit
// recipient list.
type SystemNotificationInput struct {
	Recipients []Actor `json:"recipients" validate:"required,min=1,dive"`
	CreateNotificationInput
}

type NotificationFilter struct {
	UnreadOnly bool
	Type       *NotificationType
	Priority   *Priority
}

type NotificationStats struct {
	Total            int64              `json:"total"`
	Unread           int64              `json:"unread"`
	UnreadByPriority map[Priority]int64 `json:"unread_by_priority"`
}
