package domain

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

type NotificationSettings struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	UserType         UserType         `json:"user_type" db:"user_type"`
	NotificationType NotificationType `json:"notification_type" db:"notification_type"`
	EmailEnabled     bool             `json:"email_enabled" db:"email_enabled"`
	PushEnabled      bool             `json:"push_enabled" db:"push_enabled"`
	SMSEnabled       bool             `json:"sms_enabled" db:"sms_enabled"`
	InAppEnabled     bool             `json:"in_app_enabled" db:"in_app_enabled"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

func DefaultSettings(owner Actor, t NotificationType) *NotificationSettings {
	return &NotificationSettings{
		ID:               uuid.New(),
		UserID:           owner.ID,
		UserType:         owner.Type,
		NotificationType: t,
		EmailEnabled:     true,
		PushEnabled:      true,
		SMSEnabled:       true,
		InAppEnabled:     true,
	}
}

func (s *NotificationSettings) Allows(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailEnabled
	case ChannelPush:
		return s.PushEnabled
	case ChannelSMS:
		return s.SMSEnabled
	case ChannelInApp:
		return s.InAppEnabled
	default:
		return false
	}
}

func (s *NotificationSettings) SetAll(enabled bool) {
	s.EmailEnabled = enabled
	s.PushEnabled = enabled
	s.SMSEnabled = enabled
	s.InAppEnabled = enabled
}

type UpdateSettingsInput struct {
	EmailEnabled *bool `json:"email_enabled,omitempty"`
	PushEnabled  *bool `json:"push_enabled,omitempty"`
	SMSEnabled   *bool `json:"sms_enabled,omitempty"`
	InAppEnabled *bool `json:"in_app_enabled,omitempty"`
}

func (in UpdateSettingsInput) Apply(s *NotificationSettings) {
	if in.EmailEnabled != nil {
		s.EmailEnabled = *in.EmailEnabled
	}
	if in.PushEnabled != nil {
		s.PushEnabled = *in.PushEnabled
	}
	if in.SMSEnabled != nil {
		s.SMSEnabled = *in.SMSEnabled
	}
	if in.InAppEnabled != nil {
		s.InAppEnabled = *in.InAppEnabled
	}
}
