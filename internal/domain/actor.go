package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeTeacher UserType = "teacher"
	UserTypeAdmin   UserType = "admin"
)

func (t UserType) IsValid() bool {
	switch t {
	case UserTypeStudent, UserTypeTeacher, UserTypeAdmin:
		return true
	default:
		return false
	}
}

func ParseUserType(s string) (UserType, error) {
	t := UserType(s)
	if !t.IsValid() {
		return "", NewValidationError(map[string]string{"user_type": fmt.Sprintf("unknown user type %q", s)})
	}
	return t, nil
}

// Actor identifies the owner of a row: the pair (user_id, user_type) is
// resolved once at the authentication boundary and passed explicitly.
type Actor struct {
	ID   uuid.UUID `json:"id" db:"user_id" validate:"required"`
	Type UserType  `json:"type" db:"user_type" validate:"required,oneof=student teacher admin"`
}

func NewActor(id uuid.UUID, t UserType) Actor {
	return Actor{ID: id, Type: t}
}

func (a Actor) String() string {
	return string(a.Type) + ":" + a.ID.String()
}

func (a Actor) IsStaff() bool {
	return a.Type == UserTypeTeacher || a.Type == UserTypeAdmin
}
