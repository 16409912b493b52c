package domain

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	GroupName string    `json:"group_name" db:"group_name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (s *Student) Actor() Actor {
	return Actor{ID: s.ID, Type: UserTypeStudent}
}

type Assignment struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TeacherID   uuid.UUID  `json:"teacher_id" db:"teacher_id"`
	GroupName   string     `json:"group_name" db:"group_name"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type Test struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TeacherID   uuid.UUID  `json:"teacher_id" db:"teacher_id"`
	GroupName   string     `json:"group_name" db:"group_name"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	DurationMin int        `json:"duration_minutes" db:"duration_minutes"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type Submission struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	AssignmentID uuid.UUID  `json:"assignment_id" db:"assignment_id"`
	StudentID    uuid.UUID  `json:"student_id" db:"student_id"`
	Content      string     `json:"content" db:"content"`
	Grade        *float64   `json:"grade,omitempty" db:"grade"`
	Feedback     *string    `json:"feedback,omitempty" db:"feedback"`
	SubmittedAt  time.Time  `json:"submitted_at" db:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at,omitempty" db:"graded_at"`
}

type CreateAssignmentInput struct {
	GroupName   string     `json:"group_name" validate:"required,max=64"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=10000"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type CreateTestInput struct {
	GroupName   string     `json:"group_name" validate:"required,max=64"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=10000"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	DurationMin int        `json:"duration_minutes" validate:"gte=0,lte=600"`
}

type SubmitInput struct {
	Content string `json:"content" validate:"required,max=50000"`
}

type GradeInput struct {
	Grade    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback *string `json:"feedback,omitempty" validate:"omitempty,max=5000"`
}
