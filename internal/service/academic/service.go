package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-erp/internal/domain"
	"campus-erp/internal/pkg/validation"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/notification"
	"campus-erp/internal/service/resolver"
)

type Service interface {
	CreateAssignment(ctx context.Context, teacher domain.Actor, input domain.CreateAssignmentInput) (*domain.Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	ListAssignments(ctx context.Context, actor domain.Actor, groupName string) ([]domain.Assignment, error)
	PublishAssignment(ctx context.Context, teacher domain.Actor, id uuid.UUID) (*domain.Assignment, error)

	CreateTest(ctx context.Context, teacher domain.Actor, input domain.CreateTestInput) (*domain.Test, error)
	GetTest(ctx context.Context, id uuid.UUID) (*domain.Test, error)
	ListTests(ctx context.Context, actor domain.Actor, groupName string) ([]domain.Test, error)
	PublishTest(ctx context.Context, teacher domain.Actor, id uuid.UUID) (*domain.Test, error)

	Submit(ctx context.Context, student domain.Actor, assignmentID uuid.UUID, input domain.SubmitInput) (*domain.Submission, error)
	ListSubmissions(ctx context.Context, teacher domain.Actor, assignmentID uuid.UUID) ([]domain.Submission, error)
	GradeSubmission(ctx context.Context, teacher domain.Actor, submissionID uuid.UUID, input domain.GradeInput) (*domain.Submission, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store    *repository.Store
	notifSvc notification.Service
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store *repository.Store, notifSvc notification.Service, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:    store,
		notifSvc: notifSvc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateAssignment(ctx context.Context, teacher domain.Actor, input domain.CreateAssignmentInput) (*domain.Assignment, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	a := &domain.Assignment{
		ID:          uuid.New(),
		TeacherID:   teacher.ID,
		GroupName:   input.GroupName,
		Title:       input.Title,
		Description: input.Description,
		DueAt:       utc(input.DueAt),
		CreatedAt:   s.now(),
	}
	if err := s.store.Academic.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return a, nil
}

func (s *service) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	return s.store.Academic.GetAssignment(ctx, id)
}

// ListAssignments shows drafts to staff only.
func (s *service) ListAssignments(ctx context.Context, actor domain.Actor, groupName string) ([]domain.Assignment, error) {
	return s.store.Academic.ListAssignmentsByGroup(ctx, groupName, !actor.IsStaff())
}

func (s *service) PublishAssignment(ctx context.Context, teacher domain.Actor, id uuid.UUID) (*domain.Assignment, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}

	var assignment *domain.Assignment
	var created []domain.Notification
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		a, err := repos.Academic.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkOwner(teacher, a.TeacherID); err != nil {
			return err
		}

		now := s.now()
		if err := repos.Academic.PublishAssignment(ctx, id, now); err != nil {
			return err
		}
		a.PublishedAt = &now
		assignment = a

		created, err = s.announce(ctx, repos, a.GroupName, domain.CreateNotificationInput{
			Type:    domain.NotifNewAssignment,
			Title:   "New assignment",
			Message: a.Title,
			Payload: domain.Payload{"assignment_id": a.ID.String(), "group_name": a.GroupName},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifSvc.Dispatch(created...)
	s.logger.Info("assignment published",
		zap.String("assignment_id", id.String()),
		zap.Int("notified", len(created)),
	)
	return assignment, nil
}

func (s *service) CreateTest(ctx context.Context, teacher domain.Actor, input domain.CreateTestInput) (*domain.Test, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	t := &domain.Test{
		ID:          uuid.New(),
		TeacherID:   teacher.ID,
		GroupName:   input.GroupName,
		Title:       input.Title,
		Description: input.Description,
		ScheduledAt: utc(input.ScheduledAt),
		DurationMin: input.DurationMin,
		CreatedAt:   s.now(),
	}
	if err := s.store.Academic.CreateTest(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}
	return t, nil
}

func (s *service) GetTest(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	return s.store.Academic.GetTest(ctx, id)
}

func (s *service) ListTests(ctx context.Context, actor domain.Actor, groupName string) ([]domain.Test, error) {
	return s.store.Academic.ListTestsByGroup(ctx, groupName, !actor.IsStaff())
}

func (s *service) PublishTest(ctx context.Context, teacher domain.Actor, id uuid.UUID) (*domain.Test, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}

	var test *domain.Test
	var created []domain.Notification
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		t, err := repos.Academic.GetTest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkOwner(teacher, t.TeacherID); err != nil {
			return err
		}

		now := s.now()
		if err := repos.Academic.PublishTest(ctx, id, now); err != nil {
			return err
		}
		t.PublishedAt = &now
		test = t

		created, err = s.announce(ctx, repos, t.GroupName, domain.CreateNotificationInput{
			Type:    domain.NotifNewTest,
			Title:   "New test",
			Message: t.Title,
			Payload: domain.Payload{"test_id": t.ID.String(), "group_name": t.GroupName},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifSvc.Dispatch(created...)
	return test, nil
}

func (s *service) announce(ctx context.Context, repos *repository.Repositories, group string, input domain.CreateNotificationInput) ([]domain.Notification, error) {
	students, err := resolver.ForRepositories(repos).Resolve(ctx, resolver.GroupPublishEvent{GroupName: group})
	if err != nil {
		return nil, err
	}
	return s.notifSvc.FanOutWith(ctx, repos.Notification, students, input)
}

// checkOwner lets admins act on any item and teachers on their own.
func (s *service) checkOwner(actor domain.Actor, teacherID uuid.UUID) error {
	if actor.Type == domain.UserTypeAdmin || actor.ID == teacherID {
		return nil
	}
	return domain.ErrForbidden
}

func (s *service) Submit(ctx context.Context, student domain.Actor, assignmentID uuid.UUID, input domain.SubmitInput) (*domain.Submission, error) {
	if student.Type != domain.UserTypeStudent {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var submission *domain.Submission
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		a, err := repos.Academic.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.PublishedAt == nil {
			return domain.ErrNotFound
		}
		st, err := repos.Student.GetByID(ctx, student.ID)
		if err != nil {
			return err
		}
		if st.GroupName != a.GroupName {
			return domain.ErrForbidden
		}

		if err := repos.Academic.UpsertSubmission(ctx, &domain.Submission{
			ID:           uuid.New(),
			AssignmentID: assignmentID,
			StudentID:    student.ID,
			Content:      input.Content,
			SubmittedAt:  s.now(),
		}); err != nil {
			return fmt.Errorf("failed to save submission: %w", err)
		}
		submission, err = repos.Academic.GetSubmissionFor(ctx, assignmentID, student.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *service) ListSubmissions(ctx context.Context, teacher domain.Actor, assignmentID uuid.UUID) ([]domain.Submission, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}
	a, err := s.store.Academic.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(teacher, a.TeacherID); err != nil {
		return nil, err
	}
	return s.store.Academic.ListSubmissions(ctx, assignmentID)
}

// GradeSubmission records the grade and tells the student, with high
// priority, in the same transaction.
func (s *service) GradeSubmission(ctx context.Context, teacher domain.Actor, submissionID uuid.UUID, input domain.GradeInput) (*domain.Submission, error) {
	if !teacher.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var submission *domain.Submission
	var notif *domain.Notification
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		sub, err := repos.Academic.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		a, err := repos.Academic.GetAssignment(ctx, sub.AssignmentID)
		if err != nil {
			return err
		}
		if err := s.checkOwner(teacher, a.TeacherID); err != nil {
			return err
		}

		now := s.now()
		if err := repos.Academic.GradeSubmission(ctx, submissionID, input.Grade, input.Feedback, now); err != nil {
			return err
		}
		grade := input.Grade
		sub.Grade = &grade
		sub.Feedback = input.Feedback
		sub.GradedAt = &now
		submission = sub

		student := domain.Actor{ID: sub.StudentID, Type: domain.UserTypeStudent}
		notif, err = s.notifSvc.WriteWith(ctx, repos.Notification, student, domain.CreateNotificationInput{
			Type:     domain.NotifAssignmentGraded,
			Title:    "Assignment graded",
			Message:  fmt.Sprintf("%s: %.1f", a.Title, input.Grade),
			Priority: domain.PriorityHigh,
			Payload: domain.Payload{
				"assignment_id": a.ID.String(),
				"submission_id": sub.ID.String(),
				"grade":         input.Grade,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifSvc.Dispatch(*notif)
	return submission, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
