package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
)

type AcademicRepository interface {
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	ListAssignmentsByGroup(ctx context.Context, groupName string, publishedOnly bool) ([]domain.Assignment, error)
	PublishAssignment(ctx context.Context, id uuid.UUID, now time.Time) error

	CreateTest(ctx context.Context, t *domain.Test) error
	GetTest(ctx context.Context, id uuid.UUID) (*domain.Test, error)
	ListTestsByGroup(ctx context.Context, groupName string, publishedOnly bool) ([]domain.Test, error)
	PublishTest(ctx context.Context, id uuid.UUID, now time.Time) error

	UpsertSubmission(ctx context.Context, s *domain.Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	GetSubmissionFor(ctx context.Context, assignmentID, studentID uuid.UUID) (*domain.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID uuid.UUID) ([]domain.Submission, error)
	GradeSubmission(ctx context.Context, id uuid.UUID, grade float64, feedback *string, now time.Time) error
}

type academicRepository struct {
	db DBTX
}

func NewAcademicRepository(db DBTX) AcademicRepository {
	return &academicRepository{db: db}
}

func (r *academicRepository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := r.db.Rebind(`
		INSERT INTO assignments (id, teacher_id, group_name, title, description, due_at, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.TeacherID, a.GroupName, a.Title, a.Description, a.DueAt, a.PublishedAt, a.CreatedAt)
	return err
}

func (r *academicRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := r.db.GetContext(ctx, &a, r.db.Rebind(`SELECT * FROM assignments WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *academicRepository) ListAssignmentsByGroup(ctx context.Context, groupName string, publishedOnly bool) ([]domain.Assignment, error) {
	assignments := []domain.Assignment{}
	query := `SELECT * FROM assignments WHERE group_name = ?`
	if publishedOnly {
		query += ` AND published_at IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	err := r.db.SelectContext(ctx, &assignments, r.db.Rebind(query), groupName)
	return assignments, err
}

// PublishAssignment stamps published_at once. A second publish reports
// ErrConflict so callers never fan out the same announcement twice.
func (r *academicRepository) PublishAssignment(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.publish(ctx, "assignments", id, now)
}

func (r *academicRepository) CreateTest(ctx context.Context, t *domain.Test) error {
	query := r.db.Rebind(`
		INSERT INTO tests (id, teacher_id, group_name, title, description, scheduled_at, duration_minutes, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.TeacherID, t.GroupName, t.Title, t.Description, t.ScheduledAt, t.DurationMin, t.PublishedAt, t.CreatedAt,
	)
	return err
}

func (r *academicRepository) GetTest(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	var t domain.Test
	if err := r.db.GetContext(ctx, &t, r.db.Rebind(`SELECT * FROM tests WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *academicRepository) ListTestsByGroup(ctx context.Context, groupName string, publishedOnly bool) ([]domain.Test, error) {
	tests := []domain.Test{}
	query := `SELECT * FROM tests WHERE group_name = ?`
	if publishedOnly {
		query += ` AND published_at IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	err := r.db.SelectContext(ctx, &tests, r.db.Rebind(query), groupName)
	return tests, err
}

func (r *academicRepository) PublishTest(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.publish(ctx, "tests", id, now)
}

func (r *academicRepository) publish(ctx context.Context, table string, id uuid.UUID, now time.Time) error {
	query := r.db.Rebind(`UPDATE ` + table + ` SET published_at = ? WHERE id = ? AND published_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) > 0 FROM `+table+` WHERE id = ?`), id); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *academicRepository) UpsertSubmission(ctx context.Context, s *domain.Submission) error {
	query := r.db.Rebind(`
		INSERT INTO submissions (id, assignment_id, student_id, content, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (assignment_id, student_id)
		DO UPDATE SET content = excluded.content, submitted_at = excluded.submitted_at`)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.AssignmentID, s.StudentID, s.Content, s.SubmittedAt)
	return err
}

func (r *academicRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT * FROM submissions WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *academicRepository) GetSubmissionFor(ctx context.Context, assignmentID, studentID uuid.UUID) (*domain.Submission, error) {
	var s domain.Submission
	query := r.db.Rebind(`SELECT * FROM submissions WHERE assignment_id = ? AND student_id = ?`)
	if err := r.db.GetContext(ctx, &s, query, assignmentID, studentID); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *academicRepository) ListSubmissions(ctx context.Context, assignmentID uuid.UUID) ([]domain.Submission, error) {
	submissions := []domain.Submission{}
	query := r.db.Rebind(`SELECT * FROM submissions WHERE assignment_id = ? ORDER BY submitted_at ASC, id ASC`)
	err := r.db.SelectContext(ctx, &submissions, query, assignmentID)
	return submissions, err
}

func (r *academicRepository) GradeSubmission(ctx context.Context, id uuid.UUID, grade float64, feedback *string, now time.Time) error {
	query := r.db.Rebind(`UPDATE submissions SET grade = ?, feedback = ?, graded_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, grade, feedback, now, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
