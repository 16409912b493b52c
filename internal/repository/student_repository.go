package repository

import (
	"context"

	"github.com/google/uuid"

	"campus-erp/internal/domain"
)

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	ListActiveByGroup(ctx context.Context, groupName string) ([]domain.Student, error)
}

type studentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, s *domain.Student) error {
	query := r.db.Rebind(`
		INSERT INTO students (id, full_name, email, group_name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.FullName, s.Email, s.GroupName, s.IsActive, s.CreatedAt)
	return err
}

func (r *studentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	var s domain.Student
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT * FROM students WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *studentRepository) ListActiveByGroup(ctx context.Context, groupName string) ([]domain.Student, error) {
	students := []domain.Student{}
	query := r.db.Rebind(`SELECT * FROM students WHERE group_name = ? AND is_active = ? ORDER BY full_name, id`)
	err := r.db.SelectContext(ctx, &students, query, groupName, true)
	return students, err
}
