package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"campus-erp/internal/domain"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so every repository can
// run inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type Repositories struct {
	Notification NotificationRepository
	Settings     SettingsRepository
	Message      MessageRepository
	Forum        ForumRepository
	Student      StudentRepository
	Academic     AcademicRepository
}

func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Notification: NewNotificationRepository(db),
		Settings:     NewSettingsRepository(db),
		Message:      NewMessageRepository(db),
		Forum:        NewForumRepository(db),
		Student:      NewStudentRepository(db),
		Academic:     NewAcademicRepository(db),
	}
}

// Transactor runs fn with repositories bound to a single transaction. The
// transaction commits only if fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type Store struct {
	*Repositories
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		Repositories: NewRepositories(db),
		db:           db,
	}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const notExpired = `(expires_at IS NULL OR expires_at > ?)`
