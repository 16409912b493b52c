package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
)

// NewTestDB opens an in-memory SQLite database with all migrations applied.
// It is closed automatically when the test completes.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err, "opening test database")

	// Every connection to :memory: gets its own database.
	db.SetMaxOpenConns(1)

	require.NoError(t, repository.Migrate(db), "migrating test database")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	return db
}

// NewTestStore wraps NewTestDB in a repository.Store.
func NewTestStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(NewTestDB(t))
}

func Student() domain.Actor {
	return domain.Actor{ID: uuid.New(), Type: domain.UserTypeStudent}
}

func Teacher() domain.Actor {
	return domain.Actor{ID: uuid.New(), Type: domain.UserTypeTeacher}
}

func Admin() domain.Actor {
	return domain.Actor{ID: uuid.New(), Type: domain.UserTypeAdmin}
}

// SeedStudent inserts an active student in the given group.
func SeedStudent(t *testing.T, store *repository.Store, group string) domain.Actor {
	t.Helper()

	s := &domain.Student{
		ID:        uuid.New(),
		FullName:  "Student " + group,
		Email:     "student@example.com",
		GroupName: group,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Student.Create(context.Background(), s))
	return s.Actor()
}

// Clock is a manually advanced time source for services under test.
type Clock struct {
	Current time.Time
}

func NewClock() *Clock {
	return &Clock{Current: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	return c.Current
}

func (c *Clock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
