package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/resolver"
	"campus-erp/internal/testutil"
)

type mockStudentRepository struct {
	mock.Mock
}

func (m *mockStudentRepository) Create(ctx context.Context, s *domain.Student) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

func (m *mockStudentRepository) ListActiveByGroup(ctx context.Context, groupName string) ([]domain.Student, error) {
	args := m.Called(ctx, groupName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Student), args.Error(1)
}

func TestResolve_Direct(t *testing.T) {
	store := testutil.NewTestStore(t)
	svc := resolver.ForRepositories(store.Repositories)
	receiver := testutil.Teacher()

	out, err := svc.Resolve(context.Background(), resolver.DirectMessageEvent{Receiver: receiver})
	require.NoError(t, err)
	assert.Equal(t, []domain.Actor{receiver}, out)
}

func TestResolve_Broadcast(t *testing.T) {
	store := testutil.NewTestStore(t)
	svc := resolver.ForRepositories(store.Repositories)
	recipients := []domain.Actor{testutil.Student(), testutil.Teacher()}

	out, err := svc.Resolve(context.Background(), resolver.BroadcastEvent{Recipients: recipients})
	require.NoError(t, err)
	assert.Equal(t, recipients, out)

	out[0] = testutil.Admin()
	assert.NotEqual(t, recipients[0], out[0])
}

func TestResolve_GroupPublish(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	svc := resolver.ForRepositories(store.Repositories)

	a := testutil.SeedStudent(t, store, "CS-101")
	b := testutil.SeedStudent(t, store, "CS-101")
	testutil.SeedStudent(t, store, "MATH-200")
	inactive := &domain.Student{
		ID: uuid.New(), FullName: "Gone", GroupName: "CS-101", IsActive: false, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Student.Create(ctx, inactive))

	out, err := svc.Resolve(ctx, resolver.GroupPublishEvent{GroupName: "CS-101"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Actor{a, b}, out)

	out, err = svc.Resolve(ctx, resolver.GroupPublishEvent{GroupName: "EMPTY"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolve_GroupPublishError(t *testing.T) {
	store := testutil.NewTestStore(t)
	students := new(mockStudentRepository)
	students.On("ListActiveByGroup", mock.Anything, "CS-101").Return(nil, errors.New("db down")).Once()

	svc := resolver.NewService(students, store.Forum)
	_, err := svc.Resolve(context.Background(), resolver.GroupPublishEvent{GroupName: "CS-101"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	students.AssertExpectations(t)
}

func TestResolve_ForumReply(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	svc := resolver.ForRepositories(store.Repositories)
	now := time.Now().UTC()

	author := testutil.Teacher()
	topic := &domain.ForumTopic{
		ID: uuid.New(), Title: "Exam prep", Body: "Questions here",
		AuthorID: author.ID, AuthorType: author.Type, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.Forum.CreateTopic(ctx, topic))

	subscribe := func(a domain.Actor, active bool) {
		require.NoError(t, store.Forum.UpsertSubscription(ctx, &domain.ForumSubscription{
			ID: uuid.New(), TopicID: topic.ID, UserID: a.ID, UserType: a.Type,
			IsActive: active, CreatedAt: now, UpdatedAt: now,
		}))
	}
	follower := testutil.Student()
	subscribe(author, true)
	subscribe(follower, true)
	subscribe(testutil.Student(), false)

	out, err := svc.Resolve(ctx, resolver.ForumReplyEvent{TopicID: topic.ID})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, author, out[0])
	assert.ElementsMatch(t, []domain.Actor{author, follower}, out[1:])

	_, err = svc.Resolve(ctx, resolver.ForumReplyEvent{TopicID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
