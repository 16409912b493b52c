package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/delivery"
	"campus-erp/internal/testutil"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

type staticAddressBook map[domain.Actor]string

func (b staticAddressBook) EmailFor(_ context.Context, a domain.Actor) (string, error) {
	if addr, ok := b[a]; ok {
		return addr, nil
	}
	return "", delivery.ErrNoAddress
}

func TestEmailChannel_Send(t *testing.T) {
	ctx := context.Background()
	n := newNotification()
	n.Message = "<b>Read chapter 4</b>"

	sender := new(mockEmailSender)
	sender.On("Send", mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
		return len(p.To) == 1 && p.To[0] == "ada@example.com" &&
			p.Subject == n.Title &&
			p.From == "Campus <noreply@campus.test>"
	})).Return(&resend.SendEmailResponse{Id: "email-1"}, nil).Once()

	ch := delivery.NewEmailChannelWithSender(sender, "noreply@campus.test", staticAddressBook{n.Owner(): "ada@example.com"})
	assert.Equal(t, domain.ChannelEmail, ch.Kind())
	require.NoError(t, ch.Send(ctx, n))
	sender.AssertExpectations(t)

	req := sender.Calls[0].Arguments.Get(0).(*resend.SendEmailRequest)
	assert.Contains(t, req.Html, "&lt;b&gt;Read chapter 4&lt;/b&gt;")
	assert.Contains(t, req.Html, n.Title)
}

func TestEmailChannel_NoAddressIsSkipped(t *testing.T) {
	sender := new(mockEmailSender)
	ch := delivery.NewEmailChannelWithSender(sender, "noreply@campus.test", staticAddressBook{})

	require.NoError(t, ch.Send(context.Background(), newNotification()))
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestEmailChannel_SenderError(t *testing.T) {
	n := newNotification()
	sender := new(mockEmailSender)
	sender.On("Send", mock.Anything).Return(nil, errors.New("rate limited")).Once()

	ch := delivery.NewEmailChannelWithSender(sender, "noreply@campus.test", staticAddressBook{n.Owner(): "ada@example.com"})
	assert.EqualError(t, ch.Send(context.Background(), n), "rate limited")
}

func TestStudentDirectory(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	dir := delivery.StudentDirectory{Students: store.Student}

	student := &domain.Student{
		ID: uuid.New(), FullName: "Ada", Email: "ada@example.com", GroupName: "CS-101",
		IsActive: true, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Student.Create(ctx, student))

	addr, err := dir.EmailFor(ctx, student.Actor())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", addr)

	_, err = dir.EmailFor(ctx, testutil.Teacher())
	assert.ErrorIs(t, err, delivery.ErrNoAddress)

	_, err = dir.EmailFor(ctx, testutil.Student())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
