package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/delivery"
)

type mockChannel struct {
	mock.Mock
	kind domain.Channel
}

func (m *mockChannel) Kind() domain.Channel { return m.kind }

func (m *mockChannel) Send(ctx context.Context, n domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) Allows(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, ch domain.Channel) (bool, error) {
	args := m.Called(ctx, owner, notifType, ch)
	return args.Bool(0), args.Error(1)
}

func newNotification() domain.Notification {
	return domain.Notification{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		UserType: domain.UserTypeStudent,
		Type:     domain.NotifNewMessage,
		Title:    "New message",
		Message:  "Homework",
		Priority: domain.PriorityNormal,
	}
}

func TestDispatcher_Gating(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := newNotification()

	email := &mockChannel{kind: domain.ChannelEmail}
	push := &mockChannel{kind: domain.ChannelPush}
	sms := &mockChannel{kind: domain.ChannelSMS}

	gate := new(mockGate)
	gate.On("Allows", mock.Anything, n.Owner(), n.Type, domain.ChannelEmail).Return(true, nil).Once()
	gate.On("Allows", mock.Anything, n.Owner(), n.Type, domain.ChannelPush).Return(false, nil).Once()
	gate.On("Allows", mock.Anything, n.Owner(), n.Type, domain.ChannelSMS).Return(false, errors.New("cache down")).Once()

	email.On("Send", mock.Anything, n).Return(nil).Once()

	d := delivery.NewDispatcher(gate, []delivery.Channel{email, push, sms}, time.Second, nil)
	d.Dispatch(n)
	d.Wait()

	gate.AssertExpectations(t)
	email.AssertExpectations(t)
	push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	sms.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatcher_ChannelErrorDoesNotStopOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := newNotification()

	email := &mockChannel{kind: domain.ChannelEmail}
	push := &mockChannel{kind: domain.ChannelPush}
	email.On("Send", mock.Anything, n).Return(errors.New("smtp refused")).Once()
	push.On("Send", mock.Anything, n).Return(nil).Once()

	gate := new(mockGate)
	gate.On("Allows", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	d := delivery.NewDispatcher(gate, []delivery.Channel{email, push}, time.Second, nil)
	d.Dispatch(n)
	d.Wait()

	email.AssertExpectations(t)
	push.AssertExpectations(t)
}

func TestDispatcher_EveryNotification(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b := newNotification(), newNotification()

	push := &mockChannel{kind: domain.ChannelPush}
	push.On("Send", mock.Anything, a).Return(nil).Once()
	push.On("Send", mock.Anything, b).Return(nil).Once()

	gate := new(mockGate)
	gate.On("Allows", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	d := delivery.NewDispatcher(gate, []delivery.Channel{push}, time.Second, nil)
	d.Dispatch(a, b)
	d.Wait()

	push.AssertNumberOfCalls(t, "Send", 2)
}

func TestDispatcher_NoChannels(t *testing.T) {
	gate := new(mockGate)
	d := delivery.NewDispatcher(gate, nil, 0, nil)
	d.Dispatch(newNotification())
	d.Wait()

	gate.AssertNotCalled(t, "Allows", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNoopDispatcher(t *testing.T) {
	d := delivery.NewNoopDispatcher()
	assert.NotPanics(t, func() {
		d.Dispatch(newNotification())
		d.Wait()
	})
}
