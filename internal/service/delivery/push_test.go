package delivery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/delivery"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(message string, params *types.Params) []error {
	args := m.Called(message, params)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]error)
}

type factoryRecorder struct {
	urls   []string
	sender delivery.Sender
	err    error
}

func (f *factoryRecorder) create(urls ...string) (delivery.Sender, error) {
	f.urls = urls
	if f.err != nil {
		return nil, f.err
	}
	return f.sender, nil
}

func TestShoutrrrChannel_Send(t *testing.T) {
	n := newNotification()

	sender := new(mockSender)
	sender.On("Send", n.Message, mock.MatchedBy(func(p *types.Params) bool {
		title, ok := p.Title()
		return ok && title == n.Title
	})).Return(nil).Once()

	factory := &factoryRecorder{sender: sender}
	ch := delivery.NewShoutrrrChannel(domain.ChannelPush, []string{
		"ntfy://ntfy.example.com/campus-{user_type}-{user_id}",
	}, factory.create)

	assert.Equal(t, domain.ChannelPush, ch.Kind())
	require.NoError(t, ch.Send(context.Background(), n))
	sender.AssertExpectations(t)

	require.Len(t, factory.urls, 1)
	assert.Equal(t, "ntfy://ntfy.example.com/campus-student-"+n.UserID.String(), factory.urls[0])
}

func TestShoutrrrChannel_Errors(t *testing.T) {
	n := newNotification()

	t.Run("Send Errors Joined", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("Send", mock.Anything, mock.Anything).Return([]error{nil, errors.New("gateway timeout")}).Once()

		factory := &factoryRecorder{sender: sender}
		ch := delivery.NewShoutrrrChannel(domain.ChannelSMS, []string{"generic://a", "generic://b"}, factory.create)

		err := ch.Send(context.Background(), n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway timeout")
	})

	t.Run("Bad URL", func(t *testing.T) {
		factory := &factoryRecorder{err: errors.New("unknown service")}
		ch := delivery.NewShoutrrrChannel(domain.ChannelSMS, []string{"nope://"}, factory.create)

		err := ch.Send(context.Background(), n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create sms sender")
	})

	t.Run("No URLs", func(t *testing.T) {
		factory := &factoryRecorder{}
		ch := delivery.NewShoutrrrChannel(domain.ChannelPush, nil, factory.create)

		require.NoError(t, ch.Send(context.Background(), n))
		assert.Nil(t, factory.urls)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		factory := &factoryRecorder{sender: new(mockSender)}
		ch := delivery.NewShoutrrrChannel(domain.ChannelPush, []string{"generic://a"}, factory.create)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, ch.Send(ctx, n), context.Canceled)
	})
}
