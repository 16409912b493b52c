package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/settings"
	"campus-erp/internal/testutil"
)

func boolPtr(b bool) *bool { return &b }

func newService(t *testing.T) settings.Service {
	clock := testutil.NewClock()
	return settings.NewService(testutil.NewTestStore(t), nil, settings.WithClock(clock.Now))
}

func TestService_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := testutil.Teacher()

	t.Run("Lazily Creates Defaults", func(t *testing.T) {
		s, err := svc.GetOrCreate(ctx, owner, domain.NotifNewMessage)
		require.NoError(t, err)
		assert.True(t, s.EmailEnabled)
		assert.True(t, s.PushEnabled)
		assert.True(t, s.SMSEnabled)
		assert.True(t, s.InAppEnabled)

		again, err := svc.GetOrCreate(ctx, owner, domain.NotifNewMessage)
		require.NoError(t, err)
		assert.Equal(t, s.ID, again.ID)

		list, err := svc.List(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("Custom Type", func(t *testing.T) {
		s, err := svc.GetOrCreate(ctx, owner, "club_news")
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationType("club_news"), s.NotificationType)
	})

	t.Run("Invalid Type", func(t *testing.T) {
		_, err := svc.GetOrCreate(ctx, owner, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	list, err := svc.List(ctx, testutil.Student())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := testutil.Student()

	s, err := svc.Update(ctx, owner, domain.NotifForumReply, domain.UpdateSettingsInput{EmailEnabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, s.EmailEnabled)
	assert.True(t, s.PushEnabled)

	allowed, err := svc.Allows(ctx, owner, domain.NotifForumReply, domain.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = svc.Allows(ctx, owner, domain.NotifForumReply, domain.ChannelPush)
	require.NoError(t, err)
	assert.True(t, allowed)

	// other owners are untouched
	allowed, err = svc.Allows(ctx, testutil.Student(), domain.NotifForumReply, domain.ChannelEmail)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestService_EnableDisableAll(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := testutil.Admin()

	rows, err := svc.DisableAll(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, rows, len(domain.DefaultNotificationTypes))
	for _, r := range rows {
		assert.False(t, r.EmailEnabled)
		assert.False(t, r.PushEnabled)
		assert.False(t, r.SMSEnabled)
		assert.False(t, r.InAppEnabled)
	}

	_, err = svc.GetOrCreate(ctx, owner, "club_news")
	require.NoError(t, err)

	rows, err = svc.EnableAll(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, rows, len(domain.DefaultNotificationTypes)+1)
	for _, r := range rows {
		assert.True(t, r.EmailEnabled)
		assert.True(t, r.InAppEnabled)
	}
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := testutil.Student()

	_, err := svc.Update(ctx, owner, "club_news", domain.UpdateSettingsInput{SMSEnabled: boolPtr(false)})
	require.NoError(t, err)
	_, err = svc.Update(ctx, owner, domain.NotifSystem, domain.UpdateSettingsInput{PushEnabled: boolPtr(false)})
	require.NoError(t, err)

	rows, err := svc.Reset(ctx, owner)
	require.NoError(t, err)
	require.Len(t, rows, len(domain.DefaultNotificationTypes))
	for _, r := range rows {
		assert.NotEqual(t, domain.NotificationType("club_news"), r.NotificationType)
		assert.True(t, r.PushEnabled)
		assert.True(t, r.SMSEnabled)
	}
}
