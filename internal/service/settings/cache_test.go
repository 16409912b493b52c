package settings_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
	"campus-erp/internal/service/settings"
	"campus-erp/internal/testutil"
)

type cachedFixture struct {
	svc   settings.Service
	store *repository.Store
	mr    *miniredis.Miniredis
}

func newCachedFixture(t *testing.T) *cachedFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := testutil.NewTestStore(t)
	clock := testutil.NewClock()
	svc := settings.NewService(store, nil,
		settings.WithClock(clock.Now),
		settings.WithCache(client, time.Minute),
	)
	return &cachedFixture{svc: svc, store: store, mr: mr}
}

func settingsKey(owner domain.Actor, notifType domain.NotificationType) string {
	return fmt.Sprintf("notif_settings:%s:%s:%s", owner.Type, owner.ID, notifType)
}

// disableEmailBehindCache changes the stored row without going through the
// service, so only a cache miss can observe it.
func (f *cachedFixture) disableEmailBehindCache(t *testing.T, owner domain.Actor, notifType domain.NotificationType) {
	t.Helper()
	ctx := context.Background()
	row, err := f.store.Settings.Get(ctx, owner, notifType)
	require.NoError(t, err)
	row.EmailEnabled = false
	require.NoError(t, f.store.Settings.Update(ctx, row))
}

func (f *cachedFixture) prime(t *testing.T, owner domain.Actor, notifType domain.NotificationType) {
	t.Helper()
	_, err := f.svc.GetOrCreate(context.Background(), owner, notifType)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(settingsKey(owner, notifType)))
}

func TestCache_ServesCachedRow(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)
	owner := testutil.Student()

	f.prime(t, owner, domain.NotifNewMessage)
	assert.Equal(t, time.Minute, f.mr.TTL(settingsKey(owner, domain.NotifNewMessage)))

	f.disableEmailBehindCache(t, owner, domain.NotifNewMessage)

	cached, err := f.svc.GetOrCreate(ctx, owner, domain.NotifNewMessage)
	require.NoError(t, err)
	assert.True(t, cached.EmailEnabled, "served from cache")

	f.mr.FastForward(2 * time.Minute)

	fresh, err := f.svc.GetOrCreate(ctx, owner, domain.NotifNewMessage)
	require.NoError(t, err)
	assert.False(t, fresh.EmailEnabled, "expired entry reloaded from the store")
}

func TestCache_UpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)
	owner := testutil.Teacher()

	f.prime(t, owner, domain.NotifForumReply)
	f.disableEmailBehindCache(t, owner, domain.NotifForumReply)

	_, err := f.svc.Update(ctx, owner, domain.NotifForumReply, domain.UpdateSettingsInput{PushEnabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(settingsKey(owner, domain.NotifForumReply)))

	allowed, err := f.svc.Allows(ctx, owner, domain.NotifForumReply, domain.ChannelPush)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = f.svc.Allows(ctx, owner, domain.NotifForumReply, domain.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCache_SetAllInvalidates(t *testing.T) {
	ctx := context.Background()

	for name, run := range map[string]func(settings.Service, domain.Actor) error{
		"EnableAll": func(svc settings.Service, owner domain.Actor) error {
			_, err := svc.EnableAll(ctx, owner)
			return err
		},
		"DisableAll": func(svc settings.Service, owner domain.Actor) error {
			_, err := svc.DisableAll(ctx, owner)
			return err
		},
	} {
		run := run
		t.Run(name, func(t *testing.T) {
			f := newCachedFixture(t)
			owner := testutil.Student()
			for _, nt := range domain.DefaultNotificationTypes {
				f.prime(t, owner, nt)
			}

			require.NoError(t, run(f.svc, owner))

			for _, nt := range domain.DefaultNotificationTypes {
				assert.False(t, f.mr.Exists(settingsKey(owner, nt)), nt)
			}
		})
	}

	f := newCachedFixture(t)
	owner := testutil.Student()
	f.prime(t, owner, domain.NotifNewAssignment)
	_, err := f.svc.DisableAll(ctx, owner)
	require.NoError(t, err)

	allowed, err := f.svc.Allows(ctx, owner, domain.NotifNewAssignment, domain.ChannelSMS)
	require.NoError(t, err)
	assert.False(t, allowed, "no stale enabled row after DisableAll")
}

func TestCache_ResetDropsCustomTypes(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)
	owner := testutil.Teacher()

	f.prime(t, owner, "club_news")
	f.prime(t, owner, domain.NotifSystem)
	before, err := f.store.Settings.Get(ctx, owner, "club_news")
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, owner, domain.NotifSystem, domain.UpdateSettingsInput{EmailEnabled: boolPtr(false)})
	require.NoError(t, err)
	f.prime(t, owner, domain.NotifSystem)

	_, err = f.svc.Reset(ctx, owner)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(settingsKey(owner, "club_news")))
	assert.False(t, f.mr.Exists(settingsKey(owner, domain.NotifSystem)))

	system, err := f.svc.GetOrCreate(ctx, owner, domain.NotifSystem)
	require.NoError(t, err)
	assert.True(t, system.EmailEnabled)

	club, err := f.svc.GetOrCreate(ctx, owner, "club_news")
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, club.ID, "custom row recreated rather than served stale")
}
