package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "PUSH_URLS", "NOTIFICATION_TTL", "MINIO_USE_SSL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Empty(t, cfg.PushURLs)
	assert.Zero(t, cfg.NotificationTTL)
	assert.False(t, cfg.MinIOUseSSL)
	assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PUSH_URLS", " ntfy://ntfy.example.com/campus-{user_id} , ,gotify://gotify.example.com/token ")
	t.Setenv("NOTIFICATION_TTL", "720h")
	t.Setenv("MAX_ATTACHMENT_SIZE", "2048")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()
	assert.Equal(t, []string{"ntfy://ntfy.example.com/campus-{user_id}", "gotify://gotify.example.com/token"}, cfg.PushURLs)
	assert.Equal(t, 720*time.Hour, cfg.NotificationTTL)
	assert.Equal(t, int64(2048), cfg.MaxAttachmentSize)
	assert.True(t, cfg.MinIOUseSSL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DELIVERY_TIMEOUT", "soon")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout)
	assert.False(t, cfg.MinIOUseSSL)
}

func TestNewDB(t *testing.T) {
	_, err := NewDB(&Config{DatabaseDriver: "mysql"})
	assert.Error(t, err)

	db, err := NewDB(&Config{DatabaseDriver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping())
}

func TestOptionalClients(t *testing.T) {
	redis, err := NewRedisClient(&Config{})
	require.NoError(t, err)
	assert.Nil(t, redis)

	minio, err := NewMinIOClient(&Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, minio)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(&Config{RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	_, err = NewRedisClient(&Config{RedisURL: "not a url"})
	assert.Error(t, err)

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(&Config{RedisURL: "redis://" + addr})
	assert.Error(t, err)
}
