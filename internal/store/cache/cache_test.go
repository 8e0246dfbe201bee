package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/store/memory"
)

func sarah(t *testing.T) *profile.UserProfile {
	t.Helper()
	p, err := profile.New(profile.Record{ID: "1", DisplayName: "Sarah Chen", Skills: []string{"React"}})
	require.NoError(t, err)
	return p
}

func TestFallsThroughWhenRedisIsDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	core, logs := observer.New(zapcore.WarnLevel)

	s := New(memory.New(sarah(t)), client, time.Minute, "test", zap.New(core))
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	profiles, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Sarah Chen", profiles[0].DisplayName)

	require.NoError(t, s.Deactivate(ctx, "1"))

	assert.Equal(t, 1, logs.FilterMessage("reading cached snapshot failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("writing cached snapshot failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("invalidating cached snapshot failed").Len())
}

func TestRedisCache(t *testing.T) {
	_ = godotenv.Load(filepath.Join("..", "..", "..", ".env"))

	addr := os.Getenv("MATCHMAKER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis test: MATCHMAKER_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{Addr: addr})
	require.NoError(t, err)

	backend := memory.New(sarah(t))
	s := New(backend, client, time.Minute, fmt.Sprintf("test-%d", time.Now().UnixNano()), nil)
	t.Cleanup(func() {
		_ = client.Del(ctx, s.key).Err()
		_ = s.Close()
	})

	first, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a write that bypasses the cache stays invisible until the entry expires
	require.NoError(t, backend.Deactivate(ctx, "1"))
	cached, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, []string{"React"}, cached[0].Skills.Labels())

	// writes through the cache invalidate it
	require.NoError(t, s.UpsertProfiles(ctx, nil))
	fresh, err := s.ListActiveProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
