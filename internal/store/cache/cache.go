// Package cache keeps the active profile list of a backend in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/store"
)

const (
	DefaultTTL    = 30 * time.Second
	DefaultPrefix = "matchmaker"
)

// Config describes the Redis connection.
type Config struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// NewClient creates a Redis client and checks the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Store serves ListActiveProfiles from Redis and falls through to the
// wrapped backend on a miss. Redis failures are logged and never returned,
// so the cache can only make reads faster, not fail them.
type Store struct {
	next   store.Backend
	client redis.UniversalClient
	ttl    time.Duration
	key    string
	logger *zap.Logger
}

func New(next store.Backend, client redis.UniversalClient, ttl time.Duration, prefix string, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		next:   next,
		client: client,
		ttl:    ttl,
		key:    prefix + ":profiles:active",
		logger: logger,
	}
}

func (s *Store) ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	switch {
	case err == nil:
		var profiles []*profile.UserProfile
		if err := json.Unmarshal(data, &profiles); err == nil {
			s.logger.Debug("profile snapshot served from cache", zap.Int("profiles", len(profiles)))
			return profiles, nil
		}
		s.logger.Warn("dropping unreadable cached snapshot", zap.Error(err))
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("reading cached snapshot failed", zap.Error(err))
	}

	profiles, err := s.next.ListActiveProfiles(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profiles); err != nil {
		s.logger.Warn("encoding snapshot for cache failed", zap.Error(err))
	} else if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("writing cached snapshot failed", zap.Error(err))
	}

	return profiles, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*profile.UserProfile, error) {
	return s.next.GetProfile(ctx, id)
}

func (s *Store) UpsertProfiles(ctx context.Context, profiles []*profile.UserProfile) error {
	if err := s.next.UpsertProfiles(ctx, profiles); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	if err := s.next.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) invalidate(ctx context.Context) {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Warn("invalidating cached snapshot failed", zap.Error(err))
	}
}

// Close closes the wrapped backend and the Redis client.
func (s *Store) Close() error {
	return errors.Join(s.next.Close(), s.client.Close())
}
