// Package cache keeps recently read listening data in Redis in front of a
// slower compat.Source.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yogendrarau/Matchify/internal/compat"
)

const keyPrefix = "matchify:profile:"

const DefaultTTL = 15 * time.Minute

// Source serves profiles and top lists from Redis, reading through to the
// wrapped source on a miss. Redis failures are logged and bypassed.
type Source struct {
	next  compat.Source
	redis *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

type Option func(*Source)

func WithTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

func New(next compat.Source, rdb *redis.Client, opts ...Option) *Source {
	s := &Source{next: next, redis: rdb, ttl: DefaultTTL, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient connects to the Redis server at addr.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func key(kind, user string, tr compat.TimeRange) string {
	return keyPrefix + kind + ":" + user + ":" + string(tr)
}

func (s *Source) Profile(ctx context.Context, user string, tr compat.TimeRange) (compat.UserMusicProfile, error) {
	return cached(ctx, s, key("full", user, tr), func() (compat.UserMusicProfile, error) {
		return s.next.Profile(ctx, user, tr)
	})
}

func (s *Source) TopArtists(ctx context.Context, user string, tr compat.TimeRange) ([]compat.RankedItem, error) {
	return cached(ctx, s, key("artists", user, tr), func() ([]compat.RankedItem, error) {
		return s.next.TopArtists(ctx, user, tr)
	})
}

func (s *Source) TopTracks(ctx context.Context, user string, tr compat.TimeRange) ([]compat.RankedItem, error) {
	return cached(ctx, s, key("tracks", user, tr), func() ([]compat.RankedItem, error) {
		return s.next.TopTracks(ctx, user, tr)
	})
}

// Invalidate drops every cached entry of the user for the time range.
func (s *Source) Invalidate(ctx context.Context, user string, tr compat.TimeRange) error {
	keys := []string{key("full", user, tr), key("artists", user, tr), key("tracks", user, tr)}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating %q: %w", user, err)
	}
	return nil
}

func cached[T any](ctx context.Context, s *Source, k string, load func() (T, error)) (T, error) {
	var v T
	data, err := s.redis.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		s.log.Warn().Str("key", k).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		s.log.Warn().Err(err).Str("key", k).Msg("cache read failed")
	}

	v, err = load()
	if err != nil {
		return v, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", k).Msg("encoding cache entry")
		return v, nil
	}
	if err := s.redis.Set(ctx, k, data, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", k).Msg("cache write failed")
	}
	return v, nil
}

var _ compat.Source = (*Source)(nil)
