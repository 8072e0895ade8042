package promo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"coffee_bot/internal/logging"
	"coffee_bot/internal/metrics"
)

const latestImageKey = "coffee:image:latest"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore is a read-through Redis cache in front of another Store. Redis
// failures fall through to the inner store.
type CachedStore struct {
	inner  Store
	cache  redisClient
	ttl    time.Duration
	logger *logrus.Entry
}

// NewCachedStore wraps inner with a Redis cache of the latest image.
func NewCachedStore(inner Store, cache redisClient, ttl time.Duration, logger *logrus.Entry) *CachedStore {
	if logger == nil {
		logger = logging.Logger()
	}

	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedStore) Save(ctx context.Context, upload Upload) error {
	if s == nil || s.inner == nil || s.cache == nil {
		return errors.New("cached store is not initialized")
	}

	if err := s.inner.Save(ctx, upload); err != nil {
		return err
	}

	if err := s.cache.Del(ctx, latestImageKey).Err(); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "image_cache_error",
			"error": err,
		}).Warn("failed to invalidate cached image")
	}

	return nil
}

func (s *CachedStore) Latest(ctx context.Context) (Image, bool, error) {
	if s == nil || s.inner == nil || s.cache == nil {
		return Image{}, false, errors.New("cached store is not initialized")
	}

	raw, err := s.cache.Get(ctx, latestImageKey).Bytes()
	switch {
	case err == nil:
		var img Image
		if json.Unmarshal(raw, &img) == nil {
			metrics.IncImageCache("hit")
			return img, true, nil
		}
		metrics.IncImageCache("miss")
	case errors.Is(err, redis.Nil):
		metrics.IncImageCache("miss")
	default:
		metrics.IncImageCache("error")
		s.logger.WithFields(logging.Fields{
			"event": "image_cache_error",
			"error": err,
		}).Warn("failed to read cached image")
	}

	img, ok, err := s.inner.Latest(ctx)
	if err != nil || !ok {
		return img, ok, err
	}

	if payload, err := json.Marshal(img); err == nil {
		if err := s.cache.Set(ctx, latestImageKey, payload, s.ttl).Err(); err != nil {
			s.logger.WithFields(logging.Fields{
				"event": "image_cache_error",
				"error": err,
			}).Warn("failed to cache image")
		}
	}

	return img, true, nil
}
