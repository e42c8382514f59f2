package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"taskshare/backend/internal/cache"
	"taskshare/backend/internal/models"
)

// CachedTaskStore decorates a TaskStore with a Redis point-read cache.
// Relation queries always hit the backing store; any write invalidates the
// cached record. Cache failures are never surfaced: a broken cache behaves
// like a permanent miss, with a circuit breaker keeping a dead Redis from
// adding latency to every read.
type CachedTaskStore struct {
	inner   TaskStore
	cache   *cache.RedisCache
	breaker *cache.CircuitBreaker
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedTaskStore(inner TaskStore, redisCache *cache.RedisCache, ttl time.Duration) *CachedTaskStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedTaskStore{
		inner:   inner,
		cache:   redisCache,
		breaker: cache.NewCircuitBreaker(nil),
		ttl:     ttl,
	}
}

func taskKey(id string) string { return fmt.Sprintf("task:%s", id) }

func (s *CachedTaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var cached models.Task
	err := s.breaker.Execute(func() error {
		return s.cache.Get(taskKey(id), &cached)
	})
	if err == nil {
		s.hits.Add(1)
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCircuitBreakerOpen) {
		// Broken cache entry or transport error: fall through to the store.
		_ = s.cache.Delete(taskKey(id))
	}
	s.misses.Add(1)

	task, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.breaker.Execute(func() error {
		return s.cache.Set(taskKey(id), task, s.ttl)
	})
	return task, nil
}

func (s *CachedTaskStore) Create(ctx context.Context, task *models.Task) error {
	return s.inner.Create(ctx, task)
}

func (s *CachedTaskStore) Patch(ctx context.Context, id string, patch models.TaskPatch) error {
	if err := s.inner.Patch(ctx, id, patch); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *CachedTaskStore) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *CachedTaskStore) QueryOwned(ctx context.Context, userID string) ([]models.Task, error) {
	return s.inner.QueryOwned(ctx, userID)
}

func (s *CachedTaskStore) QueryCollaborating(ctx context.Context, userID string) ([]models.Task, error) {
	return s.inner.QueryCollaborating(ctx, userID)
}

func (s *CachedTaskStore) QueryAssigned(ctx context.Context, userID string) ([]models.Task, error) {
	return s.inner.QueryAssigned(ctx, userID)
}

func (s *CachedTaskStore) QueryDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	return s.inner.QueryDueBetween(ctx, from, to)
}

func (s *CachedTaskStore) invalidate(id string) {
	_ = s.breaker.Execute(func() error {
		return s.cache.Delete(taskKey(id))
	})
}

func (s *CachedTaskStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"hits":   s.hits.Load(),
		"misses": s.misses.Load(),
	}
}
