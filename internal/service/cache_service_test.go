package service

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	_, hit := svc.Get(ctx, "notice:pdf:1:100")
	assert.False(t, hit)

	svc.Set(ctx, "notice:pdf:1:100", []byte("pdf"), 0)
	value, hit := svc.Get(ctx, "notice:pdf:1:100")
	assert.True(t, hit)
	assert.Equal(t, []byte("pdf"), value)

	svc.Invalidate(ctx, "notice:pdf:1:*")
	assert.False(t, repo.has("notice:pdf:1:100"))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "k", []byte("v"), time.Minute)
	assert.False(t, repo.has("k"))
	_, hit := svc.Get(context.Background(), "k")
	assert.False(t, hit)
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	repo := newMemoryCache()
	repo.failGet = true
	svc := NewCacheService(repo, nil, 0, nil, true)

	_, hit := svc.Get(context.Background(), "k")
	assert.False(t, hit)
}
