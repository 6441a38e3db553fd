package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/roomboard/pkg/errors"
)

type recordingCache struct {
	values  map[string]interface{}
	ttls    map[string]time.Duration
	deleted []string
	failGet error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: map[string]interface{}{}, ttls: map[string]time.Duration{}}
}

func (m *recordingCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v.(string)
	return nil
}

func (m *recordingCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *recordingCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newRecordingCache()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var got string
	hit, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["k"])

	hit, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", got)

	require.NoError(t, cache.Invalidate(ctx, "roomboard:*"))
	assert.Equal(t, []string{"roomboard:*"}, repo.deleted)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newRecordingCache()
	repo.failGet = errors.New("connection refused")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	var got string
	hit, err := cache.Get(context.Background(), "k", &got)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection refused")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newRecordingCache()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)
	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.values)

	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", new(string))
	assert.False(t, hit)
	assert.NoError(t, err)
}

func TestBoardKey(t *testing.T) {
	assert.Equal(t, "roomboard:occupancy:ATL", BoardKey("occupancy", "ATL"))
	assert.Equal(t, "roomboard:gaps:all", BoardKey("gaps", ""))
}
