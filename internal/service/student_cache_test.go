package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

// mapCacheRepo mimics the Redis repository: JSON values and glob deletes.
type mapCacheRepo struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMapCacheRepo() *mapCacheRepo { return &mapCacheRepo{values: map[string][]byte{}} }

func (r *mapCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = raw
	return nil
}

func (r *mapCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.values, key)
		}
	}
	return nil
}

func cachedStudent(id string) *models.SessionStudent {
	return &models.SessionStudent{Student: models.Student{ID: id, Name: "Asha"}, SchoolID: "s1", ClassID: "c1", SchoolName: "Green Valley"}
}

func TestMemoryStudentCacheScopesBySession(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStudentCache(time.Minute)
	student := cachedStudent("st1")

	cache.Set(ctx, "sid-a", student)
	got, ok := cache.Get(ctx, "sid-a", student.Ref())
	require.True(t, ok)
	assert.Equal(t, "Green Valley", got.SchoolName)

	_, ok = cache.Get(ctx, "sid-b", student.Ref())
	assert.False(t, ok)

	cache.Invalidate(ctx, "sid-a")
	_, ok = cache.Get(ctx, "sid-a", student.Ref())
	assert.False(t, ok)
}

func TestMemoryStudentCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStudentCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	student := cachedStudent("st1")
	cache.Set(ctx, "sid", student)

	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := cache.Get(ctx, "sid", student.Ref())
	assert.False(t, ok)
}

func TestMemoryStudentCacheSweepsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStudentCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		cache.Set(ctx, fmt.Sprintf("sid-%d", i), cachedStudent("st1"))
	}
	assert.Equal(t, 50, cache.Len())

	now = now.Add(2 * time.Minute)
	cache.Set(ctx, "sid-fresh", cachedStudent("st1"))
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryStudentCacheRevoke(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryStudentCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }
	student := cachedStudent("st1")

	cache.Set(ctx, "sid", student)
	cache.Revoke(ctx, "sid", now.Add(time.Hour))
	assert.True(t, cache.Revoked(ctx, "sid"))
	assert.False(t, cache.Revoked(ctx, "other"))
	_, ok := cache.Get(ctx, "sid", student.Ref())
	assert.False(t, ok)

	cache.Revoke(ctx, "stale", now.Add(-time.Second))
	assert.False(t, cache.Revoked(ctx, "stale"))

	now = now.Add(2 * time.Hour)
	assert.False(t, cache.Revoked(ctx, "sid"))
	cache.Set(ctx, "sid-2", student)
	assert.Empty(t, cache.revoked)
}

func TestRedisStudentCacheRevoke(t *testing.T) {
	ctx := context.Background()
	repo := newMapCacheRepo()
	cache := NewRedisStudentCache(NewCacheService(repo, nil, time.Minute, nil, true), time.Minute)
	student := cachedStudent("st1")

	cache.Set(ctx, "sid", student)
	assert.False(t, cache.Revoked(ctx, "sid"))

	cache.Revoke(ctx, "sid", time.Now().Add(time.Hour))
	assert.True(t, cache.Revoked(ctx, "sid"))
	assert.Contains(t, repo.values, "revoked:sid")
	_, ok := cache.Get(ctx, "sid", student.Ref())
	assert.False(t, ok)
}

func TestRedisStudentCacheRevokedFailsClosed(t *testing.T) {
	repo := newMapCacheRepo()
	repo.values["revoked:sid"] = []byte("not json")
	cache := NewRedisStudentCache(NewCacheService(repo, nil, time.Minute, nil, true), time.Minute)
	assert.True(t, cache.Revoked(context.Background(), "sid"))
}

func TestRedisStudentCacheRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := newMapCacheRepo()
	metrics := NewMetricsService()
	cache := NewRedisStudentCache(NewCacheService(repo, metrics, time.Minute, nil, true), time.Minute)
	student := cachedStudent("st1")

	_, ok := cache.Get(ctx, "sid-a", student.Ref())
	assert.False(t, ok)

	cache.Set(ctx, "sid-a", student)
	cache.Set(ctx, "sid-b", student)
	assert.Contains(t, repo.values, "student:sid-a:s1:c1:st1")

	got, ok := cache.Get(ctx, "sid-a", student.Ref())
	require.True(t, ok)
	assert.Equal(t, student.ID, got.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))

	cache.Invalidate(ctx, "sid-a")
	_, ok = cache.Get(ctx, "sid-a", student.Ref())
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "sid-b", student.Ref())
	assert.True(t, ok)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.values)

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}
