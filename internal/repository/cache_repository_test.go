package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "daksh:")
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "k", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	repo := NewCacheRepository(client, "daksh-test:")
	defer repo.Close()
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	require.NoError(t, repo.Set(ctx, "student:sid:1", map[string]string{"name": "Asha"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "student:other:1", map[string]string{"name": "Bina"}, time.Minute))

	var got map[string]string
	require.NoError(t, repo.Get(ctx, "student:sid:1", &got))
	assert.Equal(t, "Asha", got["name"])

	require.NoError(t, repo.DeleteByPattern(ctx, "student:sid:*"))
	assert.True(t, errors.Is(repo.Get(ctx, "student:sid:1", &got), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Get(ctx, "student:other:1", &got))
	require.NoError(t, repo.DeleteByPattern(ctx, "*"))
}
