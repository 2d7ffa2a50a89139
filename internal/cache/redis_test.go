package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		RulesTTL:     time.Minute,
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, "user:1", expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	rules := []models.AvailabilityRule{
		models.Recurring(time.Monday, 10*60, 11*60),
		models.OneOff(time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), 9*60, 12*60),
	}

	_, found, err := cache.GetRules(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.SetRules(ctx, "m1", rules))
	got, found, err := cache.GetRules(ctx, "m1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rules, got)
	assert.Equal(t, time.Minute, mr.TTL("availability:rules:m1"))

	require.NoError(t, cache.InvalidateRules(ctx, "m1"))
	_, found, err = cache.GetRules(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRules_EmptySetIsCached(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetRules(ctx, "m2", nil))
	got, found, err := cache.GetRules(ctx, "m2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
		DialTimeout:  100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
