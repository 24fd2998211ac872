package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

func TestNewInMemoryCacheManager(t *testing.T) {
	require.NotPanics(t, func() {
		NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	})
}

func TestInMemoryCacheManager_GetExistingRuleSet(t *testing.T) {
	cache := NewInMemoryCacheManager[string, *ruleset.RuleSet]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	rs := &ruleset.RuleSet{Name: "go"}
	cache.Set(context.Background(), "go", rs, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "go")
	require.True(t, ok)
	require.Same(t, rs, got)
}

type langName string

func TestInMemoryCacheManager_NamedKeyType(t *testing.T) {
	cache := NewInMemoryCacheManager[langName, int]("sizes", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), langName("c"), 3, NoExpiration)

	got, ok := cache.Get(context.Background(), "c")
	require.True(t, ok)
	require.Equal(t, 3, got)
}

func TestInMemoryCacheManager_GetWithNoExistingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("rulesets", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "php")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_GetWithExistingInvalidValueType(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("rulesets", DefaultExpiration, DefaultCleanupInterval)

	cache.cache.Set("php", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "php")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "c", "c", time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "c")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "c", "c", 50*time.Millisecond)

	got, ok := cache.GetWithRefresh(context.Background(), "c", time.Hour)
	require.True(t, ok)
	require.Equal(t, "c", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "c")
	require.True(t, ok, "refresh should extend the ttl")

	_, ok = cache.GetWithRefresh(context.Background(), "missing", time.Hour)
	require.False(t, ok)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, string]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "c", "c", DefaultExpiration)
	cache.Set(ctx, "go", "go", DefaultExpiration)
	cache.Set(ctx, "php", "php", DefaultExpiration)
	require.Equal(t, 3, cache.Len())

	require.NoError(t, cache.Delete(ctx, "c", "go"))
	require.Equal(t, 1, cache.Len())
	require.NoError(t, cache.Delete(ctx))

	require.NoError(t, cache.Flush(ctx))
	require.Zero(t, cache.Len())
}
