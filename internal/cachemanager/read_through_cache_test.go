package cachemanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

type mockCacheManager struct {
	mock.Mock
}

func (m *mockCacheManager) Get(ctx context.Context, key string) (*ruleset.RuleSet, bool) {
	args := m.Called(ctx, key)
	rs, _ := args.Get(0).(*ruleset.RuleSet)
	return rs, args.Bool(1)
}

func (m *mockCacheManager) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (*ruleset.RuleSet, bool) {
	args := m.Called(ctx, key, ttl)
	rs, _ := args.Get(0).(*ruleset.RuleSet)
	return rs, args.Bool(1)
}

func (m *mockCacheManager) Set(ctx context.Context, key string, value *ruleset.RuleSet, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *mockCacheManager) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCacheManager) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func loadByName(calls *int) func(ctx context.Context, name string) (*ruleset.RuleSet, error) {
	return func(ctx context.Context, name string) (*ruleset.RuleSet, error) {
		*calls++
		if name == "missing" {
			return nil, ruleset.ErrNotFound
		}
		return &ruleset.RuleSet{Name: name}, nil
	}
}

func TestReadThroughCache_Get_WithCacheDisabled(t *testing.T) {
	managerMock := &mockCacheManager{}
	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), true)

	rs, err := rtc.Get(context.Background(), "c", "c", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "c", rs.Name)
	require.Equal(t, 1, calls)
	managerMock.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestReadThroughCache_Get_WithValueInCache(t *testing.T) {
	managerMock := &mockCacheManager{}
	cached := &ruleset.RuleSet{Name: "cached"}
	managerMock.On("Get", mock.Anything, "c").Return(cached, true)

	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), false)

	rs, err := rtc.Get(context.Background(), "c", "c", time.Minute)
	require.NoError(t, err)
	require.Same(t, cached, rs)
	require.Zero(t, calls)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_Get_MissStoresValue(t *testing.T) {
	managerMock := &mockCacheManager{}
	managerMock.On("Get", mock.Anything, "c").Return(nil, false)
	managerMock.On("Set", mock.Anything, "c", mock.MatchedBy(func(rs *ruleset.RuleSet) bool { return rs.Name == "c" }), time.Minute).Return()

	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), false)

	rs, err := rtc.Get(context.Background(), "c", "c", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "c", rs.Name)
	require.Equal(t, 1, calls)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_Get_ErrorIsNotCached(t *testing.T) {
	managerMock := &mockCacheManager{}
	managerMock.On("Get", mock.Anything, "missing").Return(nil, false)

	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), false)

	_, err := rtc.Get(context.Background(), "missing", "missing", time.Minute)
	require.True(t, errors.Is(err, ruleset.ErrNotFound))
	managerMock.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReadThroughCache_GetWithRefresh(t *testing.T) {
	managerMock := &mockCacheManager{}
	cached := &ruleset.RuleSet{Name: "cached"}
	managerMock.On("GetWithRefresh", mock.Anything, "c", time.Hour).Return(cached, true)

	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), false)

	rs, err := rtc.GetWithRefresh(context.Background(), "c", "c", time.Hour)
	require.NoError(t, err)
	require.Same(t, cached, rs)
	require.Zero(t, calls)
}

func TestReadThroughCache_Invalidate(t *testing.T) {
	managerMock := &mockCacheManager{}
	managerMock.On("Delete", mock.Anything, []string{"c"}).Return(nil)
	managerMock.On("Flush", mock.Anything).Return(nil)

	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](managerMock, loadByName(&calls), false)

	require.NoError(t, rtc.Invalidate(context.Background(), "c"))
	require.NoError(t, rtc.Invalidate(context.Background()))
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_WithInMemoryManager(t *testing.T) {
	cache := NewInMemoryCacheManager[string, *ruleset.RuleSet]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](cache, loadByName(&calls), false)

	first, err := rtc.Get(context.Background(), "c", "c", DefaultExpiration)
	require.NoError(t, err)
	second, err := rtc.Get(context.Background(), "c", "c", DefaultExpiration)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, calls)

	require.NoError(t, rtc.Invalidate(context.Background(), "c"))
	_, err = rtc.Get(context.Background(), "c", "c", DefaultExpiration)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_CoalescesConcurrentMisses(t *testing.T) {
	cache := NewInMemoryCacheManager[string, *ruleset.RuleSet]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context, name string) (*ruleset.RuleSet, error) {
		calls.Add(1)
		<-release
		return &ruleset.RuleSet{Name: name}, nil
	}
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](cache, load, false)

	const callers = 8
	results := make([]*ruleset.RuleSet, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, err := rtc.Get(context.Background(), "php", "php", DefaultExpiration)
			assert.NoError(t, err)
			results[i] = rs
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, rs := range results {
		require.Equal(t, "php", rs.Name)
	}
}

func TestReadThroughCache_WaiterHonoursContext(t *testing.T) {
	cache := NewInMemoryCacheManager[string, *ruleset.RuleSet]("rulesets", DefaultExpiration, DefaultCleanupInterval)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context, name string) (*ruleset.RuleSet, error) {
		close(started)
		<-release
		return &ruleset.RuleSet{Name: name}, nil
	}
	rtc := NewReadThroughCache[string, *ruleset.RuleSet, string](cache, load, false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = rtc.Get(context.Background(), "c", "c", DefaultExpiration)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rtc.Get(ctx, "c", "c", DefaultExpiration)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}
