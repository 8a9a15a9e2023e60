package numbering

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreAllocateSeedsFromConfig(t *testing.T) {
	store := newRedisStore(t)
	require.NoError(t, store.Register(invoiceConfig()))

	now := time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)

	alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), alloc.Value)
	assert.Equal(t, "INV-00007", alloc.Formatted)

	alloc, err = store.Allocate(context.Background(), "SALES_INVOICE", now)
	require.NoError(t, err)
	assert.Equal(t, int64(8), alloc.Value)
}

func TestRedisStoreMonthlyReset(t *testing.T) {
	store := newRedisStore(t)
	cfg := invoiceConfig()
	cfg.NextNumber = 1
	cfg.ResetFrequency = ResetMonthly
	require.NoError(t, store.Register(cfg))

	january := time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC)
	february := time.Date(2026, time.February, 1, 0, 5, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", january)
		require.NoError(t, err)
		assert.Equal(t, i, alloc.Value)
	}

	alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", february)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alloc.Value)
	assert.Equal(t, "202602", alloc.Period)

	alloc, err = store.Allocate(context.Background(), "SALES_INVOICE", february)
	require.NoError(t, err)
	assert.Equal(t, int64(2), alloc.Value, "a second allocation in the new period must not re-reset")
}

func TestRedisStoreStaleConfigSeedsNewPeriodAtOne(t *testing.T) {
	store := newRedisStore(t)
	cfg := invoiceConfig()
	cfg.NextNumber = 4
	cfg.ResetFrequency = ResetMonthly
	cfg.LastResetPeriod = "202601"
	require.NoError(t, store.Register(cfg))

	february := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

	alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", february)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alloc.Value, "a config captured last period must not carry its counter forward")
	assert.Equal(t, "202602", alloc.Period)

	alloc, err = store.Allocate(context.Background(), "SALES_INVOICE", february)
	require.NoError(t, err)
	assert.Equal(t, int64(2), alloc.Value)
}

func TestRedisStoreCurrentConfigSeedsFromCounter(t *testing.T) {
	store := newRedisStore(t)
	cfg := invoiceConfig()
	cfg.NextNumber = 4
	cfg.ResetFrequency = ResetMonthly
	cfg.LastResetPeriod = "202602"
	require.NoError(t, store.Register(cfg))

	february := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

	alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", february)
	require.NoError(t, err)
	assert.Equal(t, int64(4), alloc.Value)
}

func TestRedisStoreConcurrentAllocationsDistinct(t *testing.T) {
	store := newRedisStore(t)
	cfg := invoiceConfig()
	cfg.NextNumber = 1
	require.NoError(t, store.Register(cfg))

	now := time.Now().UTC()
	const n = 50
	results := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			alloc, err := store.Allocate(context.Background(), "SALES_INVOICE", now)
			errs[idx] = err
			results[idx] = alloc.Value
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestRedisStoreUnknownAndDisabled(t *testing.T) {
	store := newRedisStore(t)
	require.NoError(t, store.Register(invoiceConfig()))

	_, err := store.Allocate(context.Background(), "MISSING", time.Now())
	assert.ErrorIs(t, err, ErrUnknownDocumentType)

	require.NoError(t, store.Deactivate("SALES_INVOICE"))
	_, err = store.Allocate(context.Background(), "SALES_INVOICE", time.Now())
	assert.ErrorIs(t, err, ErrDocumentTypeDisabled)
}
