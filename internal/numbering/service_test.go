package numbering

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg SequenceConfig) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Register(cfg))
	return store
}

func invoiceConfig() SequenceConfig {
	return SequenceConfig{
		DocumentType:   "SALES_INVOICE",
		Prefix:         "INV",
		Separator:      "-",
		NumberLength:   5,
		NextNumber:     7,
		ResetFrequency: ResetNever,
		IsActive:       true,
	}
}

func TestAllocateFormatsAndAdvances(t *testing.T) {
	store := newTestStore(t, invoiceConfig())
	svc := NewService(store, nil, nil, time.Second)

	alloc, err := svc.Allocate(context.Background(), "SALES_INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(7), alloc.Value)
	assert.Equal(t, "INV-00007", alloc.Formatted)

	snap, err := store.Snapshot("SALES_INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(8), snap.NextNumber)
}

func TestAllocateUnknownAndDisabled(t *testing.T) {
	store := newTestStore(t, invoiceConfig())
	svc := NewService(store, nil, nil, time.Second)

	_, err := svc.Allocate(context.Background(), "NO_SUCH_TYPE")
	assert.ErrorIs(t, err, ErrUnknownDocumentType)

	require.NoError(t, store.Deactivate("SALES_INVOICE"))
	_, err = svc.Allocate(context.Background(), "SALES_INVOICE")
	assert.ErrorIs(t, err, ErrDocumentTypeDisabled)
}

func TestConcurrentAllocationsAreContiguous(t *testing.T) {
	for _, n := range []int{1, 10, 100} {
		cfg := invoiceConfig()
		cfg.NextNumber = 1
		store := newTestStore(t, cfg)
		svc := NewService(store, nil, nil, 5*time.Second)

		results := make([]int64, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				alloc, err := svc.Allocate(context.Background(), "SALES_INVOICE")
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
			assert.Equal(t, int64(i+1), v, "n=%d: expected contiguous range with no gaps or duplicates", n)
		}
	}
}

func TestMonthlyResetHappensExactlyOnce(t *testing.T) {
	cfg := invoiceConfig()
	cfg.ResetFrequency = ResetMonthly
	cfg.NextNumber = 1
	store := newTestStore(t, cfg)
	svc := NewService(store, nil, nil, time.Second)

	current := time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return current })

	for i := int64(1); i <= 3; i++ {
		alloc, err := svc.Allocate(context.Background(), "SALES_INVOICE")
		require.NoError(t, err)
		assert.Equal(t, i, alloc.Value)
		assert.Equal(t, "202601", alloc.Period)
	}

	// Crossing into February resets to 1 once; racing allocations in the new
	// period must not re-reset.
	current = time.Date(2026, time.February, 1, 0, 0, 1, 0, time.UTC)

	const n = 20
	results := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			alloc, err := svc.Allocate(context.Background(), "SALES_INVOICE")
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

func TestAbandonedAllocationLeavesGap(t *testing.T) {
	cfg := invoiceConfig()
	cfg.NextNumber = 1
	store := newTestStore(t, cfg)
	svc := NewService(store, nil, nil, time.Second)

	first, err := svc.Allocate(context.Background(), "SALES_INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Value)

	// The caller abandons its workflow here; number 1 stays consumed.
	second, err := svc.Allocate(context.Background(), "SALES_INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Value)
}

type slowStore struct {
	delay time.Duration
	inner Store
}

func (s slowStore) Allocate(ctx context.Context, documentType string, now time.Time) (Allocation, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return Allocation{}, ctx.Err()
	}
	return s.inner.Allocate(ctx, documentType, now)
}

func TestAllocateTimeoutSurfaced(t *testing.T) {
	store := newTestStore(t, invoiceConfig())
	svc := NewService(slowStore{delay: 200 * time.Millisecond, inner: store}, nil, nil, 20*time.Millisecond)

	_, err := svc.Allocate(context.Background(), "SALES_INVOICE")
	assert.ErrorIs(t, err, ErrAllocationTimeout)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) ObserveAllocation(documentType string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	key := documentType + ":ok"
	if err != nil {
		key = documentType + ":err"
	}
	o.outcomes[key]++
}

func TestAllocateReportsToObserver(t *testing.T) {
	store := newTestStore(t, invoiceConfig())
	obs := &recordingObserver{}
	svc := NewService(store, nil, obs, time.Second)

	_, err := svc.Allocate(context.Background(), "SALES_INVOICE")
	require.NoError(t, err)
	_, err = svc.Allocate(context.Background(), "MISSING")
	require.Error(t, err)

	assert.Equal(t, 1, obs.outcomes["SALES_INVOICE:ok"])
	assert.Equal(t, 1, obs.outcomes["MISSING:err"])
}
