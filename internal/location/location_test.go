package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocator struct {
	calls atomic.Int32
	fix   Fix
	err   error
}

func (l *countingLocator) Locate(ctx context.Context, _ string, _ Options) (Fix, error) {
	l.calls.Add(1)
	if l.err != nil {
		return Fix{}, l.err
	}
	return l.fix, nil
}

type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context, _ string, _ Options) (Fix, error) {
	<-ctx.Done()
	return Fix{}, ctx.Err()
}

func TestAcquireReusesRecentFix(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	locator := &countingLocator{fix: Fix{Latitude: 19.07, Longitude: 72.87, Accuracy: 12, Timestamp: now}}

	acquirer := NewAcquirer(locator, "user-1", DefaultOptions())
	acquirer.now = func() time.Time { return now.Add(30 * time.Second) }

	fix, err := acquirer.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.0, fix.Accuracy)

	_, err = acquirer.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), locator.calls.Load())

	acquirer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = acquirer.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), locator.calls.Load())

	_, err = acquirer.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), locator.calls.Load())
}

func TestAcquireTimesOut(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	acquirer := NewAcquirer(blockingLocator{}, "user-1", opts)
	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, ErrTimeout)

	state := acquirer.State()
	assert.False(t, state.Loading)
	assert.Equal(t, CodeTimeout, state.ErrorCode)
	assert.Equal(t, "Location request timed out", state.Error)
	assert.Nil(t, state.Fix)
}

func TestAcquireErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"permission denied", ErrPermissionDenied, CodePermissionDenied},
		{"unsupported", &Error{Code: CodeUnsupported}, CodeUnsupported},
		{"unknown failure", errors.New("boom"), CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acquirer := NewAcquirer(&countingLocator{err: tt.err}, "user-1", DefaultOptions())
			_, err := acquirer.Acquire(context.Background())
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}

	acquirer := NewAcquirer(nil, "user-1", DefaultOptions())
	_, err := acquirer.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStoredLocatorServesReports(t *testing.T) {
	store := NewMemoryFixStore()
	locator := NewStoredLocator(store)
	locator.pollInterval = 5 * time.Millisecond

	now := time.Now()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = store.Save(context.Background(), "user-1", Report{
			Fix:        Fix{Latitude: 28.61, Longitude: 77.21, Timestamp: now},
			ReportedAt: now,
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fix, err := locator.Locate(ctx, "user-1", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 28.61, fix.Latitude)

	require.NoError(t, store.Save(context.Background(), "user-1", Report{Code: CodePermissionDenied, ReportedAt: now}))
	_, err = locator.Locate(ctx, "user-1", DefaultOptions())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestStoredLocatorIgnoresStaleFix(t *testing.T) {
	store := NewMemoryFixStore()
	now := time.Now()
	require.NoError(t, store.Save(context.Background(), "user-1", Report{
		Fix: Fix{Latitude: 1, Longitude: 1, Timestamp: now.Add(-10 * time.Minute)},
	}))

	opts := DefaultOptions()
	opts.Timeout = 30 * time.Millisecond
	locator := NewStoredLocator(store)
	locator.pollInterval = 5 * time.Millisecond

	_, err := NewAcquirer(locator, "user-1", opts).Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRegistryAutoFetch(t *testing.T) {
	locator := &countingLocator{fix: Fix{Latitude: 1, Longitude: 2, Timestamp: time.Now()}}
	opts := DefaultOptions()
	opts.AutoFetch = true

	registry := NewRegistry(locator, opts)
	first := registry.For(context.Background(), "user-1")
	assert.Same(t, first, registry.For(context.Background(), "user-1"))

	require.Eventually(t, func() bool {
		return first.State().Fix != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), locator.calls.Load())

	registry.Forget("user-1")
	assert.NotSame(t, first, registry.For(context.Background(), "user-1"))
}
