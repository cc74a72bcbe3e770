package credential

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource implements Source over a fixed, swappable key list
type staticSource struct {
	mu   sync.Mutex
	keys []string
}

func (s *staticSource) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.keys...), nil
}

func (s *staticSource) set(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestPool(t *testing.T, cfg PoolConfig, keys ...string) (*Pool, *staticSource) {
	t.Helper()
	src := &staticSource{keys: keys}
	pool := NewPool(src, cfg, setupTestLogger())
	require.NoError(t, pool.Refresh())
	return pool, src
}

func TestRefreshAddsNewKeysOnly(t *testing.T) {
	pool, src := newTestPool(t, PoolConfig{}, "alpha-key", "beta-key")
	assert.Equal(t, 2, pool.Size())

	// Re-refresh with the same keys is a no-op.
	require.NoError(t, pool.Refresh())
	assert.Equal(t, 2, pool.Size())

	// A new key is appended; existing keys keep their state.
	pool.ReportFailure("alpha-key", FailureQuota)
	src.set("alpha-key", "beta-key", "gamma-key")
	require.NoError(t, pool.Refresh())
	assert.Equal(t, 3, pool.Size())

	stats := pool.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, StatusCooldown, stats[0].Status)
	assert.Equal(t, StatusActive, stats[1].Status)
	assert.Equal(t, StatusActive, stats[2].Status)
}

func TestRefreshNeverRemovesKeys(t *testing.T) {
	pool, src := newTestPool(t, PoolConfig{}, "alpha-key", "beta-key")

	src.set("beta-key") // alpha disappears from the source
	require.NoError(t, pool.Refresh())
	assert.Equal(t, 2, pool.Size())
}

func TestQuotaFailureCoolsDownUntilExpiry(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{Cooldown: time.Hour}, "alpha-key")

	base := time.Now()
	pool.now = func() time.Time { return base }

	pool.ReportFailure("alpha-key", FailureQuota)

	// While cooling down, acquire finds nothing.
	_, ok := pool.Acquire()
	assert.False(t, ok)

	// Still cooling down just before expiry.
	pool.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, ok = pool.Acquire()
	assert.False(t, ok)

	// After expiry the credential is lazily promoted back to Active.
	pool.now = func() time.Time { return base.Add(61 * time.Minute) }
	cred, ok := pool.Acquire()
	require.True(t, ok)
	assert.Equal(t, "alpha-key", cred.Key)
	assert.Equal(t, StatusActive, cred.Status)
}

func TestInvalidKeyFailureIsPermanent(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{}, "alpha-key")

	pool.ReportFailure("alpha-key", FailureInvalidKey)

	_, ok := pool.Acquire()
	assert.False(t, ok)

	// Refreshing with the same source never resurrects a dead key.
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Refresh())
	}
	_, ok = pool.Acquire()
	assert.False(t, ok)

	stats := pool.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, StatusDead, stats[0].Status)
}

func TestTransientFailureKeepsStatus(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{}, "alpha-key")

	pool.ReportFailure("alpha-key", FailureTransient)
	pool.ReportFailure("alpha-key", FailureTransient)

	stats := pool.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, StatusActive, stats[0].Status)
	assert.Equal(t, 2, stats[0].ConsecutiveErrors)

	pool.ReportSuccess("alpha-key")
	stats = pool.Stats()
	assert.Equal(t, 0, stats[0].ConsecutiveErrors)
	assert.Equal(t, 1, stats[0].TotalRequests)
}

func TestAcquireEnforcesMinDelayPerCredential(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{MinDelay: time.Minute}, "alpha-key")

	base := time.Now()
	pool.now = func() time.Time { return base }

	_, ok := pool.Acquire()
	require.True(t, ok)

	// Second grant within the delay window is refused.
	_, ok = pool.Acquire()
	assert.False(t, ok)

	pool.now = func() time.Time { return base.Add(30 * time.Second) }
	_, ok = pool.Acquire()
	assert.False(t, ok)

	// Once the delay has elapsed the credential is usable again.
	pool.now = func() time.Time { return base.Add(time.Minute) }
	_, ok = pool.Acquire()
	assert.True(t, ok)
}

func TestAcquireRotatesAcrossCredentials(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{MinDelay: time.Minute}, "alpha-key", "beta-key", "gamma-key")

	base := time.Now()
	pool.now = func() time.Time { return base }

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		cred, ok := pool.Acquire()
		require.True(t, ok)
		assert.False(t, seen[cred.Key], "credential %s granted twice within the delay", cred.Key)
		seen[cred.Key] = true
	}
	assert.Len(t, seen, 3)

	// All three are now throttled.
	_, ok := pool.Acquire()
	assert.False(t, ok)
}

func TestAcquireSkipsCooldownAndDead(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{Cooldown: time.Hour}, "alpha-key", "beta-key", "gamma-key")

	pool.ReportFailure("alpha-key", FailureQuota)
	pool.ReportFailure("beta-key", FailureInvalidKey)

	cred, ok := pool.Acquire()
	require.True(t, ok)
	assert.Equal(t, "gamma-key", cred.Key)
}

func TestAcquireConcurrentNeverDoubleGrants(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{MinDelay: time.Minute}, "alpha-key", "beta-key")

	var (
		mu      sync.Mutex
		granted []string
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cred, ok := pool.Acquire(); ok {
				mu.Lock()
				granted = append(granted, cred.Key)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// With two credentials and a one-minute delay, at most one grant each.
	assert.LessOrEqual(t, len(granted), 2)
	counts := make(map[string]int)
	for _, key := range granted {
		counts[key]++
	}
	for key, n := range counts {
		assert.Equal(t, 1, n, "credential %s granted %d times within the delay", key, n)
	}
}

func TestStatsRedactsKeys(t *testing.T) {
	pool, _ := newTestPool(t, PoolConfig{}, "super-secret-key")

	stats := pool.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "super-...", stats[0].Key)
}
