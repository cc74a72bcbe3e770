package credential

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Source supplies the current list of credential keys. Implementations must
// be safe for concurrent use; the pool treats the source as append-only and
// never drops a credential that disappears from it.
type Source interface {
	Load() ([]string, error)
}

// PoolConfig holds the tuning knobs for a credential pool.
type PoolConfig struct {
	// MinDelay is the minimum time between two granted uses of the same
	// credential. Zero disables throttling.
	MinDelay time.Duration

	// Cooldown is how long a credential stays suspended after a quota error.
	Cooldown time.Duration
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinDelay: 4 * time.Second,
		Cooldown: 24 * time.Hour,
	}
}

// Pool is a thread-safe registry of credentials. A single mutex guards all
// state; no lock is ever held across a sleep or an external call. Credentials
// are added on discovery and never removed, so per-key history survives for
// the process lifetime.
type Pool struct {
	mu     sync.Mutex
	creds  map[string]*Credential
	order  []string // insertion order, for round-robin scanning
	cursor int

	source Source
	config PoolConfig
	logger *slog.Logger

	// now is injectable for tests
	now func() time.Time
}

// NewPool creates an empty pool backed by the given source. Call Refresh to
// perform the initial discovery.
func NewPool(source Source, config PoolConfig, logger *slog.Logger) *Pool {
	if config.Cooldown <= 0 {
		config.Cooldown = 24 * time.Hour
	}

	return &Pool{
		creds:  make(map[string]*Credential),
		source: source,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Refresh re-reads the source and registers any newly discovered keys as
// Active. Existing credentials are never reset or removed, so a key that
// vanishes from the source keeps its state and stats. Safe to call
// concurrently with Acquire.
func (p *Pool) Refresh() error {
	keys, err := p.source.Load()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range keys {
		if _, exists := p.creds[key]; exists {
			continue
		}
		p.creds[key] = &Credential{
			Key:     key,
			Status:  StatusActive,
			limiter: p.newLimiter(),
		}
		p.order = append(p.order, key)
		p.logger.Info("new credential discovered", "key", redactKey(key))
	}

	return nil
}

// newLimiter builds the per-credential throttle: one token per MinDelay.
func (p *Pool) newLimiter() *rate.Limiter {
	if p.config.MinDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.config.MinDelay), 1)
}

// Acquire returns a snapshot of one usable credential, or ok=false if none is
// currently usable and the caller should back off and retry. A credential is
// usable when it is Active and its throttle admits a request right now; the
// token is consumed at grant time under the pool lock, so two callers can
// never be granted the same credential within the minimum delay.
//
// Cooldown credentials whose expiry has passed are promoted back to Active
// during the scan. Scanning starts after the last granted key, so every
// Active credential is revisited over repeated calls.
func (p *Pool) Acquire() (Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := len(p.order)
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		cred := p.creds[p.order[idx]]

		if cred.Status == StatusCooldown && now.After(cred.CooldownUntil) {
			cred.Status = StatusActive
			p.logger.Info("credential revived from cooldown", "key", redactKey(cred.Key))
		}

		if cred.Status != StatusActive {
			continue
		}

		if !cred.limiter.AllowN(now, 1) {
			continue
		}

		cred.LastUsedAt = now
		p.cursor = (idx + 1) % n
		return *cred, true
	}

	return Credential{}, false
}

// ReportSuccess records a successful use of the credential.
func (p *Pool) ReportSuccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.creds[key]
	if !ok {
		return
	}
	cred.LastUsedAt = p.now()
	cred.TotalRequests++
	cred.ConsecutiveErrors = 0
}

// ReportFailure records a failed use of the credential and applies the
// status transition for the failure class. Quota failures suspend the
// credential for the configured cooldown; invalid-key failures retire it
// permanently; transient failures only bump the error counter.
func (p *Pool) ReportFailure(key string, class FailureClass) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.creds[key]
	if !ok {
		return
	}
	cred.ConsecutiveErrors++

	switch class {
	case FailureQuota:
		if cred.Status == StatusDead {
			return
		}
		cred.Status = StatusCooldown
		cred.CooldownUntil = p.now().Add(p.config.Cooldown)
		p.logger.Warn("credential hit quota, cooling down",
			"key", redactKey(key),
			"cooldown_until", cred.CooldownUntil)
	case FailureInvalidKey:
		cred.Status = StatusDead
		p.logger.Error("credential rejected by service, marked dead",
			"key", redactKey(key))
	case FailureTransient:
		// no status change
	}
}

// Stats returns an observability snapshot of every known credential, in
// discovery order.
func (p *Pool) Stats() []KeyStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]KeyStats, 0, len(p.order))
	for _, key := range p.order {
		cred := p.creds[key]
		stats = append(stats, KeyStats{
			Key:               redactKey(key),
			Status:            cred.Status,
			TotalRequests:     cred.TotalRequests,
			ConsecutiveErrors: cred.ConsecutiveErrors,
		})
	}
	return stats
}

// Size returns the number of known credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
