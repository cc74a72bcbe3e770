// Package worker contains the batch processor: the loop one worker slot runs
// to drive a single batch to completion or bounded abandonment against the
// credential pool and the checkpoint store.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shelfmark/enrich/internal/credential"
	"github.com/shelfmark/enrich/internal/enrichment"
)

// Pool is the slice of the credential pool the processor needs.
type Pool interface {
	Acquire() (credential.Credential, bool)
	ReportSuccess(key string)
	ReportFailure(key string, class credential.FailureClass)
	Refresh() error
}

// Submitter is the checkpoint store's submission path.
type Submitter interface {
	Submit(results map[string]json.RawMessage)
}

// ProcessorConfig holds the retry and backoff tuning for batch processing.
type ProcessorConfig struct {
	// MaxBatchRetries bounds how many times the unresolved tail of a batch
	// is resubmitted before the remaining items are abandoned.
	MaxBatchRetries int

	// AcquireBackoff is how long a worker sleeps when no credential is
	// currently usable.
	AcquireBackoff time.Duration

	// RetryBackoffMin and RetryBackoffMax bound the randomized sleep after a
	// transient failure or between batch-level retries.
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
}

// DefaultProcessorConfig returns a ProcessorConfig with reasonable defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxBatchRetries: 3,
		AcquireBackoff:  10 * time.Second,
		RetryBackoffMin: 2 * time.Second,
		RetryBackoffMax: 5 * time.Second,
	}
}

// Processor runs one batch at a time to completion. All failure is absorbed
// internally: credential-level errors rotate the pool, transient errors back
// off and retry, and items that stay unresolved past the retry budget are
// abandoned with a terminal log entry. Process never returns an error.
type Processor struct {
	pool     Pool
	store    Submitter
	invoker  enrichment.Invoker
	resolver Resolver
	config   ProcessorConfig
	logger   *slog.Logger

	abandoned atomic.Int64
}

// NewProcessor wires a processor. A nil resolver defaults to ExactResolver.
func NewProcessor(
	pool Pool,
	store Submitter,
	invoker enrichment.Invoker,
	resolver Resolver,
	config ProcessorConfig,
	logger *slog.Logger,
) *Processor {
	if resolver == nil {
		resolver = ExactResolver{}
	}
	if config.MaxBatchRetries <= 0 {
		config.MaxBatchRetries = 3
	}
	if config.AcquireBackoff <= 0 {
		config.AcquireBackoff = 10 * time.Second
	}
	if config.RetryBackoffMin <= 0 {
		config.RetryBackoffMin = 2 * time.Second
	}
	if config.RetryBackoffMax < config.RetryBackoffMin {
		config.RetryBackoffMax = config.RetryBackoffMin
	}

	return &Processor{
		pool:     pool,
		store:    store,
		invoker:  invoker,
		resolver: resolver,
		config:   config,
		logger:   logger,
	}
}

// AbandonedCount reports how many items have been permanently abandoned so
// far, across all batches this processor has run.
func (p *Processor) AbandonedCount() int64 {
	return p.abandoned.Load()
}

// Process drives one batch. Resolved items are submitted to the checkpoint
// immediately; the unresolved tail shrinks across retries. On context
// cancellation the method returns without abandoning anything; items not
// yet checkpointed simply stay pending for the next run.
func (p *Processor) Process(ctx context.Context, batch []string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	remaining := batch
	retries := 0

	for len(remaining) > 0 {
		if ctx.Err() != nil {
			return
		}

		cred, ok := p.pool.Acquire()
		if !ok {
			// Not a failure: every credential is dead, cooling down or
			// throttled. Wait, pick up any newly added keys, try again.
			if !p.sleep(ctx, p.config.AcquireBackoff) {
				return
			}
			if err := p.pool.Refresh(); err != nil {
				p.logger.Warn("credential refresh failed", "error", err)
			}
			continue
		}

		results, err := p.invoker.Invoke(ctx, remaining, cred.Key)
		if err != nil {
			switch {
			case errors.Is(err, enrichment.ErrResourceExhausted):
				p.pool.ReportFailure(cred.Key, credential.FailureQuota)
			case errors.Is(err, enrichment.ErrInvalidCredential):
				p.pool.ReportFailure(cred.Key, credential.FailureInvalidKey)
			default:
				p.pool.ReportFailure(cred.Key, credential.FailureTransient)
				p.logger.Warn("transient enrichment failure",
					"items", len(remaining),
					"error", err)
				if !p.sleep(ctx, p.jitter(rng)) {
					return
				}
			}
			continue
		}

		p.pool.ReportSuccess(cred.Key)

		resolved := p.resolver.Resolve(remaining, results)
		if len(resolved) > 0 {
			p.store.Submit(resolved)
		}

		unresolved := remaining[:0:0]
		for _, id := range remaining {
			if _, ok := resolved[id]; !ok {
				unresolved = append(unresolved, id)
			}
		}
		if len(unresolved) == 0 {
			p.logger.Debug("batch complete", "items", len(batch))
			return
		}

		if retries >= p.config.MaxBatchRetries {
			p.abandoned.Add(int64(len(unresolved)))
			p.logger.Error("abandoning items after exhausting retry budget",
				"abandoned", len(unresolved),
				"retries", retries,
				"items", unresolved)
			return
		}
		retries++
		remaining = unresolved
		p.logger.Info("resubmitting unresolved tail",
			"unresolved", len(unresolved),
			"retry", retries)
		if !p.sleep(ctx, p.jitter(rng)) {
			return
		}
	}
}

// jitter picks a randomized backoff in [RetryBackoffMin, RetryBackoffMax].
func (p *Processor) jitter(rng *rand.Rand) time.Duration {
	span := p.config.RetryBackoffMax - p.config.RetryBackoffMin
	if span <= 0 {
		return p.config.RetryBackoffMin
	}
	return p.config.RetryBackoffMin + time.Duration(rng.Int63n(int64(span)))
}

// sleep waits for d or context cancellation; reports false when cancelled.
func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
