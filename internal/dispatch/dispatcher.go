// Package dispatch fans pending batches out to a bounded pool of worker
// goroutines and waits for all of them to finish.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchProcessor is the worker body run for each batch. It absorbs its own
// failures; the dispatcher never interprets batch outcomes.
type BatchProcessor interface {
	Process(ctx context.Context, batch []string)
}

// Progress exposes the checkpoint's completion count for the progress signal.
type Progress interface {
	Count() int
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// WorkerCount is the number of concurrent batch processors. It is
	// deliberately set larger than the credential count so some workers can
	// make progress while others wait out cooldowns.
	WorkerCount int

	// ProgressInterval is how often the completion count is logged while the
	// run is in flight. If zero, defaults to 10 seconds.
	ProgressInterval time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:      12,
		ProgressInterval: 10 * time.Second,
	}
}

// Dispatcher owns the bounded worker pool for one run. It submits every
// pending batch, emits a best-effort progress signal, and returns when all
// submitted work has finished. Flushing and stopping the checkpoint store is
// the caller's responsibility, after Run returns.
type Dispatcher struct {
	processor BatchProcessor
	progress  Progress
	config    DispatcherConfig
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	processor BatchProcessor,
	progress Progress,
	config DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"default_count", 1)
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = 10 * time.Second
	}

	return &Dispatcher{
		processor: processor,
		progress:  progress,
		config:    config,
		logger:    logger,
	}
}

// Run processes every batch and blocks until all of them are done. Batches
// carry no ordering guarantee relative to each other. Context cancellation
// stops feeding new batches and lets in-flight workers wind down.
func (d *Dispatcher) Run(ctx context.Context, batches [][]string, totalItems int) {
	if len(batches) == 0 {
		d.logger.Info("nothing pending, all items already checkpointed",
			"total_items", totalItems)
		return
	}

	d.logger.Info("dispatching batches",
		"batches", len(batches),
		"total_items", totalItems,
		"workers", d.config.WorkerCount)

	feed := make(chan []string)
	var wg sync.WaitGroup

	for i := 0; i < d.config.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for batch := range feed {
				d.processor.Process(ctx, batch)
			}
			d.logger.Debug("worker drained", "worker_id", id)
		}(i)
	}

	// Progress monitor, stopped once all workers return.
	workDone := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		ticker := time.NewTicker(d.config.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workDone:
				return
			case <-ticker.C:
				d.logger.Info("progress",
					"completed", d.progress.Count(),
					"total", totalItems)
			}
		}
	}()

	finish := func() {
		close(feed)
		wg.Wait()
		close(workDone)
		<-monitorDone
	}

	for _, batch := range batches {
		select {
		case feed <- batch:
		case <-ctx.Done():
			d.logger.Warn("run cancelled, abandoning batch submission")
			finish()
			return
		}
	}
	finish()

	d.logger.Info("all submitted work finished",
		"completed", d.progress.Count(),
		"total", totalItems)
}
