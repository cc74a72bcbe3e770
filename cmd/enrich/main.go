// Command enrich pushes a deduplicated library catalog through the Gemini
// API using a pool of rate-limited API keys, checkpointing every result so a
// crashed or interrupted run resumes where it left off.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/enrich/internal/catalog"
	"github.com/shelfmark/enrich/internal/checkpoint"
	"github.com/shelfmark/enrich/internal/config"
	"github.com/shelfmark/enrich/internal/credential"
	"github.com/shelfmark/enrich/internal/dispatch"
	"github.com/shelfmark/enrich/internal/platform/gemini"
	"github.com/shelfmark/enrich/internal/platform/logger"
	"github.com/shelfmark/enrich/internal/report"
	"github.com/shelfmark/enrich/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	sessionID := "AUTO-" + uuid.New().String()[:6]
	log = log.With("session_id", sessionID)

	// SIGINT/SIGTERM cancels the run; queued results are still flushed below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.Catalog.InputFile)
	if err != nil {
		return err
	}
	log.Info("catalog loaded",
		"input", cfg.Catalog.InputFile,
		"unique_items", cat.TotalItems())

	store := checkpoint.New(cfg.Catalog.CheckpointFile, cfg.Worker.QueueSize, log)
	if err := store.Load(); err != nil {
		return err
	}
	store.Start()

	source := credential.NewFileSource(cfg.Credentials.KeysFile)
	pool := credential.NewPool(source, credential.PoolConfig{
		MinDelay: cfg.Credentials.MinDelay,
		Cooldown: cfg.Credentials.Cooldown,
	}, log)
	if err := pool.Refresh(); err != nil {
		// Not fatal: the key file may appear or fill in while workers wait.
		log.Warn("initial credential load failed", "error", err)
	}
	if cfg.Credentials.WatchKeys {
		go func() {
			if err := pool.Watch(ctx, source.Path()); err != nil {
				log.Warn("credential file watcher stopped", "error", err)
			}
		}()
	}
	log.Info("credential pool ready", "credentials", pool.Size())

	enricher, err := gemini.NewEnricher(log, cfg.LLM.Models)
	if err != nil {
		return err
	}

	var resolver worker.Resolver = worker.ExactResolver{}
	if cfg.Worker.LooseMatch {
		resolver = worker.LooseResolver{}
		log.Warn("loose title matching enabled; similar titles may be conflated")
	}

	processor := worker.NewProcessor(pool, store, enricher, resolver, worker.ProcessorConfig{
		MaxBatchRetries: cfg.Worker.MaxBatchRetries,
		AcquireBackoff:  cfg.Worker.AcquireBackoff,
		RetryBackoffMin: cfg.Worker.RetryBackoffMin,
		RetryBackoffMax: cfg.Worker.RetryBackoffMax,
	}, log)

	var statsServer *report.Server
	if cfg.Server.StatsAddr != "" {
		statsServer = report.NewServer(cfg.Server.StatsAddr, pool, store, cat.TotalItems(), log)
		statsServer.Start()
	}

	dispatcher := dispatch.NewDispatcher(processor, store, dispatch.DispatcherConfig{
		WorkerCount:      cfg.Worker.WorkerCount,
		ProgressInterval: cfg.Worker.ProgressInterval,
	}, log)

	batches := cat.PendingBatches(store.Done(), cfg.Worker.BatchSize)
	dispatcher.Run(ctx, batches, cat.TotalItems())

	// Drain everything workers managed to submit, including results that
	// arrived after cancellation was requested.
	store.Shutdown()

	if statsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("stats endpoint shutdown failed", "error", err)
		}
	}

	if abandoned := processor.AbandonedCount(); abandoned > 0 {
		log.Warn("some items were abandoned and are absent from the checkpoint",
			"abandoned", abandoned)
	}

	if err := cat.Export(cfg.Catalog.OutputFile, store.Snapshot()); err != nil {
		return err
	}
	log.Info("run complete",
		"completed", store.Count(),
		"total", cat.TotalItems(),
		"output", cfg.Catalog.OutputFile)

	return nil
}
