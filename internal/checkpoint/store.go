// Package checkpoint provides the durable, crash-consistent result store: a
// single JSON file holding every finished item, rewritten atomically by one
// dedicated writer goroutine.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Results is one batch of finished items, keyed by item identifier. The
// store never inspects the values. Declared as an alias so callers can hand
// over plain maps.
type Results = map[string]json.RawMessage

// Store serializes concurrent result submissions into a single durable file.
// Workers call Submit from any goroutine; a single writer goroutine merges
// each submission into the authoritative in-memory map and persists the whole
// map via temp-file-then-rename, so the file on disk is always a complete,
// internally consistent snapshot. A crash mid-write leaves the previous
// snapshot intact.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records Results

	queue    chan Results
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a store persisting to path. queueSize bounds the submission
// buffer; if zero or negative a default is applied.
func New(path string, queueSize int, logger *slog.Logger) *Store {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Store{
		path:    path,
		logger:  logger,
		records: make(Results),
		queue:   make(chan Results, queueSize),
		done:    make(chan struct{}),
	}
}

// Load seeds the authoritative map from the durable file. A missing file or
// an undecodable file starts the store from empty; both are normal for a
// first run or after an interrupted very first flush.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var records Results
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("checkpoint file is not valid JSON, starting fresh",
			"path", s.path,
			"error", err)
		return nil
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Info("checkpoint loaded", "path", s.path, "items", len(records))
	return nil
}

// Start launches the writer goroutine. Call exactly once, after Load.
func (s *Store) Start() {
	go s.writerLoop()
}

// Submit enqueues a partial result map for the writer. Safe for concurrent
// use. Submit does not wait for persistence; it only blocks if the
// submission buffer is full, which backpressures workers against a slow disk
// rather than dropping results.
func (s *Store) Submit(results Results) {
	if len(results) == 0 {
		return
	}
	s.queue <- results
}

// writerLoop is the single writer: it drains the queue, merging each
// submission and flushing the full snapshot to disk.
func (s *Store) writerLoop() {
	defer close(s.done)

	for batch := range s.queue {
		s.mu.Lock()
		for id, record := range batch {
			s.records[id] = record
		}
		s.mu.Unlock()

		if err := s.persist(); err != nil {
			s.logger.Error("checkpoint flush failed", "error", err)
		}
	}
}

// persist writes the full authoritative map to a temp file in the same
// directory and atomically replaces the durable file.
func (s *Store) persist() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp checkpoint file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp checkpoint file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Shutdown stops accepting submissions, waits for the writer to drain and
// flush everything queued so far, then returns. Idempotent. Callers must not
// Submit after Shutdown.
func (s *Store) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.queue)
	})
	<-s.done
}

// Count returns the number of items in the authoritative map.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Done returns the set of item identifiers already present, used to compute
// the pending work at startup. Checkpointed items are permanently done and
// are never resubmitted.
func (s *Store) Done() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	done := make(map[string]struct{}, len(s.records))
	for id := range s.records {
		done[id] = struct{}{}
	}
	return done
}

// Snapshot returns a copy of the authoritative map.
func (s *Store) Snapshot() Results {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Results, len(s.records))
	for id, record := range s.records {
		snap[id] = record
	}
	return snap
}
