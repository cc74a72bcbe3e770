// Package credential manages the shared pool of API keys: their lifecycle
// state machine (Active, Cooldown, Dead), per-key request throttling, and
// append-only discovery from a live-reloadable key file.
package credential

import (
	"time"

	"golang.org/x/time/rate"
)

// Status is the lifecycle state of a credential.
type Status string

const (
	// StatusActive means the credential may be granted to workers.
	StatusActive Status = "active"

	// StatusCooldown means the credential hit a quota limit and is suspended
	// until CooldownUntil passes.
	StatusCooldown Status = "cooldown"

	// StatusDead means the service rejected the credential outright. Dead is
	// terminal: the credential is never granted again for the process
	// lifetime, no matter how many refreshes happen.
	StatusDead Status = "dead"
)

// FailureClass tells the pool what kind of failure a worker observed, so the
// pool can decide whether the credential itself is at fault.
type FailureClass int

const (
	// FailureTransient is call-level noise (network, malformed output).
	// Recorded against the credential but causes no status change.
	FailureTransient FailureClass = iota

	// FailureQuota is a rate/quota rejection; the credential cools down.
	FailureQuota

	// FailureInvalidKey is an authentication rejection; the credential dies.
	FailureInvalidKey
)

// Credential is one state-tracked API key. The key string is the identity
// and is never mutated. All mutation goes through the Pool's synchronized
// methods; callers only ever see value snapshots.
type Credential struct {
	Key               string
	Status            Status
	LastUsedAt        time.Time
	CooldownUntil     time.Time
	TotalRequests     int
	ConsecutiveErrors int

	// limiter enforces the minimum inter-request delay for this key.
	// One token per configured delay, burst of one.
	limiter *rate.Limiter
}

// KeyStats is one row of the pool's observability snapshot. The key is
// redacted to a short prefix so snapshots are safe to log or serve.
type KeyStats struct {
	Key               string `json:"key"`
	Status            Status `json:"status"`
	TotalRequests     int    `json:"total_requests"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// redactKey shortens a key to a loggable prefix.
func redactKey(key string) string {
	if len(key) > 6 {
		key = key[:6]
	}
	return key + "..."
}
