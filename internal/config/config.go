package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Catalog     CatalogConfig     `mapstructure:"catalog"     validate:"required"`
	Credentials CredentialsConfig `mapstructure:"credentials" validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Worker      WorkerConfig      `mapstructure:"worker"      validate:"required"`
}

// ServerConfig contains logging and observability settings.
type ServerConfig struct {
	// StatsAddr is the listen address for the stats endpoint the dashboard
	// polls. Empty disables the endpoint.
	StatsAddr string `mapstructure:"stats_addr"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// CatalogConfig locates the input export, the final enriched output, and the
// durable checkpoint file.
type CatalogConfig struct {
	InputFile      string `mapstructure:"input_file"      validate:"required"`
	OutputFile     string `mapstructure:"output_file"     validate:"required"`
	CheckpointFile string `mapstructure:"checkpoint_file" validate:"required"`
}

// CredentialsConfig controls the API key pool.
type CredentialsConfig struct {
	KeysFile string `mapstructure:"keys_file" validate:"required"`

	// MinDelay is the minimum time between two uses of the same key.
	MinDelay time.Duration `mapstructure:"min_delay" validate:"min=0"`

	// Cooldown is how long a key rests after hitting its quota.
	Cooldown time.Duration `mapstructure:"cooldown" validate:"min=0"`

	// WatchKeys enables the fsnotify watcher that picks up keys added to the
	// file during a run.
	WatchKeys bool `mapstructure:"watch_keys"`
}

// LLMConfig contains the Gemini integration settings.
type LLMConfig struct {
	// Models is the preferred-model fallback list, tried in order.
	Models []string `mapstructure:"models" validate:"required,min=1"`
}

// WorkerConfig tunes the worker pool and its retry behavior.
type WorkerConfig struct {
	WorkerCount      int           `mapstructure:"worker_count"      validate:"required,gt=0"`
	BatchSize        int           `mapstructure:"batch_size"        validate:"required,gt=0"`
	MaxBatchRetries  int           `mapstructure:"max_batch_retries" validate:"gte=0"`
	AcquireBackoff   time.Duration `mapstructure:"acquire_backoff"`
	RetryBackoffMin  time.Duration `mapstructure:"retry_backoff_min"`
	RetryBackoffMax  time.Duration `mapstructure:"retry_backoff_max" validate:"gtefield=RetryBackoffMin"`
	QueueSize        int           `mapstructure:"queue_size"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`

	// LooseMatch enables the fuzzy title fallback when the service echoes
	// identifiers imperfectly. Off by default because textual containment
	// can misattribute results between similar titles.
	LooseMatch bool `mapstructure:"loose_match"`
}
