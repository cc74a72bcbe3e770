package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional enrich.yaml in the working
// directory and from ENRICH_* environment variables (environment wins), then
// validates the result. A missing config file is fine; missing required
// fields are not.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("enrich")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for everything that has a sensible one;
// only file locations and the key file have no default fallback beyond the
// conventional names below.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.stats_addr", "")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("catalog.input_file", "catalog_export.csv")
	v.SetDefault("catalog.output_file", "catalog_enriched.csv")
	v.SetDefault("catalog.checkpoint_file", "processing_journal.json")

	v.SetDefault("credentials.keys_file", "api_keys.txt")
	v.SetDefault("credentials.min_delay", "4s")
	v.SetDefault("credentials.cooldown", "24h")
	v.SetDefault("credentials.watch_keys", true)

	v.SetDefault("llm.models", []string{
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemini-1.5-flash",
	})

	v.SetDefault("worker.worker_count", 12)
	v.SetDefault("worker.batch_size", 30)
	v.SetDefault("worker.max_batch_retries", 3)
	v.SetDefault("worker.acquire_backoff", "10s")
	v.SetDefault("worker.retry_backoff_min", "2s")
	v.SetDefault("worker.retry_backoff_max", "5s")
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.progress_interval", "10s")
	v.SetDefault("worker.loose_match", false)
}
