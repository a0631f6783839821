package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from path, falling back to ./offersync.yaml,
// then applies OFFERSYNC_* environment overrides on top. A missing file is
// not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OFFERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = "offersync.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	bindEnvKeys(v, cfg)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvKeys registers every known key so AutomaticEnv sees overrides for
// keys absent from the file.
func bindEnvKeys(v *viper.Viper, cfg *Config) {
	keys := []string{
		"market",
		"sync.window_start_hour", "sync.window_end_hour",
		"sync.batch_size", "sync.chunk_delay_seconds",
		"database.ops_path", "database.content_dsn",
		"addrevenue.api_token", "addrevenue.channel_id", "addrevenue.base_url",
		"awin.api_token", "awin.publisher_id", "awin.base_url",
		"awin.rate_limit_calls", "awin.rate_limit_window_seconds",
		"enrichment.api_key", "enrichment.model", "enrichment.base_url",
		"enrichment.max_tokens", "enrichment.temperature",
		"shortener.endpoint", "shortener.signature",
		"brand.fuzzy_threshold",
		"server.addr",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Market == "" {
		return fmt.Errorf("config: market must be set")
	}
	if c.Sync.WindowStartHour < 0 || c.Sync.WindowStartHour > 23 {
		return fmt.Errorf("config: sync.window_start_hour %d out of range", c.Sync.WindowStartHour)
	}
	if c.Sync.WindowEndHour < 0 || c.Sync.WindowEndHour > 24 {
		return fmt.Errorf("config: sync.window_end_hour %d out of range", c.Sync.WindowEndHour)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("config: sync.batch_size must be positive")
	}
	if c.Sync.ChunkDelaySeconds < 0 {
		return fmt.Errorf("config: sync.chunk_delay_seconds must not be negative")
	}
	if c.Brand.FuzzyThreshold <= 0 || c.Brand.FuzzyThreshold >= 1 {
		return fmt.Errorf("config: brand.fuzzy_threshold %v must be in (0, 1)", c.Brand.FuzzyThreshold)
	}
	if c.Awin.RateLimitCalls <= 0 {
		return fmt.Errorf("config: awin.rate_limit_calls must be positive")
	}
	if c.Database.OpsPath == "" {
		return fmt.Errorf("config: database.ops_path must be set")
	}
	return nil
}
