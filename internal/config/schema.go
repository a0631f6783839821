package config

// Config is the full offersync configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Target market code, e.g. "SE"
	Market string `yaml:"market" mapstructure:"market"`

	// Processing window and chunking
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Databases: the sqlite ops store and the postgres content store
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Upstream networks
	Addrevenue AddrevenueConfig `yaml:"addrevenue" mapstructure:"addrevenue"`
	Awin       AwinConfig       `yaml:"awin" mapstructure:"awin"`

	// Content generation
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`

	// URL shortener
	Shortener ShortenerConfig `yaml:"shortener" mapstructure:"shortener"`

	// Brand matching
	Brand BrandConfig `yaml:"brand" mapstructure:"brand"`

	// HTTP status/trigger server
	Server ServerConfig `yaml:"server" mapstructure:"server"`
}

// SyncConfig configures the daily run shape
type SyncConfig struct {
	WindowStartHour   int `yaml:"window_start_hour" mapstructure:"window_start_hour"`
	WindowEndHour     int `yaml:"window_end_hour" mapstructure:"window_end_hour"`
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	ChunkDelaySeconds int `yaml:"chunk_delay_seconds" mapstructure:"chunk_delay_seconds"`
}

// DatabaseConfig holds both data stores
type DatabaseConfig struct {
	// OpsPath is the sqlite file carrying sync state, locks and retries
	OpsPath string `yaml:"ops_path" mapstructure:"ops_path"`
	// ContentDSN is the postgres DSN for brands and offers
	ContentDSN string `yaml:"content_dsn" mapstructure:"content_dsn"`
}

// AddrevenueConfig configures the Addrevenue client
type AddrevenueConfig struct {
	APIToken  string `yaml:"api_token" mapstructure:"api_token"`
	ChannelID string `yaml:"channel_id" mapstructure:"channel_id"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// AwinConfig configures the Awin client and its API quota
type AwinConfig struct {
	APIToken         string `yaml:"api_token" mapstructure:"api_token"`
	PublisherID      string `yaml:"publisher_id" mapstructure:"publisher_id"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	RateLimitCalls   int    `yaml:"rate_limit_calls" mapstructure:"rate_limit_calls"`
	RateLimitWindowS int    `yaml:"rate_limit_window_seconds" mapstructure:"rate_limit_window_seconds"`
}

// EnrichmentConfig configures the chat-completion provider
type EnrichmentConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ShortenerConfig configures the YOURLS endpoint
type ShortenerConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Signature string `yaml:"signature" mapstructure:"signature"`
}

// BrandConfig configures fuzzy brand matching
type BrandConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// ServerConfig configures the operator HTTP server
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}
