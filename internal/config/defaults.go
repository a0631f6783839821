package config

import (
	"os"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Market:  "SE",
		Sync: SyncConfig{
			WindowStartHour:   0,
			WindowEndHour:     6,
			BatchSize:         20,
			ChunkDelaySeconds: 45,
		},
		Database: DatabaseConfig{
			OpsPath: "offersync.db",
		},
		Addrevenue: AddrevenueConfig{
			BaseURL: "https://addrevenue.io/api/v2",
		},
		Awin: AwinConfig{
			BaseURL:          "https://api.awin.com",
			RateLimitCalls:   18,
			RateLimitWindowS: 60,
		},
		Enrichment: EnrichmentConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   300,
			Temperature: 0.7,
		},
		Brand: BrandConfig{
			FuzzyThreshold: 0.80,
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
	}
}

// WriteDefault writes a commented starter configuration to a file
func WriteDefault(path string) error {
	content := `# offersync configuration
version: "1"

# Target market code
market: SE

sync:
  # Processing window, local hours [start, end)
  window_start_hour: 0
  window_end_hour: 6
  batch_size: 20
  chunk_delay_seconds: 45

database:
  # sqlite file for sync state, locks and the retry queue
  ops_path: offersync.db
  # postgres DSN for brands and offers
  content_dsn: "postgres://offersync@localhost:5432/offersync"

addrevenue:
  api_token: ""
  channel_id: ""

awin:
  api_token: ""
  publisher_id: ""
  # programmedetails quota
  rate_limit_calls: 18
  rate_limit_window_seconds: 60

enrichment:
  api_key: ""
  model: gpt-4o-mini
  max_tokens: 300
  temperature: 0.7

shortener:
  endpoint: ""
  signature: ""

brand:
  fuzzy_threshold: 0.80

server:
  addr: ":8090"
`
	return os.WriteFile(path, []byte(content), 0644)
}
