package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CrawlerConfig holds the crawl-side settings
type CrawlerConfig struct {
	Workers              int           `yaml:"workers"`                          // Number of parallel crawl workers
	MaxDepth             int           `yaml:"max_depth"`                        // Maximum same-domain link depth
	UserAgent            string        `yaml:"user_agent"`                       // Agent string for fetches and robots matching
	SeedURLs             []string      `yaml:"seed_urls"`                        // Initial frontier entries (depth 0, unowned)
	PolitenessDelay      time.Duration `yaml:"politeness_delay,omitempty"`       // Fixed sleep after each crawled page
	StarvationBackoff    time.Duration `yaml:"starvation_backoff,omitempty"`     // Sleep between empty frontier pops
	StarvationLimit      int           `yaml:"starvation_limit,omitempty"`       // Consecutive empty pops before worker exit
	RecrawlTTL           time.Duration `yaml:"recrawl_ttl,omitempty"`            // Dedup ledger TTL
	MaxPageSizeBytes     int64         `yaml:"max_page_size_bytes,omitempty"`    // Fetch body cap
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches,omitempty"` // Global in-flight fetch cap across workers
	Languages            []string      `yaml:"languages,omitempty"`              // Accepted Content-Language values (BCP 47)
	DeferIndexing        bool          `yaml:"defer_indexing,omitempty"`         // Park raw pages for cmd/indexer instead of indexing inline
}

// IndexerConfig holds settings for the standalone indexing process
type IndexerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty"` // Sleep when the pending queue is empty
}

// StorageConfig selects and locates the storage backend
type StorageConfig struct {
	Backend  string `yaml:"backend,omitempty"` // "badger" or "memory"
	StateDir string `yaml:"state_dir"`         // Badger database directory
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout             time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// AppConfig holds the global application configuration shared by the
// crawler and indexer binaries
type AppConfig struct {
	LogLevel   string           `yaml:"log_level,omitempty"`
	Crawler    CrawlerConfig    `yaml:"crawler"`
	Indexer    IndexerConfig    `yaml:"indexer,omitempty"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTPClient HTTPClientConfig `yaml:"http_client,omitempty"`
}

// Load reads, parses, and validates the YAML config file at path
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
