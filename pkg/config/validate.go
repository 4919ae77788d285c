package config

import (
	"fmt"
	"net/url"
	"time"

	"webindex/pkg/utils"
)

// Defaults applied by Validate for omitted fields.
const (
	DefaultWorkers              = 4
	DefaultMaxDepth             = 2
	DefaultPolitenessDelay      = 5 * time.Second
	DefaultStarvationBackoff    = 5 * time.Second
	DefaultStarvationLimit      = 5
	DefaultRecrawlTTL           = 7 * 24 * time.Hour
	DefaultMaxPageSizeBytes     = 8 << 20 // 8 MiB
	DefaultMaxConcurrentFetches = 16
	DefaultPollInterval         = 10 * time.Second
	DefaultHTTPTimeout          = 30 * time.Second
	DefaultUserAgent            = "webindex/1.0"
)

// Validate checks the configuration for consistency and fills in defaults.
// It is the only place defaults are applied; both binaries call it.
func (c *AppConfig) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	cr := &c.Crawler
	if cr.Workers == 0 {
		cr.Workers = DefaultWorkers
	}
	if cr.Workers < 0 {
		return fmt.Errorf("%w: crawler.workers must be positive, got %d", utils.ErrConfigValidation, cr.Workers)
	}
	if cr.MaxDepth == 0 {
		cr.MaxDepth = DefaultMaxDepth
	}
	if cr.MaxDepth < 0 {
		return fmt.Errorf("%w: crawler.max_depth must be non-negative, got %d", utils.ErrConfigValidation, cr.MaxDepth)
	}
	if cr.UserAgent == "" {
		cr.UserAgent = DefaultUserAgent
	}
	if cr.PolitenessDelay == 0 {
		cr.PolitenessDelay = DefaultPolitenessDelay
	}
	if cr.PolitenessDelay < 0 {
		return fmt.Errorf("%w: crawler.politeness_delay must be non-negative", utils.ErrConfigValidation)
	}
	if cr.StarvationBackoff <= 0 {
		cr.StarvationBackoff = DefaultStarvationBackoff
	}
	if cr.StarvationLimit <= 0 {
		cr.StarvationLimit = DefaultStarvationLimit
	}
	if cr.RecrawlTTL <= 0 {
		cr.RecrawlTTL = DefaultRecrawlTTL
	}
	if cr.MaxPageSizeBytes <= 0 {
		cr.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	}
	if cr.MaxConcurrentFetches <= 0 {
		cr.MaxConcurrentFetches = DefaultMaxConcurrentFetches
	}
	if len(cr.Languages) == 0 {
		cr.Languages = []string{"en"}
	}

	for i, seed := range cr.SeedURLs {
		parsed, err := url.Parse(seed)
		if err != nil {
			return fmt.Errorf("%w: crawler.seed_urls[%d] '%s': %v", utils.ErrConfigValidation, i, seed, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%w: crawler.seed_urls[%d] '%s': scheme must be http or https", utils.ErrConfigValidation, i, seed)
		}
		if parsed.Hostname() == "" {
			return fmt.Errorf("%w: crawler.seed_urls[%d] '%s': missing host", utils.ErrConfigValidation, i, seed)
		}
	}

	if c.Indexer.PollInterval <= 0 {
		c.Indexer.PollInterval = DefaultPollInterval
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "badger"
	case "badger", "memory":
	default:
		return fmt.Errorf("%w: storage.backend must be 'badger' or 'memory', got '%s'", utils.ErrConfigValidation, c.Storage.Backend)
	}
	if c.Storage.Backend == "badger" && c.Storage.StateDir == "" {
		return fmt.Errorf("%w: storage.state_dir is required for the badger backend", utils.ErrConfigValidation)
	}

	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = DefaultHTTPTimeout
	}

	return nil
}
