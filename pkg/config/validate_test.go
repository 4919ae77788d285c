package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"webindex/pkg/utils"
)

func validConfig() AppConfig {
	return AppConfig{
		Crawler: CrawlerConfig{
			SeedURLs: []string{"http://example.com/"},
		},
		Storage: StorageConfig{Backend: "badger", StateDir: "/tmp/state"},
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{
			name:   "NegativeWorkers",
			mutate: func(c *AppConfig) { c.Crawler.Workers = -1 },
		},
		{
			name:   "NegativeMaxDepth",
			mutate: func(c *AppConfig) { c.Crawler.MaxDepth = -2 },
		},
		{
			name:   "NegativePolitenessDelay",
			mutate: func(c *AppConfig) { c.Crawler.PolitenessDelay = -1 },
		},
		{
			name:   "SeedWithoutScheme",
			mutate: func(c *AppConfig) { c.Crawler.SeedURLs = []string{"example.com/x"} },
		},
		{
			name:   "SeedWithFTPScheme",
			mutate: func(c *AppConfig) { c.Crawler.SeedURLs = []string{"ftp://example.com/"} },
		},
		{
			name:   "UnknownBackend",
			mutate: func(c *AppConfig) { c.Storage.Backend = "postgres" },
		},
		{
			name: "BadgerWithoutStateDir",
			mutate: func(c *AppConfig) {
				c.Storage.Backend = "badger"
				c.Storage.StateDir = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrConfigValidation), "want ErrConfigValidation, got %v", err)
		})
	}
}

func TestValidateMemoryBackendNeedsNoStateDir(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = StorageConfig{Backend: "memory"}
	assert.NoError(t, cfg.Validate())
}
