package crawler

import (
	"time"
)

type CrawlerConfig struct {
	MaxPages       int
	RequestTimeout time.Duration
	Workers        int
	UserAgent      string
	MaxBodySize    int
}

// DefaultConfig returns a default crawler configuration
func DefaultConfig() *CrawlerConfig {
	return &CrawlerConfig{
		MaxPages:       50,
		RequestTimeout: 10 * time.Second,
		Workers:        4,
		UserAgent:      "Seoscope-Crawler/1.0",
		MaxBodySize:    4 << 20,
	}
}

func (c *CrawlerConfig) withDefaults() *CrawlerConfig {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	cfg := *c
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	return &cfg
}
