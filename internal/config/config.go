// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PALCO_ env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":3001".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database file.
	DBPath string `koanf:"db_path"`

	// VideosPath and SoundsPath are the media roots served over HTTP.
	VideosPath string `koanf:"videos_path"`
	SoundsPath string `koanf:"sounds_path"`

	// CacheTTLSeconds bounds the catalog snapshot lifetime.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CatalogPageSize sets the page size for catalog refetches.
	CatalogPageSize int `koanf:"catalog_page_size"`

	// TopN sets the default ranking board size.
	TopN int `koanf:"top_n"`

	// MaxRankingLimit caps GET /api/ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// PollIntervalSeconds sets the idle landing-view refresh cadence.
	PollIntervalSeconds int `koanf:"poll_interval_seconds"`

	// MinPerformanceSeconds is the shortest playback that still scores.
	MinPerformanceSeconds int `koanf:"min_performance_seconds"`

	// RevealDelaySeconds pauses between the drum roll and the score.
	RevealDelaySeconds int `koanf:"reveal_delay_seconds"`

	// ReturnDelaySeconds pauses before returning to the landing view.
	ReturnDelaySeconds int `koanf:"return_delay_seconds"`
}

// New creates a Config with defaults. Context is accepted first to keep
// the signature stable once loading grows context-aware sources.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":3001",
		DBPath:                "palco.db",
		VideosPath:            "videos",
		SoundsPath:            "sounds",
		CacheTTLSeconds:       3600,
		CatalogPageSize:       1000,
		TopN:                  5,
		MaxRankingLimit:       100,
		PollIntervalSeconds:   5,
		MinPerformanceSeconds: 60,
		RevealDelaySeconds:    7,
		ReturnDelaySeconds:    6,
	}
}
