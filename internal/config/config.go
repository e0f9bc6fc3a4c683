// Package config binds the core's environment-variable surface (spec
// §6 plus scoring/CLI additions) via viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration for the core.
type Config struct {
	RPCEndpoint    string
	RPCMinInterval time.Duration
	RPCMaxRetries  int
	DatabaseURL    string

	IngestBatchSize        int
	IngestMaxConcurrent    int
	IngestBatchDelay       time.Duration
	IngestMaxAgeDays       int
	IngestContinueOnError  bool

	ScoringMaxDepth       int
	ScoringThreshold      float64
	ScoringLimit          int
	ScoringLookbackDays   int

	LogLevel string
}

// Load reads environment variables (and an optional sidewallet.yaml in
// the working directory) into a Config with spec-documented defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("sidewallet")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc_min_interval_ms", 120)
	v.SetDefault("rpc_max_retries", 5)
	v.SetDefault("database_url", "memory")

	v.SetDefault("ingest_batch_size", 100)
	v.SetDefault("ingest_max_concurrent", 5)
	v.SetDefault("ingest_batch_delay_ms", 1000)
	v.SetDefault("ingest_max_age_days", 30)
	v.SetDefault("ingest_continue_on_error", true)

	v.SetDefault("scoring_max_depth", 3)
	v.SetDefault("scoring_threshold", 0.35)
	v.SetDefault("scoring_limit", 25)
	v.SetDefault("scoring_lookback_days", 90)

	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	maxRetries := v.GetInt("rpc_max_retries")
	if maxRetries < 1 {
		maxRetries = 1
	}
	if maxRetries > 15 {
		maxRetries = 15
	}

	return &Config{
		RPCEndpoint:    v.GetString("rpc_endpoint"),
		RPCMinInterval: time.Duration(v.GetInt64("rpc_min_interval_ms")) * time.Millisecond,
		RPCMaxRetries:  maxRetries,
		DatabaseURL:    v.GetString("database_url"),

		IngestBatchSize:       v.GetInt("ingest_batch_size"),
		IngestMaxConcurrent:   v.GetInt("ingest_max_concurrent"),
		IngestBatchDelay:      time.Duration(v.GetInt64("ingest_batch_delay_ms")) * time.Millisecond,
		IngestMaxAgeDays:      v.GetInt("ingest_max_age_days"),
		IngestContinueOnError: v.GetBool("ingest_continue_on_error"),

		ScoringMaxDepth:     v.GetInt("scoring_max_depth"),
		ScoringThreshold:    v.GetFloat64("scoring_threshold"),
		ScoringLimit:        v.GetInt("scoring_limit"),
		ScoringLookbackDays: v.GetInt("scoring_lookback_days"),

		LogLevel: v.GetString("log_level"),
	}, nil
}
