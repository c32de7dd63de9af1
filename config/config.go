// Package config loads the cross-reference index's runtime configuration
// via viper: storage connection details, collection names, default
// read-side budget and traversal depth, and the compound-key separators.
// Connection bootstrapping itself (dialing Mongo, retry/backoff) is out
// of scope; this package only produces the values a caller needs to do
// that.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/evalgo-org/sportsxref/keycodec"
)

// Config is the full set of tunables this module reads at startup.
type Config struct {
	MongoURI              string
	Database              string
	AggregationCollection string
	DefaultBudget         int
	DefaultMaxDepth       int
	RequestTimeout        time.Duration
	Separators            keycodec.Separators
}

// Load reads configuration from the environment (prefixed SPORTSXREF_)
// and, if present, a config file named sportsxref.yaml on viper's search
// path, using the same viper bootstrap idiom as the rest of the stack.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPORTSXREF")
	v.AutomaticEnv()

	v.SetConfigName("sportsxref")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database", "sportsxref")
	v.SetDefault("aggregation_collection", "aggregation_records")
	v.SetDefault("default_budget", 50)
	v.SetDefault("default_max_depth", 6)
	v.SetDefault("request_timeout_ms", 10_000)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		MongoURI:              v.GetString("mongo_uri"),
		Database:              v.GetString("database"),
		AggregationCollection: v.GetString("aggregation_collection"),
		DefaultBudget:         v.GetInt("default_budget"),
		DefaultMaxDepth:       v.GetInt("default_max_depth"),
		RequestTimeout:        time.Duration(v.GetInt("request_timeout_ms")) * time.Millisecond,
		Separators:            keycodec.DefaultSeparators(),
	}

	if cfg.DefaultBudget < 0 {
		return nil, fmt.Errorf("default_budget must be >= 0, got %d", cfg.DefaultBudget)
	}
	if cfg.DefaultMaxDepth < 1 {
		return nil, fmt.Errorf("default_max_depth must be >= 1, got %d", cfg.DefaultMaxDepth)
	}

	return cfg, nil
}
