package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	MongoURI      string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string        `envconfig:"MONGO_DB" default:"meetsync"`
	RedisAddr     string        `envconfig:"REDIS_URI" default:"localhost:6379"`
	Port          string        `envconfig:"PORT" default:"8080"`
	CacheTTL      time.Duration `envconfig:"MEETING_CACHE_TTL" default:"24h"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
