package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the server.
type Config struct {
	Port        string `env:"PORT,default=3000"`
	APIKey      string `env:"API_KEY,default=your-secure-api-key-here"`
	Environment string `env:"RAILWAY_ENVIRONMENT,default=development"`

	// Remote status store. When FirebaseURL is empty the status sink
	// degrades to a no-op and the rest of the pipeline runs unchanged.
	FirebaseURL    string        `env:"FIREBASE_DATABASE_URL"`
	FirebaseSecret string        `env:"FIREBASE_DATABASE_SECRET"`
	PublishTimeout time.Duration `env:"STATUS_PUBLISH_TIMEOUT,default=1500ms"`

	// Admission gate.
	MaxRequestsPerMinute int           `env:"MAX_REQUESTS_PER_MINUTE,default=10"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`

	// Brew worker.
	BrewDelay     time.Duration `env:"BREW_DELAY,default=2s"`
	BrewQueueSize int           `env:"BREW_QUEUE_SIZE,default=64"`
}

// Load reads an optional .env file, then decodes configuration from the
// environment.
func Load() (Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	return cfg, nil
}

// KeyConfigured reports whether the API key was changed from the development
// placeholder.
func (c Config) KeyConfigured() bool {
	return c.APIKey != "your-secure-api-key-here"
}
