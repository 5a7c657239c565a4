package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// HubConfig carries all runtime configuration for the collaboration hub.
type HubConfig struct {
	ServiceName string `envDefault:"collab-hub" env:"SERVICE_NAME"`
	HTTPPort    string `envDefault:"8090"       env:"HTTP_PORT"`

	// Shared secret for verifying access tokens minted by the auth service.
	TokenSecret      string        `envDefault:"dev-only-secret" env:"TOKEN_SECRET"`
	TokenClockLeeway time.Duration `envDefault:"30s"             env:"TOKEN_CLOCK_LEEWAY"`

	DatabaseURI string `envDefault:"file:collab.db?_pragma=foreign_keys(1)" env:"DATABASE_URI"`

	// Presence records older than the liveness window are reported as away.
	PresenceLivenessWindow time.Duration `envDefault:"5m" env:"PRESENCE_LIVENESS_WINDOW"`

	// Fixed-window limiter guarding chat sends.
	RateLimitWindow    time.Duration `envDefault:"60s" env:"RATE_LIMIT_WINDOW"`
	RateLimitMaxEvents int           `envDefault:"30"  env:"RATE_LIMIT_MAX_EVENTS"`

	// Optional Redis backend for presence and rate-limit stores. When unset the
	// hub keeps process-local stores, which is the documented single-process
	// baseline.
	RedisURI string `env:"REDIS_URI"`

	// Broadcast backbone for multi-process fan-out. The in-memory default only
	// reaches the local process.
	BackboneTopicURI        string `envDefault:"mem://room.broadcast" env:"BACKBONE_TOPIC_URI"`
	BackboneSubscriptionURI string `envDefault:"mem://room.broadcast" env:"BACKBONE_SUBSCRIPTION_URI"`
	BackboneEnabled         bool   `envDefault:"false"                env:"BACKBONE_ENABLED"`

	// Per-connection outbound buffer; a member that cannot drain this many
	// events is treated as dead and disconnected.
	ConnectionSendBuffer int `envDefault:"256" env:"CONNECTION_SEND_BUFFER"`

	MaxMessageLength int `envDefault:"4096" env:"MAX_MESSAGE_LENGTH"`
}

// Load parses configuration from the environment and validates it.
func Load(_ context.Context) (HubConfig, error) {
	var cfg HubConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
// Returns an error joining every validation failure.
func (c *HubConfig) Validate() error {
	var errs []error

	if c.TokenSecret == "" {
		errs = append(errs, errors.New("TokenSecret cannot be empty"))
	}
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DatabaseURI cannot be empty"))
	}
	if c.PresenceLivenessWindow <= 0 {
		errs = append(errs, errors.New("PresenceLivenessWindow must be > 0"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RateLimitWindow must be > 0"))
	}
	if c.RateLimitMaxEvents <= 0 {
		errs = append(errs, errors.New("RateLimitMaxEvents must be > 0"))
	}
	if c.ConnectionSendBuffer <= 0 {
		errs = append(errs, errors.New("ConnectionSendBuffer must be > 0"))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("MaxMessageLength must be > 0"))
	}

	if c.BackboneEnabled {
		if err := validateQueueURI(c.BackboneTopicURI, "BackboneTopicURI"); err != nil {
			errs = append(errs, err)
		}
		if err := validateQueueURI(c.BackboneSubscriptionURI, "BackboneSubscriptionURI"); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateQueueURI checks that a pubsub URI has a supported scheme.
func validateQueueURI(uri, name string) error {
	if uri == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}

	validSchemes := []string{"mem://", "nats://", "rabbit://", "kafka://", "awssns://", "gcppubsub://"}
	for _, scheme := range validSchemes {
		if strings.HasPrefix(uri, scheme) {
			return nil
		}
	}

	return fmt.Errorf("%s has invalid scheme (must be one of: %s): %s", name, strings.Join(validSchemes, ", "), uri)
}
