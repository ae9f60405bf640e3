// Package config loads deployment configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// Secret signs and verifies HS256 tokens.
	Secret   string
	Issuer   string
	Audience string

	ClockSkew time.Duration
}

func LoadAuthConfigFromEnv() (AuthConfig, error) {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("missing required env var: AUTH_JWT_SECRET")
	}

	cfg := AuthConfig{
		Secret:    secret,
		Issuer:    os.Getenv("AUTH_JWT_ISSUER"),
		Audience:  os.Getenv("AUTH_JWT_AUDIENCE"),
		ClockSkew: 30 * time.Second,
	}
	if v := os.Getenv("AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("AUTH_CLOCK_SKEW must be a duration (e.g. 30s): %w", err)
		}
		cfg.ClockSkew = d
	}
	return cfg, nil
}

// ProcessorConfig configures the external payment processor client.
type ProcessorConfig struct {
	// StripeSecretKey selects the live Stripe adapter; when empty the
	// in-memory fake is used instead.
	StripeSecretKey string
	Currency        string
	HoldTTL         time.Duration
}

func LoadProcessorConfigFromEnv() (ProcessorConfig, error) {
	cfg := ProcessorConfig{
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        os.Getenv("PAYMENT_CURRENCY"),
		HoldTTL:         24 * time.Hour,
	}
	if v := os.Getenv("PAYMENT_HOLD_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ProcessorConfig{}, fmt.Errorf("PAYMENT_HOLD_TTL must be a duration (e.g. 24h): %w", err)
		}
		cfg.HoldTTL = d
	}
	return cfg, nil
}

// AMQPConfig configures the event publisher. An empty URL disables AMQP and
// falls back to the in-memory recorder.
type AMQPConfig struct {
	URL      string
	Exchange string
}

func LoadAMQPConfigFromEnv() AMQPConfig {
	return AMQPConfig{
		URL:      os.Getenv("AMQP_URL"),
		Exchange: os.Getenv("AMQP_EXCHANGE"),
	}
}

// ServerConfig configures the HTTP listener and the storage backend.
type ServerConfig struct {
	Addr string
	// DatabaseURL selects the Postgres backend; when empty the in-memory
	// repositories are used.
	DatabaseURL string
}

func LoadServerConfigFromEnv() ServerConfig {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return ServerConfig{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}
