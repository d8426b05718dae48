package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// BaseURL is the public base URL of this service. The Graph
	// subscription's notification callback is derived from it.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Microsoft OAuth application credentials, used to refresh stored
	// account tokens before talking to the Graph API.
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`
	MicrosoftTenant       string `env:"MICROSOFT_TENANT" envDefault:"common"`

	// SubscriptionClientState is echoed back by the Graph API on every
	// change notification and lets us verify the notification originates
	// from a subscription we created.
	SubscriptionClientState string `env:"SUBSCRIPTION_CLIENT_STATE" envDefault:"inboxpilot-subscription"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// NotificationURL returns the callback URL registered with every mail
// subscription.
func (c *Config) NotificationURL() string {
	return c.BaseURL + "/api/outlook/notifications"
}

// Load loads configuration from environment variables, reading a .env file
// first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
