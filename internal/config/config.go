package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sujalbistaa/crown/internal/logging"
)

// Config is the full process configuration.
type Config struct {
	Port         string        `env:"PORT" envDefault:"3000"`
	DatabaseURL  string        `env:"DATABASE_URL" envDefault:"sqlite://crown.db"`
	BaseURL      string        `env:"BASE_URL" envDefault:"http://localhost:3000"`
	CORSOrigin   string        `env:"CORS_ORIGIN" envDefault:"*"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookie bool          `env:"COOKIE_SECURE" envDefault:"false"`

	Log logging.Config `envPrefix:"LOG_"`

	Google   ProviderCredentials
	Facebook ProviderCredentials
	Twitter  ProviderCredentials
}

// ProviderCredentials are the client credentials issued by a federated
// login provider. A provider with an empty ClientID is disabled.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

// providerEnv keeps the variable names the site has always used.
type providerEnv struct {
	GoogleClientID        string `env:"CLIENT_ID"`
	GoogleClientSecret    string `env:"CLIENT_SECRET"`
	FacebookAppID         string `env:"APP_ID"`
	FacebookAppSecret     string `env:"APP_SECRET"`
	TwitterConsumerID     string `env:"CONSUMER_ID"`
	TwitterConsumerSecret string `env:"CONSUMER_SECRET"`
}

// Load reads an optional .env file and then parses the environment.
// The returned bool reports whether a .env file was found.
func Load(files ...string) (Config, bool, error) {
	foundDotenv := true
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, false, fmt.Errorf("load dotenv: %w", err)
		}
		foundDotenv = false
	}

	cfg, err := Parse()
	if err != nil {
		return Config{}, foundDotenv, err
	}

	return cfg, foundDotenv, nil
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	var raw providerEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse provider env: %w", err)
	}

	cfg.Google = ProviderCredentials{ClientID: raw.GoogleClientID, ClientSecret: raw.GoogleClientSecret}
	cfg.Facebook = ProviderCredentials{ClientID: raw.FacebookAppID, ClientSecret: raw.FacebookAppSecret}
	cfg.Twitter = ProviderCredentials{ClientID: raw.TwitterConsumerID, ClientSecret: raw.TwitterConsumerSecret}

	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}

	return cfg, nil
}

// CallbackURL is where a provider sends the browser back after consent.
func (c Config) CallbackURL(provider string) string {
	return c.BaseURL + "/auth/" + provider + "/crown"
}
