package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every process-wide setting. It is loaded once at startup and
// read-only afterwards; handlers receive it by value.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"search-reporter"`
	Env     string `env:"ENV" envDefault:"DEV"`
	Port    string `env:"PORT" envDefault:"8080"`

	// BaseURL is the externally visible origin of this service. The OAuth
	// redirect URI is derived from it.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Identity provider settings
	IssuerURL    string   `env:"OIDC_ISSUER_URL" envDefault:"https://accounts.google.com"`
	ClientID     string   `env:"OIDC_CLIENT_ID"`
	ClientSecret string   `env:"OIDC_CLIENT_SECRET"`
	Scopes       []string `env:"OIDC_SCOPES" envSeparator:" " envDefault:"openid email profile https://www.googleapis.com/auth/webmasters.readonly"`

	// SessionSecret signs the browser session cookie. It must be kept
	// confidential; rotating it invalidates all live sessions.
	SessionSecret      string        `env:"SESSION_SECRET"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	// Default Search Console report, used when the request carries no
	// overriding query parameters.
	ReportSiteURL   string `env:"REPORT_SITE_URL"`
	ReportStartDate string `env:"REPORT_START_DATE" envDefault:"2023-01-01"`
	ReportEndDate   string `env:"REPORT_END_DATE" envDefault:"2023-01-31"`
	ReportDimension string `env:"REPORT_DIMENSION" envDefault:"searchAppearance"`
	ReportRowLimit  int    `env:"REPORT_ROW_LIMIT" envDefault:"10"`
}

// Load reads a local .env file if one exists, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("[config Load] reading .env: %w", err)
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("[config Load] parsing environment: %w", err)
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "OIDC_CLIENT_SECRET")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.ReportSiteURL == "" {
		missing = append(missing, "REPORT_SITE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("[config Load] missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RedirectURL is the callback endpoint registered with the identity provider.
func (c Config) RedirectURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth"
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the service runs in the development environment.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "DEV")
}
