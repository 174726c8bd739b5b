package advisorchat

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Desarso/advisorchat/api"
	"github.com/Desarso/advisorchat/devserver"
	"github.com/Desarso/advisorchat/realtime"
)

// Config holds the client settings and, for the serve command, the dev
// server's. Precedence is defaults, then the YAML file, then the environment.
type Config struct {
	APIURL               string        `yaml:"api_url" env:"ADVISOR_API_URL"`
	SocketURL            string        `yaml:"socket_url" env:"ADVISOR_SOCKET_URL"`
	AuthToken            string        `yaml:"auth_token" env:"ADVISOR_AUTH_TOKEN"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" env:"ADVISOR_MAX_RECONNECT_ATTEMPTS"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay" env:"ADVISOR_RECONNECT_DELAY"`
	RequestTimeout       time.Duration `yaml:"request_timeout" env:"ADVISOR_REQUEST_TIMEOUT"`
	LogLevel             string        `yaml:"log_level" env:"ADVISOR_LOG_LEVEL"`
	LogFormat            string        `yaml:"log_format" env:"ADVISOR_LOG_FORMAT"`

	Server devserver.Config `yaml:"server"`
}

// DefaultConfig points at a backend on localhost.
func DefaultConfig() Config {
	return Config{
		APIURL:               api.DefaultBaseURL,
		MaxReconnectAttempts: realtime.DefaultMaxReconnectAttempts,
		ReconnectDelay:       realtime.DefaultReconnectDelay,
		RequestTimeout:       api.DefaultTimeout,
		LogLevel:             "info",
		LogFormat:            "console",
		Server:               devserver.DefaultConfig(),
	}
}

// LoadConfig reads .env when present, then the YAML file at path (skipped
// when path is empty), then ADVISOR_* and DEVSERVER_* variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the URLs and numeric settings.
func (c Config) Validate() error {
	if _, err := parseHTTPURL(c.APIURL); err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if c.SocketURL != "" {
		u, err := url.Parse(c.SocketURL)
		if err != nil {
			return fmt.Errorf("socket_url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("socket_url: scheme must be ws or wss, got %q", u.Scheme)
		}
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative")
	}
	if c.ReconnectDelay < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

// PushURL is SocketURL when set, otherwise the API URL with a ws scheme and
// a /ws path.
func (c Config) PushURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	u, err := parseHTTPURL(c.APIURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String()
}

// WithAPIURL sets the REST base URL
func (c Config) WithAPIURL(apiURL string) Config {
	c.APIURL = apiURL
	return c
}

// WithSocketURL overrides the derived push URL
func (c Config) WithSocketURL(socketURL string) Config {
	c.SocketURL = socketURL
	return c
}

// WithAuthToken sets the bearer token used by both channels
func (c Config) WithAuthToken(token string) Config {
	c.AuthToken = token
	return c
}

// WithReconnect sets the retry bound and delay
func (c Config) WithReconnect(attempts int, delay time.Duration) Config {
	c.MaxReconnectAttempts = attempts
	c.ReconnectDelay = delay
	return c
}

func (c Config) WithRequestTimeout(d time.Duration) Config {
	c.RequestTimeout = d
	return c
}

// WithLogging sets the log level and format (console or json)
func (c Config) WithLogging(level, format string) Config {
	c.LogLevel = level
	c.LogFormat = format
	return c
}
