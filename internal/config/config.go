package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv          string
	Port            string
	BackendAPIURL   string
	BackendWSURL    string
	DefaultSource   string
	DefaultLanguage string
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	MaxViewers      int
	LogLevel        string
	LogFormat       string
}

func Load() (*Config, error) {
	pollSeconds, err := getEnvInt("POLL_INTERVAL_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	maxViewers, err := getEnvInt("MAX_VIEWERS", 50)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		BackendAPIURL:   getEnv("BACKEND_API_URL", ""),
		BackendWSURL:    getEnv("BACKEND_WS_URL", ""),
		DefaultSource:   getEnv("DEFAULT_SOURCE", "custom"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		PollInterval:    time.Duration(pollSeconds) * time.Second,
		RequestTimeout:  time.Duration(timeoutSeconds) * time.Second,
		MaxViewers:      maxViewers,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	if cfg.BackendAPIURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is required")
	}

	if cfg.BackendWSURL == "" {
		wsURL, err := deriveWSURL(cfg.BackendAPIURL)
		if err != nil {
			return nil, fmt.Errorf("cannot derive BACKEND_WS_URL from BACKEND_API_URL: %w", err)
		}
		cfg.BackendWSURL = wsURL
	}

	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be at least 1")
	}
	if cfg.MaxViewers < 1 {
		return nil, fmt.Errorf("MAX_VIEWERS must be at least 1")
	}

	return cfg, nil
}

// deriveWSURL swaps the HTTP scheme for the WebSocket one and appends the
// backend's stream socket path.
func deriveWSURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws/stream"
	return u.String(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
