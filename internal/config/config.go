package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates settings for the client binary and the dev server.
type Config struct {
	Client ClientConfig
	Server ServerConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Client: client, Server: server}, nil
}

// ClientConfig describes how the client reaches the backend.
type ClientConfig struct {
	BaseURL      string
	WSURL        string
	RefreshGrace time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	base := getEnvOrDefault("CHATLINE_SERVER_URL", "http://localhost:8000")
	base = strings.TrimRight(base, "/")

	wsURL := strings.TrimSpace(os.Getenv("CHATLINE_WS_URL"))
	if wsURL == "" {
		// Push endpoint lives on the same host as the REST API.
		wsURL = strings.Replace(base, "http", "ws", 1) + "/ws"
	}

	grace := 50 * time.Millisecond
	if override, err := parseOptionalIntEnv("CHATLINE_REFRESH_GRACE_MS"); err != nil {
		return ClientConfig{}, err
	} else if override != nil {
		grace = time.Duration(*override) * time.Millisecond
	}

	return ClientConfig{BaseURL: base, WSURL: wsURL, RefreshGrace: grace}, nil
}

// ServerConfig describes the dev server.
type ServerConfig struct {
	Addr        string
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	accessTTL := 15 * time.Minute
	if override, err := parseOptionalIntEnv("ACCESS_TOKEN_TTL_MINUTES"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		accessTTL = time.Duration(*override) * time.Minute
	}

	refreshTTL := 7 * 24 * time.Hour
	if override, err := parseOptionalIntEnv("REFRESH_TOKEN_TTL_MINUTES"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		refreshTTL = time.Duration(*override) * time.Minute
	}

	return ServerConfig{
		Addr:        addr,
		TokenSecret: getEnvOrDefault("TOKEN_SECRET", "chatline-dev-secret"),
		AccessTTL:   accessTTL,
		RefreshTTL:  refreshTTL,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
