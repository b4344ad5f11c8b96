// Package config centralizes runtime settings. Values come from
// defaults with environment variable overrides; godotenv is loaded by
// main before this package reads anything.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	MaxGames    int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:     3000,
		MaxGames: 200,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mg := getEnvInt("MAX_GAMES", 0); mg > 0 {
		cfg.MaxGames = mg
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg
}

// DebugConfig holds the internal observability server settings.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DebugFromEnv returns debug server configuration with environment
// variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DebugConfig{
		Enabled:    os.Getenv("DISABLE_DEBUG_SERVER") != "true",
		ListenAddr: "127.0.0.1:6060",
	}
	if addr := os.Getenv("DEBUG_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Debug  DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Debug:  DebugFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
