package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the server's environment-driven settings.
type Config struct {
	Port  int
	Debug bool
}

// Load reads a .env file when present, then the environment. An out-of-range
// PORT is a startup error rather than a silent fallback.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Port: 8000}

	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("PORT %q is not a number: %w", raw, err)
		}
		if port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("PORT %d is outside 1-65535", port)
		}
		cfg.Port = port
	}

	if raw := os.Getenv("DEBUG"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("DEBUG %q is not a boolean: %w", raw, err)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
