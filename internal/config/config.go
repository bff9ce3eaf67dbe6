package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration values.
type Config struct {
	Secret      string
	DatabaseDSN string
	HTTPPort    string
	SeedPath    string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	_ = godotenv.Load()

	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "opticare.db"
	}

	// Optional CSV with an initial stock load, see internal/seed.
	seedPath := os.Getenv("SEED_PATH")

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Warn().Str("port", port).Msg("invalid HTTP_PORT value, defaulting to 8080")
		port = "8080"
	}

	return Config{Secret: secret, DatabaseDSN: dsn, HTTPPort: port, SeedPath: seedPath}
}
