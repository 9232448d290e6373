package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is the reference API server configuration.
type Config struct {
	Env    string
	Port   string
	DBURL  string // empty keeps everything in memory
	Origin string // CORS
	Secret string // JWT signing key

	// bootstrap admin, created on start when AdminEmail is set
	AdminEmail    string
	AdminPassword string
}

// Client configures the helpdesk CLI and anything else embedding the client core.
type Client struct {
	Env       string
	APIURL    string
	TokenFile string // empty means the per-user default
	Timeout   time.Duration
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// loadDotenv reads .env from the working directory if there is one. Real
// environment variables win.
func loadDotenv() {
	_ = godotenv.Load()
}

func Load() Config {
	loadDotenv()
	return Config{
		Env:    env("APP_ENV", "dev"),
		Port:   env("API_PORT", "4000"),
		DBURL:  env("DB_DSN", ""),
		Origin: env("CORS_ORIGIN", "http://localhost:3000"),
		Secret: env("SESSION_SECRET", "dev-secret-change-me"),

		AdminEmail:    env("ADMIN_EMAIL", ""),
		AdminPassword: env("ADMIN_PASSWORD", ""),
	}
}

func LoadClient() Client {
	loadDotenv()
	return Client{
		Env:       env("APP_ENV", "prod"),
		APIURL:    env("HELPDESK_API_URL", "http://localhost:4000"),
		TokenFile: env("HELPDESK_TOKEN_FILE", ""),
		Timeout:   envDuration("HELPDESK_TIMEOUT", 15*time.Second),
	}
}
