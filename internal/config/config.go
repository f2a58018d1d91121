package config

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"

	"github.com/cityweather/backend/internal/domain"
)

// Config holds the application configuration
type Config struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	DefaultCity        string
	UpstreamTimeout    time.Duration
	DatabaseURL        string
	Port               string
	Env                string
}

// Load reads an optional .env file and builds the configuration from the
// environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() *Config {
	return &Config{
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		DefaultCity:        getEnv("DEFAULT_CITY", domain.DefaultCity),
		UpstreamTimeout:    getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("GO_ENV", "development"),
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warnf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
