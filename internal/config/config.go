package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Calendar CalendarAPIConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CalendarAPIConfig points at the external waste-collection calendar
// service (address -> weekly pickup weekdays per collection type).
type CalendarAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout int
}

// EngineConfig carries scheduling-engine defaults.
type EngineConfig struct {
	// DefaultHorizonDays is the preview window when the caller does not
	// pick one of the selectable horizons.
	DefaultHorizonDays int
	// MaxInstances is the hard ceiling on materialized instances per
	// contract, applied when no end condition bounds the rule sooner.
	MaxInstances int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5433"),
			User:     getEnv("DB_USER", "fieldops"),
			Password: getEnv("DB_PASSWORD", "fieldops123"),
			DBName:   getEnv("DB_NAME", "fieldops_core"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Calendar: CalendarAPIConfig{
			BaseURL: getEnv("CALENDAR_API_URL", ""),
			APIKey:  getEnv("CALENDAR_API_KEY", ""),
			Timeout: getEnvAsInt("CALENDAR_API_TIMEOUT", 30),
		},
		Engine: EngineConfig{
			DefaultHorizonDays: getEnvAsInt("PREVIEW_HORIZON_DAYS", 30),
			MaxInstances:       getEnvAsInt("MAX_JOB_INSTANCES", 52),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) DatabaseURL() string {
	// If DATABASE_URL is set, use it directly
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}

	// Otherwise, construct from individual components
	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}
