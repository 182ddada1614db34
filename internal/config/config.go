package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. It is only acceptable
// outside production; Validate rejects it when ENV=production.
const DefaultJWTSecret = "your-secret-key"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds all configuration for our application
type Config struct {
	Port                  string
	Origins               []string
	Environment           string
	LogLevel              string
	JWTSecret             string
	JWTExpirationHours    int
	AllowPrivilegedSignup bool
	Database              DatabaseConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
}

// LoadConfig loads configuration from the environment, reading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ORIGIN", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION_HOURS", 168) // 7 days
	v.SetDefault("ALLOW_PRIVILEGED_SIGNUP", false)
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "lab.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "clinical_lab")

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		Environment:           v.GetString("ENV"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTExpirationHours:    v.GetInt("JWT_EXPIRATION_HOURS"),
		AllowPrivilegedSignup: v.GetBool("ALLOW_PRIVILEGED_SIGNUP"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Path:     v.GetString("DB_PATH"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Username: v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}

	for _, origin := range strings.Split(v.GetString("ORIGIN"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.Origins = append(cfg.Origins, origin)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesDefaultSecret reports whether tokens are signed with the built-in
// fallback secret.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTExpirationHours <= 0 {
		return fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %d", c.JWTExpirationHours)
	}
	if c.IsProduction() && c.UsesDefaultSecret() {
		return fmt.Errorf("JWT_SECRET must be set to a non-default value in production")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for the %s driver", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// DSN builds the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverMySQL:
		port := d.Port
		if port == "" {
			port = "3306"
		}
		// clientFoundRows makes UPDATE report matched rows, so an update that
		// leaves values unchanged is not mistaken for a missing row.
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
			d.Username, d.Password, d.Host, port, d.Name)
	case DriverPostgres:
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host, port, d.Username, d.Password, d.Name)
	default:
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", d.Path)
	}
}
