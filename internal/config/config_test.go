package config

import (
	"strings"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "test.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %s", cfg.Port)
	}
	if cfg.JWTExpirationHours != 168 {
		t.Errorf("expected 7 day token lifetime, got %d hours", cfg.JWTExpirationHours)
	}
	if cfg.AllowPrivilegedSignup {
		t.Error("expected privileged signup to be disabled by default")
	}
	if len(cfg.Origins) != 1 || cfg.Origins[0] != "http://localhost:3000" {
		t.Errorf("unexpected origins: %v", cfg.Origins)
	}
}

func TestLoadConfig_SplitsOrigins(t *testing.T) {
	t.Setenv("ORIGIN", "http://a.test, http://b.test,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.test" {
		t.Errorf("unexpected origins: %v", cfg.Origins)
	}
}

func TestLoadConfig_RejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", DefaultJWTSecret)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when production uses the fallback secret")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:        "development",
			JWTSecret:          "s3cret",
			JWTExpirationHours: 1,
			Database:           DatabaseConfig{Driver: DriverSQLite, Path: "lab.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero expiry", func(c *Config) { c.JWTExpirationHours = 0 }, "JWT_EXPIRATION_HOURS"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "unsupported DB_DRIVER"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "DB_PATH"},
		{"mysql without name", func(c *Config) { c.Database.Driver = DriverMySQL }, "DB_NAME"},
		{"production default secret", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = ""
		}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	mysql := DatabaseConfig{Driver: DriverMySQL, Username: "u", Password: "p", Host: "db", Name: "lab"}
	if got := mysql.DSN(); !strings.HasPrefix(got, "u:p@tcp(db:3306)/lab?") || !strings.Contains(got, "clientFoundRows=true") {
		t.Errorf("unexpected mysql DSN: %s", got)
	}

	pg := DatabaseConfig{Driver: DriverPostgres, Username: "u", Password: "p", Host: "db", Name: "lab"}
	if got := pg.DSN(); !strings.Contains(got, "port=5432") || !strings.Contains(got, "dbname=lab") {
		t.Errorf("unexpected postgres DSN: %s", got)
	}

	lite := DatabaseConfig{Driver: DriverSQLite, Path: "lab.db"}
	if got := lite.DSN(); !strings.HasPrefix(got, "file:lab.db?") {
		t.Errorf("unexpected sqlite DSN: %s", got)
	}
}
