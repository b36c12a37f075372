package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
endpoint: http://registrar:9090
server:
  port: 9090
  adminToken: admin-secret
database:
  driver: sqlite
  url: /tmp/students.db
session:
  secret: s3cret
  ttl: 2h
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "http://registrar:9090" {
		t.Errorf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Server.Port != 9090 || cfg.Server.AdminToken != "admin-secret" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN() != "/tmp/students.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Server.ReadTimeout != "30s" {
		t.Errorf("expected default read timeout, got %q", cfg.Server.ReadTimeout)
	}
	ttl, err := cfg.SessionTTL()
	if err != nil || ttl != 2*time.Hour {
		t.Errorf("session ttl = %v, %v", ttl, err)
	}
	if err := cfg.Validate(false); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "session:\n  secret: from-file\n")
	t.Setenv("STUDENTAUTH_SESSION_SECRET", "from-env")
	t.Setenv("STUDENTAUTH_DATABASE_DRIVER", "sqlite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Secret != "from-env" {
		t.Errorf("session secret = %q, want from-env", cfg.Session.Secret)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		dev    bool
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false, "database.driver"},
		{"sqlite without url", func(c *Config) { c.Database.Driver = DriverSQLite }, false, "database.url"},
		{"missing secret", func(c *Config) { c.Session.Secret = "" }, false, "session.secret"},
		{"bad ttl", func(c *Config) { c.Session.TTL = "soon" }, false, "session.ttl"},
		{"zero ttl", func(c *Config) { c.Session.TTL = "0s" }, false, "session.ttl"},
		{"bad timeout", func(c *Config) { c.Server.ReadTimeout = "x" }, false, "server.readTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Session.Secret = "s"
			tt.mutate(cfg)
			err := cfg.Validate(tt.dev)
			var cfgErr *errors.ErrInvalidConfig
			if !stderrors.As(err, &cfgErr) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidate_DevModeAllowsEmptySecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(true); err != nil {
		t.Errorf("dev mode should allow empty secret: %v", err)
	}
}

func TestDSN_BuildsPostgresURL(t *testing.T) {
	dsn := DefaultConfig().Database.DSN()
	for _, want := range []string{"postgres://", "studentauth:studentauth_dev@", "localhost:5432", "/studentauth", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected %q in DSN %q", want, dsn)
		}
	}
}
