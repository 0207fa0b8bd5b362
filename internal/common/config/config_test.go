package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `server:
  port: 3000

database:
  host: localhost
  port: 5432
  user: smartparking
  password: filepass
  database: smartparking

rabbitmq:
  host: localhost
  port: 5672
  user: guest
  password: guest

routing:
  base_url: https://router.project-osrm.org

auth:
  secret: file-secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Fatalf("server port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Database.Name != "smartparking" {
		t.Fatalf("database name = %q", cfg.Database.Name)
	}
	if cfg.Routing.TimeoutMS != 10000 {
		t.Fatalf("routing timeout default = %d, want 10000", cfg.Routing.TimeoutMS)
	}
	if cfg.Auth.Secret != "file-secret" {
		t.Fatalf("auth secret = %q", cfg.Auth.Secret)
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "env-db-pass")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Password != "env-db-pass" {
		t.Fatalf("db password = %q, want env override", cfg.Database.Password)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Fatalf("auth secret = %q, want env override", cfg.Auth.Secret)
	}
	if cfg.RabbitMQ.Password != "guest" {
		t.Fatalf("rabbitmq password = %q, want file value", cfg.RabbitMQ.Password)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	bad := `server:
  port: 0

database:
  host: localhost
  port: 5432
  user: smartparking
  database: smartparking

rabbitmq:
  host: localhost
  port: 5672
  user: guest

routing:
  base_url: not-a-url
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected validation error")
	}
}
