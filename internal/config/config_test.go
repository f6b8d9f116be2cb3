package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Errorf("default base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 60*time.Second {
		t.Errorf("default timeout = %v, want %v", cfg.API.Timeout, 60*time.Second)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default backend = %q, want %q", cfg.Storage.Backend, "file")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	p := writeConfig(t, `
api:
  base_url: https://trips.example.com/api
  timeout: 10s
storage:
  dir: /tmp/tripdeck
log:
  level: debug
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://trips.example.com/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Storage.Dir != "/tmp/tripdeck" {
		t.Errorf("dir = %q", cfg.Storage.Dir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
	// Unset fields keep defaults.
	if cfg.Storage.Backend != "file" {
		t.Errorf("backend = %q, want default", cfg.Storage.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("Load(missing) = %+v, want defaults", *cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "{{invalid yaml")); err == nil {
		t.Fatal("Load(invalid YAML) should return error")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "api:\n  base_uri: http://x\n"))
	if err == nil {
		t.Fatal("Load() should reject unknown fields")
	}
}

func TestLoad_CommentOnly(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n"))
	if err != nil {
		t.Fatalf("Load(comment-only) error = %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("comment-only file should yield defaults")
	}
}

func TestLoadLayered_Priority(t *testing.T) {
	// Given: a user config setting the URL and timeout, and a project config overriding timeout
	user := writeConfig(t, `
api:
  base_url: https://user.example.com/api
  timeout: 5s
`)
	project := writeConfig(t, `
api:
  timeout: 20s
`)

	// When: both layers are loaded
	cfg, err := LoadLayered(user, "/nonexistent.yaml", project)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}

	// Then: the project layer wins for timeout and the user layer's URL survives
	if cfg.API.BaseURL != "https://user.example.com/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 20*time.Second {
		t.Errorf("timeout = %v, want 20s", cfg.API.Timeout)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRIPDECK_API_URL", "https://env.example.com/api")
	t.Setenv("TRIPDECK_API_TIMEOUT", "3s")
	t.Setenv("TRIPDECK_STORAGE_BACKEND", "redis")
	t.Setenv("TRIPDECK_REDIS_ADDR", "localhost:6379")
	t.Setenv("TRIPDECK_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisAddr != "localhost:6379" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestApplyEnv_InvalidTimeout(t *testing.T) {
	t.Setenv("TRIPDECK_API_TIMEOUT", "soon")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected error for unparseable timeout")
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadDotEnv(missing) = %v, want nil", err)
		}
	})

	t.Run("variables are loaded", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(p, []byte("TRIPDECK_TEST_DOTENV=loaded\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("TRIPDECK_TEST_DOTENV", "")
		_ = os.Unsetenv("TRIPDECK_TEST_DOTENV")

		if err := LoadDotEnv(p); err != nil {
			t.Fatalf("LoadDotEnv() = %v", err)
		}
		if got := os.Getenv("TRIPDECK_TEST_DOTENV"); got != "loaded" {
			t.Errorf("TRIPDECK_TEST_DOTENV = %q, want %q", got, "loaded")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty url", func(c *Config) { c.API.BaseURL = "" }, "base_url"},
		{"relative url", func(c *Config) { c.API.BaseURL = "/api" }, "absolute"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "timeout"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "backend"},
		{"empty dir", func(c *Config) { c.Storage.Dir = "" }, "storage.dir"},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }, "redis_addr"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zero token ttl", func(c *Config) { c.DevServer.TokenTTL = 0 }, "token_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
