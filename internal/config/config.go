// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all tripdeck configuration.
type Config struct {
	API       API       `yaml:"api"`
	Storage   Storage   `yaml:"storage"`
	Log       Log       `yaml:"log"`
	DevServer DevServer `yaml:"devserver"`
}

// API holds backend connection settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Storage holds persistence settings.
type Storage struct {
	Backend   string `yaml:"backend"` // "file" | "redis"
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
}

// Log holds logger settings.
type Log struct {
	Level string `yaml:"level"`
}

// DevServer holds settings for the local development backend.
type DevServer struct {
	Addr     string        `yaml:"addr"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8080/api",
			Timeout: 60 * time.Second,
		},
		Storage: Storage{
			Backend: "file",
			Dir:     ".tripdeck/storage",
		},
		Log: Log{
			Level: "info",
		},
		DevServer: DevServer{
			Addr:     ":8080",
			Secret:   "tripdeck-dev-secret",
			TokenTTL: time.Hour,
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	layer, err := loadLayer(path)
	if err != nil {
		return nil, err
	}
	if layer != nil {
		cfg.merge(layer)
	}
	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Dir == "" {
			return errors.New("config: storage.dir cannot be empty")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("config: storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: storage.backend must be \"file\" or \"redis\", got %q", c.Storage.Backend)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.DevServer.TokenTTL <= 0 {
		return fmt.Errorf("config: devserver.token_ttl must be positive, got %v", c.DevServer.TokenTTL)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Existing variables win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: TRIPDECK_API_URL, TRIPDECK_API_TIMEOUT,
// TRIPDECK_STORAGE_BACKEND, TRIPDECK_STORAGE_DIR, TRIPDECK_REDIS_ADDR,
// TRIPDECK_LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TRIPDECK_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TRIPDECK_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid TRIPDECK_API_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("TRIPDECK_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("TRIPDECK_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("TRIPDECK_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("TRIPDECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API       *rawAPI       `yaml:"api"`
	Storage   *rawStorage   `yaml:"storage"`
	Log       *rawLog       `yaml:"log"`
	DevServer *rawDevServer `yaml:"devserver"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawStorage struct {
	Backend   *string `yaml:"backend"`
	Dir       *string `yaml:"dir"`
	RedisAddr *string `yaml:"redis_addr"`
}

type rawLog struct {
	Level *string `yaml:"level"`
}

type rawDevServer struct {
	Addr     *string        `yaml:"addr"`
	Secret   *string        `yaml:"secret"`
	TokenTTL *time.Duration `yaml:"token_ttl"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.API != nil {
		setIf(&c.API.BaseURL, layer.API.BaseURL)
		setIf(&c.API.Timeout, layer.API.Timeout)
	}
	if layer.Storage != nil {
		setIf(&c.Storage.Backend, layer.Storage.Backend)
		setIf(&c.Storage.Dir, layer.Storage.Dir)
		setIf(&c.Storage.RedisAddr, layer.Storage.RedisAddr)
	}
	if layer.Log != nil {
		setIf(&c.Log.Level, layer.Log.Level)
	}
	if layer.DevServer != nil {
		setIf(&c.DevServer.Addr, layer.DevServer.Addr)
		setIf(&c.DevServer.Secret, layer.DevServer.Secret)
		setIf(&c.DevServer.TokenTTL, layer.DevServer.TokenTTL)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
