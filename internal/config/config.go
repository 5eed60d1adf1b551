// Package config loads early-mcp settings from .env, an optional YAML file,
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vthunder/early-mcp/internal/integrations/early"
)

// Config holds all early-mcp settings.
//
// Credentials are optional here: a server without them still starts and
// lists its tools, and the first tool call reports the missing credentials.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	Debug     bool          `yaml:"debug"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BaseURL: early.DefaultBaseURL,
		Timeout: early.DefaultTimeout,
	}
}

// LoadDotEnv loads the first .env found in the repo root (parent of the
// binary's directory), the binary's directory, or the working directory.
// A missing file is not an error.
func LoadDotEnv() (string, bool) {
	envPaths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		envPaths = append([]string{
			filepath.Join(filepath.Dir(exeDir), ".env"), // parent of bin/ = repo root
			filepath.Join(exeDir, ".env"),
		}, envPaths...)
	}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $EARLY_CONFIG), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("EARLY_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("EARLY_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("EARLY_API_SECRET"); v != "" {
		cfg.APISecret = v
	}
	if v := os.Getenv("EARLY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("EARLY_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("EARLY_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.New("want a duration like 30s or a number of seconds")
	}
	return d, nil
}

// SessionOptions returns the options for the API session.
func (c *Config) SessionOptions() early.Options {
	return early.Options{
		Credentials: early.Credentials{
			APIKey:    c.APIKey,
			APISecret: c.APISecret,
		},
		BaseURL: c.BaseURL,
		Timeout: c.Timeout,
	}
}
