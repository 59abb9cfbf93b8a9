// Package config loads service configuration from an optional TOML file
// with environment variable overrides.
package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the full service configuration.
type Config struct {
	Listen     string           `toml:"listen"`
	RedisURL   string           `toml:"redis_url"`
	SQLitePath string           `toml:"sqlite_path"`
	SigningKey string           `toml:"signing_key"`
	Completion CompletionConfig `toml:"completion"`
}

// CompletionConfig configures the upstream AI gateway.
type CompletionConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load reads configuration from the TOML file at path, then applies
// environment overrides. A missing file is not an error; an empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen: ":9000",
		Completion: CompletionConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "google/gemini-2.5-flash",
		},
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Listen, "MEDIGATE_LISTEN")
	applyEnv(&cfg.RedisURL, "REDIS_URL")
	applyEnv(&cfg.SQLitePath, "MEDIGATE_SQLITE_PATH")
	applyEnv(&cfg.SigningKey, "MEDIGATE_SIGNING_KEY")
	applyEnv(&cfg.Completion.BaseURL, "COMPLETION_BASE_URL")
	applyEnv(&cfg.Completion.APIKey, "COMPLETION_API_KEY")
	applyEnv(&cfg.Completion.Model, "COMPLETION_MODEL")

	return cfg, nil
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// LoadSigningKey returns the session signing key. If the config names a
// PEM file it is loaded from there; otherwise an ephemeral key is
// generated, which invalidates all sessions on restart.
func (c *Config) LoadSigningKey() (*ecdsa.PrivateKey, error) {
	if c.SigningKey == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := os.ReadFile(c.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("signing key %s is not PEM encoded", c.SigningKey)
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return key, nil
}
