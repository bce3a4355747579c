package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Default values applied when the config document leaves a field unset.
const (
	DefaultTimeoutSeconds = 90
	DefaultMaxRetries     = 2
	DefaultSize           = "1024x1024"
	DefaultQuality        = "standard"
	DefaultStyle          = "vivid"
	DefaultOptimizeModel  = "gpt-4o-mini"
)

type Config struct {
	API   APIConfig   `json:"api"`
	Auth  AuthConfig  `json:"auth"`
	Image ImageConfig `json:"image"`
}

type APIConfig struct {
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	OptimizeModel  string `json:"optimize_model"`
	TimeoutSeconds int    `json:"timeout"`
	MaxRetries     int    `json:"max_retries"`
}

type AuthConfig struct {
	APIKey     string     `json:"api_key"`
	BackupKeys []string   `json:"backup_keys"`
	ModelRules ModelRules `json:"model_rules"`
}

// ModelRules reserves a separate credential pool for certain models and
// flags model families that only expose a chat endpoint.
type ModelRules struct {
	SpecialModels  []string `json:"special_models"`
	SpecialKeys    []string `json:"special_keys"`
	ChatOnlyModels []string `json:"chat_only_models"`
}

type ImageConfig struct {
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
}

// Loads and validates the config document. Unknown keys are ignored;
// missing required keys fail here rather than at dispatch time.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Writes the config back to the same document it was loaded from
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.API.MaxRetries <= 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.OptimizeModel == "" {
		c.API.OptimizeModel = DefaultOptimizeModel
	}
	if c.Image.Size == "" {
		c.Image.Size = DefaultSize
	}
	if c.Image.Quality == "" {
		c.Image.Quality = DefaultQuality
	}
	if c.Image.Style == "" {
		c.Image.Style = DefaultStyle
	}
}

// Checks required fields so a broken document fails at startup
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	if c.API.Model == "" {
		return errors.New("config: api.model is required")
	}
	if len(c.Auth.ModelRules.SpecialModels) > 0 && len(c.Auth.ModelRules.SpecialKeys) == 0 {
		return errors.New("config: auth.model_rules.special_models set without special_keys")
	}
	return nil
}

// Returns a deep copy so callers can mutate without touching the live snapshot
func (c *Config) Clone() *Config {
	clone := *c
	clone.Auth.BackupKeys = append([]string(nil), c.Auth.BackupKeys...)
	clone.Auth.ModelRules.SpecialModels = append([]string(nil), c.Auth.ModelRules.SpecialModels...)
	clone.Auth.ModelRules.SpecialKeys = append([]string(nil), c.Auth.ModelRules.SpecialKeys...)
	clone.Auth.ModelRules.ChatOnlyModels = append([]string(nil), c.Auth.ModelRules.ChatOnlyModels...)
	return &clone
}
