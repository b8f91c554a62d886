// Package config loads the service configuration from a JSON file.
// Fields omitted from the file retain their defaults, so partial configs
// are safe; the Get* methods provide the fallback values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tollgate-data/gantryflow/internal/fsutil"
)

// Config is the root service configuration.
type Config struct {
	// APIKey protects the raw-data routes. Empty disables key auth
	// (development only).
	APIKey *string `json:"api_key,omitempty"`

	// Anonymizer
	DefaultK *int `json:"default_k,omitempty"`

	// Agent (OpenAI-compatible chat completions)
	AgentBaseURL   *string `json:"agent_base_url,omitempty"`
	AgentModel     *string `json:"agent_model,omitempty"`
	AgentKeyEnv    *string `json:"agent_key_env,omitempty"`
	AgentTimeout   *string `json:"agent_timeout,omitempty"` // duration string like "30s"
	AgentSQLLimit  *int    `json:"agent_sql_limit,omitempty"`
	AgentSQLMaxRow *int    `json:"agent_sql_max_rows,omitempty"`

	// Rollup worker
	RollupInterval *string `json:"rollup_interval,omitempty"` // duration string like "15m"
	RollupWindow   *string `json:"rollup_window,omitempty"`   // duration string like "48h"

	// Generator tuning
	GeneratorSeed *int64 `json:"generator_seed,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Default returns a Config with every field nil; the Get* methods supply
// the effective defaults.
func Default() *Config {
	return &Config{}
}

// Load reads and validates a Config from a JSON file.
func Load(path string) (*Config, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS is Load over an explicit filesystem, for tests.
func LoadFS(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns the defaults when
// path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field ranges and duration syntax.
func (c *Config) Validate() error {
	if c.DefaultK != nil && *c.DefaultK < 1 {
		return fmt.Errorf("default_k must be >= 1, got %d", *c.DefaultK)
	}
	if c.AgentSQLLimit != nil && *c.AgentSQLLimit < 1 {
		return fmt.Errorf("agent_sql_limit must be >= 1, got %d", *c.AgentSQLLimit)
	}
	if c.AgentSQLMaxRow != nil && *c.AgentSQLMaxRow < 1 {
		return fmt.Errorf("agent_sql_max_rows must be >= 1, got %d", *c.AgentSQLMaxRow)
	}
	for name, v := range map[string]*string{
		"agent_timeout":   c.AgentTimeout,
		"rollup_interval": c.RollupInterval,
		"rollup_window":   c.RollupWindow,
	} {
		if v == nil {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// GetAPIKey returns the configured API key, or "" when key auth is
// disabled.
func (c *Config) GetAPIKey() string {
	if c.APIKey != nil {
		return *c.APIKey
	}
	return ""
}

// GetDefaultK returns the default anonymity parameter.
func (c *Config) GetDefaultK() int {
	if c.DefaultK != nil {
		return *c.DefaultK
	}
	return 5
}

// GetAgentBaseURL returns the chat-completions endpoint base URL.
func (c *Config) GetAgentBaseURL() string {
	if c.AgentBaseURL != nil {
		return *c.AgentBaseURL
	}
	return "https://api.openai.com/v1"
}

// GetAgentModel returns the model name for agent requests.
func (c *Config) GetAgentModel() string {
	if c.AgentModel != nil {
		return *c.AgentModel
	}
	return "gpt-4o-mini"
}

// GetAgentKey reads the agent API key from the configured environment
// variable. Empty means no LLM is available and agents fall back to
// rule-based behavior.
func (c *Config) GetAgentKey() string {
	env := "OPENAI_API_KEY"
	if c.AgentKeyEnv != nil {
		env = *c.AgentKeyEnv
	}
	return os.Getenv(env)
}

// GetAgentTimeout returns the per-request agent timeout.
func (c *Config) GetAgentTimeout() time.Duration {
	if c.AgentTimeout != nil {
		if d, err := time.ParseDuration(*c.AgentTimeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}

// GetAgentSQLLimit returns the LIMIT injected into unbounded agent SQL.
func (c *Config) GetAgentSQLLimit() int {
	if c.AgentSQLLimit != nil {
		return *c.AgentSQLLimit
	}
	return 100
}

// GetAgentSQLMaxRows returns the hard cap on agent SQL result rows.
func (c *Config) GetAgentSQLMaxRows() int {
	if c.AgentSQLMaxRow != nil {
		return *c.AgentSQLMaxRow
	}
	return 500
}

// GetRollupInterval returns how often the flow worker runs.
func (c *Config) GetRollupInterval() time.Duration {
	if c.RollupInterval != nil {
		if d, err := time.ParseDuration(*c.RollupInterval); err == nil {
			return d
		}
	}
	return 15 * time.Minute
}

// GetRollupWindow returns the flow worker lookback window.
func (c *Config) GetRollupWindow() time.Duration {
	if c.RollupWindow != nil {
		if d, err := time.ParseDuration(*c.RollupWindow); err == nil {
			return d
		}
	}
	return 48 * time.Hour
}

// GetGeneratorSeed returns the seed for synthetic data generation.
func (c *Config) GetGeneratorSeed() int64 {
	if c.GeneratorSeed != nil {
		return *c.GeneratorSeed
	}
	return 1
}
