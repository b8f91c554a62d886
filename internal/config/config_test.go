package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tollgate-data/gantryflow/internal/fsutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.GetAPIKey() != "" {
		t.Errorf("Expected empty default API key, got %q", cfg.GetAPIKey())
	}
	if cfg.GetDefaultK() != 5 {
		t.Errorf("Expected default k 5, got %d", cfg.GetDefaultK())
	}
	if cfg.GetAgentBaseURL() != "https://api.openai.com/v1" {
		t.Errorf("Unexpected default agent base URL: %q", cfg.GetAgentBaseURL())
	}
	if cfg.GetAgentTimeout() != 30*time.Second {
		t.Errorf("Unexpected default agent timeout: %v", cfg.GetAgentTimeout())
	}
	if cfg.GetAgentSQLLimit() != 100 || cfg.GetAgentSQLMaxRows() != 500 {
		t.Errorf("Unexpected SQL limits: %d / %d", cfg.GetAgentSQLLimit(), cfg.GetAgentSQLMaxRows())
	}
	if cfg.GetRollupInterval() != 15*time.Minute {
		t.Errorf("Unexpected default rollup interval: %v", cfg.GetRollupInterval())
	}
	if cfg.GetRollupWindow() != 48*time.Hour {
		t.Errorf("Unexpected default rollup window: %v", cfg.GetRollupWindow())
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"api_key": "secret-key",
		"default_k": 10,
		"rollup_interval": "5m"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetAPIKey() != "secret-key" {
		t.Errorf("Expected loaded API key, got %q", cfg.GetAPIKey())
	}
	if cfg.GetDefaultK() != 10 {
		t.Errorf("Expected k 10, got %d", cfg.GetDefaultK())
	}
	if cfg.GetRollupInterval() != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %v", cfg.GetRollupInterval())
	}
	// Omitted fields keep their defaults.
	if cfg.GetRollupWindow() != 48*time.Hour {
		t.Errorf("Expected default window, got %v", cfg.GetRollupWindow())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad k", `{"default_k": 0}`, "default_k"},
		{"bad duration", `{"rollup_interval": "soon"}`, "rollup_interval"},
		{"negative duration", `{"agent_timeout": "-5s"}`, "agent_timeout"},
		{"bad json", `{`, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for non-.json extension")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault with empty path failed: %v", err)
	}
	if cfg.GetDefaultK() != 5 {
		t.Errorf("Expected defaults, got k=%d", cfg.GetDefaultK())
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFSMemoryFilesystem(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("cfg.json", []byte(`{"agent_sql_limit": 50}`), 0o644); err != nil {
		t.Fatalf("Failed to write memory file: %v", err)
	}

	cfg, err := LoadFS(fsys, "cfg.json")
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}
	if cfg.GetAgentSQLLimit() != 50 {
		t.Errorf("Expected SQL limit 50, got %d", cfg.GetAgentSQLLimit())
	}
}

func TestValidateRanges(t *testing.T) {
	cfg := Default()
	cfg.AgentSQLMaxRow = ptrInt(0)
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero agent_sql_max_rows")
	}

	cfg = Default()
	cfg.AgentSQLMaxRow = ptrInt(250)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestGetAgentKeyReadsEnv(t *testing.T) {
	cfg := Default()
	cfg.AgentKeyEnv = ptrString("GANTRYFLOW_TEST_AGENT_KEY")
	t.Setenv("GANTRYFLOW_TEST_AGENT_KEY", "env-key")

	if cfg.GetAgentKey() != "env-key" {
		t.Errorf("Expected key from env, got %q", cfg.GetAgentKey())
	}
}
