// Package config loads and saves the workspace configuration from
// .agentscript/config.yaml. Absent files fall back to DefaultConfig, so
// every tool works out of the box in an unconfigured checkout.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all agentscript tool configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Serializer SerializerConfig `yaml:"serializer"`
	LSP        LSPConfig        `yaml:"lsp"`
	Validation ValidationConfig `yaml:"validation"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// SerializerConfig controls canonical formatting output.
type SerializerConfig struct {
	IndentWidth int `yaml:"indent_width"`
}

// LSPConfig toggles individual server capabilities for clients that
// mishandle them.
type LSPConfig struct {
	SemanticTokens bool `yaml:"semantic_tokens"`
	CodeActions    bool `yaml:"code_actions"`
	Formatting     bool `yaml:"formatting"`
}

// ValidationConfig layers workspace-specific allowances onto the built-in
// semantic rules.
type ValidationConfig struct {
	// ExtraLocales extends the additional_locales whitelist for
	// workspaces targeting locales the platform list lags behind.
	ExtraLocales []string `yaml:"extra_locales"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		Serializer: SerializerConfig{
			IndentWidth: 3,
		},
		LSP: LSPConfig{
			SemanticTokens: true,
			CodeActions:    true,
			Formatting:     true,
		},
	}
}

// Path returns the canonical config location for a workspace root.
func Path(workspace string) string {
	return filepath.Join(workspace, ".agentscript", "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file, creating the directory if
// needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if os.Getenv("AGENTSCRIPT_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if level := os.Getenv("AGENTSCRIPT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
