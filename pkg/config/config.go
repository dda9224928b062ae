// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/transmute/transmute/pkg/types"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file
func (m *Manager) LoadConfig(path string) (*types.TransmuteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.TransmuteConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	// Try YAML, normalizing through JSON so both formats share one schema
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err == nil {
		jsonData, err := json.Marshal(yamlData)
		if err == nil {
			if err := json.Unmarshal(jsonData, &cfg); err == nil {
				return m.validateConfig(&cfg)
			}
		}
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.TransmuteConfig) error {
	if cfg.Version != "1.0" {
		return fmt.Errorf("unsupported config version: %s", cfg.Version)
	}

	if cfg.SourceDir == "" {
		return fmt.Errorf("no source directory defined")
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	pluginNames := make(map[string]bool)
	for i, p := range cfg.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugin %d: missing name", i)
		}
		if pluginNames[p.Name] {
			return fmt.Errorf("duplicate plugin name: %s", p.Name)
		}
		pluginNames[p.Name] = true
		if p.Parallelism < 0 {
			return fmt.Errorf("plugin '%s': parallelism must not be negative", p.Name)
		}
	}

	return nil
}

// GetDefaultConfig returns a default configuration
func (m *Manager) GetDefaultConfig(projectName string) *types.TransmuteConfig {
	enabled := true

	return &types.TransmuteConfig{
		Version:     "1.0",
		ProjectName: projectName,
		SourceDir:   "src",
		Workers:     4,
		Plugins:     []types.PluginConfig{},
		Notifications: &types.NotificationConfig{
			Enabled: &enabled,
		},
		Logging: &types.LoggingConfig{
			Level: types.LogLevelInfo,
		},
	}
}

// WriteConfig writes a configuration to disk as JSON
func (m *Manager) WriteConfig(path string, cfg *types.TransmuteConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (m *Manager) validateConfig(cfg *types.TransmuteConfig) (*types.TransmuteConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
