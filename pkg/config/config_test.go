package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/transmute/transmute/pkg/types"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "transmute.config.json", `{
		"version": "1.0",
		"projectName": "docs-site",
		"sourceDir": "content",
		"workers": 4,
		"plugins": [
			{"name": "markdown", "include": ["**/*.md"], "parallelism": 2}
		],
		"context": {"base_url": "https://example.test"}
	}`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ProjectName != "docs-site" || cfg.SourceDir != "content" || cfg.Workers != 4 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Plugins) != 1 || cfg.Plugins[0].Name != "markdown" || cfg.Plugins[0].Parallelism != 2 {
		t.Errorf("unexpected plugins: %+v", cfg.Plugins)
	}
	if cfg.Context["base_url"] != "https://example.test" {
		t.Errorf("unexpected context: %+v", cfg.Context)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "transmute.yaml", `
version: "1.0"
projectName: docs-site
sourceDir: content
plugins:
  - name: markdown
    include:
      - "**/*.md"
`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load YAML config: %v", err)
	}
	if cfg.ProjectName != "docs-site" {
		t.Errorf("unexpected project name: %s", cfg.ProjectName)
	}
	if len(cfg.Plugins) != 1 || cfg.Plugins[0].Include[0] != "**/*.md" {
		t.Errorf("unexpected plugins: %+v", cfg.Plugins)
	}
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := writeConfig(t, "broken.json", `{{{not parseable`)

	_, err := NewManager().LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := NewManager().LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name    string
		mutate  func(*types.TransmuteConfig)
		wantErr string
	}{
		{"valid", func(c *types.TransmuteConfig) {}, ""},
		{"bad version", func(c *types.TransmuteConfig) { c.Version = "2.0" }, "unsupported config version"},
		{"missing source dir", func(c *types.TransmuteConfig) { c.SourceDir = "" }, "no source directory"},
		{"negative workers", func(c *types.TransmuteConfig) { c.Workers = -1 }, "workers must not be negative"},
		{"unnamed plugin", func(c *types.TransmuteConfig) {
			c.Plugins = []types.PluginConfig{{}}
		}, "missing name"},
		{"duplicate plugin", func(c *types.TransmuteConfig) {
			c.Plugins = []types.PluginConfig{{Name: "md"}, {Name: "md"}}
		}, "duplicate plugin name"},
		{"negative parallelism", func(c *types.TransmuteConfig) {
			c.Plugins = []types.PluginConfig{{Name: "md", Parallelism: -2}}
		}, "parallelism must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := m.GetDefaultConfig("test")
			tt.mutate(cfg)

			err := m.ValidateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	m := NewManager()
	path := filepath.Join(t.TempDir(), "transmute.config.json")

	cfg := m.GetDefaultConfig("roundtrip")
	if err := m.WriteConfig(path, cfg); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loaded, err := m.LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.ProjectName != "roundtrip" || loaded.Version != "1.0" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}
