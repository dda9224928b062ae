package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/transmute/transmute/pkg/types"
)

func withProjectRoot(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalRoot := projectRoot
	originalCfg := cfgFile
	projectRoot = tempDir
	cfgFile = ""
	t.Cleanup(func() {
		projectRoot = originalRoot
		cfgFile = originalCfg
	})

	return tempDir
}

func TestInitCommandWritesDefaultConfig(t *testing.T) {
	tempDir := withProjectRoot(t)

	cmd := newInitCmd()
	cmd.SetArgs([]string{"docs-site"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	configPath := filepath.Join(tempDir, "transmute.config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("configuration file was not created: %v", err)
	}

	var cfg types.TransmuteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", cfg.Version)
	}
	if cfg.ProjectName != "docs-site" {
		t.Errorf("expected project name docs-site, got %s", cfg.ProjectName)
	}
	if cfg.SourceDir == "" {
		t.Error("expected default source directory")
	}
}

func TestValidateCommandAcceptsDefaultConfig(t *testing.T) {
	withProjectRoot(t)

	initCmd := newInitCmd()
	initCmd.SetArgs([]string{"docs-site"})
	if err := initCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	validateCmd := newValidateCmd()
	validateCmd.SetArgs([]string{})
	if err := validateCmd.Execute(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestValidateCommandRejectsUnknownPlugin(t *testing.T) {
	tempDir := withProjectRoot(t)

	cfg := `{
		"version": "1.0",
		"projectName": "docs-site",
		"sourceDir": "src",
		"plugins": [{"name": "no-such-plugin"}]
	}`
	configPath := filepath.Join(tempDir, "transmute.config.json")
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	validateCmd := newValidateCmd()
	validateCmd.SetArgs([]string{})
	if err := validateCmd.Execute(); err == nil {
		t.Error("expected unresolvable plugin reference to fail validation")
	}
}

func TestSetupPipelineBuildsFromConfig(t *testing.T) {
	tempDir := withProjectRoot(t)

	cfg := `{
		"version": "1.0",
		"projectName": "docs-site",
		"sourceDir": "content",
		"workers": 2,
		"context": {"base_url": "https://example.test"}
	}`
	if err := os.WriteFile(filepath.Join(tempDir, "transmute.config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tempDir, "content"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "content", "hello.md"), []byte("# Hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	env, err := setupPipeline()
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer env.pipe.Dispose(context.Background())

	if env.cfg.ProjectName != "docs-site" {
		t.Errorf("unexpected config: %+v", env.cfg)
	}

	if err := runBuild(context.Background(), env); err != nil {
		t.Fatalf("build failed: %v", err)
	}
}

func TestGetConfigPathHonorsExplicitFile(t *testing.T) {
	withProjectRoot(t)

	cfgFile = "/tmp/custom.json"
	if got := getConfigPath(); got != "/tmp/custom.json" {
		t.Errorf("expected explicit config path, got %s", got)
	}
}
