package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test conversion defaults
	if !cfg.Conversion.FilterIdenticalPoses {
		t.Error("expected filter_identical_poses to be true by default")
	}
	if cfg.Conversion.Epsilon != 1e-5 {
		t.Errorf("expected epsilon 1e-5, got %g", cfg.Conversion.Epsilon)
	}
	if cfg.Conversion.Clip != 0 {
		t.Errorf("expected clip 0, got %d", cfg.Conversion.Clip)
	}

	// Test output defaults
	if cfg.Output.Directory != "" {
		t.Errorf("expected empty output directory, got %s", cfg.Output.Directory)
	}
	if cfg.Output.Loop {
		t.Error("expected loop to be false by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rbxanim.yaml")

	yamlContent := `
conversion:
  filter_identical_poses: false
  epsilon: 0.001
  clip: 2

output:
  directory: "out"
  loop: true

logging:
  level: "debug"
  log_file: "convert.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Conversion.FilterIdenticalPoses {
		t.Error("expected filter_identical_poses to be false")
	}
	if cfg.Conversion.Epsilon != 0.001 {
		t.Errorf("expected epsilon 0.001, got %g", cfg.Conversion.Epsilon)
	}
	if cfg.Conversion.Clip != 2 {
		t.Errorf("expected clip 2, got %d", cfg.Conversion.Clip)
	}

	if cfg.Output.Directory != "out" {
		t.Errorf("expected output directory 'out', got %s", cfg.Output.Directory)
	}
	if !cfg.Output.Loop {
		t.Error("expected loop to be true")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "convert.log" {
		t.Errorf("expected log file 'convert.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	// A file that sets only some keys keeps defaults for the rest.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rbxanim.yaml")

	yamlContent := `
logging:
  level: "warn"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Logging.Level)
	}
	if !cfg.Conversion.FilterIdenticalPoses {
		t.Error("expected filter_identical_poses to keep its default")
	}
	if cfg.Conversion.Epsilon != 1e-5 {
		t.Errorf("expected epsilon to keep its default, got %g", cfg.Conversion.Epsilon)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
conversion:
  epsilon: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/rbxanim.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it; point the config dir
	// somewhere empty so a developer machine's real config stays out.
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create rbxanim.yaml in current directory
	configPath := filepath.Join(tmpDir, "rbxanim.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find rbxanim.yaml in current directory")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	yamlContent := `
conversion:
  epsilon: 0.01
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Conversion.Epsilon != 0.01 {
		t.Errorf("expected epsilon 0.01 from file, got %g", cfg.Conversion.Epsilon)
	}

	// Untouched sections stay at defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load("/nonexistent/path/rbxanim.yaml")
	if err == nil {
		t.Error("expected error for explicit missing config path, got nil")
	}
}
