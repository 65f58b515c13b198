package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected default host to be 'localhost', got '%s'", cfg.Server.Host)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Server.Port)
	}

	if cfg.Storage.Type != "memory" {
		t.Errorf("Expected default storage type to be 'memory', got '%s'", cfg.Storage.Type)
	}

	if cfg.Editor.MaxHistorySize != 50 {
		t.Errorf("Expected default history size to be 50, got %d", cfg.Editor.MaxHistorySize)
	}

	if cfg.Editor.SnapshotDebounceMs != 500 {
		t.Errorf("Expected default snapshot debounce to be 500ms, got %d", cfg.Editor.SnapshotDebounceMs)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	originalCfg := DefaultConfig()
	originalCfg.Server.Host = "testhost"
	originalCfg.Server.Port = 9090
	originalCfg.Storage.Type = "badger"
	originalCfg.Storage.Badger.Path = filepath.Join(tempDir, "db")
	originalCfg.Editor.PersistDebounceMs = 250

	if err := SaveConfig(originalCfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedCfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.Server.Host != originalCfg.Server.Host {
		t.Errorf("Expected host to be '%s', got '%s'", originalCfg.Server.Host, loadedCfg.Server.Host)
	}

	if loadedCfg.Server.Port != originalCfg.Server.Port {
		t.Errorf("Expected port to be %d, got %d", originalCfg.Server.Port, loadedCfg.Server.Port)
	}

	if loadedCfg.Storage.Type != originalCfg.Storage.Type {
		t.Errorf("Expected storage type to be '%s', got '%s'", originalCfg.Storage.Type, loadedCfg.Storage.Type)
	}

	if loadedCfg.Storage.Badger.Path != originalCfg.Storage.Badger.Path {
		t.Errorf("Expected badger path to be '%s', got '%s'", originalCfg.Storage.Badger.Path, loadedCfg.Storage.Badger.Path)
	}

	if loadedCfg.Editor.PersistDebounceMs != originalCfg.Editor.PersistDebounceMs {
		t.Errorf("Expected persist debounce to be %d, got %d", originalCfg.Editor.PersistDebounceMs, loadedCfg.Editor.PersistDebounceMs)
	}
}

func TestLoadConfigError(t *testing.T) {
	_, err := LoadConfig("non-existent-file.json")
	if err == nil {
		t.Error("Expected error when loading non-existent config file, got nil")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("Expected error when loading malformed config file, got nil")
	}
}
