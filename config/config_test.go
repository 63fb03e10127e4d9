package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestProcessConfigDefaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{}
		processConfigDefaults(&cfg)

		if cfg.DataDir != "." {
			t.Errorf("Expected DataDir to be ., got %s", cfg.DataDir)
		}
		if cfg.UserAgent == "" {
			t.Error("Expected UserAgent to have a default value")
		}
		if cfg.CatalogTimeout != 10*time.Second {
			t.Errorf("Expected CatalogTimeout to be 10s, got %s", cfg.CatalogTimeout)
		}
		if cfg.SearchLimit != 20 {
			t.Errorf("Expected SearchLimit to be 20, got %d", cfg.SearchLimit)
		}
		if cfg.JavaPath != "java" {
			t.Errorf("Expected JavaPath to be java, got %s", cfg.JavaPath)
		}
		if cfg.MaxParallelInstalls != 4 {
			t.Errorf("Expected MaxParallelInstalls to be 4, got %d", cfg.MaxParallelInstalls)
		}
	})

	t.Run("respects existing values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{
			UserAgent:      "custom-agent",
			CatalogTimeout: 3 * time.Second,
			JavaPath:       "/opt/java/bin/java",
			SearchLimit:    5,
		}
		processConfigDefaults(&cfg)

		if cfg.UserAgent != "custom-agent" {
			t.Errorf("Expected UserAgent to stay custom-agent, got %s", cfg.UserAgent)
		}
		if cfg.CatalogTimeout != 3*time.Second {
			t.Errorf("Expected CatalogTimeout to stay 3s, got %s", cfg.CatalogTimeout)
		}
		if cfg.JavaPath != "/opt/java/bin/java" {
			t.Errorf("Expected JavaPath to be kept, got %s", cfg.JavaPath)
		}
		if cfg.SearchLimit != 5 {
			t.Errorf("Expected SearchLimit to stay 5, got %d", cfg.SearchLimit)
		}
	})
}

func TestValidateAndEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing data dir", func(t *testing.T) {
		cfg := Config{DataDir: ""}
		err := validateAndEnsureDirectories(&cfg)
		if err == nil {
			t.Error("Expected error for missing DataDir")
		}
	})

	t.Run("creates directories", func(t *testing.T) {
		dataDir := filepath.Join(tmpDir, "data")
		cfg := Config{DataDir: dataDir}
		err := validateAndEnsureDirectories(&cfg)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for _, path := range []string{cfg.ModpacksDir, cfg.MinecraftDir, cfg.InstancesDir} {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Errorf("Directory %s was not created", path)
			}
		}
		if cfg.DatabasePath != filepath.Join(dataDir, "modpacks", "modpacks.db") {
			t.Errorf("Unexpected DatabasePath %s", cfg.DatabasePath)
		}
	})
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	viper.Reset()
	dataDir := filepath.Join(t.TempDir(), "env-data")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("CATALOG_TIMEOUT", "2s")
	t.Setenv("SEARCH_LIMIT", "7")
	t.Setenv("CURSEFORGE_API_KEY", "secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Errorf("Expected DataDir %s, got %s", dataDir, cfg.DataDir)
	}
	if cfg.CatalogTimeout != 2*time.Second {
		t.Errorf("Expected CatalogTimeout 2s, got %s", cfg.CatalogTimeout)
	}
	if cfg.SearchLimit != 7 {
		t.Errorf("Expected SearchLimit 7, got %d", cfg.SearchLimit)
	}
	if cfg.CurseForgeAPIKey != "secret" {
		t.Errorf("Expected API key from env, got %q", cfg.CurseForgeAPIKey)
	}
}
