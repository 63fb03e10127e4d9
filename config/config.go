package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultUserAgent       = "modpack-launcher/dev (unknown-user)"
	defaultCatalogTimeout  = 10 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
	defaultSearchLimit     = 20
	defaultJavaPath        = "java"
	defaultFabricMetaURL   = "https://meta.fabricmc.net"
	defaultParallel        = 4
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	DataDir             string        `mapstructure:"DATA_DIR"`
	CurseForgeAPIKey    string        `mapstructure:"CURSEFORGE_API_KEY"`
	UserAgent           string        `mapstructure:"USERAGENT"`
	CatalogTimeout      time.Duration `mapstructure:"CATALOG_TIMEOUT"`
	DownloadTimeout     time.Duration `mapstructure:"DOWNLOAD_TIMEOUT"`
	SearchLimit         int           `mapstructure:"SEARCH_LIMIT"`
	JavaPath            string        `mapstructure:"JAVA_PATH"`
	OfflineUsername     string        `mapstructure:"OFFLINE_USERNAME"`
	FabricMetaURL       string        `mapstructure:"FABRIC_META_URL"`
	MaxParallelInstalls int           `mapstructure:"MAX_PARALLEL_INSTALLS"`

	// Derived from DataDir, never read from the environment.
	ModpacksDir  string `mapstructure:"-"`
	DatabasePath string `mapstructure:"-"`
	MinecraftDir string `mapstructure:"-"`
	InstancesDir string `mapstructure:"-"`
}

var envKeys = []string{
	"DATA_DIR",
	"CURSEFORGE_API_KEY",
	"USERAGENT",
	"CATALOG_TIMEOUT",
	"DOWNLOAD_TIMEOUT",
	"SEARCH_LIMIT",
	"JAVA_PATH",
	"OFFLINE_USERNAME",
	"FABRIC_META_URL",
	"MAX_PARALLEL_INSTALLS",
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	// Viper will check for an environment variable matching the key name (e.g., CURSEFORGE_API_KEY)
	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(key, key); err != nil {
			slog.Warn("Unable to bind env var", "key", key, "error", err)
		}
	}

	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// processConfigDefaults fills in every value the user left empty.
func processConfigDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = defaultCatalogTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.JavaPath == "" {
		cfg.JavaPath = defaultJavaPath
	}
	if cfg.FabricMetaURL == "" {
		cfg.FabricMetaURL = defaultFabricMetaURL
	}
	if cfg.MaxParallelInstalls <= 0 {
		cfg.MaxParallelInstalls = defaultParallel
	}
	if cfg.CurseForgeAPIKey == "" {
		slog.Info("CURSEFORGE_API_KEY not set, CurseForge searches will be rejected.")
	}
}

// validateAndEnsureDirectories derives the storage paths and creates them.
func validateAndEnsureDirectories(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	cfg.ModpacksDir = filepath.Join(cfg.DataDir, "modpacks")
	cfg.DatabasePath = filepath.Join(cfg.ModpacksDir, "modpacks.db")
	cfg.MinecraftDir = filepath.Join(cfg.DataDir, "minecraft")
	cfg.InstancesDir = filepath.Join(cfg.MinecraftDir, "instances")

	for _, dir := range []string{cfg.DataDir, cfg.ModpacksDir, cfg.MinecraftDir, cfg.InstancesDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			slog.Info("Directory does not exist, creating it", "path", dir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				slog.Error("Failed to create directory", "path", dir, "error", err)
				return err
			}
		} else if err != nil {
			slog.Error("Failed to check directory", "path", dir, "error", err)
			return err
		}
	}
	return nil
}
