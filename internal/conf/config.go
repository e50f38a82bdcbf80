// config.go: Settings structs and viper-backed loading for artfetch.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSize    int    // maximum log file size in megabytes before rotation
	MaxBackups int    // maximum number of rotated log files to keep
	MaxAge     int    // maximum age of rotated log files in days
}

// RateLimitSettings parameterizes a provider's sliding-window rate limiter.
type RateLimitSettings struct {
	MaxRequests int           // maximum requests allowed inside the window
	Window      time.Duration // sliding window length
}

// BreakerSettings parameterizes a provider's circuit breaker.
type BreakerSettings struct {
	Threshold int           // consecutive failures before the circuit opens
	Cooldown  time.Duration // how long the circuit stays open before a probe
}

// ProviderSettings contains per-provider configuration for the fallback chain.
type ProviderSettings struct {
	Enabled   bool              // false removes the provider from rotation entirely
	Priority  int               // lower numbers are tried first
	Timeout   time.Duration     // hard per-attempt timeout
	Endpoint  string            // provider-specific base URL, if any
	RateLimit RateLimitSettings // outbound request throttling
	Breaker   BreakerSettings   // failure isolation
}

// CacheSettings contains settings for the artwork result cache.
type CacheSettings struct {
	TTL      time.Duration // how long a resolved URL stays valid
	MaxSize  int           // maximum number of entries before LRU eviction
	Persist  bool          // true to persist the cache to a flat file
	FilePath string        // persistence file path
	Debounce time.Duration // quiescence window for coalescing disk writes
}

// RefreshSettings controls the background stale-entry refresh routine.
type RefreshSettings struct {
	Enabled       bool          // true to refresh aging entries in the background
	Interval      time.Duration // how often to scan for stale entries
	RatePerSecond float64       // refresh fetch rate limit
}

// ArtworkSettings groups all resolution engine configuration.
type ArtworkSettings struct {
	Cache     CacheSettings
	Refresh   RefreshSettings
	Providers map[string]ProviderSettings
}

// Settings is the top-level application configuration.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string    // node name, used in logs and the admin API
		Log  LogConfig // log file settings
	}

	Artwork ArtworkSettings

	WebServer struct {
		Enabled bool   // true to enable the admin/read HTTP API
		Port    string // port to listen on
	}

	Telemetry struct {
		Enabled bool   // true to expose Prometheus metrics
		Listen  string // IP address and port to listen on, e.g. "0.0.0.0:8090"
	}
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with config paths and reads the configuration.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config.yaml: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, ".config", "artfetch"),
		".",
	}, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the settings singleton, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first so the update is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// DefaultProviderSettings returns the settings applied to providers that are
// registered without an explicit configuration block.
func DefaultProviderSettings() ProviderSettings {
	return ProviderSettings{
		Enabled:  true,
		Priority: 100,
		Timeout:  10 * time.Second,
		RateLimit: RateLimitSettings{
			MaxRequests: 10,
			Window:      60 * time.Second,
		},
		Breaker: BreakerSettings{
			Threshold: 5,
			Cooldown:  5 * time.Minute,
		},
	}
}
