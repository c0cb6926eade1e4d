package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for coursekit.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so Viper never matches the
// coursekit binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then returns ConfigFileNotFoundError, which
		// LoadConfig tolerates.
		viper.SetConfigName("coursekit")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: COURSEKIT_API_BASE_URL
	viper.SetEnvPrefix("COURSEKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".coursekit"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "coursekit"))
		}
	} else {
		paths = append(paths, "/etc/coursekit")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for coursekit.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "coursekit"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the scalar config keys for environment overrides.
// Example: COURSEKIT_STORAGE_DRIVER overrides storage.driver.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("api.base_url")
	_ = viper.BindEnv("api.timeout")
	_ = viper.BindEnv("api.auth_scheme")

	_ = viper.BindEnv("storage.driver")
	_ = viper.BindEnv("storage.path")

	_ = viper.BindEnv("log_level")

	_ = viper.BindEnv("navigation.login_route")
	_ = viper.BindEnv("navigation.denied_route")
	_ = viper.BindEnv("navigation.landing_route")
	_ = viper.BindEnv("navigation.start_path")
	// navigation.entry_routes and routes are lists; use the config file.

	_ = viper.BindEnv("tracing.enabled")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration and applies defaults but does not
// validate. Use it when CLI flags still need to be applied.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: run on environment variables and defaults.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
