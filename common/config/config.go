// Package config provides TOML configuration helpers shared by printmonitor components.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FindConfigFile returns the first readable filename along GetConfigSearchPaths.
func FindConfigFile(filename string) (string, error) {
	for _, path := range GetConfigSearchPaths(filename) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in any search path", filename)
}

// GetConfigSearchPaths returns candidate locations for filename, highest
// priority first: system directory, user config directory, executable
// directory, working directory.
func GetConfigSearchPaths(filename string) []string {
	var paths []string

	switch runtime.GOOS {
	case "windows":
		paths = append(paths, filepath.Join(os.Getenv("ProgramData"), "PrintMonitor", filename))
	case "darwin":
		paths = append(paths, filepath.Join("/Library/Application Support", "PrintMonitor", filename))
	default:
		paths = append(paths, filepath.Join("/etc/printmonitor", filename))
	}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "printmonitor", filename))
	}

	if exePath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exePath), filename))
	}

	return append(paths, filepath.Join(".", filename))
}

// GetDataDirectory returns (and creates) the directory used for the local
// database when no explicit path is configured.
func GetDataDirectory(isService bool) (string, error) {
	var dir string
	if isService {
		switch runtime.GOOS {
		case "windows":
			dir = filepath.Join(os.Getenv("ProgramData"), "PrintMonitor")
		default:
			dir = "/var/lib/printmonitor"
		}
	} else {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("could not get user cache directory: %w", err)
		}
		dir = filepath.Join(base, "printmonitor")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// WriteDefaultTOML encodes config to configPath, creating parent directories.
func WriteDefaultTOML(configPath string, config interface{}) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadTOML decodes configPath into config. Keys absent from the file keep the
// values config already holds, so callers pass a struct pre-filled with defaults.
func LoadTOML(configPath string, config interface{}) error {
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file not found: %w", err)
	}

	md, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	Path   string `toml:"path"`   // sqlite file path
	DSN    string `toml:"dsn"`    // postgres connection string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

func ApplyDatabaseEnvOverrides(cfg *DatabaseConfig) {
	if val := os.Getenv("DB_DRIVER"); val != "" {
		cfg.Driver = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.Path = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DSN = val
	}
}

func ApplyLoggingEnvOverrides(cfg *LoggingConfig) {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Level = val
	}
}

// EnvInt returns the integer value of key, or fallback when unset or invalid.
func EnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
