// Package config loads the storage core's configuration: a viper-backed
// YAML file discovered by walking up from the working directory, falling
// back to the user's config/home directory, overridable by
// INFUMAP_-prefixed environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from cwd looking for .infumap/config.yaml, so commands
	// work the same from any subdirectory of a data directory.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".infumap", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory.
	if !configFileSet {
		if dir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(dir, "infumap", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	// 3. Home directory.
	if !configFileSet {
		if dir, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(dir, ".infumap", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("INFUMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", ".infumap/data")
	v.SetDefault("cache-dir", ".infumap/cache")
	v.SetDefault("object-store.local-dir", ".infumap/objects")
	v.SetDefault("object-store.s3-primary.bucket", "")
	v.SetDefault("object-store.s3-secondary.bucket", "")
	v.SetDefault("image-cache.max-scale-down-percent", 30)
	v.SetDefault("image-cache.max-scale-up-percent", 5)
	v.SetDefault("search-index.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 100)
	v.SetDefault("log.max-backups", 5)
}

// V returns the initialized viper instance. Panics if Initialize has not
// been called: a process-lifetime singleton should fail fast on misuse
// rather than silently return a config with no discovered values.
func V() *viper.Viper {
	if v == nil {
		panic("config: Initialize must be called before V")
	}
	return v
}

// GetValueSource reports whether key's effective value came from an
// environment variable, the config file, or a built-in default.
func GetValueSource(key string) string {
	envKey := strings.ToUpper("INFUMAP_" + strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if _, ok := os.LookupEnv(envKey); ok {
		return "env"
	}
	if v.InConfig(key) {
		return "config-file"
	}
	return "default"
}
