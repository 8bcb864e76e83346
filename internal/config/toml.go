// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Lookup     LookupConfig     `toml:"lookup"`
	Assessment AssessmentConfig `toml:"assessment"`
	Store      StoreConfig      `toml:"store"`
	Log        LogConfig        `toml:"log"`
}

// LookupConfig maps client identifier lookup settings.
type LookupConfig struct {
	URL      *string `toml:"url"`
	Timeout  *string `toml:"timeout"`
	Fallback *string `toml:"fallback"`
}

// AssessmentConfig maps typing assessment settings.
type AssessmentConfig struct {
	Topic    *string `toml:"topic"`
	Duration *int    `toml:"duration"`
	Length   *int    `toml:"length"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	Path  *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
