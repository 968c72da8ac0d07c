package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pagerank"

// LoadConfigFile loads per-corpus settings from a YAML file.
// It returns ErrConfigNotFound when the file does not exist, and
// ErrInvalidCorpusConfig when an entry holds an out-of-range value.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Corpora == nil {
		cf.Corpora = make(map[string]CorpusConfig)
	}

	if err := cf.Defaults.validate(); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrInvalidCorpusConfig, err)
	}
	for name, cc := range cf.Corpora {
		if err := cc.validate(); err != nil {
			return nil, fmt.Errorf("%w: corpus %q: %w", ErrInvalidCorpusConfig, name, err)
		}
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in this order:
//  1. configPath, if given
//  2. .pagerank in the current directory
//  3. .pagerank in the user's home directory
//  4. config.yaml in the XDG configuration directory
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
