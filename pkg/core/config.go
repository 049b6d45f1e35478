// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds layinstall configuration as read from a config file
type Config struct {
	Product      string        `yaml:"product" toml:"product"`
	Prefix       string        `yaml:"prefix" toml:"prefix"`
	DestRoot     string        `yaml:"dest_root" toml:"dest_root"`
	OutputDir    string        `yaml:"output_dir" toml:"output_dir"`
	SourceDir    string        `yaml:"source_dir" toml:"source_dir"`
	LibDir       string        `yaml:"lib_dir" toml:"lib_dir"`             // Empty means detect
	SitePackages string        `yaml:"site_packages" toml:"site_packages"` // Empty means ask Python
	Python       string        `yaml:"python" toml:"python"`
	Debug        bool          `yaml:"debug" toml:"debug"`
	Cleanup      CleanupConfig `yaml:"cleanup" toml:"cleanup"`
}

// CleanupConfig lists what gets stripped from the installed share tree
type CleanupConfig struct {
	VCSNames           []string `yaml:"vcs_names" toml:"vcs_names"`
	ExcludedExtensions []string `yaml:"excluded_extensions" toml:"excluded_extensions"`
	RemoveFiles        []string `yaml:"remove_files" toml:"remove_files"` // Relative to the share tree
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Product:   DefaultProduct,
		Prefix:    DefaultPrefix,
		OutputDir: DefaultOutputDir,
		SourceDir: ".",
		Python:    DefaultPython,
		Cleanup:   DefaultCleanup(),
	}
}

// DefaultCleanup returns the stock cleanup lists
func DefaultCleanup() CleanupConfig {
	return CleanupConfig{
		VCSNames:           []string{"CVS", ".svn", ".git", ".hg", ".cvsignore", ".gitignore", ".#*"},
		ExcludedExtensions: []string{".h", ".I", ".c", ".cxx", ".cpp"},
		RemoveFiles:        []string{"direct/leveleditor/copyfiles.pl"},
	}
}

// LoadConfig loads configuration from file. Missing files yield the defaults;
// fields absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(home, ".config", "layinstall", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfig(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// ParseConfig decodes config data on top of the defaults
func ParseConfig(data []byte, isTOML bool) (*Config, error) {
	cfg := DefaultConfig()
	if isTOML {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file as YAML
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "layinstall", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
