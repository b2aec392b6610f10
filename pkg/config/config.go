package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sambabib/versions-check/pkg/version"
)

// FileName is the config file looked up from the project directory upwards.
const FileName = ".versions-check.yaml"

// Config represents the configuration for the versions check
type Config struct {
	// Print each outdated package's link and the packages requiring it.
	// Nil defers to the project's own setting (composer.json plugin config).
	ShowLinks *bool `yaml:"show-links"`

	// Least stable release considered (dev, alpha, beta, RC, stable).
	// Empty defers to the project's minimum-stability.
	MinimumStability string `yaml:"minimum-stability"`

	// Packages never reported, as exact names or doublestar globs ("acme/*")
	IgnorePackages []string `yaml:"ignore-packages"`

	// Custom registries
	Registries struct {
		Packagist string `yaml:"packagist"`
		Npm       string `yaml:"npm"`
	} `yaml:"registries"`

	// Static source files, relative to the config file
	Sources []string `yaml:"sources"`

	// Severity thresholds for SARIF reporting
	Severity struct {
		Major string `yaml:"major"` // Default: error
		Minor string `yaml:"minor"` // Default: warning
		Patch string `yaml:"patch"` // Default: info
	} `yaml:"severity"`

	// Output configuration
	Output struct {
		Format string `yaml:"format"` // text, json, sarif
		File   string `yaml:"file"`   // Output file path (stdout if empty)
	} `yaml:"output"`

	// Concurrent registry requests
	Concurrency int `yaml:"concurrency"`

	path string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		IgnorePackages: []string{},
		Concurrency:    8,
	}

	// Set default severity levels
	config.Severity.Major = "error"
	config.Severity.Minor = "warning"
	config.Severity.Patch = "info"

	// Set default output format
	config.Output.Format = "text"

	return config
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// LoadConfig loads the configuration from the specified file path.
// If no path is provided, it looks for .versions-check.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = FileName
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", configPath)
		}
		return DefaultConfig(), nil
	}
	return readConfig(configPath)
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", projectPath, err)
	}

	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return readConfig(configPath)
		}

		// Move up to the parent directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return DefaultConfig(), nil
}

func readConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	config.path = configPath
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// Validate checks values that would otherwise only fail mid-run.
func (c *Config) Validate() error {
	if c.MinimumStability != "" {
		if _, err := version.ParseStability(c.MinimumStability); err != nil {
			return fmt.Errorf("minimum-stability: %w", err)
		}
	}
	if err := ValidatePatterns(c.IgnorePackages); err != nil {
		return fmt.Errorf("ignore-packages: %w", err)
	}
	switch c.Output.Format {
	case "", "text", "json", "sarif":
	default:
		return fmt.Errorf("output.format: unsupported format %q", c.Output.Format)
	}
	for name, level := range map[string]string{"major": c.Severity.Major, "minor": c.Severity.Minor, "patch": c.Severity.Patch} {
		switch level {
		case "", "error", "warning", "info", "none":
		default:
			return fmt.Errorf("severity.%s: unsupported level %q", name, level)
		}
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// ApplyOverrides layers the flags and environment variables bound in v
// over the file configuration. Only values explicitly set are applied.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	if v.IsSet("show-links") {
		showLinks := v.GetBool("show-links")
		c.ShowLinks = &showLinks
	}
	if v.IsSet("minimum-stability") {
		c.MinimumStability = v.GetString("minimum-stability")
	}
	if v.IsSet("ignore") {
		c.IgnorePackages = append(c.IgnorePackages, v.GetStringSlice("ignore")...)
	}
	if v.IsSet("format") {
		c.Output.Format = v.GetString("format")
	}
	if v.IsSet("output") {
		c.Output.File = v.GetString("output")
	}
	if v.IsSet("concurrency") {
		c.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("registry-packagist") {
		c.Registries.Packagist = v.GetString("registry-packagist")
	}
	if v.IsSet("registry-npm") {
		c.Registries.Npm = v.GetString("registry-npm")
	}
	return c.Validate()
}

// SourcePaths returns the static source files resolved against the
// config file's directory.
func (c *Config) SourcePaths() []string {
	base := "."
	if c.path != "" {
		base = filepath.Dir(c.path)
	}
	paths := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !filepath.IsAbs(s) {
			s = filepath.Join(base, s)
		}
		paths = append(paths, s)
	}
	return paths
}

// ValidatePatterns reports the first malformed package glob.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid pattern %q", pattern)
		}
	}
	return nil
}

// MatchPackage reports whether name equals or matches any of patterns.
// "*" stays within a vendor or scope, "**" crosses it.
func MatchPackage(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if pattern == name {
			return true
		}
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// GetSeverityForUpdate returns the configured severity level for the given update type
func (c *Config) GetSeverityForUpdate(updateType string) string {
	var level string
	switch strings.ToLower(updateType) {
	case "major":
		level = c.Severity.Major
	case "minor":
		level = c.Severity.Minor
	case "patch":
		level = c.Severity.Patch
	}
	if level == "" {
		return "info"
	}
	return level
}
