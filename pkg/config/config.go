/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssargent/assetreg/pkg/codec"
	"gopkg.in/yaml.v3"
)

// Config represents the assetreg configuration
type Config struct {
	CatalogDir string   `yaml:"catalog_dir"`
	Port       int      `yaml:"port"`
	Bind       string   `yaml:"bind"`
	Security   Security `yaml:"security"`
	Logging    Logging  `yaml:"logging"`
	Limits     Limits   `yaml:"limits"`
	Output     Output   `yaml:"output"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Limits bounds the sizes a decode will accept before allocating.
type Limits struct {
	MaxStringBytes int `yaml:"max_string_bytes"`
	MaxPoolBytes   int `yaml:"max_pool_bytes"`
	MaxArrayCount  int `yaml:"max_array_count"`
}

// Output controls how the CLI renders reports.
type Output struct {
	Format string `yaml:"format"`
}

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	outputFormats = []string{"table", "json", "yaml", "cbor"}
)

// ToCodec converts the configured limits, leaving zero values to the codec defaults.
func (l Limits) ToCodec() codec.Limits {
	return codec.Limits{
		MaxStringBytes: l.MaxStringBytes,
		MaxPoolBytes:   l.MaxPoolBytes,
		MaxArrayCount:  l.MaxArrayCount,
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	d := codec.DefaultLimits()
	return &Config{
		CatalogDir: "./catalog",
		Port:       8080,
		Bind:       "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Limits: Limits{
			MaxStringBytes: d.MaxStringBytes,
			MaxPoolBytes:   d.MaxPoolBytes,
			MaxArrayCount:  d.MaxArrayCount,
		},
		Output: Output{
			Format: "table",
		},
	}
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.CatalogDir == "" {
		errs = append(errs, errors.New("catalog_dir must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !oneOf(c.Logging.Level, logLevels) {
		errs = append(errs, fmt.Errorf("logging.level %q not one of %s", c.Logging.Level, strings.Join(logLevels, ", ")))
	}
	if !oneOf(c.Logging.Format, logFormats) {
		errs = append(errs, fmt.Errorf("logging.format %q not one of %s", c.Logging.Format, strings.Join(logFormats, ", ")))
	}
	if !oneOf(c.Output.Format, outputFormats) {
		errs = append(errs, fmt.Errorf("output.format %q not one of %s", c.Output.Format, strings.Join(outputFormats, ", ")))
	}
	if c.Limits.MaxStringBytes < 0 || c.Limits.MaxPoolBytes < 0 || c.Limits.MaxArrayCount < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	if c.Limits.MaxStringBytes > codec.MaxStringBytes {
		errs = append(errs, fmt.Errorf("limits.max_string_bytes exceeds %d", codec.MaxStringBytes))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from the specified path. Missing keys keep
// their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key.
func BootstrapConfig(configPath string, catalogDir string) (*Config, error) {
	config := DefaultConfig()
	if catalogDir != "" {
		config.CatalogDir = catalogDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./assetreg.yaml"
	}
	return filepath.Join(homeDir, ".config", "assetreg", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
