// Package config loads the RigidLabeler configuration from YAML.
// A missing file yields the defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hytous/RigidLabeler/internal/logging"
)

// Config is the application configuration as stored in backend.yaml.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	// Relative paths are resolved against the directory given to Resolve.
	Paths struct {
		DataRoot   string `yaml:"data_root"`
		LabelsRoot string `yaml:"labels_root"`
		TempRoot   string `yaml:"temp_root"`
	} `yaml:"paths"`

	Logging struct {
		// Level is one of DEBUG, INFO, WARNING, ERROR or NONE.
		Level string `yaml:"level"`
	} `yaml:"logging"`

	// Preview holds defaults for checkerboard requests that omit them.
	Preview struct {
		BoardSize    int  `yaml:"board_size"`
		CenterOrigin bool `yaml:"use_center_origin"`
	} `yaml:"preview"`
}

// Default returns a configuration with default values.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8000

	cfg.Paths.DataRoot = "data"
	cfg.Paths.LabelsRoot = filepath.Join("data", "labels")
	cfg.Paths.TempRoot = filepath.Join("data", "temp")

	cfg.Logging.Level = "INFO"

	cfg.Preview.BoardSize = 8
	cfg.Preview.CenterOrigin = false

	return cfg
}

// Load reads configuration from a YAML file on top of the defaults.
// If the file doesn't exist, the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Resolve makes relative paths absolute against baseDir.
func (c *Config) Resolve(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Paths.DataRoot = resolve(c.Paths.DataRoot)
	c.Paths.LabelsRoot = resolve(c.Paths.LabelsRoot)
	c.Paths.TempRoot = resolve(c.Paths.TempRoot)
}

// EnsureDirs creates the labels and temp directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.LabelsRoot, c.Paths.TempRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Paths.LabelsRoot == "" || c.Paths.TempRoot == "" {
		return fmt.Errorf("paths.labels_root and paths.temp_root are required")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Preview.BoardSize < 2 || c.Preview.BoardSize > 64 {
		return fmt.Errorf("preview.board_size must be between 2 and 64, got %d", c.Preview.BoardSize)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
