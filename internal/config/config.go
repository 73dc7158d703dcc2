package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DatasetPath      string `mapstructure:"dataset_path" yaml:"dataset_path"`
	DatasetDelimiter string `mapstructure:"dataset_delimiter" yaml:"dataset_delimiter"`
	DatasetTable     string `mapstructure:"dataset_table" yaml:"dataset_table"`

	// Model
	Neighbors int     `mapstructure:"neighbors" yaml:"neighbors"`
	TestSize  float64 `mapstructure:"test_size" yaml:"test_size"`
	Seed      uint64  `mapstructure:"seed" yaml:"seed"`

	// Output
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"dataset_path",
	"dataset_delimiter",
	"dataset_table",
	"neighbors",
	"test_size",
	"seed",
	"log_level",
	"output_format",
}

// Dir returns ~/.enemcast.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".enemcast"), nil
}

// Delimiter returns the configured dataset delimiter as a rune; zero means
// sniff it from the header.
func (c *Global) Delimiter() rune {
	switch strings.ToLower(c.DatasetDelimiter) {
	case "", "auto":
		return 0
	case "tab", `\t`:
		return '\t'
	}
	return []rune(c.DatasetDelimiter)[0]
}

// Validate checks value ranges.
func (c *Global) Validate() error {
	if c.Neighbors <= 0 {
		return fmt.Errorf("neighbors must be positive, got %d", c.Neighbors)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0, 1), got %v", c.TestSize)
	}
	switch c.OutputFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output_format must be text, json or yaml, got %q", c.OutputFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.enemcast/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ENEMCAST")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset_path", "")
	v.SetDefault("dataset_delimiter", "")
	v.SetDefault("dataset_table", "microdados")
	v.SetDefault("neighbors", 9)
	v.SetDefault("test_size", 0.2)
	v.SetDefault("seed", 42)
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DatasetPath == "" {
		if dir, err := Dir(); err == nil {
			c.DatasetPath = filepath.Join(dir, "dados_ceara.csv")
		}
	}
	return &c, nil
}
