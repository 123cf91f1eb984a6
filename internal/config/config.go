// Package config loads scanflow settings from a TOML file, SCANFLOW_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCANFLOW_LOGGING_LEVEL.
const EnvPrefix = "SCANFLOW"

// EnvDB overrides database.path directly.
const EnvDB = "SCANFLOW_DB"

// Database locates the SQLite file.
type Database struct {
	Path string `mapstructure:"path" toml:"path"`
	// Lock takes an advisory file lock next to the database around every
	// write transaction, so several processes can share one file.
	Lock bool `mapstructure:"lock" toml:"lock"`
}

// Stages overrides the built-in stage graph and its labels.
type Stages struct {
	// GraphFile is an optional YAML stage topology replacing the default.
	GraphFile string            `mapstructure:"graph_file" toml:"graph_file"`
	Labels    map[string]string `mapstructure:"labels" toml:"labels"`
}

// Access controls who may intake and finish stages.
type Access struct {
	Coordinators []string `mapstructure:"coordinators" toml:"coordinators"`
	Enforce      bool     `mapstructure:"enforce" toml:"enforce"`
}

// Logging selects the log level and handler format.
type Logging struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// Display holds presentation settings.
type Display struct {
	// Collation is a BCP 47 language tag whose rules order titles.
	Collation string `mapstructure:"collation" toml:"collation"`
}

// Shell holds defaults for the interactive shell.
type Shell struct {
	// Actor is the actor id the interactive shell acts as.
	Actor string `mapstructure:"actor" toml:"actor"`
}

// Config holds every setting.
type Config struct {
	Database Database `mapstructure:"database" toml:"database"`
	Stages   Stages   `mapstructure:"stages" toml:"stages"`
	Access   Access   `mapstructure:"access" toml:"access"`
	Logging  Logging  `mapstructure:"logging" toml:"logging"`
	Display  Display  `mapstructure:"display" toml:"display"`
	Shell    Shell    `mapstructure:"shell" toml:"shell"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{Path: "~/.scanflow/scanflow.db", Lock: true},
		Stages:   Stages{Labels: map[string]string{}},
		Access:   Access{Coordinators: []string{}},
		Logging:  Logging{Level: "info", Format: "console"},
		Display:  Display{Collation: "uk"},
		Shell:    Shell{},
	}
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() (string, error) {
	return expandPath("~/.scanflow/config.toml")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.lock", d.Database.Lock)
	v.SetDefault("stages.graph_file", d.Stages.GraphFile)
	v.SetDefault("stages.labels", d.Stages.Labels)
	v.SetDefault("access.coordinators", d.Access.Coordinators)
	v.SetDefault("access.enforce", d.Access.Enforce)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("display.collation", d.Display.Collation)
	v.SetDefault("shell.actor", d.Shell.Actor)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	return v
}

// readInto reads the config file, if any, and decodes the merged settings.
// A missing file is not an error.
func readInto(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads path (or DefaultPath when empty) and returns the validated
// configuration.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	return readInto(newViper(resolved))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPath()
	}
	return expandPath(path)
}

func (c *Config) normalize() error {
	if override := strings.TrimSpace(os.Getenv(EnvDB)); override != "" {
		c.Database.Path = override
	}
	if c.Database.Path != ":memory:" {
		var err error
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
	}
	if c.Stages.GraphFile != "" {
		var err error
		if c.Stages.GraphFile, err = expandPath(c.Stages.GraphFile); err != nil {
			return fmt.Errorf("stages.graph_file: %w", err)
		}
	}
	if c.Stages.Labels == nil {
		c.Stages.Labels = map[string]string{}
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Display.Collation = strings.TrimSpace(c.Display.Collation)
	c.Shell.Actor = strings.TrimSpace(c.Shell.Actor)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
